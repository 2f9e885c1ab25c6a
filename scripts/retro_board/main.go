package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/alexrdz/retro-flow/internal/client"
	"github.com/alexrdz/retro-flow/internal/models"
	"github.com/alexrdz/retro-flow/internal/proto"
)

const usage = `commands:
  add <went_well|improve|actions> <text>   add a card
  edit <id> <text>                         change card content
  rm <id>                                  remove a card
  todo <title>                             add an action item
  done <id>                                complete an action item
  ready                                    toggle ready
  show                                     print the board
  dismiss                                  clear the last error`

func main() {
	if err := run(); err != nil {
		log.Printf("retro_board: %v", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	user := flag.String("user", "cli-user", "username")
	session := flag.String("session", "", "session id (empty creates a new one)")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	api := client.NewAPIClient(*server + "/api")
	if *session == "" {
		s, err := api.CreateSession(ctx, "CLI retro")
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		*session = s.ID
	}

	sock, err := client.Dial(ctx, strings.Replace(*server, "http", "ws", 1)+"/ws", nil)
	if err != nil {
		return err
	}
	defer sock.Close()

	board := client.NewBoard(*session, *user, api, sock, nil)
	if err := board.Load(ctx); err != nil {
		return err
	}

	d := client.NewDispatcher()
	board.Attach(d)
	d.Subscribe(proto.EventUserJoined, func(ev client.Event) { fmt.Printf("* %s joined\n", ev.User) })
	d.Subscribe(proto.EventUserLeft, func(ev client.Event) { fmt.Printf("* %s left\n", ev.User) })
	d.Subscribe(client.EventError, func(ev client.Event) { fmt.Printf("! %s: %s\n", ev.Error.Code, ev.Error.Msg) })

	go func() {
		defer cancel()
		if err := sock.Run(ctx, d); err != nil {
			log.Printf("read error: %v", err)
		}
	}()

	if err := board.Join(ctx); err != nil {
		return err
	}

	fmt.Printf("Joined session %s as %s\n%s\n", *session, *user, usage)
	commandLoop(ctx, board)
	_ = board.Leave(context.Background())
	return nil
}

func commandLoop(ctx context.Context, board *client.Board) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := execute(ctx, board, strings.TrimSpace(line)); err != nil {
				fmt.Println("!", err)
			}
		}
	}
}

func execute(ctx context.Context, board *client.Board, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "":
		return nil
	case "add":
		column, text, _ := strings.Cut(rest, " ")
		_, err := board.AddCard(ctx, strings.TrimSpace(text), models.ColumnType(column))
		return err
	case "edit":
		idText, text, _ := strings.Cut(rest, " ")
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil {
			return errors.New("edit needs a numeric id")
		}
		text = strings.TrimSpace(text)
		_, err = board.UpdateCard(ctx, id, models.CardPatch{Content: &text})
		return err
	case "rm":
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return errors.New("rm needs a numeric id")
		}
		return board.RemoveCard(ctx, id)
	case "todo":
		_, err := board.AddActionItem(ctx, rest, "", "")
		return err
	case "done":
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return errors.New("done needs a numeric id")
		}
		_, err = board.ChangeActionItemStatus(ctx, id, models.ActionItemCompleted)
		return err
	case "ready":
		return board.ToggleReady(ctx)
	case "show":
		printBoard(board.Snapshot())
		return nil
	case "dismiss":
		board.DismissError()
		return nil
	default:
		fmt.Println(usage)
		return nil
	}
}

func printBoard(s client.State) {
	fmt.Printf("== %s ==\n", s.Session.Name)
	fmt.Printf("online: %s | ready: %s\n", strings.Join(s.OnlineUsers, ", "), strings.Join(s.ReadyUsers, ", "))
	for _, column := range []models.ColumnType{models.ColumnWentWell, models.ColumnImprove, models.ColumnActions} {
		fmt.Printf("-- %s\n", column.Title())
		for _, c := range s.Cards {
			if c.ColumnType == column {
				fmt.Printf("  [%d] %s\n", c.ID, c.Content)
			}
		}
	}
	fmt.Println("-- Follow-ups")
	for _, a := range s.ActionItems {
		fmt.Printf("  [%d] %s (%s)\n", a.ID, a.Title, a.Status)
	}
	if s.OperationError != "" {
		fmt.Printf("error: %s\n", s.OperationError)
	}
}
