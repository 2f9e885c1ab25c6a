package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/alexrdz/retro-flow/internal/client"
	"github.com/alexrdz/retro-flow/internal/models"
	"github.com/alexrdz/retro-flow/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("retro_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	text := flag.String("text", "hello from smoke test", "card content")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	api := client.NewAPIClient(*server + "/api")
	session, err := api.CreateSession(ctx, "smoke test")
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	wsURL := strings.Replace(*server, "http", "ws", 1) + "/ws"

	watcher, err := client.Dial(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer watcher.Close()

	received := make(chan client.Event, 1)
	joined := make(chan struct{}, 1)
	d := client.NewDispatcher()
	d.Subscribe(proto.EventPresenceUpdate, func(client.Event) {
		select {
		case joined <- struct{}{}:
		default:
		}
	})
	d.Subscribe(proto.EventCardCreated, func(ev client.Event) { received <- ev })
	d.Subscribe(client.EventError, func(ev client.Event) { log.Printf("watcher error: %s %s", ev.Error.Code, ev.Error.Msg) })
	go watcher.Run(ctx, d)

	if err := watcher.Emit(ctx, proto.InboundTypeJoin, proto.JoinData{Session: session.ID, User: "watcher"}); err != nil {
		return fmt.Errorf("watcher join: %w", err)
	}
	select {
	case <-joined:
	case <-ctx.Done():
		return fmt.Errorf("watcher never joined: %w", ctx.Err())
	}

	author, err := client.Dial(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer author.Close()
	go author.Run(ctx, client.NewDispatcher())

	board := client.NewBoard(session.ID, "tester", api, author, nil)
	if err := board.Join(ctx); err != nil {
		return err
	}

	card, err := board.AddCard(ctx, *text, models.ColumnWentWell)
	if err != nil {
		return err
	}
	fmt.Printf("Created card %d in session %s\n", card.ID, session.ID)

	select {
	case ev := <-received:
		fmt.Printf("Watcher received card_created: id=%d content=%q\n", ev.Card.ID, ev.Card.Content)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("no broadcast received: %w", ctx.Err())
	}
}
