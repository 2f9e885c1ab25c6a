package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/alexrdz/retro-flow/internal/core"
	"github.com/alexrdz/retro-flow/internal/proto"
	"github.com/alexrdz/retro-flow/internal/utils"
)

// WSOptions tunes websocket connections.
type WSOptions struct {
	// OriginPatterns are host patterns accepted for cross-origin upgrades.
	// Empty disables the origin check.
	OriginPatterns       []string
	PingInterval         time.Duration
	PingTimeout          time.Duration
	MaxMessageBytes      int64
	MaxMessagesPerMinute int
}

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub  Hub
	opts WSOptions
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub Hub, opts WSOptions, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, opts: opts, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.opts.OriginPatterns,
		InsecureSkipVerify: len(h.opts.OriginPatterns) == 0,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}

	client := core.NewClient(utils.NewConnectionID(), 0)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	h.log.Debug().Str("conn_id", client.ID).Str("remote", r.RemoteAddr).Msg("ws connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.opts.MaxMessagesPerMinute, time.Minute)
	limiter.startReset(ctx.Done())

	errCh := make(chan error, 3)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.pingLoop(ctx, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutines
	<-errCh
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
		}
	}

	h.log.Debug().Str("conn_id", client.ID).Int("status", int(status)).Msg("ws disconnected")
	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, limiter *rateLimiter) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if !limiter.allow() {
			if err := h.writeError(ctx, conn, &proto.Error{Code: core.ErrCodeRateLimited, Msg: "too many messages"}); err != nil {
				return err
			}
			continue
		}

		var inbound proto.Inbound
		if typ != websocket.MessageText || json.Unmarshal(data, &inbound) != nil {
			h.log.Debug().Str("conn_id", client.ID).Msg("malformed ws message")
			if err := h.writeError(ctx, conn, invalidMessage("malformed message")); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			if err := h.writeError(ctx, conn, protoErr); err != nil {
				return err
			}
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// pingLoop detects dead peers. It blocks until ctx ends when pings are off.
func (h *WSHandler) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	if h.opts.PingInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.opts.PingTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, perr *proto.Error) error {
	return wsjson.Write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: perr})
}
