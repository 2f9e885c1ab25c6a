package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/alexrdz/retro-flow/internal/config"
	"github.com/alexrdz/retro-flow/internal/core"
	"github.com/alexrdz/retro-flow/internal/proto"
	"github.com/alexrdz/retro-flow/internal/store/sqlite"
)

type testEnv struct {
	server *http.Server
	ts     *httptest.Server
	store  *sqlite.SQLiteStore
	hub    *core.Hub
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.AllowedOrigins = nil
	cfg.PingInterval = 0
	return cfg
}

// startTestServer wires an in-memory store and a running hub behind an
// httptest server.
func startTestServer(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:", clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	disabledLogger := zerolog.Nop()
	hub := core.NewHub(&disabledLogger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := NewServer(hub, st, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{server: server, ts: ts, store: st, hub: hub}
}

// do runs a request against the handler without a network round trip.
func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(resp, req)
	return resp
}

func decodeBody[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(resp.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", resp.Body.String(), err)
	}
	return v
}

func (e *testEnv) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// readUntil reads frames until one matches event (or an error frame when
// event is empty) and decodes its data into out.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, out any) rawOutbound {
	t.Helper()

	for {
		var msg rawOutbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		if event == "" && msg.Type == proto.OutboundTypeError {
			return msg
		}
		if event != "" && msg.Type == proto.OutboundTypeEvent && msg.Event == event {
			if out != nil {
				if err := json.Unmarshal(msg.Data, out); err != nil {
					t.Fatalf("unmarshal %s: %v", event, err)
				}
			}
			return msg
		}
	}
}

func joinSession(t *testing.T, ctx context.Context, conn *websocket.Conn, session, user string) proto.EventPresence {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{Session: session, User: user})
	var snap proto.EventPresence
	readUntil(t, ctx, conn, proto.EventPresenceUpdate, &snap)
	return snap
}
