package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/deskchat/deskchat/internal/auth"
	"github.com/deskchat/deskchat/internal/bus"
	"github.com/deskchat/deskchat/internal/chat"
	"github.com/deskchat/deskchat/internal/config"
	"github.com/deskchat/deskchat/internal/presence"
	"github.com/deskchat/deskchat/internal/store"
	"github.com/deskchat/deskchat/internal/store/sqlite"
)

type testEnv struct {
	ts    *httptest.Server
	store store.Store
	auth  *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	memBus := bus.NewMemoryBus()
	t.Cleanup(func() { memBus.Close() })

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "deskchat",
		Audience: "deskchat-clients",
		TTL:      time.Hour,
	})

	disabledLogger := zerolog.New(nil)
	deps := chat.Deps{
		Store:    st,
		Bus:      memBus,
		Presence: presence.NewMemoryRegistry(),
		Logger:   &disabledLogger,
	}

	cfg := config.Default()
	cfg.Addr = ":0"

	server := NewServer(deps, authService, st, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st, auth: authService}
}

// staffToken creates a staff user and returns a token for it.
func (e *testEnv) staffToken(t *testing.T, username string) string {
	t.Helper()

	hash, err := auth.HashPassword("agent-secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if _, err := e.store.CreateUser(context.Background(), username, hash, true); err != nil {
		t.Fatalf("create staff user: %v", err)
	}

	token, err := e.auth.Login(context.Background(), username, "agent-secret")
	if err != nil {
		t.Fatalf("login staff user: %v", err)
	}
	return token
}

func (e *testEnv) guestToken(t *testing.T) string {
	t.Helper()

	token, _, err := e.auth.GuestToken()
	if err != nil {
		t.Fatalf("guest token: %v", err)
	}
	return token
}

func (e *testEnv) createRoom(t *testing.T, roomToken string) {
	t.Helper()

	if _, err := e.store.CreateRoom(context.Background(), roomToken); err != nil {
		t.Fatalf("create room: %v", err)
	}
}

// readFrameOfType reads websocket frames until one with the wanted type
// arrives, skipping unrelated broadcasts such as presence refreshes.
func readFrameOfType(t *testing.T, ctx context.Context, conn *websocket.Conn, frameType string) map[string]any {
	t.Helper()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read frame waiting for %q: %v", frameType, err)
		}
		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if frame["type"] == frameType {
			return frame
		}
	}
}
