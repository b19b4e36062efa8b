package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
)

func (e *testEnv) request(t *testing.T, method, path, token string, body []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.ts.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestCreateAndGetRoom(t *testing.T) {
	env := newTestEnv(t)
	token := env.guestToken(t)

	resp := env.request(t, http.MethodPost, "/api/rooms/room-api-1", token, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	room := decodeBody[RoomResponse](t, resp)
	if room.Token != "room-api-1" || room.Status != "open" {
		t.Fatalf("unexpected room: %+v", room)
	}

	// Duplicate tokens conflict.
	resp = env.request(t, http.MethodPost, "/api/rooms/room-api-1", token, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate token, got %d", resp.StatusCode)
	}

	resp = env.request(t, http.MethodGet, "/api/rooms/room-api-1", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = env.request(t, http.MethodGet, "/api/rooms/missing", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", resp.StatusCode)
	}

	// No credentials, no API.
	resp = env.request(t, http.MethodPost, "/api/rooms/room-api-2", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestCreateRoomTokenValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.guestToken(t)

	resp := env.request(t, http.MethodPost, "/api/rooms/abc", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for short token, got %d", resp.StatusCode)
	}
}

func TestListMessagesEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.createRoom(t, "room-history")
	token := env.guestToken(t)

	room, err := env.store.GetRoomByToken(context.Background(), "room-history")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	for i := 0; i < 3; i++ {
		body := fmt.Sprintf("message %d", i)
		if _, err := env.store.CreateMessage(context.Background(), room.ID, body, "Jane Doe", nil); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	resp := env.request(t, http.MethodGet, "/api/rooms/room-history/messages", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	msgs := decodeBody[[]MessageResponse](t, resp)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, msg := range msgs {
		if want := fmt.Sprintf("message %d", i); msg.Message != want {
			t.Fatalf("message %d out of order: got %q", i, msg.Message)
		}
	}
	if msgs[0].Initials != "JD" || msgs[0].Agent != "" {
		t.Fatalf("unexpected message metadata: %+v", msgs[0])
	}

	resp = env.request(t, http.MethodGet, "/api/rooms/room-history/messages?limit=zero", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", resp.StatusCode)
	}
}

func TestPresenceEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.createRoom(t, "room-presence")
	token := env.guestToken(t)

	resp := env.request(t, http.MethodGet, "/api/rooms/room-presence/presence", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody[map[string][]string](t, resp)
	if users, ok := body["users"]; !ok || len(users) != 0 {
		t.Fatalf("expected empty user list, got %v", body)
	}
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/auth/register", "",
		[]byte(`{"username":"alice","password":"password123"}`))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	reg := decodeBody[TokenResponse](t, resp)
	if reg.Token == "" || reg.Username != "alice" {
		t.Fatalf("unexpected register response: %+v", reg)
	}

	resp = env.request(t, http.MethodPost, "/api/auth/login", "",
		[]byte(`{"username":"alice","password":"password123"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = env.request(t, http.MethodPost, "/api/auth/login", "",
		[]byte(`{"username":"alice","password":"nope"}`))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp = env.request(t, http.MethodPost, "/api/auth/guest", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	guest := decodeBody[TokenResponse](t, resp)
	if guest.Token == "" || guest.Username == "" {
		t.Fatalf("unexpected guest response: %+v", guest)
	}
}
