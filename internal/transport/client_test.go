package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWSEndpoint(t *testing.T) {
	cases := map[string]string{
		"http://localhost:5000":       "ws://localhost:5000/ws",
		"https://debate.example/app/": "wss://debate.example/app/ws",
	}
	for in, want := range cases {
		got, err := wsEndpoint(in, "")
		if err != nil || got != want {
			t.Fatalf("expected %s for %s, got %s (%v)", want, in, got, err)
		}
	}
	if _, err := wsEndpoint("ftp://x", ""); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}

func receive(t *testing.T, ch <-chan any) any {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for transport message")
	}
	return nil
}

func TestRunDeliversEventsAndHandshake(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	var seen []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Query())
		mu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"session_init","data":{"session_id":"abc"}}`))
		conn.ReadMessage()
	}))
	defer srv.Close()

	client, err := New(srv.URL, "/ws", func() url.Values {
		return url.Values{"session_id": {"persisted"}, "flask_session_id": {"app"}}
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan any, 8)
	go client.Run(ctx, out)

	st, ok := receive(t, out).(Status)
	if !ok || !st.Connected {
		t.Fatalf("expected connected status first, got %#v", st)
	}
	ev, ok := receive(t, out).(Event)
	if !ok || ev.Name != "session_init" || !strings.Contains(string(ev.Data), "abc") {
		t.Fatalf("expected session_init event after dropping bad frame, got %#v", ev)
	}
	if !client.Connected() {
		t.Fatalf("expected client to report connected")
	}
	mu.Lock()
	q := seen[0]
	mu.Unlock()
	if q.Get("session_id") != "persisted" || q.Get("flask_session_id") != "app" {
		t.Fatalf("unexpected handshake query %v", q)
	}
}

func TestRunReconnectsWithLatestQuery(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	var ids []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.URL.Query().Get("session_id"))
		mu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	var current sync.Mutex
	id := "first"
	client, _ := New(srv.URL, "", func() url.Values {
		current.Lock()
		defer current.Unlock()
		return url.Values{"session_id": {id}}
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan any, 16)
	go client.Run(ctx, out)

	if st := receive(t, out).(Status); !st.Connected {
		t.Fatalf("expected first connect")
	}
	current.Lock()
	id = "second"
	current.Unlock()
	if st := receive(t, out).(Status); st.Connected {
		t.Fatalf("expected disconnect after server close")
	}
	client.Nudge()
	if st := receive(t, out).(Status); !st.Connected {
		t.Fatalf("expected reconnect")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(ids) < 2 || ids[1] != "second" {
		t.Fatalf("expected reconnect to use latest id, got %v", ids)
	}
}
