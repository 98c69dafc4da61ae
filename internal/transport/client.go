package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultPath = "/ws"

	initialBackoff = time.Second
	backoffStep    = 500 * time.Millisecond
	maxBackoff     = 3 * time.Second
	dialTimeout    = 5 * time.Second
)

// Event is one push frame: {"event": name, "data": payload}.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Status reports connection changes. Info carries the last error when down.
type Status struct {
	Connected bool
	Info      string
}

// Client keeps a websocket push channel open and reconnects with backoff.
type Client struct {
	endpoint string
	query    func() url.Values
	dialer   *websocket.Dialer
	wake     chan struct{}
	up       atomic.Bool
}

// New builds a client for serverURL. query is evaluated on every dial so a
// reconnect presents the latest session ids.
func New(serverURL, path string, query func() url.Values) (*Client, error) {
	endpoint, err := wsEndpoint(serverURL, path)
	if err != nil {
		return nil, err
	}
	return &Client{
		endpoint: endpoint,
		query:    query,
		dialer:   &websocket.Dialer{HandshakeTimeout: dialTimeout, Proxy: http.ProxyFromEnvironment},
		wake:     make(chan struct{}, 1),
	}, nil
}

func wsEndpoint(serverURL, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if path == "" {
		path = DefaultPath
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	return u.String(), nil
}

// Endpoint is the websocket URL without handshake parameters.
func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) Connected() bool {
	return c.up.Load()
}

// Nudge cuts the current backoff short.
func (c *Client) Nudge() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) dialURL() string {
	if c.query == nil {
		return c.endpoint
	}
	q := c.query()
	if len(q) == 0 {
		return c.endpoint
	}
	return c.endpoint + "?" + q.Encode()
}

// Run delivers Event and Status values to out until ctx is done.
func (c *Client) Run(ctx context.Context, out chan<- any) {
	backoff := initialBackoff
	lastStatus := ""
	emit := func(msg any) bool {
		select {
		case out <- msg:
			return true
		case <-ctx.Done():
			return false
		}
	}
	emitStatus := func(connected bool, info string) bool {
		c.up.Store(connected)
		key := fmt.Sprintf("%t|%s", connected, info)
		if key == lastStatus {
			return true
		}
		lastStatus = key
		return emit(Status{Connected: connected, Info: info})
	}

	for ctx.Err() == nil {
		conn, _, err := c.dialer.DialContext(ctx, c.dialURL(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !emitStatus(false, err.Error()) {
				return
			}
			if !c.sleep(ctx, backoff) {
				return
			}
			if backoff < maxBackoff {
				backoff += backoffStep
			}
			continue
		}

		backoff = initialBackoff
		if !emitStatus(true, "connected") {
			conn.Close()
			return
		}
		err = c.read(ctx, conn, emit)
		conn.Close()
		if ctx.Err() != nil {
			c.up.Store(false)
			return
		}
		if !emitStatus(false, err.Error()) {
			return
		}
		if !c.sleep(ctx, backoff) {
			return
		}
	}
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn, emit func(any) bool) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil || strings.TrimSpace(ev.Name) == "" {
			continue
		}
		if !emit(ev) {
			return ctx.Err()
		}
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.wake:
		return true
	case <-ctx.Done():
		return false
	}
}
