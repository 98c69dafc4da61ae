package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Handshake holds the ids presented when the push channel connects.
type Handshake struct {
	AppSessionID string
	SessionID    string
}

// Query encodes the handshake; empty ids are omitted.
func (h Handshake) Query() url.Values {
	q := url.Values{}
	if h.AppSessionID != "" {
		q.Set("flask_session_id", h.AppSessionID)
	}
	if h.SessionID != "" {
		q.Set("session_id", h.SessionID)
	}
	return q
}

// Bootstrap tracks the transport session id. The push channel reads it from
// its own goroutine on every dial, so access is guarded.
type Bootstrap struct {
	store Store

	// persistMu orders the read of the current id with its Save.
	persistMu sync.Mutex

	mu        sync.RWMutex
	appID     string
	sessionID string
}

func NewBootstrap(store Store) *Bootstrap {
	return &Bootstrap{store: store}
}

// Resolve picks the session id with precedence server-provided, then persisted,
// then none, and writes the winner back to the store. A store that cannot be
// read leaves the handshake with the server ids only.
func (b *Bootstrap) Resolve(ctx context.Context, serverTransportID, serverAppID string) (Handshake, error) {
	b.mu.Lock()
	b.appID = strings.TrimSpace(serverAppID)
	b.mu.Unlock()

	id := strings.TrimSpace(serverTransportID)
	var loadErr error
	if id == "" {
		persisted, err := b.store.Load(ctx)
		if err != nil {
			loadErr = fmt.Errorf("load session id: %w", err)
		} else {
			id = strings.TrimSpace(persisted)
		}
	}

	b.mu.Lock()
	b.sessionID = id
	b.mu.Unlock()

	if loadErr != nil {
		return b.Handshake(), loadErr
	}

	if id != "" {
		if err := b.store.Save(ctx, id); err != nil {
			return b.Handshake(), err
		}
	}
	return b.Handshake(), nil
}

// Adopt records an id from session_init without touching the store.
func (b *Bootstrap) Adopt(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	b.mu.Lock()
	b.sessionID = id
	b.mu.Unlock()
}

// Persist writes the current id to the store.
func (b *Bootstrap) Persist(ctx context.Context) error {
	b.persistMu.Lock()
	defer b.persistMu.Unlock()
	id := b.Current()
	if id == "" {
		return nil
	}
	return b.store.Save(ctx, id)
}

// Assign adopts and persists an id in one step.
func (b *Bootstrap) Assign(ctx context.Context, id string) error {
	b.Adopt(id)
	return b.Persist(ctx)
}

func (b *Bootstrap) Current() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sessionID
}

func (b *Bootstrap) Handshake() Handshake {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Handshake{AppSessionID: b.appID, SessionID: b.sessionID}
}
