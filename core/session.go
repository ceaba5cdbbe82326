package core

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps the server-side sessions of the web clients.
type SessionStore interface {
	// Create opens a session for the user and returns its id.
	Create(ctx context.Context, userID string, ttl time.Duration) (string, error)
	// Get returns the user of the session, or ErrSessionNotFound when it does not exist or expired.
	Get(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
}
