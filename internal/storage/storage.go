package storage

import (
	"context"
	"errors"
)

// Storage keys. The names mirror the web-storage layout of the original
// dashboard deployment and must not change: persisted state written under
// these keys has to stay readable across versions.
const (
	// Durable store (localStorage analogue)
	KeyAdminHash    = "xerox-admin-hash"
	KeyRateLimit    = "xerox-rate-limit"
	KeyPublicConfig = "xerox-public-config"

	// Session-scoped store (sessionStorage analogue)
	KeySession         = "xerox-session"
	KeySessionPwd      = KeySession + "_pwd"
	KeyEncryptedTokens = "xerox-encrypted-tokens"
	KeyCurrentUser     = "current-user"
)

// ErrNotFound is returned by Get when no value exists under the key.
var ErrNotFound = errors.New("key not found")

// Store defines the minimal key/value contract shared by the durable store
// and the session-scoped store. Values are opaque bytes - serialization
// (JSON, encrypted envelopes) is the caller's concern.
//
// Delete is idempotent: removing an absent key is not an error. Logout
// teardown relies on this.
type Store interface {
	// Get returns the value stored under key.
	// Returns ErrNotFound if no value exists.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes the value under key. No error if the key is absent.
	Delete(ctx context.Context, key string) error
}
