// Package models defines the entities owned by the session/storage core.
// All timestamps are Unix milliseconds, matching the values the original
// dashboard deployment wrote into web storage.
package models

import "time"

// Permission tags granted to the administrator account.
const (
	PermissionRead   = "read"
	PermissionWrite  = "write"
	PermissionDelete = "delete"
	PermissionAdmin  = "admin"
)

// AllPermissions returns the full permission set granted to a freshly
// seeded administrator.
func AllPermissions() []string {
	return []string{PermissionRead, PermissionWrite, PermissionDelete, PermissionAdmin}
}

// AdminCredential is the single administrator account record, stored in the
// durable store under xerox-admin-hash. PasswordHash is the salted digest
// of the password, never the plaintext.
type AdminCredential struct {
	Username     string   `json:"username"`
	PasswordHash string   `json:"passwordHash"`
	Permissions  []string `json:"permissions"`
	CreatedAt    int64    `json:"createdAt"`
	UpdatedAt    int64    `json:"updatedAt,omitempty"`
}

// Session is the decoded record of one successful login. Persisted only in
// its encrypted form under xerox-session; the decoded value lives in memory
// and in the current-user side channel.
type Session struct {
	Username    string   `json:"username"`
	Permissions []string `json:"permissions"`
	LoginTime   int64    `json:"loginTime"`
	ExpiresAt   int64    `json:"expiresAt"`
}

// IsExpired reports whether the session has expired at the given instant.
func (s *Session) IsExpired(now time.Time) bool {
	return now.UnixMilli() > s.ExpiresAt
}

// HasPermission reports whether the session carries the permission tag.
func (s *Session) HasPermission(permission string) bool {
	for _, p := range s.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// RateLimitRecord is the failed-login bookkeeping, stored in the durable
// store under xerox-rate-limit. Single-admin model, so the record is keyed
// globally - there is exactly one.
type RateLimitRecord struct {
	Attempts    int   `json:"attempts"`
	LastAttempt int64 `json:"lastAttempt"`
	LockedUntil int64 `json:"lockedUntil,omitempty"`
}

// Locked reports whether the record holds an active lockout at now.
func (r *RateLimitRecord) Locked(now time.Time) bool {
	return r.LockedUntil > 0 && now.UnixMilli() < r.LockedUntil
}

// TokenData is the decrypted, deobfuscated view of the stored third-party
// bearer token returned by the secure token store.
type TokenData struct {
	Token      string `json:"token"`
	Repository string `json:"repository"`
	Timestamp  int64  `json:"timestamp"`
}

// PublicConfig holds the non-sensitive sync settings, stored in the durable
// store under xerox-public-config. Safe to persist in cleartext.
type PublicConfig struct {
	Repository   string `json:"repository"`
	LastUpdated  int64  `json:"lastUpdated,omitempty"`
	AutoSync     bool   `json:"autoSync"`
	SyncInterval int64  `json:"syncInterval"`
}
