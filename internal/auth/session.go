package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/iudanet/quotakeeper/internal/crypto"
	"github.com/iudanet/quotakeeper/internal/models"
	"github.com/iudanet/quotakeeper/internal/storage"
)

// SessionLifetime - время жизни сессии с момента логина
const SessionLifetime = 8 * time.Hour

const (
	msgInvalidCredentials = "Invalid credentials"
	msgInternalError      = "Internal system error"
	msgNotAuthenticated   = "Not authenticated"
	msgWrongCurrent       = "Incorrect current password"
	msgPasswordChanged    = "Password changed successfully"
)

// LoginResult is the outcome of a Login call. On failure Message carries a
// short human-readable reason, including any rate limiter warning.
type LoginResult struct {
	User    *models.Session
	Message string
	Success bool
}

// Result is the outcome of operations that only succeed or fail.
type Result struct {
	Message string
	Success bool
}

// Manager orchestrates login, logout, session inspection and password
// change. It is the error boundary of the core: public operations convert
// internal storage and crypto errors into result values, so the
// presentation layer never handles errors around auth calls.
//
// The session envelope is encrypted under digest(password) and the same
// digest is stored beside it (xerox-session_pwd) so CurrentUser can decrypt
// without re-prompting. Anyone with access to the session store can do the
// same - this is the deployed behavior, UI-level gating rather than real
// security. See DESIGN.md.
type Manager struct {
	credentials *CredentialStore
	limiter     *RateLimiter
	session     storage.Store
	logger      *slog.Logger
	now         func() time.Time
}

// NewManager wires the session manager. session must be the session-scoped
// store; credential and rate limit state live behind their own components.
func NewManager(credentials *CredentialStore, limiter *RateLimiter, session storage.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		credentials: credentials,
		limiter:     limiter,
		session:     session,
		logger:      logger,
		now:         time.Now,
	}
}

// Login authenticates the administrator and establishes a session.
// Order: rate limiter gate, credential check, then storage writes. A
// rejected attempt while locked out records nothing.
func (m *Manager) Login(ctx context.Context, username, password string) LoginResult {
	status, err := m.limiter.Check(ctx)
	if err != nil {
		m.logger.Error("rate limit check failed", "error", err)
		return LoginResult{Success: false, Message: msgInternalError}
	}
	if !status.Allowed {
		return LoginResult{Success: false, Message: status.Message}
	}

	ok, err := m.credentials.Verify(ctx, username, password)
	if err != nil {
		m.logger.Error("credential verification failed", "error", err)
		return LoginResult{Success: false, Message: msgInternalError}
	}

	if !ok {
		return m.failLogin(ctx)
	}

	admin, err := m.credentials.Get(ctx)
	if err != nil {
		m.logger.Error("failed to load admin credential", "error", err)
		return LoginResult{Success: false, Message: msgInternalError}
	}

	if err := m.limiter.Clear(ctx); err != nil {
		m.logger.Error("failed to clear rate limit record", "error", err)
		return LoginResult{Success: false, Message: msgInternalError}
	}

	now := m.now()
	session := &models.Session{
		Username:    username,
		Permissions: admin.Permissions,
		LoginTime:   now.UnixMilli(),
		ExpiresAt:   now.Add(SessionLifetime).UnixMilli(),
	}

	if err := m.persistSession(ctx, session, password); err != nil {
		m.logger.Error("failed to persist session", "error", err)
		return LoginResult{Success: false, Message: msgInternalError}
	}

	m.logger.Info("login successful", "username", username)
	return LoginResult{Success: true, User: session}
}

// failLogin records the failed attempt and composes the rejection message.
func (m *Manager) failLogin(ctx context.Context) LoginResult {
	message := msgInvalidCredentials

	status, err := m.limiter.RecordFailure(ctx)
	if err != nil {
		m.logger.Error("failed to record login failure", "error", err)
		return LoginResult{Success: false, Message: message}
	}
	if status.Message != "" {
		message += ". " + status.Message
	}

	return LoginResult{Success: false, Message: message}
}

// persistSession writes the encrypted envelope, the password-digest side
// channel and the current-user cache, in that order.
func (m *Manager) persistSession(ctx context.Context, session *models.Session, password string) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	// Passphrase - digest пароля; он же сохраняется рядом для CurrentUser
	passphrase := crypto.Digest(password)
	envelope, err := crypto.Encrypt(string(data), passphrase)
	if err != nil {
		return err
	}

	if err := m.session.Put(ctx, storage.KeySession, []byte(envelope)); err != nil {
		return err
	}
	if err := m.session.Put(ctx, storage.KeySessionPwd, []byte(passphrase)); err != nil {
		return err
	}
	return m.session.Put(ctx, storage.KeyCurrentUser, data)
}

// CurrentUser returns the active session, or nil when there is none.
// Expired or undecryptable sessions are torn down via Logout as a side
// effect. Never returns an error: any failure reads as "not logged in".
func (m *Manager) CurrentUser(ctx context.Context) *models.Session {
	envelope, err := m.session.Get(ctx, storage.KeySession)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Warn("failed to read session envelope", "error", err)
		}
		return nil
	}

	passphrase, err := m.session.Get(ctx, storage.KeySessionPwd)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Warn("failed to read session passphrase digest", "error", err)
		}
		return nil
	}

	plaintext, err := crypto.Decrypt(string(envelope), string(passphrase))
	if err != nil {
		m.logger.Warn("session envelope cannot be decrypted, logging out", "error", err)
		m.Logout(ctx)
		return nil
	}

	var session models.Session
	if err := json.Unmarshal([]byte(plaintext), &session); err != nil {
		m.logger.Warn("session payload is malformed, logging out", "error", err)
		m.Logout(ctx)
		return nil
	}

	if session.IsExpired(m.now()) {
		m.logger.Info("session expired", "username", session.Username)
		m.Logout(ctx)
		return nil
	}

	// Обновляем side channel для HasPermission
	if data, err := json.Marshal(&session); err == nil {
		if err := m.session.Put(ctx, storage.KeyCurrentUser, data); err != nil {
			m.logger.Warn("failed to refresh current-user cache", "error", err)
		}
	}

	return &session
}

// Logout removes the session envelope, the passphrase side channel and the
// current-user cache. Idempotent - the sole teardown path.
func (m *Manager) Logout(ctx context.Context) {
	for _, key := range []string{storage.KeySession, storage.KeySessionPwd, storage.KeyCurrentUser} {
		if err := m.session.Delete(ctx, key); err != nil {
			m.logger.Warn("failed to delete session key", "key", key, "error", err)
		}
	}
}

// ChangePassword rotates the administrator password and re-establishes the
// session under the new credential material.
func (m *Manager) ChangePassword(ctx context.Context, currentPassword, newPassword string) Result {
	user := m.CurrentUser(ctx)
	if user == nil {
		return Result{Success: false, Message: msgNotAuthenticated}
	}

	ok, err := m.credentials.Verify(ctx, user.Username, currentPassword)
	if err != nil {
		m.logger.Error("credential verification failed", "error", err)
		return Result{Success: false, Message: msgInternalError}
	}
	if !ok {
		return Result{Success: false, Message: msgWrongCurrent}
	}

	if err := m.credentials.UpdatePassword(ctx, newPassword); err != nil {
		m.logger.Error("failed to update password", "error", err)
		return Result{Success: false, Message: msgInternalError}
	}

	m.Logout(ctx)
	if relogin := m.Login(ctx, user.Username, newPassword); !relogin.Success {
		// Пароль уже сменен, но сессию восстановить не удалось
		m.logger.Warn("re-login after password change failed", "message", relogin.Message)
	}

	return Result{Success: true, Message: msgPasswordChanged}
}

// HasPermission checks the cached current-user permission set. The cache is
// refreshed by Login and CurrentUser; without a cached session the answer
// is false. No decryption happens here - this is the cheap read path the
// presentation layer polls.
func (m *Manager) HasPermission(ctx context.Context, permission string) bool {
	data, err := m.session.Get(ctx, storage.KeyCurrentUser)
	if err != nil {
		return false
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return false
	}

	return session.HasPermission(permission)
}
