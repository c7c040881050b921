package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/quotakeeper/internal/models"
	"github.com/iudanet/quotakeeper/internal/storage"
	"github.com/iudanet/quotakeeper/internal/storage/memory"
)

type testEnv struct {
	manager     *Manager
	credentials *CredentialStore
	limiter     *RateLimiter
	session     *memory.Storage
	clock       *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &fakeClock{current: time.Now()}
	durable := memory.New()
	session := memory.New()

	credentials := NewCredentialStore(durable)
	credentials.now = clock.Now
	require.NoError(t, credentials.EnsureDefaultAdmin(context.Background()))

	limiter := NewRateLimiter(durable)
	limiter.now = clock.Now

	manager := NewManager(credentials, limiter, session, nil)
	manager.now = clock.Now

	return &testEnv{
		manager:     manager,
		credentials: credentials,
		limiter:     limiter,
		session:     session,
		clock:       clock,
	}
}

func TestLoginDefaultAdmin(t *testing.T) {
	// Scenario: fresh install, default credentials
	env := newTestEnv(t)
	ctx := context.Background()

	result := env.manager.Login(ctx, "admin", "admin123")
	require.True(t, result.Success, "message: %s", result.Message)
	require.NotNil(t, result.User)

	assert.Equal(t, "admin", result.User.Username)
	assert.Equal(t, models.AllPermissions(), result.User.Permissions)
	assert.Equal(t, env.clock.Now().UnixMilli(), result.User.LoginTime)
	assert.Equal(t, env.clock.Now().Add(SessionLifetime).UnixMilli(), result.User.ExpiresAt)

	// Envelope и side channel записаны в session-scoped хранилище
	envelope, err := env.session.Get(ctx, storage.KeySession)
	require.NoError(t, err)
	assert.NotContains(t, string(envelope), "admin",
		"session envelope must not expose plaintext fields")

	_, err = env.session.Get(ctx, storage.KeySessionPwd)
	require.NoError(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result := env.manager.Login(ctx, "admin", "wrong")
	assert.False(t, result.Success)
	assert.Nil(t, result.User)
	assert.Contains(t, result.Message, "Invalid credentials")

	// Неудачная попытка зафиксирована
	status, err := env.limiter.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, MaxLoginAttempts-1, status.RemainingAttempts)
}

func TestLoginLockoutScenario(t *testing.T) {
	// Scenario: five wrong passwords, then the correct one is still rejected
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < MaxLoginAttempts; i++ {
		result := env.manager.Login(ctx, "admin", "wrong")
		assert.False(t, result.Success)
	}

	result := env.manager.Login(ctx, "admin", "admin123")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "minute")

	// Попытка во время lockout не фиксируется как новая неудача
	record, err := env.limiter.get(ctx)
	require.NoError(t, err)
	assert.Equal(t, MaxLoginAttempts, record.Attempts)

	// После окончания lockout корректный пароль проходит
	env.clock.Advance(LockoutDuration + time.Minute)
	result = env.manager.Login(ctx, "admin", "admin123")
	assert.True(t, result.Success, "message: %s", result.Message)

	// Успешный логин очистил счетчик
	record, err = env.limiter.get(ctx)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestLoginWarningInMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.manager.Login(ctx, "admin", "wrong")
	env.manager.Login(ctx, "admin", "wrong")

	result := env.manager.Login(ctx, "admin", "wrong")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Invalid credentials")
	assert.Contains(t, result.Message, "2 attempt(s) remaining")
}

func TestCurrentUserRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.True(t, env.manager.Login(ctx, "admin", "admin123").Success)

	user := env.manager.CurrentUser(ctx)
	require.NotNil(t, user)
	assert.Equal(t, "admin", user.Username)
	assert.Equal(t, models.AllPermissions(), user.Permissions)
}

func TestCurrentUserWithoutLogin(t *testing.T) {
	env := newTestEnv(t)

	assert.Nil(t, env.manager.CurrentUser(context.Background()))
}

func TestCurrentUserExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.True(t, env.manager.Login(ctx, "admin", "admin123").Success)

	env.clock.Advance(SessionLifetime + time.Minute)

	assert.Nil(t, env.manager.CurrentUser(ctx))

	// Истекшая сессия разобрана полностью (side effect логаута)
	for _, key := range []string{storage.KeySession, storage.KeySessionPwd, storage.KeyCurrentUser} {
		_, err := env.session.Get(ctx, key)
		assert.ErrorIs(t, err, storage.ErrNotFound, "key %s must be cleared", key)
	}
}

func TestCurrentUserTamperedEnvelope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.True(t, env.manager.Login(ctx, "admin", "admin123").Success)

	// Портим envelope: расшифровка обязана провалиться и снести сессию
	require.NoError(t, env.session.Put(ctx, storage.KeySession, []byte("garbage")))

	assert.Nil(t, env.manager.CurrentUser(ctx))
	_, err := env.session.Get(ctx, storage.KeySessionPwd)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLogoutIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.True(t, env.manager.Login(ctx, "admin", "admin123").Success)

	env.manager.Logout(ctx)
	env.manager.Logout(ctx) // повторный вызов безопасен

	assert.Nil(t, env.manager.CurrentUser(ctx))
	_, err := env.session.Get(ctx, storage.KeySession)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	// Scenario: change password, old stops working, new works
	env := newTestEnv(t)
	ctx := context.Background()

	require.True(t, env.manager.Login(ctx, "admin", "admin123").Success)

	result := env.manager.ChangePassword(ctx, "admin123", "NewPass1")
	require.True(t, result.Success, "message: %s", result.Message)
	assert.Equal(t, "Password changed successfully", result.Message)

	// Сессия пересоздана под новым паролем
	user := env.manager.CurrentUser(ctx)
	require.NotNil(t, user)

	env.manager.Logout(ctx)

	old := env.manager.Login(ctx, "admin", "admin123")
	assert.False(t, old.Success)

	fresh := env.manager.Login(ctx, "admin", "NewPass1")
	assert.True(t, fresh.Success, "message: %s", fresh.Message)
}

func TestChangePasswordNotAuthenticated(t *testing.T) {
	env := newTestEnv(t)

	result := env.manager.ChangePassword(context.Background(), "admin123", "NewPass1")
	assert.False(t, result.Success)
	assert.Equal(t, "Not authenticated", result.Message)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.True(t, env.manager.Login(ctx, "admin", "admin123").Success)

	result := env.manager.ChangePassword(ctx, "nope", "NewPass1")
	assert.False(t, result.Success)
	assert.Equal(t, "Incorrect current password", result.Message)

	// Старый пароль остался в силе
	env.manager.Logout(ctx)
	assert.True(t, env.manager.Login(ctx, "admin", "admin123").Success)
}

func TestHasPermission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.False(t, env.manager.HasPermission(ctx, models.PermissionRead),
		"no cached session - no permissions")

	require.True(t, env.manager.Login(ctx, "admin", "admin123").Success)

	assert.True(t, env.manager.HasPermission(ctx, models.PermissionRead))
	assert.True(t, env.manager.HasPermission(ctx, models.PermissionAdmin))
	assert.False(t, env.manager.HasPermission(ctx, "superuser"))

	env.manager.Logout(ctx)
	assert.False(t, env.manager.HasPermission(ctx, models.PermissionRead))
}
