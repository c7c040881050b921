package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/quotakeeper/internal/models"
	"github.com/iudanet/quotakeeper/internal/storage"
)

// Rate limit policy. The numbers are part of the observable behavior
// (lockout messages, test scenarios) and must not drift.
const (
	MaxLoginAttempts = 5
	LockoutDuration  = 15 * time.Minute
	StaleWindow      = 60 * time.Minute
)

// RateLimitStatus is the evaluated state of the failed-login record.
// RateLimitExceeded is not an error: it is Allowed=false with a message.
type RateLimitStatus struct {
	Allowed           bool
	RemainingAttempts int
	Message           string
	TimeLeft          time.Duration
}

// RateLimiter throttles repeated failed login attempts. Single-admin model:
// one global record under xerox-rate-limit, regardless of the username
// tried. No mutual exclusion around check-then-record - two simultaneous
// failures can under-count, accepted for the single-user usage model.
type RateLimiter struct {
	durable storage.Store
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter over the durable storage.
func NewRateLimiter(durable storage.Store) *RateLimiter {
	return &RateLimiter{
		durable: durable,
		now:     time.Now,
	}
}

// Check evaluates the current record against now. Stale state is cleared as
// a side effect: an elapsed lockout, or a counter with no attempt within
// the last hour. A warning message is set when two or fewer attempts
// remain.
func (r *RateLimiter) Check(ctx context.Context) (*RateLimitStatus, error) {
	record, err := r.get(ctx)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &RateLimitStatus{Allowed: true, RemainingAttempts: MaxLoginAttempts}, nil
	}

	now := r.now()

	if record.LockedUntil > 0 {
		if record.Locked(now) {
			timeLeft := time.Duration(record.LockedUntil-now.UnixMilli()) * time.Millisecond
			return &RateLimitStatus{
				Allowed:  false,
				Message:  lockoutMessage(timeLeft),
				TimeLeft: timeLeft,
			}, nil
		}
		// Lockout истек - сбрасываем счетчик
		if err := r.Clear(ctx); err != nil {
			return nil, err
		}
		return &RateLimitStatus{Allowed: true, RemainingAttempts: MaxLoginAttempts}, nil
	}

	// Счетчик без lockout устаревает через час после последней попытки
	if now.UnixMilli()-record.LastAttempt > StaleWindow.Milliseconds() {
		if err := r.Clear(ctx); err != nil {
			return nil, err
		}
		return &RateLimitStatus{Allowed: true, RemainingAttempts: MaxLoginAttempts}, nil
	}

	remaining := MaxLoginAttempts - record.Attempts
	status := &RateLimitStatus{Allowed: true, RemainingAttempts: remaining}
	if remaining <= 2 {
		status.Message = warningMessage(remaining)
	}
	return status, nil
}

// RecordFailure increments the attempt counter and transitions to LOCKED
// when the threshold is reached. Returns the status after the failure so
// the caller can append the warning or lockout text to its own message.
func (r *RateLimiter) RecordFailure(ctx context.Context) (*RateLimitStatus, error) {
	record, err := r.get(ctx)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &models.RateLimitRecord{}
	}

	now := r.now()
	record.Attempts++
	record.LastAttempt = now.UnixMilli()

	if record.Attempts >= MaxLoginAttempts {
		record.LockedUntil = now.Add(LockoutDuration).UnixMilli()
	}

	if err := r.save(ctx, record); err != nil {
		return nil, err
	}

	if record.LockedUntil > 0 {
		return &RateLimitStatus{
			Allowed:  false,
			Message:  lockoutMessage(LockoutDuration),
			TimeLeft: LockoutDuration,
		}, nil
	}

	remaining := MaxLoginAttempts - record.Attempts
	status := &RateLimitStatus{Allowed: true, RemainingAttempts: remaining}
	if remaining <= 2 {
		status.Message = warningMessage(remaining)
	}
	return status, nil
}

// Clear removes the record entirely. Called on successful login.
func (r *RateLimiter) Clear(ctx context.Context) error {
	if err := r.durable.Delete(ctx, storage.KeyRateLimit); err != nil {
		return fmt.Errorf("failed to clear rate limit record: %w", err)
	}
	return nil
}

func (r *RateLimiter) get(ctx context.Context) (*models.RateLimitRecord, error) {
	data, err := r.durable.Get(ctx, storage.KeyRateLimit)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var record models.RateLimitRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rate limit record: %w", err)
	}
	return &record, nil
}

func (r *RateLimiter) save(ctx context.Context, record *models.RateLimitRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal rate limit record: %w", err)
	}
	if err := r.durable.Put(ctx, storage.KeyRateLimit, data); err != nil {
		return fmt.Errorf("failed to save rate limit record: %w", err)
	}
	return nil
}

func lockoutMessage(timeLeft time.Duration) string {
	minutes := int(timeLeft.Minutes())
	if timeLeft > time.Duration(minutes)*time.Minute {
		minutes++ // округляем вверх
	}
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Too many failed attempts. Try again in %d minute(s)", minutes)
}

func warningMessage(remaining int) string {
	return fmt.Sprintf("Warning: %d attempt(s) remaining before lockout", remaining)
}
