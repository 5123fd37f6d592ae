package pin

import (
	"context"
	"fmt"
	"time"

	"github.com/go-accounts-api/internal/domain"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldPIN         = "pin"
	fieldPINFailures = "pin_failures"
	fieldPINSentAt   = "pin_sent_at"
	fieldIsActive    = "is_active"
)

type userStore interface {
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type digitSource interface {
	RandomDigits(length int) (string, error)
}

// Engine issues and validates short numeric confirmation codes.
type Engine struct {
	store        userStore
	secrets      digitSource
	length       int
	failureLimit int
	expiry       time.Duration
	now          func() time.Time
}

func NewEngine(store userStore, secrets digitSource, length, failureLimit int, expiry time.Duration) *Engine {
	return &Engine{
		store:        store,
		secrets:      secrets,
		length:       length,
		failureLimit: failureLimit,
		expiry:       expiry,
		now:          time.Now,
	}
}

// Issue generates a fresh PIN for u and persists it together with the
// issuance time and a reset failure counter, in one update. The plaintext
// PIN is returned for out-of-band delivery and is never logged.
func (e *Engine) Issue(ctx context.Context, u *domain.User) (string, error) {
	code, err := e.secrets.RandomDigits(e.length)
	if err != nil {
		return "", err
	}
	sentAt := e.now().UTC()
	err = e.store.Update(ctx, u.UserID, map[string]interface{}{
		fieldPIN:         code,
		fieldPINSentAt:   sentAt,
		fieldPINFailures: 0,
	})
	if err != nil {
		return "", err
	}
	u.PIN = code
	u.PINSentAt = &sentAt
	u.PINFailures = 0
	return code, nil
}

// Validate checks candidate against the user's outstanding PIN. Checks run
// in a fixed order and the first failure wins: attempt limit, then expiry,
// then the code itself. A wrong code increments the persisted failure
// counter before the error is returned, so repeated guesses are durably
// tracked even when the surrounding request fails later.
func (e *Engine) Validate(ctx context.Context, u *domain.User, candidate string) error {
	if u.PINFailures >= e.failureLimit {
		return fmt.Errorf("%w: request a new one", domain.ErrTooManyPINAttempts)
	}
	if u.PINSentAt == nil || e.now().After(u.PINSentAt.Add(e.expiry)) {
		return fmt.Errorf("%w: request a new one", domain.ErrExpiredPIN)
	}
	if candidate != u.PIN {
		u.PINFailures++
		if err := e.store.Update(ctx, u.UserID, map[string]interface{}{
			fieldPINFailures: u.PINFailures,
		}); err != nil {
			return err
		}
		return domain.ErrInvalidPIN
	}
	return nil
}

// Consume clears the outstanding PIN state and activates the account in a
// single persisted update. After this, re-validating the same PIN fails
// because no PIN is outstanding.
func (e *Engine) Consume(ctx context.Context, u *domain.User) error {
	err := e.store.Update(ctx, u.UserID, map[string]interface{}{
		fieldPIN:         "",
		fieldPINFailures: 0,
		fieldPINSentAt:   nil,
		fieldIsActive:    true,
	})
	if err != nil {
		return err
	}
	u.PIN = ""
	u.PINFailures = 0
	u.PINSentAt = nil
	u.IsActive = true
	return nil
}
