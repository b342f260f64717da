// Package challenge implements the token+code exchange shared by signup
// invitations and passwordless sign-in.
package challenge

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hackers-pub/hackerspub-sub003/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("challenge not found")
	ErrCodeMismatch    = errors.New("challenge code mismatch")
	ErrTooManyAttempts = errors.New("too many challenge attempts")
)

type Store interface {
	Set(ctx context.Context, key storage.Key, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key storage.Key) ([]byte, error)
	GetDel(ctx context.Context, key storage.Key) ([]byte, error)
	Delete(ctx context.Context, key storage.Key) (bool, error)
	Incr(ctx context.Context, key storage.Key, ttl time.Duration) (int64, error)
	TTL(ctx context.Context, key storage.Key) (time.Duration, error)
}

type Record interface {
	ChallengeCode() string
}

// Policy bounds code guessing against a single token. MaxAttempts <= 0
// disables the lockout. The attempt counter lives as long as the challenge;
// TTL is only used for records stored without an expiry.
type Policy struct {
	TTL         time.Duration
	MaxAttempts int
}

func Key(namespace string, token uuid.UUID) storage.Key {
	return storage.Key{namespace, token.String()}
}

func attemptsKey(namespace string, token uuid.UUID) storage.Key {
	return storage.Key{namespace + "-attempts", token.String()}
}

func Put(ctx context.Context, store Store, namespace string, token uuid.UUID, rec Record, ttl time.Duration) error {
	const op = "challenge.Put"

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := store.Set(ctx, Key(namespace, token), value, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Load returns ErrNotFound for unknown, expired and malformed tokens alike.
func Load[T Record](ctx context.Context, store Store, namespace, token string) (T, error) {
	const op = "challenge.Load"

	var rec T

	id, err := uuid.Parse(token)
	if err != nil {
		return rec, ErrNotFound
	}

	value, err := store.Get(ctx, Key(namespace, id))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return rec, ErrNotFound
		}

		return rec, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(value, &rec); err != nil {
		return rec, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

func Delete(ctx context.Context, store Store, namespace, token string) error {
	const op = "challenge.Delete"

	id, err := uuid.Parse(token)
	if err != nil {
		return nil
	}

	if _, err := store.Delete(ctx, Key(namespace, id)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Verify checks the code without consuming the challenge.
func Verify[T Record](ctx context.Context, store Store, namespace, token, code string, policy Policy) (T, error) {
	rec, err := Load[T](ctx, store, namespace, token)
	if err != nil {
		return rec, err
	}

	if err := checkCode(ctx, store, namespace, token, rec.ChallengeCode(), code, policy); err != nil {
		var zero T
		return zero, err
	}

	return rec, nil
}

// Redeem consumes the challenge exactly once. A wrong code leaves the record
// in place; of several concurrent callers with the right code only the one
// whose GETDEL observes the value succeeds.
func Redeem[T Record](ctx context.Context, store Store, namespace, token, code string, policy Policy) (T, error) {
	const op = "challenge.Redeem"

	var zero T

	if _, err := Verify[T](ctx, store, namespace, token, code, policy); err != nil {
		return zero, err
	}

	id := uuid.MustParse(token)

	value, err := store.GetDel(ctx, Key(namespace, id))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return zero, ErrNotFound
		}

		return zero, fmt.Errorf("%s: %w", op, err)
	}

	var rec T
	if err := json.Unmarshal(value, &rec); err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	// the counter expires with the challenge anyway
	_, _ = store.Delete(ctx, attemptsKey(namespace, id))

	return rec, nil
}

func checkCode(ctx context.Context, store Store, namespace, token, want, got string, policy Policy) error {
	const op = "challenge.checkCode"

	if subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1 {
		return nil
	}

	if policy.MaxAttempts <= 0 {
		return ErrCodeMismatch
	}

	id := uuid.MustParse(token)

	ttl, err := store.TTL(ctx, Key(namespace, id))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return ErrNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}
	if ttl == 0 {
		ttl = policy.TTL
	}

	n, err := store.Incr(ctx, attemptsKey(namespace, id), ttl)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n < int64(policy.MaxAttempts) {
		return ErrCodeMismatch
	}

	if _, err := store.Delete(ctx, Key(namespace, id)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, _ = store.Delete(ctx, attemptsKey(namespace, id))

	return ErrTooManyAttempts
}
