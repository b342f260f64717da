package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hackers-pub/hackerspub-sub003/internal/models"
	"github.com/hackers-pub/hackerspub-sub003/internal/storage"

	"github.com/google/uuid"
)

const Namespace = "session"

var ErrSessionNotFound = errors.New("session not found")

type Store interface {
	Set(ctx context.Context, key storage.Key, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key storage.Key) ([]byte, error)
	Delete(ctx context.Context, key storage.Key) (bool, error)
}

func key(id uuid.UUID) storage.Key {
	return storage.Key{Namespace, id.String()}
}

// * Create открывает сессию; ее id и есть непрозрачный session credential
func Create(ctx context.Context, store Store, accountID uuid.UUID, meta models.SessionMeta, ttl time.Duration) (models.Session, error) {
	const op = "session.Create"

	s := models.Session{
		ID:        uuid.New(),
		AccountID: accountID,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		Created:   time.Now().UTC(),
	}

	value, err := json.Marshal(s)
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := store.Set(ctx, key(s.ID), value, ttl); err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func Get(ctx context.Context, store Store, id uuid.UUID) (models.Session, error) {
	const op = "session.Get"

	value, err := store.Get(ctx, key(id))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return models.Session{}, ErrSessionNotFound
		}

		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	var s models.Session
	if err := json.Unmarshal(value, &s); err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func Delete(ctx context.Context, store Store, id uuid.UUID) error {
	const op = "session.Delete"

	if _, err := store.Delete(ctx, key(id)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
