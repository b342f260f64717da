package signin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hackers-pub/hackerspub-sub003/internal/auth/challenge"
	"github.com/hackers-pub/hackerspub-sub003/internal/lib/random"
	"github.com/hackers-pub/hackerspub-sub003/internal/models"

	"github.com/google/uuid"
)

const Namespace = "signin"

var ErrTokenNotFound = challenge.ErrNotFound

type Issuer struct {
	log         *slog.Logger
	store       challenge.Store
	ttl         time.Duration
	maxAttempts int
}

func New(log *slog.Logger, store challenge.Store, ttl time.Duration, maxAttempts int) *Issuer {
	return &Issuer{
		log:         log,
		store:       store,
		ttl:         ttl,
		maxAttempts: maxAttempts,
	}
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// * Create выпускает challenge для входа в существующий аккаунт
func (i *Issuer) Create(ctx context.Context, accountID uuid.UUID) (models.SigninToken, error) {
	const op = "signin.Issuer.Create"

	code, err := random.Code()
	if err != nil {
		return models.SigninToken{}, fmt.Errorf("%s: %w", op, err)
	}

	token := models.SigninToken{
		AccountID: accountID,
		Token:     uuid.New(),
		Code:      code,
		Created:   time.Now().UTC(),
	}

	if err := challenge.Put(ctx, i.store, Namespace, token.Token, token, i.ttl); err != nil {
		return models.SigninToken{}, fmt.Errorf("%s: %w", op, err)
	}

	i.log.Debug("created a signin token",
		slog.String("op", op),
		slog.Duration("expiration", i.ttl),
		slog.Any("token", token),
	)

	return token, nil
}

func (i *Issuer) Get(ctx context.Context, token string) (models.SigninToken, error) {
	return challenge.Load[models.SigninToken](ctx, i.store, Namespace, token)
}

func (i *Issuer) Delete(ctx context.Context, token string) error {
	return challenge.Delete(ctx, i.store, Namespace, token)
}

func (i *Issuer) Redeem(ctx context.Context, token, code string) (models.SigninToken, error) {
	return challenge.Redeem[models.SigninToken](ctx, i.store, Namespace, token, code, challenge.Policy{
		TTL:         i.ttl,
		MaxAttempts: i.maxAttempts,
	})
}
