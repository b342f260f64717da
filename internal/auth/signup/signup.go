package signup

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

const (
	Namespace  = "signup"
	Expiration = 24 * time.Hour
)

var ErrTokenNotFound = challenge.ErrNotFound

// * Create выпускает приглашение и сохраняет его под ключом ["signup", token] на 24 часа
func Create(ctx context.Context, log *slog.Logger, store challenge.Store, email string) (models.SignupToken, error) {
	const op = "signup.Create"

	code, err := random.Code()
	if err != nil {
		return models.SignupToken{}, fmt.Errorf("%s: %w", op, err)
	}

	token := models.SignupToken{
		Email:   email,
		Token:   uuid.New(),
		Code:    code,
		Created: time.Now().UTC(),
	}

	if err := challenge.Put(ctx, store, Namespace, token.Token, token, Expiration); err != nil {
		return models.SignupToken{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("created a signup token",
		slog.String("op", op),
		slog.Duration("expiration", Expiration),
		slog.Any("token", token),
	)

	return token, nil
}

// * Get - чистый lookup; отсутствующий или истекший токен дает ErrTokenNotFound
func Get(ctx context.Context, store challenge.Store, token string) (models.SignupToken, error) {
	return challenge.Load[models.SignupToken](ctx, store, Namespace, token)
}

func Delete(ctx context.Context, store challenge.Store, token string) error {
	return challenge.Delete(ctx, store, Namespace, token)
}

// * Verify проверяет код, не расходуя токен
func Verify(ctx context.Context, store challenge.Store, token, code string, maxAttempts int) (models.SignupToken, error) {
	return challenge.Verify[models.SignupToken](ctx, store, Namespace, token, code, policy(maxAttempts))
}

// * Redeem атомарно расходует токен при совпадении кода
func Redeem(ctx context.Context, store challenge.Store, token, code string, maxAttempts int) (models.SignupToken, error) {
	return challenge.Redeem[models.SignupToken](ctx, store, Namespace, token, code, policy(maxAttempts))
}

func policy(maxAttempts int) challenge.Policy {
	return challenge.Policy{TTL: Expiration, MaxAttempts: maxAttempts}
}
