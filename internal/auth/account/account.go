package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sl "github.com/hackers-pub/hackerspub-sub003/internal/lib/logger"
	"github.com/hackers-pub/hackerspub-sub003/internal/models"
	"github.com/hackers-pub/hackerspub-sub003/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrPartialProvisioning = errors.New("account provisioning failed")
	ErrAccountExists       = errors.New("account already exists")
	ErrEmailExists         = errors.New("email already registered")
)

type Saver interface {
	CreateAccountWithEmail(
		ctx context.Context,
		account models.Account,
		email models.AccountEmail,
	) (models.Account, models.AccountEmail, error)
}

// * Create создает аккаунт по уже погашенному приглашению.
// Из токена берется только email; валидность токена здесь не перепроверяется
func Create(
	ctx context.Context,
	log *slog.Logger,
	db Saver,
	token models.SignupToken,
	fields models.NewAccount,
) (models.Account, models.AccountEmail, error) {
	const op = "account.Create"

	log = log.With(slog.String("op", op))

	id, err := accountID(fields.ID)
	if err != nil {
		log.Error("failed to generate account id", sl.Err(err))
		return models.Account{}, models.AccountEmail{}, fmt.Errorf("%s: %w: %w", op, ErrPartialProvisioning, err)
	}

	account, email, err := db.CreateAccountWithEmail(ctx,
		models.Account{
			ID:       id,
			Username: fields.Username,
			Name:     fields.Name,
			Bio:      fields.Bio,
		},
		models.AccountEmail{
			Email:     token.Email,
			AccountID: id,
		},
	)
	if err != nil {
		if errors.Is(err, storage.ErrEmailExists) {
			log.Warn("email already registered")
			return models.Account{}, models.AccountEmail{}, fmt.Errorf("%s: %w", op, ErrEmailExists)
		}
		if errors.Is(err, storage.ErrAccountExists) {
			log.Warn("account already exists", slog.String("username", fields.Username))
			return models.Account{}, models.AccountEmail{}, fmt.Errorf("%s: %w", op, ErrAccountExists)
		}

		log.Error("failed to create account", sl.Err(err))
		return models.Account{}, models.AccountEmail{}, fmt.Errorf("%s: %w: %w", op, ErrPartialProvisioning, err)
	}

	log.Info("account created",
		slog.String("account_id", account.ID.String()),
		slog.String("username", account.Username),
	)

	return account, email, nil
}

func accountID(id *uuid.UUID) (uuid.UUID, error) {
	if id != nil {
		return *id, nil
	}

	return uuid.NewV7()
}
