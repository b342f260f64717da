package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hackers-pub/hackerspub-sub003/internal/auth/account"
	"github.com/hackers-pub/hackerspub-sub003/internal/auth/challenge"
	"github.com/hackers-pub/hackerspub-sub003/internal/auth/session"
	"github.com/hackers-pub/hackerspub-sub003/internal/auth/signin"
	"github.com/hackers-pub/hackerspub-sub003/internal/auth/signup"
	"github.com/hackers-pub/hackerspub-sub003/internal/lib/jwt"
	sl "github.com/hackers-pub/hackerspub-sub003/internal/lib/logger"
	"github.com/hackers-pub/hackerspub-sub003/internal/lib/verification"
	"github.com/hackers-pub/hackerspub-sub003/internal/models"
	"github.com/hackers-pub/hackerspub-sub003/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrInvalidChallenge = errors.New("invalid or expired challenge")
	ErrAccountNotFound  = errors.New("account not found")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrEmailTaken       = errors.New("email already registered")
	ErrInvalidSession   = errors.New("invalid session")
)

type AccountProvider interface {
	AccountByID(ctx context.Context, id uuid.UUID) (models.Account, error)
	AccountByUsername(ctx context.Context, username string) (models.Account, error)
	AccountByEmail(ctx context.Context, email string) (models.Account, error)
	AccountEmails(ctx context.Context, accountID uuid.UUID) ([]models.AccountEmail, error)
}

type Options struct {
	SignupMaxAttempts int
	SigninTTL         time.Duration
	SigninMaxAttempts int
	SessionTTL        time.Duration
	AccessTokenTTL    time.Duration
	AccessTokenSecret string
}

type Auth struct {
	log         *slog.Logger
	accSaver    account.Saver
	accProvider AccountProvider
	store       challenge.Store
	publisher   verification.Publisher
	signin      *signin.Issuer
	opts        Options
}

func New(
	log *slog.Logger,
	accSaver account.Saver,
	accProvider AccountProvider,
	store challenge.Store,
	publisher verification.Publisher,
	opts Options,
) *Auth {
	return &Auth{
		log:         log,
		accSaver:    accSaver,
		accProvider: accProvider,
		store:       store,
		publisher:   publisher,
		signin:      signin.New(log, store, opts.SigninTTL, opts.SigninMaxAttempts),
		opts:        opts,
	}
}

// * Invite выпускает приглашение, собирает ссылку и отправляет письмо
func (a *Auth) Invite(ctx context.Context, email, verifyURL string) (models.SignupToken, string, error) {
	const op = "auth.Invite"

	log := a.log.With(slog.String("op", op))

	token, err := signup.Create(ctx, a.log, a.store, email)
	if err != nil {
		log.Error("failed to create signup token", sl.Err(err))
		return models.SignupToken{}, "", fmt.Errorf("%s: %w", op, err)
	}

	link := verification.BuildURL(verifyURL, token.Token.String(), token.Code)

	if err := verification.SendChallenge(ctx, a.log, a.publisher, models.PurposeSignup, email, link, token.Code); err != nil {
		return models.SignupToken{}, "", fmt.Errorf("%s: %w", op, err)
	}

	return token, link, nil
}

// * RequestSignin ищет аккаунт по email (если есть "@") или username,
// выпускает challenge и отправляет письмо на каждый подтвержденный email.
// Код в возвращаемом токене очищен
func (a *Auth) RequestSignin(ctx context.Context, usernameOrEmail, verifyURL string) (models.SigninToken, error) {
	const op = "auth.RequestSignin"

	log := a.log.With(slog.String("op", op))

	acc, err := a.lookupAccount(ctx, usernameOrEmail)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			log.Info("account not found")
			return models.SigninToken{}, ErrAccountNotFound
		}

		log.Error("failed to look up account", sl.Err(err))
		return models.SigninToken{}, fmt.Errorf("%s: %w", op, err)
	}

	emails, err := a.accProvider.AccountEmails(ctx, acc.ID)
	if err != nil {
		log.Error("failed to load account emails", sl.Err(err))
		return models.SigninToken{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := a.signin.Create(ctx, acc.ID)
	if err != nil {
		log.Error("failed to create signin token", sl.Err(err))
		return models.SigninToken{}, fmt.Errorf("%s: %w", op, err)
	}

	link := verification.BuildURL(verifyURL, token.Token.String(), token.Code)

	sent := 0
	for _, e := range emails {
		if e.Verified == nil {
			continue
		}

		if err := verification.SendChallenge(ctx, a.log, a.publisher, models.PurposeSignin, e.Email, link, token.Code); err != nil {
			return models.SigninToken{}, fmt.Errorf("%s: %w", op, err)
		}
		sent++
	}

	log.Info("signin challenge issued",
		slog.String("account_id", acc.ID.String()),
		slog.Int("emails", sent),
	)

	token.Code = ""

	return token, nil
}

func (a *Auth) lookupAccount(ctx context.Context, usernameOrEmail string) (models.Account, error) {
	if strings.Contains(usernameOrEmail, "@") {
		return a.accProvider.AccountByEmail(ctx, usernameOrEmail)
	}

	return a.accProvider.AccountByUsername(ctx, strings.ToLower(usernameOrEmail))
}

// * CompleteSignin гасит challenge и открывает сессию; возвращает сессию и access токен
func (a *Auth) CompleteSignin(
	ctx context.Context,
	token, code string,
	meta models.SessionMeta,
) (models.Session, string, error) {
	const op = "auth.CompleteSignin"

	log := a.log.With(slog.String("op", op))

	redeemed, err := a.signin.Redeem(ctx, token, code)
	if err != nil {
		return models.Session{}, "", a.challengeError(log, op, err)
	}

	s, err := session.Create(ctx, a.store, redeemed.AccountID, meta, a.opts.SessionTTL)
	if err != nil {
		log.Error("failed to create session", sl.Err(err))
		return models.Session{}, "", fmt.Errorf("%s: %w", op, err)
	}

	accessToken, err := jwt.NewToken(s, a.opts.AccessTokenTTL, a.opts.AccessTokenSecret)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return models.Session{}, "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("signed in", slog.String("account_id", s.AccountID.String()))

	return s, accessToken, nil
}

// * InspectSignup проверяет приглашение и код, не расходуя токен
func (a *Auth) InspectSignup(ctx context.Context, token, code string) (models.SignupToken, error) {
	const op = "auth.InspectSignup"

	t, err := signup.Verify(ctx, a.store, token, code, a.opts.SignupMaxAttempts)
	if err != nil {
		return models.SignupToken{}, a.challengeError(a.log.With(slog.String("op", op)), op, err)
	}

	return t, nil
}

// * CompleteSignup гасит приглашение, создает аккаунт и открывает сессию.
// Занятый username или уже зарегистрированный email отклоняются до погашения
// токена; после погашения токен считается использованным независимо от исхода
func (a *Auth) CompleteSignup(
	ctx context.Context,
	token, code string,
	fields models.NewAccount,
	meta models.SessionMeta,
) (models.Account, models.Session, error) {
	const op = "auth.CompleteSignup"

	log := a.log.With(slog.String("op", op))

	invite, err := signup.Verify(ctx, a.store, token, code, a.opts.SignupMaxAttempts)
	if err != nil {
		return models.Account{}, models.Session{}, a.challengeError(log, op, err)
	}

	_, err = a.accProvider.AccountByUsername(ctx, fields.Username)
	switch {
	case err == nil:
		log.Info("username already taken", slog.String("username", fields.Username))
		return models.Account{}, models.Session{}, ErrUsernameTaken
	case !errors.Is(err, storage.ErrAccountNotFound):
		log.Error("failed to check username", sl.Err(err))
		return models.Account{}, models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	_, err = a.accProvider.AccountByEmail(ctx, invite.Email)
	switch {
	case err == nil:
		log.Info("email already registered")
		return models.Account{}, models.Session{}, ErrEmailTaken
	case !errors.Is(err, storage.ErrAccountNotFound):
		log.Error("failed to check email", sl.Err(err))
		return models.Account{}, models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	redeemed, err := signup.Redeem(ctx, a.store, token, code, a.opts.SignupMaxAttempts)
	if err != nil {
		return models.Account{}, models.Session{}, a.challengeError(log, op, err)
	}

	acc, _, err := account.Create(ctx, a.log, a.accSaver, redeemed, fields)
	if err != nil {
		if errors.Is(err, account.ErrAccountExists) {
			return models.Account{}, models.Session{}, ErrUsernameTaken
		}
		if errors.Is(err, account.ErrEmailExists) {
			return models.Account{}, models.Session{}, ErrEmailTaken
		}

		return models.Account{}, models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	s, err := session.Create(ctx, a.store, acc.ID, meta, a.opts.SessionTTL)
	if err != nil {
		log.Error("failed to create session", sl.Err(err))
		return models.Account{}, models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return acc, s, nil
}

func (a *Auth) challengeError(log *slog.Logger, op string, err error) error {
	switch {
	case errors.Is(err, challenge.ErrNotFound):
		log.Info("challenge not found or expired")
	case errors.Is(err, challenge.ErrCodeMismatch):
		log.Warn("challenge code mismatch")
	case errors.Is(err, challenge.ErrTooManyAttempts):
		log.Warn("challenge locked out after too many attempts")
	default:
		log.Error("failed to redeem challenge", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: %w: %w", op, ErrInvalidChallenge, err)
}

// * Authenticate проверяет access токен и что сессия, на которую он ссылается, еще жива
func (a *Auth) Authenticate(ctx context.Context, accessToken string) (models.Session, error) {
	claims, err := jwt.ParseToken(accessToken, a.opts.AccessTokenSecret)
	if err != nil {
		return models.Session{}, ErrInvalidSession
	}

	s, err := a.Session(ctx, claims.SessionID)
	if err != nil {
		return models.Session{}, err
	}

	if s.AccountID != claims.AccountID {
		return models.Session{}, ErrInvalidSession
	}

	return s, nil
}

func (a *Auth) Session(ctx context.Context, id uuid.UUID) (models.Session, error) {
	const op = "auth.Session"

	s, err := session.Get(ctx, a.store, id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return models.Session{}, ErrInvalidSession
		}

		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func (a *Auth) SessionAccount(ctx context.Context, s models.Session) (models.Account, error) {
	const op = "auth.SessionAccount"

	acc, err := a.accProvider.AccountByID(ctx, s.AccountID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return models.Account{}, ErrInvalidSession
		}

		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

func (a *Auth) Logout(ctx context.Context, sessionID uuid.UUID) error {
	const op = "auth.Logout"

	log := a.log.With(
		slog.String("op", op),
	)

	if err := session.Delete(ctx, a.store, sessionID); err != nil {
		log.Error("failed to delete session", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logout successful")

	return nil
}
