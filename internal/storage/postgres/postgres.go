package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hackers-pub/hackerspub-sub003/internal/config"
	"github.com/hackers-pub/hackerspub-sub003/internal/models"
	"github.com/hackers-pub/hackerspub-sub003/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation = "23505"

	accountEmailsTable = "account_emails"
)

// pool is the subset of *pgxpool.Pool the repository uses.
type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type PostgresRepo struct {
	pool pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// * NewWithPool используется в тестах (pgxmock)
func NewWithPool(p pool) *PostgresRepo {
	return &PostgresRepo{pool: p}
}

// * CreateAccountWithEmail создает аккаунт и его первый email в одной транзакции.
// Либо существуют обе строки, либо ни одной
func (r *PostgresRepo) CreateAccountWithEmail(
	ctx context.Context,
	account models.Account,
	email models.AccountEmail,
) (models.Account, models.AccountEmail, error) {
	const op = "storage.postgres.CreateAccountWithEmail"

	var (
		created      models.Account
		createdEmail models.AccountEmail
	)

	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		accounts, err := insertAccount(ctx, tx, account)
		if err != nil {
			return err
		}
		if len(accounts) != 1 {
			return fmt.Errorf("accounts insert returned %d rows: %w", len(accounts), storage.ErrUnexpectedRowCount)
		}
		created = accounts[0]

		createdEmail, err = insertAccountEmail(ctx, tx, created.ID, email.Email)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if isEmailConstraint(pgErr) {
				return models.Account{}, models.AccountEmail{}, fmt.Errorf("%s: %w", op, storage.ErrEmailExists)
			}

			return models.Account{}, models.AccountEmail{}, fmt.Errorf("%s: %w", op, storage.ErrAccountExists)
		}

		return models.Account{}, models.AccountEmail{}, fmt.Errorf("%s: %w", op, err)
	}

	return created, createdEmail, nil
}

// * isEmailConstraint отличает конфликт по account_emails от конфликта по accounts
func isEmailConstraint(pgErr *pgconn.PgError) bool {
	return pgErr.TableName == accountEmailsTable ||
		strings.HasPrefix(pgErr.ConstraintName, accountEmailsTable+"_")
}

func insertAccount(ctx context.Context, tx pgx.Tx, account models.Account) ([]models.Account, error) {
	const query = `
		INSERT INTO accounts (id, username, name, bio)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, name, bio, updated, created;
	`

	rows, err := tx.Query(ctx, query, account.ID, account.Username, account.Name, account.Bio)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account

	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Name, &a.Bio, &a.Updated, &a.Created); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

func insertAccountEmail(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, email string) (models.AccountEmail, error) {
	const query = `
		INSERT INTO account_emails (email, account_id, public, verified)
		VALUES ($1, $2, false, CURRENT_TIMESTAMP)
		RETURNING email, account_id, public, verified, created;
	`

	var e models.AccountEmail

	err := tx.QueryRow(ctx, query, email, accountID).Scan(
		&e.Email,
		&e.AccountID,
		&e.Public,
		&e.Verified,
		&e.Created,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AccountEmail{}, fmt.Errorf("account_emails insert returned no rows: %w", storage.ErrUnexpectedRowCount)
		}

		return models.AccountEmail{}, err
	}

	return e, nil
}

func (r *PostgresRepo) AccountByID(ctx context.Context, id uuid.UUID) (models.Account, error) {
	const query = `
		SELECT id, username, name, bio, updated, created
		FROM accounts
		WHERE id = $1;
	`

	return r.account(ctx, "storage.postgres.AccountByID", query, id)
}

func (r *PostgresRepo) AccountByUsername(ctx context.Context, username string) (models.Account, error) {
	const query = `
		SELECT id, username, name, bio, updated, created
		FROM accounts
		WHERE username = $1;
	`

	return r.account(ctx, "storage.postgres.AccountByUsername", query, username)
}

func (r *PostgresRepo) AccountByEmail(ctx context.Context, email string) (models.Account, error) {
	const query = `
		SELECT a.id, a.username, a.name, a.bio, a.updated, a.created
		FROM accounts a
		JOIN account_emails e ON e.account_id = a.id
		WHERE lower(e.email) = lower($1);
	`

	return r.account(ctx, "storage.postgres.AccountByEmail", query, email)
}

func (r *PostgresRepo) account(ctx context.Context, op, query string, arg any) (models.Account, error) {
	var a models.Account

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.Username,
		&a.Name,
		&a.Bio,
		&a.Updated,
		&a.Created,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrAccountNotFound
		}

		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

func (r *PostgresRepo) AccountEmails(ctx context.Context, accountID uuid.UUID) ([]models.AccountEmail, error) {
	const op = "storage.postgres.AccountEmails"

	const query = `
		SELECT email, account_id, public, verified, created
		FROM account_emails
		WHERE account_id = $1
		ORDER BY created;
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var emails []models.AccountEmail

	for rows.Next() {
		var e models.AccountEmail
		if err := rows.Scan(&e.Email, &e.AccountID, &e.Public, &e.Verified, &e.Created); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		emails = append(emails, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return emails, nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
