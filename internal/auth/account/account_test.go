package account

import (
	"context"
	"errors"
	"testing"
	"time"

	sl "github.com/hackers-pub/hackerspub-sub003/internal/lib/logger"
	"github.com/hackers-pub/hackerspub-sub003/internal/models"
	"github.com/hackers-pub/hackerspub-sub003/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSaver mimics the transactional insert: either both rows are kept or none.
type fakeSaver struct {
	accounts map[uuid.UUID]models.Account
	emails   map[string]models.AccountEmail
	err      error
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{
		accounts: make(map[uuid.UUID]models.Account),
		emails:   make(map[string]models.AccountEmail),
	}
}

func (f *fakeSaver) CreateAccountWithEmail(
	_ context.Context,
	account models.Account,
	email models.AccountEmail,
) (models.Account, models.AccountEmail, error) {
	if f.err != nil {
		return models.Account{}, models.AccountEmail{}, f.err
	}

	for _, a := range f.accounts {
		if a.Username == account.Username {
			return models.Account{}, models.AccountEmail{}, storage.ErrAccountExists
		}
	}
	if _, ok := f.emails[email.Email]; ok {
		return models.Account{}, models.AccountEmail{}, storage.ErrEmailExists
	}

	now := time.Now()
	account.Created = now
	account.Updated = now
	email.AccountID = account.ID
	email.Public = false
	email.Verified = &now
	email.Created = now

	f.accounts[account.ID] = account
	f.emails[email.Email] = email

	return account, email, nil
}

func TestCreate_BobScenario(t *testing.T) {
	db := newFakeSaver()
	token := models.SignupToken{Email: "bob@example.com", Token: uuid.New(), Code: "c0de"}

	account, email, err := Create(context.Background(), sl.Discard(), db, token, models.NewAccount{Username: "bob"})
	require.NoError(t, err)

	assert.Equal(t, uuid.Version(7), account.ID.Version())
	assert.Equal(t, "bob", account.Username)

	assert.Equal(t, "bob@example.com", email.Email)
	assert.Equal(t, account.ID, email.AccountID)
	assert.False(t, email.Public)
	assert.NotNil(t, email.Verified)

	assert.Len(t, db.accounts, 1)
	assert.Len(t, db.emails, 1)
}

func TestCreate_KeepsCallerID(t *testing.T) {
	db := newFakeSaver()
	id := uuid.Must(uuid.NewV7())

	account, _, err := Create(context.Background(), sl.Discard(), db,
		models.SignupToken{Email: "carol@example.com"},
		models.NewAccount{ID: &id, Username: "carol"},
	)
	require.NoError(t, err)
	assert.Equal(t, id, account.ID)
}

func TestCreate_IDsAreTimeOrdered(t *testing.T) {
	db := newFakeSaver()

	first, _, err := Create(context.Background(), sl.Discard(), db, models.SignupToken{Email: "a@example.com"}, models.NewAccount{Username: "a"})
	require.NoError(t, err)
	second, _, err := Create(context.Background(), sl.Discard(), db, models.SignupToken{Email: "b@example.com"}, models.NewAccount{Username: "b"})
	require.NoError(t, err)

	assert.Less(t, first.ID.String(), second.ID.String())
}

func TestCreate_Failure(t *testing.T) {
	db := newFakeSaver()
	db.err = errors.New("tx aborted")

	_, _, err := Create(context.Background(), sl.Discard(), db, models.SignupToken{Email: "bob@example.com"}, models.NewAccount{Username: "bob"})

	assert.ErrorIs(t, err, ErrPartialProvisioning)
	assert.ErrorIs(t, err, db.err)
	assert.Empty(t, db.accounts)
	assert.Empty(t, db.emails)
}

func TestCreate_UsernameTaken(t *testing.T) {
	db := newFakeSaver()

	_, _, err := Create(context.Background(), sl.Discard(), db, models.SignupToken{Email: "bob@example.com"}, models.NewAccount{Username: "bob"})
	require.NoError(t, err)

	_, _, err = Create(context.Background(), sl.Discard(), db, models.SignupToken{Email: "bob2@example.com"}, models.NewAccount{Username: "bob"})
	assert.ErrorIs(t, err, ErrAccountExists)
	assert.Len(t, db.accounts, 1)
}

func TestCreate_EmailTaken(t *testing.T) {
	db := newFakeSaver()

	_, _, err := Create(context.Background(), sl.Discard(), db, models.SignupToken{Email: "bob@example.com"}, models.NewAccount{Username: "bob"})
	require.NoError(t, err)

	_, _, err = Create(context.Background(), sl.Discard(), db, models.SignupToken{Email: "bob@example.com"}, models.NewAccount{Username: "bobby"})
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NotErrorIs(t, err, ErrAccountExists)
	assert.Len(t, db.accounts, 1)
}
