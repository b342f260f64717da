package auth

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hackers-pub/hackerspub-sub003/internal/auth/challenge"
	"github.com/hackers-pub/hackerspub-sub003/internal/auth/signup"
	sl "github.com/hackers-pub/hackerspub-sub003/internal/lib/logger"
	"github.com/hackers-pub/hackerspub-sub003/internal/models"
	"github.com/hackers-pub/hackerspub-sub003/internal/storage"
	redisRepo "github.com/hackers-pub/hackerspub-sub003/internal/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	signinURL = "https://hackers.pub/sign/in/{token}?code={code}"
	signupURL = "https://hackers.pub/sign/up/{token}?code={code}"
)

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]models.Account
	emails   map[uuid.UUID][]models.AccountEmail
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		accounts: make(map[uuid.UUID]models.Account),
		emails:   make(map[uuid.UUID][]models.AccountEmail),
	}
}

func (f *fakeAccounts) add(username string, emails ...models.AccountEmail) models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()

	acc := models.Account{ID: uuid.Must(uuid.NewV7()), Username: username}
	f.accounts[acc.ID] = acc
	for _, e := range emails {
		e.AccountID = acc.ID
		f.emails[acc.ID] = append(f.emails[acc.ID], e)
	}

	return acc
}

func (f *fakeAccounts) CreateAccountWithEmail(
	_ context.Context,
	account models.Account,
	email models.AccountEmail,
) (models.Account, models.AccountEmail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.accounts {
		if a.Username == account.Username {
			return models.Account{}, models.AccountEmail{}, storage.ErrAccountExists
		}
	}
	for _, emails := range f.emails {
		for _, e := range emails {
			if strings.EqualFold(e.Email, email.Email) {
				return models.Account{}, models.AccountEmail{}, storage.ErrEmailExists
			}
		}
	}

	now := time.Now()
	email.Verified = &now
	f.accounts[account.ID] = account
	f.emails[account.ID] = []models.AccountEmail{email}

	return account, email, nil
}

func (f *fakeAccounts) AccountByID(_ context.Context, id uuid.UUID) (models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if a, ok := f.accounts[id]; ok {
		return a, nil
	}

	return models.Account{}, storage.ErrAccountNotFound
}

func (f *fakeAccounts) AccountByUsername(_ context.Context, username string) (models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.accounts {
		if a.Username == username {
			return a, nil
		}
	}

	return models.Account{}, storage.ErrAccountNotFound
}

func (f *fakeAccounts) AccountByEmail(_ context.Context, email string) (models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, emails := range f.emails {
		for _, e := range emails {
			if strings.EqualFold(e.Email, email) {
				return f.accounts[id], nil
			}
		}
	}

	return models.Account{}, storage.ErrAccountNotFound
}

func (f *fakeAccounts) AccountEmails(_ context.Context, accountID uuid.UUID) ([]models.AccountEmail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.emails[accountID], nil
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []models.Message
}

func (p *fakePublisher) SendMessage(_ context.Context, msg models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.msgs = append(p.msgs, msg)
	return nil
}

type suite struct {
	auth     *Auth
	accounts *fakeAccounts
	pub      *fakePublisher
	store    *redisRepo.RedisRepo
	mr       *miniredis.Miniredis
}

func newSuite(t *testing.T) *suite {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	accounts := newFakeAccounts()
	pub := &fakePublisher{}
	store := redisRepo.NewWithClient(client)

	a := New(sl.Discard(), accounts, accounts, store, pub, Options{
		SignupMaxAttempts: 5,
		SigninTTL:         time.Hour,
		SigninMaxAttempts: 5,
		SessionTTL:        24 * time.Hour,
		AccessTokenTTL:    15 * time.Minute,
		AccessTokenSecret: "secret",
	})

	return &suite{auth: a, accounts: accounts, pub: pub, store: store, mr: mr}
}

// linkParts extracts the token path segment and code query of a mailed link.
func linkParts(t *testing.T, link string) (string, string) {
	t.Helper()

	u, err := url.Parse(link)
	require.NoError(t, err)

	segments := strings.Split(u.Path, "/")

	return segments[len(segments)-1], u.Query().Get("code")
}

func TestSignin_ByUsername(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	now := time.Now()

	acc := s.accounts.add("alice",
		models.AccountEmail{Email: "alice@example.com", Verified: &now},
		models.AccountEmail{Email: "alice@unverified.example"},
	)

	token, err := s.auth.RequestSignin(ctx, "Alice", signinURL)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, token.AccountID)
	assert.Empty(t, token.Code)

	require.Len(t, s.pub.msgs, 1)
	msg := s.pub.msgs[0]
	assert.Equal(t, "alice@example.com", msg.Email)
	assert.Equal(t, models.PurposeSignin, msg.Purpose)

	tok, code := linkParts(t, msg.Link)
	assert.Equal(t, token.Token.String(), tok)
	assert.Equal(t, msg.Code, code)

	sess, accessToken, err := s.auth.CompleteSignin(ctx, tok, code, models.SessionMeta{UserAgent: "test"})
	require.NoError(t, err)
	assert.Equal(t, acc.ID, sess.AccountID)

	authed, err := s.auth.Authenticate(ctx, accessToken)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, authed.ID)

	_, _, err = s.auth.CompleteSignin(ctx, tok, code, models.SessionMeta{})
	assert.ErrorIs(t, err, ErrInvalidChallenge)
	assert.ErrorIs(t, err, challenge.ErrNotFound)
}

func TestSignin_ByEmail(t *testing.T) {
	s := newSuite(t)
	now := time.Now()

	acc := s.accounts.add("bob", models.AccountEmail{Email: "bob@example.com", Verified: &now})

	token, err := s.auth.RequestSignin(context.Background(), "BOB@example.com", signinURL)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, token.AccountID)
}

func TestSignin_UnknownAccount(t *testing.T) {
	s := newSuite(t)

	_, err := s.auth.RequestSignin(context.Background(), "ghost", signinURL)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Empty(t, s.pub.msgs)
}

func TestSignin_WrongCodeKeepsChallenge(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	now := time.Now()

	s.accounts.add("alice", models.AccountEmail{Email: "alice@example.com", Verified: &now})

	_, err := s.auth.RequestSignin(ctx, "alice", signinURL)
	require.NoError(t, err)
	tok, code := linkParts(t, s.pub.msgs[0].Link)

	_, _, err = s.auth.CompleteSignin(ctx, tok, "wrong", models.SessionMeta{})
	assert.ErrorIs(t, err, ErrInvalidChallenge)
	assert.ErrorIs(t, err, challenge.ErrCodeMismatch)

	_, _, err = s.auth.CompleteSignin(ctx, tok, code, models.SessionMeta{})
	assert.NoError(t, err)
}

func TestLogout_RevokesAccessToken(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	now := time.Now()

	s.accounts.add("alice", models.AccountEmail{Email: "alice@example.com", Verified: &now})

	_, err := s.auth.RequestSignin(ctx, "alice", signinURL)
	require.NoError(t, err)
	tok, code := linkParts(t, s.pub.msgs[0].Link)

	sess, accessToken, err := s.auth.CompleteSignin(ctx, tok, code, models.SessionMeta{})
	require.NoError(t, err)

	require.NoError(t, s.auth.Logout(ctx, sess.ID))
	require.NoError(t, s.auth.Logout(ctx, sess.ID))

	_, err = s.auth.Authenticate(ctx, accessToken)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSignup_Flow(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	invite, link, err := s.auth.Invite(ctx, "carol@example.com", signupURL)
	require.NoError(t, err)
	require.Len(t, s.pub.msgs, 1)
	assert.Equal(t, link, s.pub.msgs[0].Link)
	assert.Equal(t, models.PurposeSignup, s.pub.msgs[0].Purpose)

	tok, code := linkParts(t, link)
	assert.Equal(t, invite.Token.String(), tok)
	assert.Equal(t, invite.Code, code)

	inspected, err := s.auth.InspectSignup(ctx, tok, code)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", inspected.Email)

	acc, sess, err := s.auth.CompleteSignup(ctx, tok, code,
		models.NewAccount{Username: "carol", Name: "Carol"},
		models.SessionMeta{IPAddress: "192.0.2.7"},
	)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), acc.ID.Version())
	assert.Equal(t, acc.ID, sess.AccountID)

	emails, err := s.accounts.AccountEmails(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "carol@example.com", emails[0].Email)
	assert.False(t, emails[0].Public)

	_, err = signup.Get(ctx, s.store, tok)
	assert.ErrorIs(t, err, signup.ErrTokenNotFound)

	_, _, err = s.auth.CompleteSignup(ctx, tok, code, models.NewAccount{Username: "carol2"}, models.SessionMeta{})
	assert.ErrorIs(t, err, ErrInvalidChallenge)
}

func TestSignup_UsernameTakenKeepsInvite(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	s.accounts.add("dave")

	_, link, err := s.auth.Invite(ctx, "dave2@example.com", signupURL)
	require.NoError(t, err)
	tok, code := linkParts(t, link)

	_, _, err = s.auth.CompleteSignup(ctx, tok, code, models.NewAccount{Username: "dave"}, models.SessionMeta{})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, _, err = s.auth.CompleteSignup(ctx, tok, code, models.NewAccount{Username: "dave_two"}, models.SessionMeta{})
	assert.NoError(t, err)
}

func TestSignup_Expired(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	_, link, err := s.auth.Invite(ctx, "erin@example.com", signupURL)
	require.NoError(t, err)
	tok, code := linkParts(t, link)

	s.mr.FastForward(signup.Expiration)

	_, err = s.auth.InspectSignup(ctx, tok, code)
	assert.ErrorIs(t, err, ErrInvalidChallenge)
}

func TestSignup_EmailTakenKeepsInvite(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	now := time.Now()

	s.accounts.add("frank", models.AccountEmail{Email: "frank@example.com", Verified: &now})

	_, link, err := s.auth.Invite(ctx, "Frank@example.com", signupURL)
	require.NoError(t, err)
	tok, code := linkParts(t, link)

	_, _, err = s.auth.CompleteSignup(ctx, tok, code, models.NewAccount{Username: "frank2"}, models.SessionMeta{})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NotErrorIs(t, err, ErrUsernameTaken)

	_, _, err = s.auth.CompleteSignup(ctx, tok, code, models.NewAccount{Username: "frank3"}, models.SessionMeta{})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = signup.Get(ctx, s.store, tok)
	assert.NoError(t, err)
}

// racingAccounts registers the invited email between the pre-check and the insert.
type racingAccounts struct {
	*fakeAccounts
}

func (r racingAccounts) CreateAccountWithEmail(
	_ context.Context,
	_ models.Account,
	_ models.AccountEmail,
) (models.Account, models.AccountEmail, error) {
	return models.Account{}, models.AccountEmail{}, storage.ErrEmailExists
}

func TestSignup_EmailConflictOnInsert(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	a := New(sl.Discard(), racingAccounts{s.accounts}, s.accounts, s.store, s.pub, Options{
		SignupMaxAttempts: 5,
		SessionTTL:        time.Hour,
		AccessTokenTTL:    time.Minute,
		AccessTokenSecret: "secret",
	})

	_, link, err := a.Invite(ctx, "gina@example.com", signupURL)
	require.NoError(t, err)
	tok, code := linkParts(t, link)

	_, _, err = a.CompleteSignup(ctx, tok, code, models.NewAccount{Username: "gina"}, models.SessionMeta{})
	assert.ErrorIs(t, err, ErrEmailTaken)
}
