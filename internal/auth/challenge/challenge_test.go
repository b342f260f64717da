package challenge

import (
	"context"
	"testing"
	"time"

	redisRepo "github.com/hackers-pub/hackerspub-sub003/internal/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ns = "test"

type record struct {
	Subject string `json:"subject"`
	Code    string `json:"code"`
}

func (r record) ChallengeCode() string { return r.Code }

func newStore(t *testing.T) (*redisRepo.RedisRepo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redisRepo.NewWithClient(client), mr
}

func put(t *testing.T, store Store, rec record) string {
	t.Helper()

	token := uuid.New()
	require.NoError(t, Put(context.Background(), store, ns, token, rec, time.Hour))

	return token.String()
}

func TestLoad_Malformed(t *testing.T) {
	store, _ := newStore(t)

	_, err := Load[record](context.Background(), store, ns, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerify_DoesNotConsume(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	token := put(t, store, record{Subject: "a", Code: "abc"})
	policy := Policy{TTL: time.Hour, MaxAttempts: 3}

	for range 2 {
		rec, err := Verify[record](ctx, store, ns, token, "abc", policy)
		require.NoError(t, err)
		assert.Equal(t, "a", rec.Subject)
	}
}

func TestRedeem_Once(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	token := put(t, store, record{Subject: "a", Code: "abc"})
	policy := Policy{TTL: time.Hour, MaxAttempts: 3}

	_, err := Redeem[record](ctx, store, ns, token, "nope", policy)
	assert.ErrorIs(t, err, ErrCodeMismatch)
	assert.True(t, mr.Exists(ns+"-attempts:"+token))

	rec, err := Redeem[record](ctx, store, ns, token, "abc", policy)
	require.NoError(t, err)
	assert.Equal(t, "a", rec.Subject)
	assert.False(t, mr.Exists(ns+":"+token))
	assert.False(t, mr.Exists(ns+"-attempts:"+token))

	_, err = Redeem[record](ctx, store, ns, token, "abc", policy)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckCode_Lockout(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	token := put(t, store, record{Code: "abc"})
	policy := Policy{TTL: time.Hour, MaxAttempts: 2}

	_, err := Verify[record](ctx, store, ns, token, "x", policy)
	assert.ErrorIs(t, err, ErrCodeMismatch)

	_, err = Verify[record](ctx, store, ns, token, "y", policy)
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	_, err = Verify[record](ctx, store, ns, token, "abc", policy)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckCode_CounterExpiresWithChallenge(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	token := put(t, store, record{Code: "abc"})

	mr.FastForward(40 * time.Minute)

	_, err := Verify[record](ctx, store, ns, token, "x", Policy{TTL: 24 * time.Hour, MaxAttempts: 5})
	assert.ErrorIs(t, err, ErrCodeMismatch)
	assert.Equal(t, 20*time.Minute, mr.TTL(ns+"-attempts:"+token))

	mr.FastForward(20 * time.Minute)
	assert.False(t, mr.Exists(ns+":"+token))
	assert.False(t, mr.Exists(ns+"-attempts:"+token))
}

func TestCheckCode_NoLimit(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	token := put(t, store, record{Code: "abc"})

	for range 10 {
		_, err := Verify[record](ctx, store, ns, token, "x", Policy{TTL: time.Hour})
		assert.ErrorIs(t, err, ErrCodeMismatch)
	}

	assert.False(t, mr.Exists(ns+"-attempts:"+token))
}

func TestDelete(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	token := put(t, store, record{Code: "abc"})

	require.NoError(t, Delete(ctx, store, ns, token))
	assert.False(t, mr.Exists(ns+":"+token))

	assert.NoError(t, Delete(ctx, store, ns, token))
	assert.NoError(t, Delete(ctx, store, ns, "garbage"))
}
