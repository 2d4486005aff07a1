package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/kvstore"
)

func newRedisBacked(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	kv := kvstore.NewRedisStoreFromClient(client, "", nil)
	return NewStore(kv, time.Hour, nil, nil), mr
}

func token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func TestFromLogin_UsesTokenExpiryAndSubject(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	exp := now.Add(15 * time.Minute)
	res := &model.LoginResult{
		Token:     token(t, jwt.MapClaims{"sub": "4", "exp": exp.Unix()}),
		PatientID: "9",
		Role:      model.RolePatient,
	}

	s := FromLogin(res, "anna@example.com", time.Hour, now)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, model.ID("4"), s.UserID)
	assert.Equal(t, model.ID("9"), s.PatientID)
	assert.True(t, s.ExpiresAt.Equal(exp))
	assert.True(t, s.IsPatient())
}

func TestFromLogin_OpaqueTokenUsesConfiguredTTL(t *testing.T) {
	now := time.Now()
	s := FromLogin(&model.LoginResult{Token: "opaque", UserID: "1", Role: model.RoleAdmin}, "", 30*time.Minute, now)
	assert.True(t, s.ExpiresAt.Equal(now.Add(30*time.Minute)))
	assert.Equal(t, model.ID("1"), s.UserID)
}

func TestStore_SetGetClear(t *testing.T) {
	store, _ := newRedisBacked(t)
	ctx := context.Background()

	sess := Session{ID: "s1", Token: "t", UserID: "4", Role: model.RoleDoctor, DoctorID: "3", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Set(ctx, sess))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sess.Token, got.Token)
	assert.Equal(t, model.ID("3"), got.DoctorID)

	require.NoError(t, store.Clear(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.True(t, errors.IsUnauthorized(err))
}

func TestStore_ExpiresWithToken(t *testing.T) {
	store, mr := newRedisBacked(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, Session{ID: "s2", Token: "t", ExpiresAt: time.Now().Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "s2")
	assert.True(t, errors.IsUnauthorized(err))
}

func TestStore_RejectsExpiredSession(t *testing.T) {
	store := NewStore(kvstore.NewMemoryStore(time.Minute), time.Hour, nil, nil)
	err := store.Set(context.Background(), Session{ID: "s3", ExpiresAt: time.Now().Add(-time.Second)})
	assert.True(t, errors.IsUnauthorized(err))
}

func TestStore_MissingID(t *testing.T) {
	store := NewStore(kvstore.NewMemoryStore(time.Minute), time.Hour, nil, nil)
	_, err := store.Get(context.Background(), "")
	assert.True(t, errors.IsUnauthorized(err))
}
