package boltstore_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerly/auth-service/internal/utils"
	"github.com/ledgerly/auth-service/token"
	"github.com/ledgerly/auth-service/token/boltstore"
)

func openTestStore(t *testing.T) *boltstore.Store {
	t.Helper()

	store, err := boltstore.Open(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func storedToken(id, userID string, now time.Time) *token.StoredRefreshToken {
	return &token.StoredRefreshToken{
		ID:         id,
		UserID:     userID,
		SecretHash: token.HashSecret("secret-" + id),
		IssuedAt:   now,
		ExpiresAt:  now.Add(30 * 24 * time.Hour),
		Client:     token.ClientContext{IPAddress: "203.0.113.10", UserAgent: "test-agent"},
	}
}

func TestRefreshTokenPersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.db")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store, err := boltstore.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.RefreshTokens().Upsert(storedToken("rt-1", "user-1", now)))
	require.NoError(t, store.Close())

	// Records survive reopening the database.
	store, err = boltstore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	stored, err := store.RefreshTokens().Get("rt-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", stored.UserID)
	require.Equal(t, token.HashSecret("secret-rt-1"), stored.SecretHash)
	require.Equal(t, "203.0.113.10", stored.Client.IPAddress)
	require.True(t, now.Equal(stored.IssuedAt))
}

func TestRefreshTokenRevoke(t *testing.T) {
	store := openTestStore(t)
	repo := store.RefreshTokens()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(storedToken("rt-1", "user-1", now)))

	require.NoError(t, repo.Revoke("rt-1", now))
	require.NoError(t, repo.Revoke("rt-1", now.Add(time.Hour))) // idempotent

	stored, err := repo.Get("rt-1")
	require.NoError(t, err)
	require.True(t, stored.Revoked())
	require.True(t, now.Equal(utils.Value(stored.RevokedAt)))

	require.ErrorIs(t, repo.Revoke("missing", now), token.ErrTokenNotFound)
}

func TestRotate(t *testing.T) {
	store := openTestStore(t)
	repo := store.RefreshTokens()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(storedToken("rt-1", "user-1", now)))
	require.NoError(t, repo.Rotate("rt-1", now, storedToken("rt-2", "user-1", now)))

	old, err := repo.Get("rt-1")
	require.NoError(t, err)
	require.True(t, old.Revoked())
	require.Equal(t, "rt-2", old.ReplacedByTokenID)

	next, err := repo.Get("rt-2")
	require.NoError(t, err)
	require.False(t, next.Revoked())

	// A second rotation of the same token loses.
	err = repo.Rotate("rt-1", now, storedToken("rt-3", "user-1", now))
	require.ErrorIs(t, err, token.ErrTokenRevoked)
	_, err = repo.Get("rt-3")
	require.ErrorIs(t, err, token.ErrTokenNotFound)
}

func TestRotateSingleWinner(t *testing.T) {
	store := openTestStore(t)
	repo := store.RefreshTokens()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(storedToken("rt-1", "user-1", now)))

	const contenders = 8
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := storedToken("next", "user-1", now)
			next.ID = next.ID + "-" + string(rune('a'+i))
			errs[i] = repo.Rotate("rt-1", now, next)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, token.ErrTokenRevoked)
		}
	}
	require.Equal(t, 1, winners)
}

func TestRevokeAllForUser(t *testing.T) {
	store := openTestStore(t)
	repo := store.RefreshTokens()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(storedToken("rt-1", "user-1", now)))
	require.NoError(t, repo.Upsert(storedToken("rt-2", "user-1", now)))
	require.NoError(t, repo.Upsert(storedToken("rt-3", "user-2", now)))

	require.NoError(t, repo.RevokeAllForUser("user-1", now))

	for id, wantRevoked := range map[string]bool{"rt-1": true, "rt-2": true, "rt-3": false} {
		stored, err := repo.Get(id)
		require.NoError(t, err)
		require.Equal(t, wantRevoked, stored.Revoked(), "token %s", id)
	}
}

func TestSingleUseTokenBuckets(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.ResetTokens().Create(&token.SingleUseToken{
		ID:        "tok-1",
		UserID:    "user-1",
		ExpiresAt: now.Add(time.Hour),
	}))

	// Reset and verification tokens live in separate buckets.
	_, err := store.VerificationTokens().Get("tok-1")
	require.ErrorIs(t, err, token.ErrTokenNotFound)

	consumed, err := store.ResetTokens().Consume("tok-1", now)
	require.NoError(t, err)
	require.True(t, consumed.Consumed())

	_, err = store.ResetTokens().Consume("tok-1", now)
	require.ErrorIs(t, err, token.ErrTokenConsumed)
}
