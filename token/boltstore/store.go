// Package boltstore persists auth tokens in an embedded bbolt database.
// Rotation and consumption run inside single write transactions, which is
// what gives the one-winner guarantee for concurrent refresh calls.
package boltstore

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ledgerly/auth-service/token"
	bolt "go.etcd.io/bbolt"
)

const (
	// storeDirPerm is the permission mode for the data directory.
	storeDirPerm = fs.FileMode(0o700)

	// storeFilePerm is the permission mode for the database file.
	storeFilePerm = fs.FileMode(0o600)

	// storeOpenTimeout is the maximum time to wait for the bolt file lock.
	storeOpenTimeout = 5 * time.Second
)

var (
	refreshBucket      = []byte("refresh_tokens")
	resetBucket        = []byte("reset_tokens")
	verificationBucket = []byte("verification_tokens")
)

// Store wraps a bbolt database holding all token state.
type Store struct {
	db *bolt.DB
}

// Open opens the token database at the given path, creating it and its
// buckets if they do not exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), storeDirPerm); err != nil {
		return nil, fmt.Errorf("creating token store directory: %w", err)
	}

	db, err := bolt.Open(path, storeFilePerm, &bolt.Options{Timeout: storeOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening token store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(refreshBucket); err != nil {
			return err
		}

		if _, err := tx.CreateBucketIfNotExists(resetBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucketIfNotExists(verificationBucket)

		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing token store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RefreshTokens returns the refresh token repository view of the store.
func (s *Store) RefreshTokens() token.RefreshTokenRepo {
	return &refreshTokenRepo{db: s.db}
}

// ResetTokens returns the password reset token repository view of the store.
func (s *Store) ResetTokens() token.SingleUseTokenRepo {
	return &singleUseTokenRepo{db: s.db, bucket: resetBucket}
}

// VerificationTokens returns the email verification token repository view.
func (s *Store) VerificationTokens() token.SingleUseTokenRepo {
	return &singleUseTokenRepo{db: s.db, bucket: verificationBucket}
}

var _ token.RefreshTokenRepo = (*refreshTokenRepo)(nil)

type refreshTokenRepo struct {
	db *bolt.DB
}

func (r *refreshTokenRepo) Upsert(t *token.StoredRefreshToken) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return putRefresh(tx, t)
	})
}

func (r *refreshTokenRepo) Get(id string) (*token.StoredRefreshToken, error) {
	var t *token.StoredRefreshToken

	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(refreshBucket).Get([]byte(id))
		if v == nil {
			return token.ErrTokenNotFound
		}

		t = &token.StoredRefreshToken{}

		return json.Unmarshal(v, t)
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (r *refreshTokenRepo) Revoke(id string, now time.Time) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		t, err := getRefresh(tx, id)
		if err != nil {
			return err
		}
		if t.RevokedAt != nil {
			return nil // idempotent
		}

		t.RevokedAt = &now

		return putRefresh(tx, t)
	})
}

func (r *refreshTokenRepo) Rotate(oldID string, now time.Time, next *token.StoredRefreshToken) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		old, err := getRefresh(tx, oldID)
		if err != nil {
			return err
		}
		if old.RevokedAt != nil {
			return token.ErrTokenRevoked
		}

		old.RevokedAt = &now
		old.ReplacedByTokenID = next.ID

		if err := putRefresh(tx, old); err != nil {
			return err
		}

		return putRefresh(tx, next)
	})
}

func (r *refreshTokenRepo) RevokeAllForUser(userID string, now time.Time) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(refreshBucket)

		var revoked []*token.StoredRefreshToken

		err := b.ForEach(func(k, v []byte) error {
			var t token.StoredRefreshToken
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}

			if t.UserID == userID && t.RevokedAt == nil {
				revokedAt := now
				t.RevokedAt = &revokedAt
				revoked = append(revoked, &t)
			}

			return nil
		})
		if err != nil {
			return err
		}

		for _, t := range revoked {
			if err := putRefresh(tx, t); err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *refreshTokenRepo) List(offset, limit int) ([]*token.StoredRefreshToken, error) {
	var list []*token.StoredRefreshToken

	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(refreshBucket).ForEach(func(k, v []byte) error {
			var t token.StoredRefreshToken
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}

			list = append(list, &t)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if offset >= len(list) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(list) {
		end = len(list)
	}

	return list[offset:end], nil
}

func getRefresh(tx *bolt.Tx, id string) (*token.StoredRefreshToken, error) {
	v := tx.Bucket(refreshBucket).Get([]byte(id))
	if v == nil {
		return nil, token.ErrTokenNotFound
	}

	t := &token.StoredRefreshToken{}
	if err := json.Unmarshal(v, t); err != nil {
		return nil, err
	}

	return t, nil
}

func putRefresh(tx *bolt.Tx, t *token.StoredRefreshToken) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}

	return tx.Bucket(refreshBucket).Put([]byte(t.ID), data)
}

var _ token.SingleUseTokenRepo = (*singleUseTokenRepo)(nil)

type singleUseTokenRepo struct {
	db     *bolt.DB
	bucket []byte
}

func (r *singleUseTokenRepo) Create(t *token.SingleUseToken) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}

		return tx.Bucket(r.bucket).Put([]byte(t.ID), data)
	})
}

func (r *singleUseTokenRepo) Get(id string) (*token.SingleUseToken, error) {
	var t *token.SingleUseToken

	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(r.bucket).Get([]byte(id))
		if v == nil {
			return token.ErrTokenNotFound
		}

		t = &token.SingleUseToken{}

		return json.Unmarshal(v, t)
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (r *singleUseTokenRepo) Consume(id string, now time.Time) (*token.SingleUseToken, error) {
	var t *token.SingleUseToken

	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(r.bucket)

		v := b.Get([]byte(id))
		if v == nil {
			return token.ErrTokenNotFound
		}

		t = &token.SingleUseToken{}
		if err := json.Unmarshal(v, t); err != nil {
			return err
		}

		if t.ConsumedAt != nil {
			return token.ErrTokenConsumed
		}

		t.ConsumedAt = &now

		data, err := json.Marshal(t)
		if err != nil {
			return err
		}

		return b.Put([]byte(id), data)
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}
