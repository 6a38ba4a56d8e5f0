package repofake

import (
	"sort"
	"sync"
	"time"

	"github.com/ledgerly/auth-service/internal/utils"
	"github.com/ledgerly/auth-service/token"
)

var _ token.RefreshTokenRepo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	tokens map[string]*token.StoredRefreshToken
	lock   sync.Mutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		tokens: make(map[string]*token.StoredRefreshToken),
	}
}

func (r *FakeRefreshTokenRepo) Upsert(t *token.StoredRefreshToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *t
	r.tokens[t.ID] = &copied
	return nil
}

func (r *FakeRefreshTokenRepo) Get(id string) (*token.StoredRefreshToken, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	t, ok := r.tokens[id]
	if !ok {
		return nil, token.ErrTokenNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *FakeRefreshTokenRepo) Revoke(id string, now time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	t, ok := r.tokens[id]
	if !ok {
		return token.ErrTokenNotFound
	}
	if t.RevokedAt != nil {
		return nil // idempotent
	}
	t.RevokedAt = &now
	return nil
}

func (r *FakeRefreshTokenRepo) Rotate(oldID string, now time.Time, next *token.StoredRefreshToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	old, ok := r.tokens[oldID]
	if !ok {
		return token.ErrTokenNotFound
	}
	if old.RevokedAt != nil {
		return token.ErrTokenRevoked
	}

	old.RevokedAt = &now
	old.ReplacedByTokenID = next.ID

	copied := *next
	r.tokens[next.ID] = &copied
	return nil
}

func (r *FakeRefreshTokenRepo) RevokeAllForUser(userID string, now time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = utils.Ptr(now)
		}
	}
	return nil
}

func (r *FakeRefreshTokenRepo) List(offset, limit int) ([]*token.StoredRefreshToken, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	list := make([]*token.StoredRefreshToken, 0, len(r.tokens))
	for _, t := range r.tokens {
		copied := *t
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	if offset >= len(list) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(list) {
		end = len(list)
	}
	return list[offset:end], nil
}

var _ token.SingleUseTokenRepo = (*FakeSingleUseTokenRepo)(nil)

type FakeSingleUseTokenRepo struct {
	tokens map[string]*token.SingleUseToken
	lock   sync.Mutex
}

func NewFakeSingleUseTokenRepo() *FakeSingleUseTokenRepo {
	return &FakeSingleUseTokenRepo{
		tokens: make(map[string]*token.SingleUseToken),
	}
}

func (r *FakeSingleUseTokenRepo) Create(t *token.SingleUseToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *t
	r.tokens[t.ID] = &copied
	return nil
}

func (r *FakeSingleUseTokenRepo) Get(id string) (*token.SingleUseToken, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	t, ok := r.tokens[id]
	if !ok {
		return nil, token.ErrTokenNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *FakeSingleUseTokenRepo) Consume(id string, now time.Time) (*token.SingleUseToken, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	t, ok := r.tokens[id]
	if !ok {
		return nil, token.ErrTokenNotFound
	}
	if t.ConsumedAt != nil {
		return nil, token.ErrTokenConsumed
	}
	t.ConsumedAt = &now

	copied := *t
	return &copied, nil
}
