package repofake

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerly/auth-service/internal/utils"
	"github.com/ledgerly/auth-service/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // normalized email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	ur.users[user.ID] = user
	ur.emailIds[users.NormalizeEmail(user.Email)] = user.ID
	return nil
}

func (ur *FakeUserRepo) Delete(email string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	key := users.NormalizeEmail(email)
	userID, ok := ur.emailIds[key]
	if !ok {
		return users.ErrUserNotFound
	}
	delete(ur.emailIds, key)

	if _, ok := ur.users[userID]; !ok {
		return nil
	}

	delete(ur.users, userID)
	return nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	key := users.NormalizeEmail(email)
	if _, ok := ur.emailIds[key]; !ok {
		return nil, users.ErrUserNotFound
	}
	return ur.users[ur.emailIds[key]], nil
}

func (ur *FakeUserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if _, ok := ur.users[id]; !ok {
		return nil, users.ErrUserNotFound
	}
	return ur.users[id], nil
}

func (ur *FakeUserRepo) List(offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, v := range ur.users {
		userList = append(userList, v)
	}

	sort.Slice(userList, func(i, j int) bool {
		return userList[i].ID < userList[j].ID
	})

	if offset >= len(userList) {
		return nil, nil
	}

	end := offset + limit
	if limit <= 0 || end > len(userList) {
		end = len(userList)
	}

	return userList[offset:end], nil
}

func (ur *FakeUserRepo) SetSuspended(email string, suspended bool) error {
	user, err := ur.GetByEmail(email)
	if err != nil {
		return err
	}

	ur.lock.Lock()
	defer ur.lock.Unlock()
	user.Suspended = suspended
	return nil
}

func (ur *FakeUserRepo) SetEmailVerified(email string) error {
	user, err := ur.GetByEmail(email)
	if err != nil {
		return err
	}

	ur.lock.Lock()
	defer ur.lock.Unlock()
	user.EmailVerifiedAt = utils.Ptr(time.Now())
	return nil
}
