package repofake

import (
	"sync"
	"time"

	"github.com/ledgerly/auth-service/twofactor"
)

var _ twofactor.BackupCodeRepo = (*FakeBackupCodeRepo)(nil)

type storedCode struct {
	usedAt *time.Time
}

type FakeBackupCodeRepo struct {
	codes map[string]map[string]*storedCode // userID -> codeHash -> state
	lock  sync.Mutex
}

func NewFakeBackupCodeRepo() *FakeBackupCodeRepo {
	return &FakeBackupCodeRepo{
		codes: make(map[string]map[string]*storedCode),
	}
}

func (r *FakeBackupCodeRepo) Replace(userID string, codeHashes []string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	set := make(map[string]*storedCode, len(codeHashes))
	for _, h := range codeHashes {
		set[h] = &storedCode{}
	}
	r.codes[userID] = set
	return nil
}

func (r *FakeBackupCodeRepo) Consume(userID, codeHash string, now time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	set, ok := r.codes[userID]
	if !ok {
		return twofactor.ErrInvalidCode
	}

	code, ok := set[codeHash]
	if !ok {
		return twofactor.ErrInvalidCode
	}
	if code.usedAt != nil {
		return twofactor.ErrCodeUsed
	}

	code.usedAt = &now
	return nil
}
