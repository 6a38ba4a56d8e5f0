package challenge

import (
	"time"

	"github.com/ledgerly/auth-service/token"
)

// Challenge is a pending two-factor login: credentials were verified but
// tokens are deferred until the second factor is presented.
type Challenge struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	Client    token.ClientContext
}

type Repo interface {
	Upsert(id string, ch Challenge) error
	Get(id string) (Challenge, error)
	Delete(id string) error
}
