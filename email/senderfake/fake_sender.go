package senderfake

import (
	"context"
	"sync"

	"github.com/ledgerly/auth-service/email"
	"github.com/ledgerly/auth-service/users"
)

var _ email.Sender = (*FakeSender)(nil)

// SentMessage records one dispatch for assertions.
type SentMessage struct {
	Kind  string // "verification" or "reset"
	Email string
	Token string
}

type FakeSender struct {
	Messages []SentMessage
	Err      error // returned from every send when set
	lock     sync.Mutex
}

func NewFakeSender() *FakeSender {
	return &FakeSender{}
}

func (f *FakeSender) SendVerificationEmail(ctx context.Context, user *users.User, token string) error {
	return f.record("verification", user.Email, token)
}

func (f *FakeSender) SendPasswordResetEmail(ctx context.Context, user *users.User, token string) error {
	return f.record("reset", user.Email, token)
}

func (f *FakeSender) record(kind, email, token string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.Err != nil {
		return f.Err
	}
	f.Messages = append(f.Messages, SentMessage{Kind: kind, Email: email, Token: token})
	return nil
}

// LastToken returns the token of the most recent message of the given kind.
func (f *FakeSender) LastToken(kind string) string {
	f.lock.Lock()
	defer f.lock.Unlock()

	for i := len(f.Messages) - 1; i >= 0; i-- {
		if f.Messages[i].Kind == kind {
			return f.Messages[i].Token
		}
	}
	return ""
}
