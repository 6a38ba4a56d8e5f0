package users

import (
	"errors"
	"strings"
)

// ErrUserNotFound is returned by repository lookups that match no record,
// so callers can tell absence apart from storage failures.
var ErrUserNotFound = errors.New("user not found")

// NormalizeEmail canonicalizes an address for storage and lookup. Email
// uniqueness is defined over this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepo manages identity records. Email lookups are case-insensitive.
type UserRepo interface {
	Upsert(user *User) error
	Delete(email string) error
	GetByEmail(email string) (*User, error)
	GetByID(ID string) (*User, error)
	List(offset, limit int) ([]*User, error)
	SetSuspended(email string, suspended bool) error
	SetEmailVerified(email string) error
}
