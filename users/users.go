package users

import (
	"fmt"
	"time"

	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Well-known roles assigned to dashboard users.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the identity record owned by the auth service. It is mutated on
// signup, login, email verification and two-factor enrollment.
type User struct {
	ID                string     `json:"id,omitempty"`           // Unique identifier for the user
	Email             string     `json:"email,omitempty"`        // User's email address (unique, case-insensitive)
	PasswordHash      string     `json:"-"`                      // Hashed version of the user's password - never serialize
	DisplayName       string     `json:"display_name,omitempty"` // Name shown in the dashboard
	AvatarURL         string     `json:"avatar_url,omitempty"`   // Optional avatar image URL
	Roles             []string   `json:"roles,omitempty"`        // Role names granted to the user
	EmailVerifiedAt   *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt       time.Time  `json:"last_login_at,omitempty"`
	TwoFactorEnrolled bool       `json:"two_factor_enrolled,omitempty"`
	TwoFactorSecret   string     `json:"-"` // Base32 TOTP secret - never serialize
	Suspended         bool       `json:"suspended,omitempty"`
	CreatedAt         time.Time  `json:"created_at,omitempty"`
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash reports whether the plaintext password matches the stored
// hash. A mismatch returns false, never an error.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// EmailVerified reports whether the user has completed email verification.
func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
