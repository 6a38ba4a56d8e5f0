package twofactor

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
)

const (
	// BackupCodeCount is the number of codes issued per enrollment.
	BackupCodeCount = 10

	backupCodeBytes = 5 // 10 hex characters per code
)

// GenerateBackupCodes creates a fresh set of one-time backup codes. The raw
// codes are shown to the user once; only their hashes are stored.
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, 0, BackupCodeCount)
	for i := 0; i < BackupCodeCount; i++ {
		buf := make([]byte, backupCodeBytes)
		if _, err := rand.Read(buf); err != nil {
			return nil, errors.Wrap(err, "[GenerateBackupCodes] rand.Read")
		}
		codes = append(codes, hex.EncodeToString(buf))
	}
	return codes, nil
}

// HashBackupCode returns the hex SHA-256 digest stored in place of a code.
func HashBackupCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// BackupCodeRepo stores hashed backup codes. Each code is consumable exactly
// once.
type BackupCodeRepo interface {
	// Replace swaps the user's full code set for a new one.
	Replace(userID string, codeHashes []string) error

	// Consume marks the matching code used iff it exists and is unused,
	// failing with ErrInvalidCode or ErrCodeUsed otherwise.
	Consume(userID, codeHash string, now time.Time) error
}
