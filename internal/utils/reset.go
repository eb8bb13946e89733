package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/example/farmfresh/internal/errutil"
)

// Reset token configuration.
const (
	ResetTokenBytes = 32 // 64 hex chars
	ResetTokenTTL   = time.Hour
)

// GenerateResetToken creates a random token and its hash. The plaintext goes
// to the user; only the hash is stored.
func GenerateResetToken() (token, hash string, err error) {
	tokenBytes := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", errutil.Internal("GenerateResetToken", err)
	}
	token = hex.EncodeToString(tokenBytes)
	return token, HashResetToken(token), nil
}

// HashResetToken computes the sha256 hex digest a reset token is stored as.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
