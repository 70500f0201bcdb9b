package password

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost trades login latency for brute-force resistance. 12 keeps a
// verify under ~250ms on commodity hardware.
const bcryptCost = 12

// Hash returns the bcrypt hash of a plaintext password
func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether the plaintext matches the stored bcrypt hash
func Verify(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// HashToken returns the hex SHA-256 of a refresh token. Tokens are random
// UUIDs, not passwords, so a fast digest is enough for at-rest storage.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
