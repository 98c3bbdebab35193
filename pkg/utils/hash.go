package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func HashString(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// HashTokens hashes an ordered token sequence. The unit separator keeps
// ["ab","c"] and ["a","bc"] apart.
func HashTokens(tokens []string) string {
	return HashString(strings.Join(tokens, "\x1f"))
}
