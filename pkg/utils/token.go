package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandToken returns a hex token of 2*n characters.
func RandToken(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}
