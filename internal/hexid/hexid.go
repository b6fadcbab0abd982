// Package hexid generates short random hex identifiers.
package hexid

import (
	"crypto/rand"
	"encoding/hex"
)

// New returns an 8-character lowercase hex string (4 random bytes).
func New() string {
	return generate(4)
}

// Long returns a 16-character lowercase hex string for ids that must stay
// unique across a whole session history.
func Long() string {
	return generate(8)
}

func generate(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("hexid: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
