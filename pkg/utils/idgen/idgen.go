// Package idgen generates fixed-length random identifiers with a
// collision-retry loop against an authoritative existence check.
package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Alphabets and lengths for each identifier kind.
const (
	DigitAlphabet    = "0123456789"
	AlnumAlphabet    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	UserIDLength     = 32
	FileIDLength     = 32
	ShortURLLength   = 8
	SessionIDLength  = 128
	maxRetryAttempts = 100
)

// ExistsFunc reports whether a candidate identifier is already taken.
// It must consult the authoritative store, not a cache.
type ExistsFunc func(candidate string) (bool, error)

// Generate draws length characters uniformly from alphabet and retries
// while exists reports a collision. Collisions are astronomically rare
// at these lengths but the check is required for the uniqueness
// invariant to hold.
func Generate(alphabet string, length int, exists ExistsFunc) (string, error) {
	if len(alphabet) == 0 || length <= 0 {
		return "", fmt.Errorf("idgen: invalid alphabet or length")
	}

	for attempt := 0; attempt < maxRetryAttempts; attempt++ {
		candidate, err := draw(alphabet, length)
		if err != nil {
			return "", err
		}
		taken, err := exists(candidate)
		if err != nil {
			return "", fmt.Errorf("idgen: existence check failed: %v", err)
		}
		if !taken {
			return candidate, nil
		}
	}

	// Reaching this many collisions means the existence check is broken
	return "", fmt.Errorf("idgen: exhausted %d attempts", maxRetryAttempts)
}

func draw(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("idgen: random source failed: %v", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
