package idgen

import (
	"strings"

	"github.com/google/uuid"
)

const maxLength = 32

// New returns prefix followed by length hex characters taken from a random
// UUID. length is clamped to the 32 characters a UUID provides.
func New(prefix string, length int) string {
	if length <= 0 || length > maxLength {
		length = maxLength
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + id[:length]
}

// CorrelationID returns a new request correlation id such as "rl_3f9c0a2b7d1e4c58".
func CorrelationID() string {
	return New("rl_", 16)
}
