// Package contenthash derives stable short identifiers for topics.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Length is the number of hex characters kept from the digest.
const Length = 12

// Generate returns the first 12 hex characters of the sha256 digest of
// content. Identical topic text always maps to the same hash.
func Generate(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:Length]
}
