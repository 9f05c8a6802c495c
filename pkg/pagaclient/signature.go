package pagaclient

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// Signature computes the request digest Paga expects in the `hash` header:
// a SHA-512 hex digest over the in-order concatenation of the given fields
// (no separators) followed immediately by the shared HMAC key. The field
// order is operation-specific and fixed by Paga's signing contract, so
// callers must pass fields exactly as documented for the endpoint.
func Signature(fields []string, hashKey string) string {
	sum := sha512.Sum512([]byte(strings.Join(fields, "") + hashKey))
	return hex.EncodeToString(sum[:])
}
