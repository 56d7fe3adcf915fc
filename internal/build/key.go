package build

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// fingerprint hashes parts into a short stable string. Maps print with
// sorted keys, so equal argument sets give equal fingerprints.
func fingerprint(parts ...any) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%#v\x00", p)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// identity renders a pointer so that distinct objects never share a key.
func identity(p any) string {
	return fmt.Sprintf("%p", p)
}
