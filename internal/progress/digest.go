package progress

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Digester is the one-way password digest used to avoid storing plaintext.
// The contract is deliberately narrow: deterministic, collision-resistant,
// same input always produces the same output. No salting and no timing-safe
// comparison -- a known weakness of this design, preserved as-is.
type Digester interface {
	Digest(secret string) string
}

// NewDigester returns the digester selected by name: "sha256" or "blake2b".
func NewDigester(name string) (Digester, error) {
	switch name {
	case "sha256":
		return sha256Digester{}, nil
	case "blake2b":
		return blake2bDigester{}, nil
	default:
		return nil, fmt.Errorf("unknown digest algorithm %q", name)
	}
}

// sha256Digester is the default, matching the data already on disk from
// earlier deployments.
type sha256Digester struct{}

func (sha256Digester) Digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// blake2bDigester digests with BLAKE2b-256.
type blake2bDigester struct{}

func (blake2bDigester) Digest(secret string) string {
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
