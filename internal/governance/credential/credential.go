// Package credential checks the shared write credential required by commit, reject and
// catalog reload.
package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Header carries the write credential on HTTP requests.
const Header = "X-Write-Credential"

// Verifier checks candidates against the configured secret. The secret is either the
// credential itself or its bcrypt hash. An empty secret rejects every candidate.
type Verifier struct {
	digest [sha256.Size]byte
	hash   []byte
	set    bool
}

func New(secret string) Verifier {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return Verifier{}
	}
	if strings.HasPrefix(secret, "$2a$") || strings.HasPrefix(secret, "$2b$") || strings.HasPrefix(secret, "$2y$") {
		return Verifier{hash: []byte(secret), set: true}
	}
	return Verifier{digest: sha256.Sum256([]byte(secret)), set: true}
}

func (v Verifier) Verify(candidate string) bool {
	if !v.set || candidate == "" {
		return false
	}
	if v.hash != nil {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(candidate)) == nil
	}
	// digests have equal length so the comparison time does not depend on the input length
	got := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(got[:], v.digest[:]) == 1
}
