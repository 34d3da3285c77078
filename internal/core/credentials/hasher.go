// Package credentials wraps password hashing so the service layer never
// touches bcrypt directly.
package credentials

import "golang.org/x/crypto/bcrypt"

// bcrypt cost 10, the library default and what existing stored hashes use.
const hashCost = bcrypt.DefaultCost

type Hasher struct{}

func NewHasher() *Hasher {
	return &Hasher{}
}

// Hash salts and hashes a plaintext password.
func (h *Hasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Compare reports whether candidate matches the stored hash. The comparison
// is constant-time inside bcrypt.
func (h *Hasher) Compare(hash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}
