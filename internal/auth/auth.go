// Package auth maps bearer tokens to user IDs. The model is
// deliberately simple: tokens are issued out of band and listed in
// configuration; the server never mints or rotates them.
package auth

// Verifier resolves a bearer token to a user ID.
type Verifier interface {
	UserID(token string) (string, bool)
}

// LocalUser is the implicit identity when no tokens are configured:
// single-user local mode.
const LocalUser = "local"

// StaticVerifier checks tokens against a fixed table from config.
type StaticVerifier struct {
	tokens map[string]string
}

func NewStaticVerifier(tokens map[string]string) *StaticVerifier {
	return &StaticVerifier{tokens: tokens}
}

// Open reports whether the verifier has no tokens at all, meaning every
// request resolves to LocalUser.
func (v *StaticVerifier) Open() bool {
	return len(v.tokens) == 0
}

func (v *StaticVerifier) UserID(token string) (string, bool) {
	if v.Open() {
		return LocalUser, true
	}
	userID, ok := v.tokens[token]
	return userID, ok
}
