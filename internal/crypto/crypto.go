// Package crypto provides at-rest encryption for stored memory content.
//
// Values written before encryption was enabled remain readable: Decrypt
// reports how the input was handled instead of guessing, so callers can
// distinguish real plaintext from a ciphertext that failed to open.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

// tokenPrefix marks encrypted values so legacy plaintext is never
// mistaken for ciphertext.
const tokenPrefix = "enc:v1:"

const (
	keyIterations = 4096
	keyLen        = chacha20poly1305.KeySize
)

// keySalt is fixed: the master key is per-deployment, not per-user, and
// tokens must be decryptable across restarts without storing a salt.
var keySalt = []byte("kindred.at-rest.v1")

// State describes how Decrypt handled its input.
type State int

const (
	// Plaintext means the input carried no ciphertext marker and was
	// returned as-is.
	Plaintext State = iota
	// Ciphertext means the input was decrypted successfully.
	Ciphertext
	// Failed means the input looked encrypted but could not be opened.
	// Text holds the original token so nothing is silently lost.
	Failed
)

// Result is the outcome of a Decrypt call.
type Result struct {
	Text  string
	State State
}

// Codec encrypts and decrypts stored values.
type Codec interface {
	Encrypt(plain string) (string, error)
	Decrypt(token string) Result
}

// AEAD is a Codec backed by XChaCha20-Poly1305 with a key derived from
// a deployment master key.
type AEAD struct {
	key []byte
}

// NewAEAD derives an encryption key from the master key. The master key
// must be non-empty; an accidental empty key would encrypt everything
// under a guessable secret.
func NewAEAD(masterKey string) (*AEAD, error) {
	if strings.TrimSpace(masterKey) == "" {
		return nil, fmt.Errorf("master key is empty")
	}
	key := pbkdf2.Key([]byte(masterKey), keySalt, keyIterations, keyLen, sha256.New)
	return &AEAD{key: key}, nil
}

// Encrypt seals plain under a fresh random nonce and returns a prefixed
// base64 token.
func (a *AEAD) Encrypt(plain string) (string, error) {
	aead, err := chacha20poly1305.NewX(a.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plain), nil)
	return tokenPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt. Input without the token
// prefix is treated as legacy plaintext and returned unchanged.
func (a *AEAD) Decrypt(token string) Result {
	if !strings.HasPrefix(token, tokenPrefix) {
		return Result{Text: token, State: Plaintext}
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(token, tokenPrefix))
	if err != nil {
		return Result{Text: token, State: Failed}
	}
	aead, err := chacha20poly1305.NewX(a.key)
	if err != nil {
		return Result{Text: token, State: Failed}
	}
	if len(raw) < aead.NonceSize() {
		return Result{Text: token, State: Failed}
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return Result{Text: token, State: Failed}
	}
	return Result{Text: string(plain), State: Ciphertext}
}

// Passthrough is a Codec that stores values unencrypted. Used when no
// master key is configured, and in tests.
type Passthrough struct{}

func (Passthrough) Encrypt(plain string) (string, error) { return plain, nil }

func (Passthrough) Decrypt(token string) Result {
	return Result{Text: token, State: Plaintext}
}
