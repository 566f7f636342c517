// Package secrets implements component C4: generation of per-window CSRF
// tokens and snake-oil key-obfuscation keys, plus constant-time comparison
// of secrets. Grounded on secrets.hpp/.cpp, re-seeded from crypto/rand
// rather than a seeded mt19937 — a production Go codebase reaches for the
// OS CSPRNG directly rather than seeding a deterministic PRNG from it.
package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
)

const csrfTokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const csrfTokenLength = 20

// snakeOilKeyMinLen and snakeOilKeyMaxLen bound the random key length used
// to XOR-obfuscate key codes embedded in URLs — purely cosmetic, never a
// security mechanism (see snake_oil_key in spec.md's glossary).
const (
	snakeOilKeyMinLen = 5000
	snakeOilKeyMaxLen = 6000
)

// Generator produces the CSRF tokens and snake-oil cipher keys used by
// Windows. The zero value is ready to use; Generator is safe for
// concurrent use since every call goes straight to crypto/rand.
type Generator struct{}

// NewGenerator returns a ready-to-use secret Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// CSRFToken returns a fresh 20-character token drawn from
// [0-9A-Za-z].
func (g *Generator) CSRFToken() string {
	buf := make([]byte, csrfTokenLength)
	for i := range buf {
		buf[i] = csrfTokenAlphabet[randIntn(len(csrfTokenAlphabet))]
	}
	return string(buf)
}

// SnakeOilCipherKey returns between 5000 and 6000 bytes, uniform in
// [0,255], used to XOR-obfuscate key codes in URL query parameters.
func (g *Generator) SnakeOilCipherKey() []byte {
	n := snakeOilKeyMinLen + randIntn(snakeOilKeyMaxLen-snakeOilKeyMinLen+1)
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		corelog.Panic("secrets: crypto/rand.Read failed: ", err)
	}
	return buf
}

func randIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		corelog.Panic("secrets: crypto/rand.Int failed: ", err)
	}
	return int(v.Int64())
}

// Equal compares two secrets (CSRF tokens, HTTP Basic credentials, clipboard
// exchange tokens) in time depending only on their lengths, never on their
// contents, to defend against timing side-channels.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		// Still perform a constant-time comparison against a same-length
		// buffer so the total work done does not leak length either, beyond
		// what subtraction below already reveals via len().
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
