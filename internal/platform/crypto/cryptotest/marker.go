package cryptotest

import (
	"errors"
	"strings"
)

const marker = "sealed("

// Marker wraps values in a visible envelope so tests can assert that a value
// went through Encrypt before reaching storage. Test use only.
type Marker struct{}

func (Marker) Encrypt(plaintext string) (string, error) {
	return marker + plaintext + ")", nil
}

func (Marker) Decrypt(ciphertext string) (string, error) {
	inner, ok := strings.CutPrefix(ciphertext, marker)
	if !ok || !strings.HasSuffix(inner, ")") {
		return "", errors.New("cryptotest: value was not sealed")
	}
	return strings.TrimSuffix(inner, ")"), nil
}
