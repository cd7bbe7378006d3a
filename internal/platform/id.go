package platform

import (
	"crypto/rand"
	"io"

	"github.com/google/uuid"
)

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxUnbiasedByte is the largest multiple of len(passwordAlphabet) that fits
// in a byte. Bytes at or above it are discarded so every character is
// equally likely.
const maxUnbiasedByte = 256 - 256%len(passwordAlphabet)

// NewID returns a random UUID used for batch and attempt IDs.
func NewID() string {
	return uuid.New().String()
}

// NewPassword returns n random alphanumeric characters.
func NewPassword(n int) string {
	pw, err := passwordFrom(rand.Reader, n)
	if err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return pw
}

func passwordFrom(r io.Reader, n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		need := buf[:n-len(out)]
		if _, err := io.ReadFull(r, need); err != nil {
			return "", err
		}
		for _, b := range need {
			if int(b) < maxUnbiasedByte {
				out = append(out, passwordAlphabet[int(b)%len(passwordAlphabet)])
			}
		}
	}
	return string(out), nil
}
