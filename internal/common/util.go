package common

import (
	"crypto/rand"
	"math/big"
)

// GenerateRandByteArray returns n bytes from crypto/rand.
// It panics if the system random source fails.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// MakeRandDigitString returns a string of n decimal digits drawn uniformly
// from crypto/rand. Leading zeros are preserved.
func MakeRandDigitString(n int) (string, error) {
	ten := big.NewInt(10)
	out := make([]byte, n)
	for i := range out {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + d.Int64())
	}
	return string(out), nil
}
