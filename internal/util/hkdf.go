package util

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const HKDFKeyLength = 32

// HKDF derives a HKDFKeyLength-byte key from seed with HKDF-SHA256.
func HKDF(seed []byte, salt []byte, info []byte) ([]byte, error) {
	if len(seed) == 0 {
		return nil, errors.New("hkdf: empty seed")
	}
	h := hkdf.New(sha256.New, seed, salt, info)
	k := make([]byte, HKDFKeyLength)
	if _, err := io.ReadFull(h, k); err != nil {
		return nil, fmt.Errorf("reading from HKDF: %w", err)
	}
	return k, nil
}
