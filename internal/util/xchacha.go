package util

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	XChaChaKeySize   = chacha20poly1305.KeySize
	XChaChaNonceSize = chacha20poly1305.NonceSizeX
	XChaChaTagSize   = chacha20poly1305.Overhead
)

const XChaChaAlg = "xchacha20poly1305-ietf"

// EncryptXChaCha seals plainText under key with an explicit 24-byte nonce.
// The nonce is carried separately on the wire, so unlike the usual Go
// convention it is not prepended to the ciphertext.
func EncryptXChaCha(plainText, key, nonce, aad []byte) ([]byte, error) {
	if len(key) != XChaChaKeySize {
		return nil, fmt.Errorf("invalid XChaCha20 key size: got %d, want %d", len(key), XChaChaKeySize)
	}
	if len(nonce) != XChaChaNonceSize {
		return nil, fmt.Errorf("invalid XChaCha20 nonce size: got %d, want %d", len(nonce), XChaChaNonceSize)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305: %w", err)
	}
	return aead.Seal(nil, nonce, plainText, aad), nil
}

// DecryptXChaCha opens cipherText produced by EncryptXChaCha.
func DecryptXChaCha(cipherText, key, nonce, aad []byte) ([]byte, error) {
	if len(key) != XChaChaKeySize {
		return nil, fmt.Errorf("invalid XChaCha20 key size: got %d, want %d", len(key), XChaChaKeySize)
	}
	if len(nonce) != XChaChaNonceSize {
		return nil, fmt.Errorf("invalid XChaCha20 nonce size: got %d, want %d", len(nonce), XChaChaNonceSize)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305: %w", err)
	}
	plainText, err := aead.Open(nil, nonce, cipherText, aad)
	if err != nil {
		return nil, fmt.Errorf("decrypting ciphertext: %w", err)
	}
	return plainText, nil
}
