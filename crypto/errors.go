package crypto

import "errors"

var (
	// ErrCorruptRecord indicates a malformed WrappedKeypair or Bundle:
	// wrong field lengths, bad encoding, or an unknown algorithm tag.
	// Not recoverable by retyping a password.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrAuthFailed is the single unwrap failure outcome for both a wrong
	// password and tampered ciphertext. The two are deliberately not
	// distinguished so a failed attempt teaches an attacker nothing.
	ErrAuthFailed = errors.New("wrong password or decryption error")

	// ErrDecryptFailed is the uniform payload decryption failure: the
	// private key does not open the sealed document key, or the report
	// ciphertext fails authentication.
	ErrDecryptFailed = errors.New("decryption failed")
)
