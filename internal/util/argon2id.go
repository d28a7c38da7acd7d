package util

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2idParams carries the cost parameters embedded in a wrapped keypair
// record. Ops and Memory use the libsodium pwhash vocabulary (opslimit in
// passes, memlimit in bytes) so records produced by libsodium clients derive
// the same key. Parallelism is fixed at 1, as libsodium's argon2id13 always
// runs single-lane.
type Argon2idParams struct {
	Ops    uint32 `json:"ops"`
	Memory uint64 `json:"mem"`
	KeyLen uint32 `json:"n"`
}

const Argon2idAlg = "argon2id13"

// ModerateArgon2idParams is the production wrapping profile
// (crypto_pwhash OPSLIMIT_MODERATE / MEMLIMIT_MODERATE).
func ModerateArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Ops:    3,
		Memory: 256 * 1024 * 1024,
		KeyLen: 32,
	}
}

// InteractiveArgon2idParams is a lighter profile for tooling and tests
// (crypto_pwhash OPSLIMIT_INTERACTIVE / MEMLIMIT_INTERACTIVE).
func InteractiveArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Ops:    2,
		Memory: 64 * 1024 * 1024,
		KeyLen: 32,
	}
}

// ValidateArgon2idParams rejects parameters that argon2 cannot run with.
func ValidateArgon2idParams(p Argon2idParams) error {
	if p.Ops == 0 {
		return fmt.Errorf("argon2id ops must be positive")
	}
	if p.Memory < 8*1024 {
		return fmt.Errorf("argon2id memory must be at least 8 KiB, got %d bytes", p.Memory)
	}
	if p.KeyLen != 32 {
		return fmt.Errorf("argon2id key length must be 32 bytes, got %d", p.KeyLen)
	}
	return nil
}

// DeriveArgon2idKey derives a key from a passphrase and salt. The passphrase
// must already be normalized; see Normalize.
func DeriveArgon2idKey(passphrase string, salt []byte, params Argon2idParams) ([]byte, error) {
	if err := ValidateArgon2idParams(params); err != nil {
		return nil, err
	}
	memKiB := uint32(params.Memory / 1024)
	key := argon2.IDKey([]byte(passphrase), salt, params.Ops, memKiB, 1, params.KeyLen)
	return key, nil
}
