package crypto

import (
	"fmt"

	"github.com/quicksandd/mirror/internal/util"
)

type wrapOptions struct {
	kdf Argon2idParams
}

// WrapOption customizes keypair wrapping.
type WrapOption func(*wrapOptions)

// WithKDFParams overrides the Argon2id cost profile used to derive the
// key-encryption key. The default is the moderate profile; tooling and tests
// may pass lighter parameters, which are recorded in the wrapped record so
// Unwrap always honors them.
func WithKDFParams(params Argon2idParams) WrapOption {
	return func(o *wrapOptions) {
		o.kdf = params
	}
}

// Wrap generates a fresh X25519 keypair and encrypts the private key under a
// key derived from password. It returns the server-storable record plus the
// raw keypair for immediate local use, so the caller need not unwrap what it
// just wrapped. Wrap performs no I/O; persistence is the caller's concern.
func Wrap(password string, opts ...WrapOption) (*WrappedKeypair, KeyPair, error) {
	o := wrapOptions{kdf: util.ModerateArgon2idParams()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := util.ValidateArgon2idParams(o.kdf); err != nil {
		return nil, KeyPair{}, fmt.Errorf("kdf params: %w", err)
	}

	kp, err := util.GenerateX25519Keypair()
	if err != nil {
		return nil, KeyPair{}, err
	}

	salt, err := util.RandomBytes(SaltSize)
	if err != nil {
		return nil, KeyPair{}, fmt.Errorf("generating salt: %w", err)
	}
	nonce, err := util.RandomBytes(NonceSize)
	if err != nil {
		return nil, KeyPair{}, fmt.Errorf("generating nonce: %w", err)
	}

	kek, err := util.DeriveArgon2idKey(util.Normalize(password), salt, o.kdf)
	if err != nil {
		return nil, KeyPair{}, fmt.Errorf("deriving key-encryption key: %w", err)
	}
	defer util.WipeBytes(kek)

	encSK, err := util.EncryptXChaCha(kp.Private[:], kek, nonce, nil)
	if err != nil {
		return nil, KeyPair{}, fmt.Errorf("encrypting private key: %w", err)
	}

	wrapped := &WrappedKeypair{
		PK:    util.B64Encode(kp.Public[:]),
		EncSK: util.B64Encode(encSK),
		Salt:  util.B64Encode(salt),
		Nonce: util.B64Encode(nonce),
		KDF: KDFParams{
			Alg: util.Argon2idAlg,
			Ops: o.kdf.Ops,
			Mem: o.kdf.Memory,
			N:   o.kdf.KeyLen,
		},
		AEAD: AEADParams{Alg: util.XChaChaAlg},
		Ver:  recordVersion,
	}
	return wrapped, kp, nil
}
