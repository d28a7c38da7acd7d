package crypto

import (
	"fmt"

	"github.com/quicksandd/mirror/internal/util"
)

// Unwrap recovers the keypair from a wrapped record using the password.
// The KDF parameters come from the record, never from this build, so older
// records with different cost profiles stay decodable. The public key is
// recomputed from the recovered private key rather than trusted from the
// record's pk field.
//
// Malformed records fail with ErrCorruptRecord before any derivation. A
// wrong password and a tampered enc_sk are indistinguishable by design and
// both return ErrAuthFailed.
//
// The Argon2id step is CPU- and memory-heavy; run Unwrap off any goroutine
// that must stay responsive.
func Unwrap(wrapped *WrappedKeypair, password string) (KeyPair, error) {
	rec, err := wrapped.decode()
	if err != nil {
		return KeyPair{}, err
	}

	kek, err := util.DeriveArgon2idKey(util.Normalize(password), rec.salt, rec.kdf)
	if err != nil {
		return KeyPair{}, fmt.Errorf("deriving key-encryption key: %w", err)
	}
	defer util.WipeBytes(kek)

	sk, err := util.DecryptXChaCha(rec.encSK, kek, rec.nonce, nil)
	if err != nil {
		return KeyPair{}, ErrAuthFailed
	}
	defer util.WipeBytes(sk)

	var priv [32]byte
	copy(priv[:], sk)
	return KeyPair{Private: priv, Public: util.PublicFromPrivate(priv)}, nil
}
