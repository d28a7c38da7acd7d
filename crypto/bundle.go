package crypto

import (
	"fmt"

	"github.com/quicksandd/mirror/internal/util"
)

// SealBundle envelope-encrypts plaintext to a recipient's public key: a
// fresh 32-byte document key encrypts the payload with XChaCha20-Poly1305,
// and the document key itself is sealed anonymously to recipientPub. Only
// the holder of the matching private key can recover either. aad, when
// non-nil, is integrity-bound but not encrypted.
func SealBundle(plaintext []byte, recipientPub [32]byte, aad []byte) (*Bundle, error) {
	dek, err := util.RandomBytes(KeySize)
	if err != nil {
		return nil, fmt.Errorf("generating document key: %w", err)
	}
	defer util.WipeBytes(dek)

	nonce, err := util.RandomBytes(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	ct, err := util.EncryptXChaCha(plaintext, dek, nonce, aad)
	if err != nil {
		return nil, fmt.Errorf("encrypting payload: %w", err)
	}
	ek, err := util.SealBox(dek, recipientPub)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		Alg:   bundleAlg,
		EK:    util.B64Encode(ek),
		CT:    util.B64Encode(ct),
		Nonce: util.B64Encode(nonce),
		Ver:   "1",
	}
	if len(aad) > 0 {
		b.AAD = util.B64Encode(aad)
	}
	return b, nil
}

// OpenBundle recovers the plaintext from a server-delivered bundle using the
// recipient's private key. It is the only path by which report content
// becomes plaintext; callers must pass a key that was authenticated by
// Unwrap or read from the local key store.
//
// The returned bytes are opaque: any byte sequence round-trips, not just
// UTF-8 JSON. All cryptographic failures collapse to ErrDecryptFailed; only
// structural problems surface as ErrCorruptRecord.
func OpenBundle(b *Bundle, priv [32]byte) ([]byte, error) {
	rec, err := b.decode()
	if err != nil {
		return nil, err
	}

	pub := util.PublicFromPrivate(priv)
	dek, err := util.OpenBox(rec.ek, pub, priv)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	defer util.WipeBytes(dek)

	plaintext, err := util.DecryptXChaCha(rec.ct, dek, rec.nonce, rec.aad)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}
