// Package crypto implements the Mirror confidential-report protocol: a
// password-wrapped X25519 keypair stored server-side, and per-report
// envelope encryption where a document key is sealed anonymously to the
// user's public key. The server computing the report never holds anything
// that decrypts it without the user's password.
package crypto

import (
	"fmt"

	"github.com/quicksandd/mirror/internal/util"
)

// KeyPair holds an X25519 public/private key pair.
type KeyPair = util.KeyPair

// Argon2idParams configures Argon2id key derivation.
type Argon2idParams = util.Argon2idParams

// Byte lengths that are part of the wire contract. Any deviation on decode
// is a corrupt record, never a password problem.
const (
	KeySize          = 32
	SaltSize         = 16
	NonceSize        = util.XChaChaNonceSize
	TagSize          = util.XChaChaTagSize
	SealedKeySize    = KeySize + util.SealedBoxOverhead
	EncryptedKeySize = KeySize + TagSize
)

const (
	recordVersion = 1
	bundleAlg     = "sealedbox(X25519)+XChaCha20-Poly1305"
)

// KDFParams is the wire form of the KDF configuration embedded in a
// WrappedKeypair. Ops/Mem follow libsodium's opslimit/memlimit units.
type KDFParams struct {
	Alg string `json:"alg"`
	Ops uint32 `json:"ops"`
	Mem uint64 `json:"mem"`
	N   uint32 `json:"n"`
}

// AEADParams identifies the authenticated cipher used for the private key.
type AEADParams struct {
	Alg string `json:"alg"`
}

// WrappedKeypair is the server-storable record produced by Wrap. All binary
// fields are base64-encoded for transport.
type WrappedKeypair struct {
	PK    string     `json:"pk"`
	EncSK string     `json:"enc_sk"`
	Salt  string     `json:"salt"`
	Nonce string     `json:"nonce"`
	KDF   KDFParams  `json:"kdf"`
	AEAD  AEADParams `json:"aead"`
	Ver   int        `json:"ver"`
}

// Bundle is the encrypted report payload delivered by the server: a document
// key sealed to the user's public key plus the AEAD ciphertext of the report.
type Bundle struct {
	Alg   string `json:"alg,omitempty"`
	EK    string `json:"ek"`
	CT    string `json:"ct"`
	Nonce string `json:"nonce"`
	AAD   string `json:"aad,omitempty"`
	Ver   string `json:"ver,omitempty"`
}

// PublicKey decodes the record's public key. This is the encryption
// recipient for anyone sealing a payload to the keypair's owner.
func (w *WrappedKeypair) PublicKey() ([32]byte, error) {
	var pk [32]byte
	raw, err := decodeField("pk", w.PK, KeySize)
	if err != nil {
		return pk, err
	}
	copy(pk[:], raw)
	return pk, nil
}

// keypairRecord is the validated binary form of a WrappedKeypair. It only
// exists past the decode boundary; nothing downstream re-checks shapes.
type keypairRecord struct {
	encSK []byte
	salt  []byte
	nonce []byte
	kdf   Argon2idParams
}

func (w *WrappedKeypair) decode() (*keypairRecord, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: missing record", ErrCorruptRecord)
	}
	if w.Ver != recordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptRecord, w.Ver)
	}
	if w.KDF.Alg != util.Argon2idAlg {
		return nil, fmt.Errorf("%w: unknown kdf %q", ErrCorruptRecord, w.KDF.Alg)
	}
	if w.AEAD.Alg != util.XChaChaAlg {
		return nil, fmt.Errorf("%w: unknown aead %q", ErrCorruptRecord, w.AEAD.Alg)
	}

	encSK, err := decodeField("enc_sk", w.EncSK, EncryptedKeySize)
	if err != nil {
		return nil, err
	}
	salt, err := decodeField("salt", w.Salt, SaltSize)
	if err != nil {
		return nil, err
	}
	nonce, err := decodeField("nonce", w.Nonce, NonceSize)
	if err != nil {
		return nil, err
	}

	kdf := Argon2idParams{Ops: w.KDF.Ops, Memory: w.KDF.Mem, KeyLen: w.KDF.N}
	if err := util.ValidateArgon2idParams(kdf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	return &keypairRecord{encSK: encSK, salt: salt, nonce: nonce, kdf: kdf}, nil
}

// bundleRecord is the validated binary form of a Bundle.
type bundleRecord struct {
	ek    []byte
	ct    []byte
	nonce []byte
	aad   []byte
}

func (b *Bundle) decode() (*bundleRecord, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: missing bundle", ErrCorruptRecord)
	}
	ek, err := decodeField("ek", b.EK, SealedKeySize)
	if err != nil {
		return nil, err
	}
	nonce, err := decodeField("nonce", b.Nonce, NonceSize)
	if err != nil {
		return nil, err
	}
	ct, err := util.B64Decode(b.CT)
	if err != nil {
		return nil, fmt.Errorf("%w: ct is not valid base64", ErrCorruptRecord)
	}
	if len(ct) < TagSize {
		return nil, fmt.Errorf("%w: ct shorter than AEAD tag", ErrCorruptRecord)
	}
	var aad []byte
	if b.AAD != "" {
		aad, err = util.B64Decode(b.AAD)
		if err != nil {
			return nil, fmt.Errorf("%w: aad is not valid base64", ErrCorruptRecord)
		}
	}
	return &bundleRecord{ek: ek, ct: ct, nonce: nonce, aad: aad}, nil
}

func decodeField(name, value string, wantLen int) ([]byte, error) {
	raw, err := util.B64Decode(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64", ErrCorruptRecord, name)
	}
	if len(raw) != wantLen {
		return nil, fmt.Errorf("%w: %s length %d, want %d", ErrCorruptRecord, name, len(raw), wantLen)
	}
	return raw, nil
}
