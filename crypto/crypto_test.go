package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/quicksandd/mirror/internal/util"
)

// testKDF keeps Argon2id cheap enough for the suite. Unwrap honors whatever
// the record embeds, so reduced params exercise the same code paths.
var testKDF = WithKDFParams(Argon2idParams{Ops: 1, Memory: 8 * 1024 * 1024, KeyLen: 32})

func mustWrap(t *testing.T, password string) (*WrappedKeypair, KeyPair) {
	t.Helper()
	wrapped, kp, err := Wrap(password, testKDF)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	return wrapped, kp
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	wrapped, kp := mustWrap(t, "correct horse")

	// Field lengths are part of the wire contract.
	for _, check := range []struct {
		name string
		b64  string
		want int
	}{
		{"salt", wrapped.Salt, SaltSize},
		{"nonce", wrapped.Nonce, NonceSize},
		{"enc_sk", wrapped.EncSK, EncryptedKeySize},
		{"pk", wrapped.PK, KeySize},
	} {
		raw, err := util.B64Decode(check.b64)
		if err != nil {
			t.Fatalf("%s is not valid base64: %v", check.name, err)
		}
		if len(raw) != check.want {
			t.Errorf("%s length = %d, want %d", check.name, len(raw), check.want)
		}
	}

	got, err := Unwrap(wrapped, "correct horse")
	if err != nil {
		t.Fatalf("Unwrap failed: %v", err)
	}
	if got.Private != kp.Private {
		t.Error("unwrapped private key does not match the one Wrap returned")
	}
	if got.Public != kp.Public {
		t.Error("recomputed public key does not match the one Wrap returned")
	}
}

func TestUnwrapWrongPassword(t *testing.T) {
	wrapped, _ := mustWrap(t, "correct horse")

	_, err := Unwrap(wrapped, "wrong horse")
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
}

func TestUnwrapTamperedCiphertextLooksLikeWrongPassword(t *testing.T) {
	wrapped, _ := mustWrap(t, "correct horse")

	raw, _ := util.B64Decode(wrapped.EncSK)
	raw[0] ^= 0x01
	wrapped.EncSK = util.B64Encode(raw)

	_, err := Unwrap(wrapped, "correct horse")
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("tampered enc_sk must be indistinguishable from a wrong password, got %v", err)
	}
}

func TestUnwrapCorruptRecord(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(w *WrappedKeypair)
	}{
		{"ShortSalt", func(w *WrappedKeypair) { w.Salt = util.B64Encode(make([]byte, 8)) }},
		{"ShortNonce", func(w *WrappedKeypair) { w.Nonce = util.B64Encode(make([]byte, 12)) }},
		{"ShortEncSK", func(w *WrappedKeypair) { w.EncSK = util.B64Encode(make([]byte, 32)) }},
		{"BadBase64", func(w *WrappedKeypair) { w.EncSK = "!!not base64!!" }},
		{"UnknownKDF", func(w *WrappedKeypair) { w.KDF.Alg = "scrypt" }},
		{"UnknownAEAD", func(w *WrappedKeypair) { w.AEAD.Alg = "aes256gcm" }},
		{"BadKDFParams", func(w *WrappedKeypair) { w.KDF.Ops = 0 }},
		{"UnsupportedVersion", func(w *WrappedKeypair) { w.Ver = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped, _ := mustWrap(t, "pw")
			tt.mutate(wrapped)
			_, err := Unwrap(wrapped, "pw")
			if !errors.Is(err, ErrCorruptRecord) {
				t.Errorf("expected ErrCorruptRecord, got %v", err)
			}
			if errors.Is(err, ErrAuthFailed) {
				t.Error("corrupt records must never be reported as a password problem")
			}
		})
	}
}

func TestUnwrapHonorsEmbeddedKDFParams(t *testing.T) {
	params := Argon2idParams{Ops: 2, Memory: 16 * 1024 * 1024, KeyLen: 32}
	wrapped, kp, err := Wrap("pw", WithKDFParams(params))
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	if wrapped.KDF.Ops != 2 || wrapped.KDF.Mem != 16*1024*1024 {
		t.Fatalf("wrapped record did not embed the requested KDF params: %+v", wrapped.KDF)
	}
	got, err := Unwrap(wrapped, "pw")
	if err != nil {
		t.Fatalf("Unwrap failed: %v", err)
	}
	if got.Private != kp.Private {
		t.Error("unwrap with embedded params returned the wrong key")
	}
}

func TestBundleRoundTrip(t *testing.T) {
	_, kp := mustWrap(t, "correct horse")
	plaintext := []byte(`{"person_name":"Alex"}`)

	bundle, err := SealBundle(plaintext, kp.Public, nil)
	if err != nil {
		t.Fatalf("SealBundle failed: %v", err)
	}

	ek, _ := util.B64Decode(bundle.EK)
	if len(ek) != SealedKeySize {
		t.Errorf("ek length = %d, want %d", len(ek), SealedKeySize)
	}

	got, err := OpenBundle(bundle, kp.Private)
	if err != nil {
		t.Fatalf("OpenBundle failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("expected %s, got %s", plaintext, got)
	}
}

func TestBundleRoundTripWithAAD(t *testing.T) {
	kp, err := util.GenerateX25519Keypair()
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}
	plaintext := []byte("payload")
	aad := []byte("report-id-1234")

	bundle, err := SealBundle(plaintext, kp.Public, aad)
	if err != nil {
		t.Fatalf("SealBundle failed: %v", err)
	}
	got, err := OpenBundle(bundle, kp.Private)
	if err != nil {
		t.Fatalf("OpenBundle failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("expected %s, got %s", plaintext, got)
	}

	bundle.AAD = util.B64Encode([]byte("other-report"))
	if _, err := OpenBundle(bundle, kp.Private); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("expected ErrDecryptFailed with altered AAD, got %v", err)
	}
}

func TestBundleOpaquePayload(t *testing.T) {
	kp, _ := util.GenerateX25519Keypair()
	// Not valid UTF-8, and includes zero bytes: the payload is opaque.
	plaintext := []byte{0x00, 0xff, 0xfe, 0x00, 0x80, 0x01}

	bundle, err := SealBundle(plaintext, kp.Public, nil)
	if err != nil {
		t.Fatalf("SealBundle failed: %v", err)
	}
	got, err := OpenBundle(bundle, kp.Private)
	if err != nil {
		t.Fatalf("OpenBundle failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Error("arbitrary byte sequences must round-trip exactly")
	}
}

func TestBundleTamperDetection(t *testing.T) {
	flip := func(field *string, idx int) func() {
		return func() {
			raw, _ := util.B64Decode(*field)
			i := idx
			if i < 0 {
				i = len(raw) + i
			}
			raw[i] ^= 0x01
			*field = util.B64Encode(raw)
		}
	}

	kp, _ := util.GenerateX25519Keypair()
	for _, tt := range []struct {
		name   string
		tamper func(b *Bundle) func()
	}{
		{"FlipCTFirstByte", func(b *Bundle) func() { return flip(&b.CT, 0) }},
		{"FlipCTLastByte", func(b *Bundle) func() { return flip(&b.CT, -1) }},
		{"FlipEK", func(b *Bundle) func() { return flip(&b.EK, 10) }},
		{"FlipNonce", func(b *Bundle) func() { return flip(&b.Nonce, 0) }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			bundle, err := SealBundle([]byte("sensitive report"), kp.Public, nil)
			if err != nil {
				t.Fatalf("SealBundle failed: %v", err)
			}
			tt.tamper(bundle)()
			got, err := OpenBundle(bundle, kp.Private)
			if !errors.Is(err, ErrDecryptFailed) {
				t.Errorf("expected ErrDecryptFailed, got %v (plaintext %q)", err, got)
			}
		})
	}
}

func TestOpenBundleWrongKey(t *testing.T) {
	kp, _ := util.GenerateX25519Keypair()
	other, _ := util.GenerateX25519Keypair()

	bundle, err := SealBundle([]byte("for kp only"), kp.Public, nil)
	if err != nil {
		t.Fatalf("SealBundle failed: %v", err)
	}
	if _, err := OpenBundle(bundle, other.Private); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("expected ErrDecryptFailed with mismatched key, got %v", err)
	}
}

func TestOpenBundleCorruptLengths(t *testing.T) {
	kp, _ := util.GenerateX25519Keypair()
	bundle, _ := SealBundle([]byte("x"), kp.Public, nil)

	bundle.EK = util.B64Encode(make([]byte, 40))
	_, err := OpenBundle(bundle, kp.Private)
	if !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("expected ErrCorruptRecord for short ek, got %v", err)
	}
}

func TestWrappedKeypairPublicKey(t *testing.T) {
	wrapped, kp := mustWrap(t, "correct horse")

	pk, err := wrapped.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey failed: %v", err)
	}
	if pk != kp.Public {
		t.Error("decoded public key does not match the generated one")
	}

	wrapped.PK = util.B64Encode(make([]byte, 16))
	if _, err := wrapped.PublicKey(); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("expected ErrCorruptRecord for short pk, got %v", err)
	}
}
