package util

import (
	"bytes"
	"testing"
)

// testArgonParams keeps KDF cost low enough for the test suite.
var testArgonParams = Argon2idParams{Ops: 1, Memory: 8 * 1024 * 1024, KeyLen: 32}

func TestArgon2id(t *testing.T) {
	passphrase := "correct horse battery staple"
	salt := []byte("0123456789abcdef")

	key, err := DeriveArgon2idKey(passphrase, salt, testArgonParams)
	if err != nil {
		t.Fatalf("DeriveArgon2idKey failed: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("expected 32-byte key, got %d", len(key))
	}

	again, err := DeriveArgon2idKey(passphrase, salt, testArgonParams)
	if err != nil {
		t.Fatalf("DeriveArgon2idKey failed: %v", err)
	}
	if !bytes.Equal(key, again) {
		t.Error("derivation should be deterministic with same inputs")
	}

	other, _ := DeriveArgon2idKey("wrong horse", salt, testArgonParams)
	if bytes.Equal(key, other) {
		t.Error("different passphrases must derive different keys")
	}
}

func TestValidateArgon2idParams(t *testing.T) {
	tests := []struct {
		name   string
		params Argon2idParams
		ok     bool
	}{
		{"Moderate", ModerateArgon2idParams(), true},
		{"Interactive", InteractiveArgon2idParams(), true},
		{"ZeroOps", Argon2idParams{Ops: 0, Memory: 64 << 20, KeyLen: 32}, false},
		{"TinyMemory", Argon2idParams{Ops: 2, Memory: 1024, KeyLen: 32}, false},
		{"WrongKeyLen", Argon2idParams{Ops: 2, Memory: 64 << 20, KeyLen: 16}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArgon2idParams(tt.params)
			if tt.ok && err != nil {
				t.Errorf("expected params to validate, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestXChaCha(t *testing.T) {
	key, _ := RandomBytes(XChaChaKeySize)
	nonce, _ := RandomBytes(XChaChaNonceSize)
	plainText := []byte("hello world")
	aad := []byte("context")

	t.Run("EncryptDecrypt", func(t *testing.T) {
		cipherText, err := EncryptXChaCha(plainText, key, nonce, nil)
		if err != nil {
			t.Fatalf("EncryptXChaCha failed: %v", err)
		}
		if len(cipherText) != len(plainText)+XChaChaTagSize {
			t.Errorf("expected ciphertext length %d, got %d", len(plainText)+XChaChaTagSize, len(cipherText))
		}

		decrypted, err := DecryptXChaCha(cipherText, key, nonce, nil)
		if err != nil {
			t.Fatalf("DecryptXChaCha failed: %v", err)
		}
		if !bytes.Equal(plainText, decrypted) {
			t.Errorf("expected %s, got %s", plainText, decrypted)
		}
	})

	t.Run("EncryptDecryptWithAAD", func(t *testing.T) {
		cipherText, _ := EncryptXChaCha(plainText, key, nonce, aad)
		decrypted, err := DecryptXChaCha(cipherText, key, nonce, aad)
		if err != nil {
			t.Fatalf("DecryptXChaCha failed: %v", err)
		}
		if !bytes.Equal(plainText, decrypted) {
			t.Errorf("expected %s, got %s", plainText, decrypted)
		}
	})

	t.Run("TamperAAD", func(t *testing.T) {
		cipherText, _ := EncryptXChaCha(plainText, key, nonce, aad)
		if _, err := DecryptXChaCha(cipherText, key, nonce, []byte("wrong context")); err == nil {
			t.Error("expected error with wrong AAD, got nil")
		}
	})

	t.Run("TamperCipherText", func(t *testing.T) {
		cipherText, _ := EncryptXChaCha(plainText, key, nonce, nil)
		cipherText[0] ^= 0xFF
		if _, err := DecryptXChaCha(cipherText, key, nonce, nil); err == nil {
			t.Error("expected error with tampered ciphertext, got nil")
		}
	})

	t.Run("TamperNonce", func(t *testing.T) {
		cipherText, _ := EncryptXChaCha(plainText, key, nonce, nil)
		badNonce := CopyBytes(nonce)
		badNonce[0] ^= 0xFF
		if _, err := DecryptXChaCha(cipherText, key, badNonce, nil); err == nil {
			t.Error("expected error with tampered nonce, got nil")
		}
	})

	t.Run("RejectBadKeySize", func(t *testing.T) {
		if _, err := EncryptXChaCha(plainText, []byte("too short"), nonce, nil); err == nil {
			t.Error("expected error with wrong key size, got nil")
		}
	})

	t.Run("RejectBadNonceSize", func(t *testing.T) {
		if _, err := EncryptXChaCha(plainText, key, nonce[:12], nil); err == nil {
			t.Error("expected error with wrong nonce size, got nil")
		}
	})
}

func TestSealedBox(t *testing.T) {
	kp, err := GenerateX25519Keypair()
	if err != nil {
		t.Fatalf("GenerateX25519Keypair failed: %v", err)
	}
	message := []byte("a 32-byte document key goes here")

	sealed, err := SealBox(message, kp.Public)
	if err != nil {
		t.Fatalf("SealBox failed: %v", err)
	}
	if len(sealed) != len(message)+SealedBoxOverhead {
		t.Errorf("expected sealed length %d, got %d", len(message)+SealedBoxOverhead, len(sealed))
	}

	opened, err := OpenBox(sealed, kp.Public, kp.Private)
	if err != nil {
		t.Fatalf("OpenBox failed: %v", err)
	}
	if !bytes.Equal(message, opened) {
		t.Errorf("expected %v, got %v", message, opened)
	}

	t.Run("WrongRecipient", func(t *testing.T) {
		other, _ := GenerateX25519Keypair()
		if _, err := OpenBox(sealed, other.Public, other.Private); err == nil {
			t.Error("expected error opening with wrong key pair, got nil")
		}
	})

	t.Run("Tampered", func(t *testing.T) {
		bad := CopyBytes(sealed)
		bad[len(bad)-1] ^= 0x01
		if _, err := OpenBox(bad, kp.Public, kp.Private); err == nil {
			t.Error("expected error opening tampered box, got nil")
		}
	})
}

func TestPublicFromPrivate(t *testing.T) {
	kp, err := GenerateX25519Keypair()
	if err != nil {
		t.Fatalf("GenerateX25519Keypair failed: %v", err)
	}
	if PublicFromPrivate(kp.Private) != kp.Public {
		t.Error("recomputed public key should match generated public key")
	}
}

func TestNormalize(t *testing.T) {
	// U+212B (angstrom sign) and U+00C5 both NFKD-decompose to A + U+030A.
	if Normalize("Å") != Normalize("Å") {
		t.Error("NFKD should unify canonically equivalent passwords")
	}
}

func TestB64RoundTrip(t *testing.T) {
	b, _ := RandomBytes(48)
	decoded, err := B64Decode(B64Encode(b))
	if err != nil {
		t.Fatalf("B64Decode failed: %v", err)
	}
	if !bytes.Equal(b, decoded) {
		t.Error("base64 round trip mismatch")
	}
}
