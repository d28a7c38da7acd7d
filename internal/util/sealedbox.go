package util

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// SealedBoxOverhead is the size added by an anonymous sealed box:
// a 32-byte ephemeral public key plus a 16-byte Poly1305 tag.
const SealedBoxOverhead = box.AnonymousOverhead

// SealBox encrypts message to a recipient's X25519 public key using the
// libsodium crypto_box_seal construction. The sender stays anonymous; only
// the holder of the matching private key can open the result.
func SealBox(message []byte, recipientPub [32]byte) ([]byte, error) {
	sealed, err := box.SealAnonymous(nil, message, &recipientPub, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sealing box: %w", err)
	}
	return sealed, nil
}

// OpenBox opens an anonymous sealed box with the recipient's key pair.
func OpenBox(sealed []byte, recipientPub, recipientPriv [32]byte) ([]byte, error) {
	message, ok := box.OpenAnonymous(nil, sealed, &recipientPub, &recipientPriv)
	if !ok {
		return nil, fmt.Errorf("opening sealed box failed")
	}
	return message, nil
}
