package util

import (
	"encoding/base64"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKD so visually identical passwords derive the same key
// regardless of the platform's Unicode composition.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}

// B64Encode encodes with standard padding, the transport encoding for all
// binary fields crossing the HTTP boundary.
func B64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func B64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
