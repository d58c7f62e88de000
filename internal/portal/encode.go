package portal

import (
	"encoding/base64"
	"fmt"
)

// The portal's web client obscures coordinates before submission with a
// two-stage reversible transform: Base64, then a 13-position alphabetic
// substitution over the Base64 text. This is obfuscation, not encryption;
// the posting endpoint reverses it server-side, so the transform must be
// exactly invertible.

// EncodeCoordinate obfuscates a decimal coordinate string for the form payload.
func EncodeCoordinate(value string) string {
	return rot13(base64.StdEncoding.EncodeToString([]byte(value)))
}

// DecodeCoordinate reverses EncodeCoordinate.
func DecodeCoordinate(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(rot13(encoded))
	if err != nil {
		return "", fmt.Errorf("decode coordinate: %w", err)
	}
	return string(raw), nil
}

// rot13 applies the 13-position substitution to ASCII letters, leaving every
// other byte (digits, '+', '/', '=') untouched. It is its own inverse.
func rot13(s string) string {
	out := []byte(s)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z':
			out[i] = 'a' + (c-'a'+13)%26
		case c >= 'A' && c <= 'Z':
			out[i] = 'A' + (c-'A'+13)%26
		}
	}
	return string(out)
}
