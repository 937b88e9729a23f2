package process

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// EncodeUTF16 converts s into little-endian UTF-16 without a terminator.
func EncodeUTF16(s string) ([]byte, error) {
	out, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode utf-16: %w", err)
	}
	return out, nil
}

// EncodeUTF16Z converts s into little-endian UTF-16 followed by a NUL code unit.
func EncodeUTF16Z(s string) ([]byte, error) {
	out, err := EncodeUTF16(s)
	if err != nil {
		return nil, err
	}
	return append(out, 0, 0), nil
}

// DecodeUTF16 converts little-endian UTF-16 bytes into a string, stopping at
// the first NUL code unit.
func DecodeUTF16(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("decode utf-16: odd length %d", len(b))
	}
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			b = b[:i]
			break
		}
	}
	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode utf-16: %w", err)
	}
	return string(out), nil
}
