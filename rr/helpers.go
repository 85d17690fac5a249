package rr

import (
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

func wantTokens(tokens []string, n int, what string) error {
	if len(tokens) < n {
		return fmt.Errorf("rr: %s: expected %d fields, got %d", what, n, len(tokens))
	}
	return nil
}

func parseUint8(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	return uint8(v), err
}

func parseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	return uint16(v), err
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

func encodeHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

var base32HexNoPad = base32.HexEncoding.WithPadding(base32.NoPadding)

func decodeBase32Hex(s string) ([]byte, error) {
	return base32HexNoPad.DecodeString(strings.ToUpper(s))
}

func encodeBase32Hex(b []byte) string {
	return strings.ToLower(base32HexNoPad.EncodeToString(b))
}
