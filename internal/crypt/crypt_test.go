package crypt

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"
)

func TestKeyDerivation(t *testing.T) {
	// key = sum((pass[i] + i) XOR 42) mod 256, computed by hand for "ab".
	var want byte
	want += ('a' + 0) ^ 42
	want += ('b' + 1) ^ 42
	require.Equal(t, want, Key("ab"))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	f := func(text string, pass string) bool {
		key := Key(pass)
		return Decrypt(Encrypt(text, key), key) == text
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestEncryptEscapesControlAndPrefixBytes(t *testing.T) {
	key := byte(0)
	encoded := Encrypt("\x01#\x1f", key)
	// Every byte in the input needs escaping when the key is 0: control
	// chars are < 0x20, and '#' equals the escape prefix.
	require.Equal(t, "#$#F#B", encoded)
	require.Equal(t, "\x01#\x1f", Decrypt(encoded, key))
}

func TestDecryptTruncatedEscape(t *testing.T) {
	// A trailing lone prefix byte with nothing after it is dropped rather
	// than panicking.
	require.Equal(t, "", Decrypt("#", 0))
}
