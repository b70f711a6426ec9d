package crypto

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	apperrors "github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, KeySize)
}

func TestSealOpenRoundTrip(t *testing.T) {
	codec, err := NewCodec(testKey())
	require.NoError(t, err)

	for _, secret := range []string{"", "A1", "ya29.a0AfH6-long-access-token", "много байт"} {
		envelope, err := codec.Seal(secret)
		require.NoError(t, err)

		got, err := codec.Open(envelope)
		require.NoError(t, err)
		require.Equal(t, secret, got)
	}
}

func TestEnvelopeFormat(t *testing.T) {
	codec, err := NewCodec(testKey())
	require.NoError(t, err)

	envelope, err := codec.Seal("secret")
	require.NoError(t, err)

	parts := strings.Split(envelope, ":")
	require.Len(t, parts, 3)

	nonce, err := hex.DecodeString(parts[0])
	require.NoError(t, err)
	require.Len(t, nonce, 12)

	tag, err := hex.DecodeString(parts[1])
	require.NoError(t, err)
	require.Len(t, tag, 16)

	_, err = hex.DecodeString(parts[2])
	require.NoError(t, err)
}

func TestSealUsesFreshNonce(t *testing.T) {
	codec, err := NewCodec(testKey())
	require.NoError(t, err)

	a, err := codec.Seal("same plaintext")
	require.NoError(t, err)
	b, err := codec.Seal("same plaintext")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestOpenDetectsTampering(t *testing.T) {
	codec, err := NewCodec(testKey())
	require.NoError(t, err)

	envelope, err := codec.Seal("R1-refresh-secret")
	require.NoError(t, err)

	// Flip one nibble at every hex position; every mutation must fail with
	// a decryption error, never succeed and never return garbage.
	for i := 0; i < len(envelope); i++ {
		if envelope[i] == ':' {
			continue
		}
		mutated := []byte(envelope)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}

		_, err := codec.Open(string(mutated))
		require.Error(t, err, "position %d", i)
		require.Equal(t, apperrors.KindDecryptionError, apperrors.KindOf(err), "position %d", i)
	}
}

func TestOpenMalformedEnvelope(t *testing.T) {
	codec, err := NewCodec(testKey())
	require.NoError(t, err)

	for _, envelope := range []string{"", "abc", "a:b", "a:b:c:d", "zz:zz:zz", "0011:00:zz"} {
		_, err := codec.Open(envelope)
		require.Error(t, err, "envelope %q", envelope)
		require.Equal(t, apperrors.KindDecryptionError, apperrors.KindOf(err))
	}
}

func TestOpenWithDifferentKey(t *testing.T) {
	codec, err := NewCodec(testKey())
	require.NoError(t, err)
	other, err := NewCodec(bytes.Repeat([]byte{0x24}, KeySize))
	require.NoError(t, err)

	envelope, err := codec.Seal("secret")
	require.NoError(t, err)

	_, err = other.Open(envelope)
	require.Error(t, err)
	require.Equal(t, apperrors.KindDecryptionError, apperrors.KindOf(err))
}

func TestNewCodecRejectsBadKeys(t *testing.T) {
	_, err := NewCodec(nil)
	require.Error(t, err)
	require.Equal(t, apperrors.KindConfigurationError, apperrors.KindOf(err))

	_, err = NewCodec([]byte("short"))
	require.Error(t, err)
	require.Equal(t, apperrors.KindConfigurationError, apperrors.KindOf(err))

	_, err = NewCodec(bytes.Repeat([]byte{1}, 64))
	require.Error(t, err)
	require.Equal(t, apperrors.KindConfigurationError, apperrors.KindOf(err))
}
