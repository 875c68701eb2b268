package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func testParams() Argon2Params {
	return Argon2Params{
		Memory:      MinArgon2MemoryKiB,
		Iterations:  1,
		Parallelism: 1,
		SaltLen:     16,
		KeyLen:      32,
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	t.Parallel()

	salt := bytes.Repeat([]byte{0x42}, 16)
	first, err := DeriveKey([]byte("correct horse"), salt, testParams())
	require.NoError(t, err)
	second, err := DeriveKey([]byte("correct horse"), salt, testParams())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, first, 32)
}

func TestDeriveKeyDiffersBySaltAndPassword(t *testing.T) {
	t.Parallel()

	saltA := bytes.Repeat([]byte{0x01}, 16)
	saltB := bytes.Repeat([]byte{0x02}, 16)

	base, err := DeriveKey([]byte("pw"), saltA, testParams())
	require.NoError(t, err)

	otherSalt, err := DeriveKey([]byte("pw"), saltB, testParams())
	require.NoError(t, err)
	require.NotEqual(t, base, otherSalt)

	otherPassword, err := DeriveKey([]byte("pw2"), saltA, testParams())
	require.NoError(t, err)
	require.NotEqual(t, base, otherPassword)
}

func TestDeriveKeyRejectsBadInput(t *testing.T) {
	t.Parallel()

	salt := bytes.Repeat([]byte{0x42}, 16)
	_, err := DeriveKey(nil, salt, testParams())
	require.ErrorIs(t, err, ErrInvalidArgon2Params)

	_, err = DeriveKey([]byte("pw"), salt[:4], testParams())
	require.ErrorIs(t, err, ErrInvalidArgon2Params)

	bad := testParams()
	bad.Iterations = 0
	_, err = DeriveKey([]byte("pw"), salt, bad)
	require.ErrorIs(t, err, ErrInvalidArgon2Params)
}

func TestExpandKeyDomainSeparation(t *testing.T) {
	t.Parallel()

	ikm := bytes.Repeat([]byte{0x11}, 32)
	payload, err := ExpandKey(ikm, nil, []byte("uniarr.backup.v1:payload"), 32)
	require.NoError(t, err)
	require.Len(t, payload, 32)

	other, err := ExpandKey(ikm, nil, []byte("uniarr.backup.v1:other"), 32)
	require.NoError(t, err)
	require.NotEqual(t, payload, other)
}

func TestSealOpenRoundTrip(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte{0x24}, 32)
	nonce, err := RandomBytes(NonceSize)
	require.NoError(t, err)

	plaintext := []byte(`{"widgetSecureCredentials":{"youtube":{"apiKey":"k1"}}}`)
	aad := []byte("uniarr.backup.v1")

	ciphertext, err := Seal(key, nonce, plaintext, aad)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	opened, err := Open(key, nonce, ciphertext, aad)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestOpenWrongKeyFailsAuthentication(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte{0x24}, 32)
	nonce := bytes.Repeat([]byte{0x07}, NonceSize)
	ciphertext, err := Seal(key, nonce, []byte("payload"), nil)
	require.NoError(t, err)

	wrong := bytes.Repeat([]byte{0x25}, 32)
	_, err = Open(wrong, nonce, ciphertext, nil)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestOpenTamperedCiphertextFailsAuthentication(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte{0x24}, 32)
	nonce := bytes.Repeat([]byte{0x07}, NonceSize)
	ciphertext, err := Seal(key, nonce, []byte("payload"), nil)
	require.NoError(t, err)

	ciphertext[0] ^= 0xFF
	_, err = Open(key, nonce, ciphertext, nil)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestOpenMismatchedAADFailsAuthentication(t *testing.T) {
	t.Parallel()

	key := bytes.Repeat([]byte{0x24}, 32)
	nonce := bytes.Repeat([]byte{0x07}, NonceSize)
	ciphertext, err := Seal(key, nonce, []byte("payload"), []byte("uniarr.backup.v1"))
	require.NoError(t, err)

	_, err = Open(key, nonce, ciphertext, []byte("uniarr.backup.v2"))
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestSealRejectsBadKeyAndNonceSizes(t *testing.T) {
	t.Parallel()

	_, err := Seal(make([]byte, 16), make([]byte, NonceSize), []byte("x"), nil)
	require.ErrorIs(t, err, ErrInvalidAEADInput)

	_, err = Seal(make([]byte, 32), make([]byte, 12), []byte("x"), nil)
	require.ErrorIs(t, err, ErrInvalidAEADInput)
}
