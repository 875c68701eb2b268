package backup

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/awnumar/memguard"
	cryptopkg "github.com/raulshma/uniarr-sub005/internal/crypto"
)

const payloadKeyInfo = "uniarr.backup.v1:payload"

var backupAAD = []byte("uniarr.backup.v1")

// Argon2 parameter bounds for untrusted documents. These prevent DoS via
// extreme memory/iteration values in crafted backups.
const (
	maxDocumentArgon2Memory     = 1 << 20 // 1 GiB in KiB units
	maxDocumentArgon2Iterations = 20
)

// sealSensitive encodes the sensitive categories as one JSON object and
// encrypts it under a key derived from the password and a fresh salt. The
// AEAD tag is what makes wrong-password restores fail loudly instead of
// yielding corrupted plaintext.
func sealSensitive(sensitive map[string]json.RawMessage, password []byte) (string, *EncryptionInfo, error) {
	plaintext, err := json.Marshal(sensitive)
	if err != nil {
		return "", nil, fmt.Errorf("seal sensitive payload: encode: %w", err)
	}
	defer memguard.WipeBytes(plaintext)

	params := cryptopkg.DefaultArgon2Params()
	salt, err := cryptopkg.RandomBytes(params.SaltLen)
	if err != nil {
		return "", nil, fmt.Errorf("seal sensitive payload: generate salt: %w", err)
	}

	key, err := derivePayloadKey(password, salt, params)
	if err != nil {
		return "", nil, fmt.Errorf("seal sensitive payload: %w", err)
	}
	defer memguard.WipeBytes(key)

	nonce, err := cryptopkg.RandomBytes(cryptopkg.NonceSize)
	if err != nil {
		return "", nil, fmt.Errorf("seal sensitive payload: generate nonce: %w", err)
	}

	ciphertext, err := cryptopkg.Seal(key, nonce, plaintext, backupAAD)
	if err != nil {
		return "", nil, fmt.Errorf("seal sensitive payload: %w", err)
	}

	info := &EncryptionInfo{
		AlgorithmID: AlgorithmID,
		Salt:        append([]byte(nil), salt...),
		IV:          append([]byte(nil), nonce...),
		KDFParams: KDFParams{
			Memory:      params.Memory,
			Iterations:  params.Iterations,
			Parallelism: params.Parallelism,
			SaltLen:     params.SaltLen,
			KeyLen:      params.KeyLen,
		},
	}
	return base64.StdEncoding.EncodeToString(ciphertext), info, nil
}

// openSensitive reverses sealSensitive. Authentication failure (wrong
// password or tampering) surfaces as ErrDecryption before any plaintext is
// handed back.
func openSensitive(payload string, info *EncryptionInfo, password []byte) (map[string]json.RawMessage, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: encrypted document missing encryption info", ErrParse)
	}
	if info.AlgorithmID != "" && info.AlgorithmID != AlgorithmID {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrParse, info.AlgorithmID)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decode encrypted payload: %v", ErrParse, err)
	}

	params, err := clampKDFParams(info.KDFParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	key, err := derivePayloadKey(password, info.Salt, params)
	if err != nil {
		return nil, fmt.Errorf("%w: derive key: %v", ErrDecryption, err)
	}
	defer memguard.WipeBytes(key)

	plaintext, err := cryptopkg.Open(key, info.IV, ciphertext, backupAAD)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	defer memguard.WipeBytes(plaintext)

	sensitive := map[string]json.RawMessage{}
	if err := json.Unmarshal(plaintext, &sensitive); err != nil {
		return nil, fmt.Errorf("%w: decode sensitive payload: %v", ErrParse, err)
	}
	return sensitive, nil
}

// derivePayloadKey stretches the password with argon2id, then binds the
// result to the backup payload purpose via HKDF.
func derivePayloadKey(password, salt []byte, params cryptopkg.Argon2Params) ([]byte, error) {
	master, err := cryptopkg.DeriveKey(password, salt, params)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(master)

	return cryptopkg.ExpandKey(master, nil, []byte(payloadKeyInfo), int(params.KeyLen))
}

// clampKDFParams validates and caps Argon2 parameters read from an
// untrusted document.
func clampKDFParams(kp KDFParams) (cryptopkg.Argon2Params, error) {
	if kp.Memory == 0 {
		return cryptopkg.DefaultArgon2Params(), nil
	}

	memory := kp.Memory
	if memory < cryptopkg.MinArgon2MemoryKiB {
		memory = cryptopkg.MinArgon2MemoryKiB
	}
	if memory > maxDocumentArgon2Memory {
		return cryptopkg.Argon2Params{}, fmt.Errorf("argon2 memory %d KiB exceeds safe maximum %d KiB", kp.Memory, maxDocumentArgon2Memory)
	}

	iterations := kp.Iterations
	if iterations < 1 {
		iterations = 1
	}
	if iterations > maxDocumentArgon2Iterations {
		return cryptopkg.Argon2Params{}, fmt.Errorf("argon2 iterations %d exceeds safe maximum %d", kp.Iterations, maxDocumentArgon2Iterations)
	}

	parallelism := kp.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	if parallelism > 16 {
		parallelism = 16
	}

	saltLen := kp.SaltLen
	if saltLen < 16 {
		saltLen = 16
	}

	keyLen := kp.KeyLen
	if keyLen != 32 {
		keyLen = 32
	}

	return cryptopkg.Argon2Params{
		Memory:      memory,
		Iterations:  iterations,
		Parallelism: parallelism,
		SaltLen:     saltLen,
		KeyLen:      keyLen,
	}, nil
}
