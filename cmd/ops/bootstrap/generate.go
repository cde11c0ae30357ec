package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// tokenByteLength is the number of random bytes behind every generated
// secret. SESSION_SECRET needs at least 32 characters and CREDENTIAL_KEY
// exactly 32 bytes.
const tokenByteLength = 32

func randomBytes() ([]byte, error) {
	buf := make([]byte, tokenByteLength)
	n, err := rand.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("crypto/rand failed: %w", err)
	}
	if n != tokenByteLength {
		return nil, fmt.Errorf("expected %d random bytes, got %d", tokenByteLength, n)
	}
	return buf, nil
}

// GenerateSessionSecret returns 32 random bytes as lowercase hex, used to
// sign and encrypt the connect flow cookie.
func GenerateSessionSecret() (string, error) {
	buf, err := randomBytes()
	if err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateCredentialKey returns a standard base64 encoded 32 byte key for
// sealing stored YouTube credentials.
func GenerateCredentialKey() (string, error) {
	buf, err := randomBytes()
	if err != nil {
		return "", fmt.Errorf("generating credential key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// GenerateInternalSecrets fills the generated variables that env does not
// already carry. Existing values are never rotated: replacing CREDENTIAL_KEY
// would make every stored credential unreadable.
func GenerateInternalSecrets(env map[string]string) (generated []string, err error) {
	steps := []struct {
		key string
		gen func() (string, error)
	}{
		{"SESSION_SECRET", GenerateSessionSecret},
		{"CREDENTIAL_KEY", GenerateCredentialKey},
	}
	for _, s := range steps {
		if env[s.key] != "" {
			continue
		}
		v, err := s.gen()
		if err != nil {
			return nil, err
		}
		env[s.key] = v
		generated = append(generated, s.key)
	}
	return generated, nil
}
