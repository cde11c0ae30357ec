// Package security seals YouTube credential bundles before they reach the
// database. A sealed bundle is a 24 byte random nonce followed by a
// secretbox (XSalsa20-Poly1305) ciphertext of the bundle's JSON encoding.
package security

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"tubepost/internal/types"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrSealedTooShort is returned when a sealed value cannot hold a nonce.
var ErrSealedTooShort = errors.New("security: sealed credential too short")

// ErrOpenFailed is returned when authentication of a sealed value fails,
// typically because the key changed.
var ErrOpenFailed = errors.New("security: credential authentication failed")

// credentialWire is the plaintext layout. types.Credential redacts its
// secrets when marshalled, so sealing goes through this struct.
type credentialWire struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"`
	TokenURL     string    `json:"token_uri"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Scopes       []string  `json:"scopes"`
}

// Sealer encrypts and authenticates credential bundles with one key.
type Sealer struct {
	key  [32]byte
	rand io.Reader
}

// NewSealer creates a Sealer for the given 32 byte key.
func NewSealer(key [32]byte) *Sealer {
	return &Sealer{key: key, rand: rand.Reader}
}

// Seal encrypts a credential bundle.
func (s *Sealer) Seal(c *types.Credential) ([]byte, error) {
	plain, err := json.Marshal(credentialWire{
		AccessToken:  c.AccessToken.Unmask(),
		RefreshToken: c.RefreshToken.Unmask(),
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
		TokenURL:     c.TokenURL,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret.Unmask(),
		Scopes:       c.Scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("security: encode credential: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return nil, fmt.Errorf("security: read nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &s.key), nil
}

// Open authenticates and decrypts a sealed bundle. Failures come back as
// internal_credential_corrupt.
func (s *Sealer) Open(sealed []byte) (*types.Credential, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, corrupt(ErrSealedTooShort)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, corrupt(ErrOpenFailed)
	}

	var w credentialWire
	if err := json.Unmarshal(plain, &w); err != nil {
		return nil, corrupt(err)
	}
	return &types.Credential{
		AccessToken:  types.SecretString(w.AccessToken),
		RefreshToken: types.SecretString(w.RefreshToken),
		TokenType:    w.TokenType,
		Expiry:       w.Expiry,
		TokenURL:     w.TokenURL,
		ClientID:     w.ClientID,
		ClientSecret: types.SecretString(w.ClientSecret),
		Scopes:       w.Scopes,
	}, nil
}

func corrupt(err error) error {
	return types.NewAppError(types.ErrCodeInternalCredentialCorrupt, "stored YouTube credential could not be read", err)
}
