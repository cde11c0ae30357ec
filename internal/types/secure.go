package types

import (
	"crypto/subtle"
	"log/slog"
)

const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString is a string that never prints its value. It covers OAuth
// tokens, client secrets and shared webhook secrets.
//
// String, MarshalJSON and LogValue all return a redacted placeholder, so a
// secret that ends up in fmt output, a JSON body, or an slog attribute does
// not leak. Use Unmask to obtain the raw value.
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// LogValue implements slog.LogValuer.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redactedPlaceholder)
}

// Unmask returns the raw plaintext value of the secret.
func (s SecretString) Unmask() string {
	return string(s)
}

// IsEmpty reports whether no secret was configured.
func (s SecretString) IsEmpty() bool {
	return s == ""
}

// Equal compares the secret against a candidate in constant time.
// An empty secret never matches.
func (s SecretString) Equal(candidate string) bool {
	if s == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s), []byte(candidate)) == 1
}
