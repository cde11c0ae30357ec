// Package auth verifies Firebase ID tokens against Google's published JWKS
// and resolves them to the calling user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"tubepost/internal/types"
)

const (
	defaultLeeway = 30 * time.Second
	issuerPrefix  = "https://securetoken.google.com/"
)

// Claims are the ID token claims tubepost uses.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates RS256 ID tokens issued for one Firebase project.
type Verifier struct {
	issuer   string
	audience string
	keyfunc  jwt.Keyfunc
	parser   *jwt.Parser
}

// NewVerifier builds a verifier for projectID that fetches signing keys from
// jwksURL. The key set is refreshed in the background until ctx is done.
func NewVerifier(ctx context.Context, projectID, jwksURL string) (*Verifier, error) {
	if projectID == "" {
		return nil, errors.New("project id must be set")
	}
	if jwksURL == "" {
		return nil, errors.New("jwks url must be set")
	}
	keys, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to init JWKS keyfunc: %w", err)
	}
	return NewVerifierWithKeyfunc(projectID, keys.Keyfunc), nil
}

// NewVerifierWithKeyfunc builds a verifier around an existing key lookup.
func NewVerifierWithKeyfunc(projectID string, kf jwt.Keyfunc) *Verifier {
	issuer := issuerPrefix + projectID
	return &Verifier{
		issuer:   issuer,
		audience: projectID,
		keyfunc:  kf,
		parser: jwt.NewParser(
			jwt.WithIssuer(issuer),
			jwt.WithAudience(projectID),
			jwt.WithLeeway(defaultLeeway),
			jwt.WithExpirationRequired(),
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		),
	}
}

// Verify parses and validates a token, returning its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, v.keyfunc)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing sub")
	}
	return claims, nil
}

// ResolveToken implements core.Authenticator.
func (v *Verifier) ResolveToken(_ context.Context, token string) (*types.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, types.NewAppError(types.ErrCodeAuthTokenMissing, "Token missing", nil)
	}
	claims, err := v.Verify(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, types.NewAppError(types.ErrCodeAuthTokenExpired, "Token expired", err)
		}
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "Invalid token", err)
	}
	return &types.Actor{ID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}
