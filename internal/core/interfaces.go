package core

import (
	"context"

	"tubepost/internal/types"
)

// Authenticator resolves a bearer ID token to the calling user.
//
// Implementations return an AppError with ErrCodeAuthTokenExpired for a
// well-formed but expired token, and ErrCodeAuthTokenInvalid for anything
// else that fails verification.
type Authenticator interface {
	ResolveToken(ctx context.Context, token string) (*types.Actor, error)
}
