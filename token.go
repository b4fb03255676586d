package credentials

import "context"

// TokenStrategy issues and resolves the single-purpose tokens used for
// account activation and password reset.
type TokenStrategy interface {
	// Generate returns a new token bound to userID.
	Generate(ctx context.Context, userID string) (string, error)
	// Resolve returns the user id a token belongs to, or ErrInvalidToken.
	Resolve(ctx context.Context, token string) (string, error)
	// Invalidate makes token unusable. Strategies whose tokens expire on
	// their own may treat this as a no-op.
	Invalidate(ctx context.Context, token string) error
}

// UserTokenRevoker is implemented by strategies that can drop every
// outstanding token of a user at once.
type UserTokenRevoker interface {
	RevokeUserTokens(ctx context.Context, userID string) error
}

// ActivationReplayer is implemented by strategies whose tokens stop resolving
// once activation changed the user record. MatchesInactive reports whether
// token was issued to a user that is ACTIVE now and whose record otherwise
// matches the token.
type ActivationReplayer interface {
	MatchesInactive(ctx context.Context, token string) (bool, error)
}

func revokeUserTokens(ctx context.Context, strategy TokenStrategy, logger Logger, userID string) {
	revoker, ok := strategy.(UserTokenRevoker)
	if !ok {
		return
	}
	if err := revoker.RevokeUserTokens(ctx, userID); err != nil {
		logger.Warn("failed to revoke outstanding tokens for user %s: %v", userID, err)
	}
}
