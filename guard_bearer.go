package gatekeeper

import (
	"context"
	"strings"
	"time"
)

const bearerScheme = "Bearer "

// BearerTokenGuard authenticates requests by access token. The persisted
// record is consulted before the signature so that revocation beats
// expiration in the error a client sees.
type BearerTokenGuard struct {
	cfg     Config
	tokens  Tokens
	users   Users
	service *TokenService
}

func (g *BearerTokenGuard) Name() string { return "bearer" }

func (g *BearerTokenGuard) Skip(ov RouteOverrides) bool {
	return !g.cfg.GetBearerEnabled() || ov.BearerDisabled
}

func (g *BearerTokenGuard) Check(ctx context.Context, req GuardRequest) (context.Context, error) {
	raw, ok := strings.CutPrefix(req.Authorization, bearerScheme)
	if !ok || raw == "" {
		return ctx, ErrAuthorizationTokenMissing
	}

	record, err := g.tokens.GetByString(ctx, raw)
	if err != nil {
		return ctx, ErrInvalidToken
	}

	if record.Revoked {
		return ctx, ErrTokenRevoked
	}

	check := g.service.Verify(raw)
	switch check.State {
	case TokenStateExpired:
		return ctx, ErrTokenExpired
	case TokenStateMalformed:
		return ctx, ErrInvalidToken
	}

	if check.Claims.Kind != TokenKindAccess {
		return ctx, ErrInvalidTokenType
	}

	// trust the stored expiry too, in case clocks disagree with the claim
	if record.IsExpired(time.Now()) {
		return ctx, ErrTokenExpired
	}

	userID, err := check.Claims.UserUUID()
	if err != nil {
		return ctx, ErrInvalidToken
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return ctx, ErrAccountDeleted
	}

	return WithCurrentUser(ctx, user), nil
}
