package gatekeeper

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Authenticator owns the credential exchange lifecycle: password sign-in,
// access token revocation, and refresh rotation.
type Authenticator struct {
	repo    RepositoryManager
	service *TokenService
	logger  Logger
}

func NewAuthenticator(repo RepositoryManager, service *TokenService) *Authenticator {
	return &Authenticator{
		repo:    repo,
		service: service,
		logger:  defLogger{},
	}
}

func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// SignIn exchanges an identity and password for a persisted token pair.
// Unknown accounts and wrong passwords produce the same error so the
// endpoint cannot be used to enumerate users.
func (a *Authenticator) SignIn(ctx context.Context, identity, password string) (*User, *TokenPair, error) {
	user, err := a.repo.Users().GetByIdentifier(ctx, identity)
	if err != nil {
		a.logger.Debug("sign in: identity %q not found", identity)
		return nil, nil, ErrAuthenticationFailure
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		a.logger.Debug("sign in: password mismatch for user %s", user.ID)
		return nil, nil, ErrAuthenticationFailure
	}

	pair, err := a.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// IssuePairFor mints and persists a fresh token pair for an already
// authenticated user, e.g. right after registration.
func (a *Authenticator) IssuePairFor(ctx context.Context, user *User) (*TokenPair, error) {
	return a.issuePair(ctx, user)
}

func (a *Authenticator) issuePair(ctx context.Context, user *User) (*TokenPair, error) {
	pair, err := a.service.IssuePair(user.ID)
	if err != nil {
		return nil, err
	}

	access := &AuthToken{
		Kind:      TokenKindAccess,
		Token:     pair.Access,
		UserID:    user.ID,
		ExpiresAt: pair.AccessExpiresAt,
	}
	refresh := &AuthToken{
		Kind:      TokenKindRefresh,
		Token:     pair.Refresh,
		UserID:    user.ID,
		ExpiresAt: pair.RefreshExpiresAt,
	}

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return a.repo.Tokens().CreatePairTx(ctx, tx, access, refresh)
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// SignOut revokes the presented access token. The paired refresh token is
// left alone, so an active session can still rotate itself back in.
func (a *Authenticator) SignOut(ctx context.Context, rawAccess string) error {
	record, err := a.repo.Tokens().GetByKindAndString(ctx, TokenKindAccess, rawAccess)
	if err != nil {
		return ErrInvalidToken
	}

	return a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return a.repo.Tokens().RevokeTx(ctx, tx, record.ID)
	})
}

// Refresh rotates an access token: the caller presents the expired access
// token plus its refresh token, the old access token is revoked, and a new
// one is persisted. The refresh token itself is never rotated here.
func (a *Authenticator) Refresh(ctx context.Context, rawAccess, rawRefresh string) (string, error) {
	access, err := a.repo.Tokens().GetByKindAndString(ctx, TokenKindAccess, rawAccess)
	if err != nil {
		return "", ErrInvalidToken
	}

	if access.Revoked {
		return "", ErrTokenRevoked
	}

	refresh, err := a.repo.Tokens().GetByKindAndString(ctx, TokenKindRefresh, rawRefresh)
	if err != nil {
		return "", ErrInvalidToken
	}

	if refresh.Revoked {
		return "", ErrTokenRevoked
	}

	if refresh.IsExpired(time.Now()) {
		return "", ErrTokenExpired
	}

	if access.UserID != refresh.UserID {
		return "", ErrInvalidToken
	}

	raw, expiresAt, err := a.service.IssueAccess(access.UserID)
	if err != nil {
		return "", err
	}

	next := &AuthToken{
		Kind:      TokenKindAccess,
		Token:     raw,
		UserID:    access.UserID,
		ExpiresAt: expiresAt,
	}

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := a.repo.Tokens().RevokeTx(ctx, tx, access.ID); err != nil {
			return err
		}
		_, err := a.repo.Tokens().CreateTx(ctx, tx, next)
		return err
	})
	if err != nil {
		return "", err
	}

	return raw, nil
}
