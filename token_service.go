package gatekeeper

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenKindReset marks the short-lived credential minted by the recovery
// code step. Reset tokens never pass the bearer guard.
const TokenKindReset TokenKind = "reset"

// SessionClaims is the JWT payload for every token this package signs
type SessionClaims struct {
	jwt.RegisteredClaims
	Kind   TokenKind `json:"kind,omitempty"`
	UserID string    `json:"uid,omitempty"`
}

// UserUUID parses the uid claim
func (c *SessionClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// TokenState is the outcome of verifying a raw token. Callers branch on the
// variant explicitly instead of inspecting error text.
type TokenState int

const (
	TokenStateValid TokenState = iota
	TokenStateExpired
	TokenStateMalformed
)

// TokenCheck carries the verification variant; Claims is set only for
// TokenStateValid.
type TokenCheck struct {
	State  TokenState
	Claims *SessionClaims
}

// Valid reports whether verification succeeded
func (c TokenCheck) Valid() bool {
	return c.State == TokenStateValid
}

// TokenPair is the result of a single issuance: both strings plus the expiry
// instants used to populate the persisted rows.
type TokenPair struct {
	Access           string
	Refresh          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenService mints and verifies the signed credentials of this package
type TokenService struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	logger     Logger
}

// NewTokenService creates a TokenService from Config
func NewTokenService(cfg Config) *TokenService {
	return &TokenService{
		signingKey: []byte(cfg.GetSigningKey()),
		issuer:     cfg.GetIssuer(),
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		resetTTL:   cfg.GetResetTokenTTL(),
		logger:     defLogger{},
	}
}

func (ts *TokenService) WithLogger(logger Logger) *TokenService {
	if logger != nil {
		ts.logger = logger
	}
	return ts
}

// IssuePair signs an access/refresh pair for the given principal. The caller
// persists both rows in one transaction; a pair is never half-issued.
func (ts *TokenService) IssuePair(userID uuid.UUID) (*TokenPair, error) {
	now := time.Now()

	access, accessExp, err := ts.sign(TokenKindAccess, userID, now, ts.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := ts.sign(TokenKindRefresh, userID, now, ts.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccess signs a single access token with a fresh expiry, used by the
// refresh rotation.
func (ts *TokenService) IssueAccess(userID uuid.UUID) (string, time.Time, error) {
	return ts.sign(TokenKindAccess, userID, time.Now(), ts.accessTTL)
}

// IssueResetToken mints the short-lived credential handed back by the
// recovery code step.
func (ts *TokenService) IssueResetToken(userID uuid.UUID) (string, time.Time, error) {
	return ts.sign(TokenKindReset, userID, time.Now(), ts.resetTTL)
}

func (ts *TokenService) sign(kind TokenKind, userID uuid.UUID, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Kind:   kind,
		UserID: userID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, expiresAt, nil
}

// Verify parses the raw string and returns the variant. Signature failures,
// bad algorithms, and garbage all collapse into TokenStateMalformed; expiry
// is reported separately so callers can distinguish the two rejections.
func (ts *TokenService) Verify(raw string) TokenCheck {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token verify encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenCheck{State: TokenStateExpired}
		}
		return TokenCheck{State: TokenStateMalformed}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token verify could not decode claims")
		return TokenCheck{State: TokenStateMalformed}
	}

	return TokenCheck{State: TokenStateValid, Claims: claims}
}
