package gatekeeper_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/goliatone/go-gatekeeper"
)

type chainFixture struct {
	cfg       *testConfig
	chain     *gatekeeper.GuardChain
	keys      *gatekeeper.APIKeyCache
	blacklist *gatekeeper.BlacklistCache
	tokens    *MockTokens
	users     *MockUsers
	service   *gatekeeper.TokenService
}

func newChainFixture() *chainFixture {
	cfg := newTestConfig()
	keys := gatekeeper.NewAPIKeyCache(&MockAPIKeys{})
	blacklist := gatekeeper.NewBlacklistCache(&MockBlacklist{})
	tokens := &MockTokens{}
	users := &MockUsers{}
	service := gatekeeper.NewTokenService(cfg)

	return &chainFixture{
		cfg:       cfg,
		chain:     gatekeeper.NewGuardChain(cfg, keys, blacklist, tokens, users, service),
		keys:      keys,
		blacklist: blacklist,
		tokens:    tokens,
		users:     users,
		service:   service,
	}
}

func (f *chainFixture) knownKey(value string) {
	f.keys.Put(&gatekeeper.APIKey{ID: uuid.New(), Key: value, Label: "test"})
}

// signedInUser wires the token and user lookups that let a bearer request
// through, returning the raw access token.
func (f *chainFixture) signedInUser(t *testing.T) (*gatekeeper.User, string) {
	t.Helper()

	user := &gatekeeper.User{ID: uuid.New(), Email: "pepe.rone@example.com"}
	pair, err := f.service.IssuePair(user.ID)
	assert.NoError(t, err)

	f.tokens.On("GetByString", mock.Anything, pair.Access).Return(&gatekeeper.AuthToken{
		ID:        uuid.New(),
		Kind:      gatekeeper.TokenKindAccess,
		Token:     pair.Access,
		UserID:    user.ID,
		ExpiresAt: pair.AccessExpiresAt,
	}, nil)
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	return user, pair.Access
}

func validRequest(apiKey, access string) gatekeeper.GuardRequest {
	return gatekeeper.GuardRequest{
		APIKey:        apiKey,
		ClientIP:      "203.0.113.7",
		DeviceID:      "device-1",
		Authorization: "Bearer " + access,
	}
}

func TestAdmit(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")
	user, access := f.signedInUser(t)

	ctx, err := f.chain.Admit(context.Background(), validRequest("valid-api-key", access), gatekeeper.RouteOverrides{})
	assert.NoError(t, err)

	got, ok := gatekeeper.CurrentUser(ctx)
	assert.True(t, ok)
	assert.Equal(t, user.ID, got.ID)
}

func TestAdmitMissingAPIKey(t *testing.T) {
	f := newChainFixture()

	req := validRequest("", "whatever")
	_, err := f.chain.Admit(context.Background(), req, gatekeeper.RouteOverrides{})
	assert.ErrorIs(t, err, gatekeeper.ErrAPIKeyRequired)

	// chain must stop before the bearer guard touches storage
	f.tokens.AssertNotCalled(t, "GetByString", mock.Anything, mock.Anything)
}

func TestAdmitUnknownAPIKey(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")

	_, err := f.chain.Admit(context.Background(), validRequest("other-key", "tok"), gatekeeper.RouteOverrides{})
	assert.ErrorIs(t, err, gatekeeper.ErrInvalidAPIKey)
}

func TestAdmitBlacklistedIP(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")
	f.blacklist.Put(&gatekeeper.BlacklistEntry{
		ID:    uuid.New(),
		Kind:  gatekeeper.BlacklistIP,
		Value: "203.0.113.7",
	})

	_, err := f.chain.Admit(context.Background(), validRequest("valid-api-key", "tok"), gatekeeper.RouteOverrides{})
	assert.ErrorIs(t, err, gatekeeper.ErrBlacklistedIP)
	f.tokens.AssertNotCalled(t, "GetByString", mock.Anything, mock.Anything)
}

func TestAdmitBlacklistedDevice(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")
	f.blacklist.Put(&gatekeeper.BlacklistEntry{
		ID:    uuid.New(),
		Kind:  gatekeeper.BlacklistDeviceID,
		Value: "device-1",
	})

	_, err := f.chain.Admit(context.Background(), validRequest("valid-api-key", "tok"), gatekeeper.RouteOverrides{})
	assert.ErrorIs(t, err, gatekeeper.ErrBlacklistedDevice)
}

// An IP-kind entry must never match a device value and vice versa.
func TestAdmitBlacklistKindsIndependent(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")
	_, access := f.signedInUser(t)
	f.blacklist.Put(&gatekeeper.BlacklistEntry{
		ID:    uuid.New(),
		Kind:  gatekeeper.BlacklistDeviceID,
		Value: "203.0.113.7",
	})

	_, err := f.chain.Admit(context.Background(), validRequest("valid-api-key", access), gatekeeper.RouteOverrides{})
	assert.NoError(t, err)
}

func TestAdmitNoDeviceHeader(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")
	_, access := f.signedInUser(t)

	req := validRequest("valid-api-key", access)
	req.DeviceID = ""

	_, err := f.chain.Admit(context.Background(), req, gatekeeper.RouteOverrides{})
	assert.NoError(t, err)
}

func TestAdmitMissingAuthorization(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")

	req := validRequest("valid-api-key", "")
	req.Authorization = ""

	_, err := f.chain.Admit(context.Background(), req, gatekeeper.RouteOverrides{})
	assert.ErrorIs(t, err, gatekeeper.ErrAuthorizationTokenMissing)
}

func TestAdmitNonBearerAuthorization(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")

	req := validRequest("valid-api-key", "")
	req.Authorization = "Basic dXNlcjpwYXNz"

	_, err := f.chain.Admit(context.Background(), req, gatekeeper.RouteOverrides{})
	assert.ErrorIs(t, err, gatekeeper.ErrAuthorizationTokenMissing)
}

func TestAdmitUnknownToken(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")

	f.tokens.On("GetByString", mock.Anything, "unknown").Return(nil, assert.AnError)

	_, err := f.chain.Admit(context.Background(), validRequest("valid-api-key", "unknown"), gatekeeper.RouteOverrides{})
	assert.ErrorIs(t, err, gatekeeper.ErrInvalidToken)
}

// Revocation is checked on the stored row before the signature, so a
// revoked token reports TokenRevoked even when it is also expired.
func TestAdmitRevokedToken(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")

	f.tokens.On("GetByString", mock.Anything, "revoked-raw").Return(&gatekeeper.AuthToken{
		ID:        uuid.New(),
		Kind:      gatekeeper.TokenKindAccess,
		Token:     "revoked-raw",
		Revoked:   true,
		ExpiresAt: time.Now().Add(-time.Hour),
	}, nil)

	_, err := f.chain.Admit(context.Background(), validRequest("valid-api-key", "revoked-raw"), gatekeeper.RouteOverrides{})
	assert.ErrorIs(t, err, gatekeeper.ErrTokenRevoked)
}

func TestAdmitExpiredToken(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")

	expired := newTestConfig()
	expired.accessTTL = -time.Minute
	raw, _, err := gatekeeper.NewTokenService(expired).IssueAccess(uuid.New())
	assert.NoError(t, err)

	f.tokens.On("GetByString", mock.Anything, raw).Return(&gatekeeper.AuthToken{
		ID:        uuid.New(),
		Kind:      gatekeeper.TokenKindAccess,
		Token:     raw,
		ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)

	_, err = f.chain.Admit(context.Background(), validRequest("valid-api-key", raw), gatekeeper.RouteOverrides{})
	assert.ErrorIs(t, err, gatekeeper.ErrTokenExpired)
}

func TestAdmitWrongTokenKind(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")

	userID := uuid.New()
	pair, err := f.service.IssuePair(userID)
	assert.NoError(t, err)

	f.tokens.On("GetByString", mock.Anything, pair.Refresh).Return(&gatekeeper.AuthToken{
		ID:        uuid.New(),
		Kind:      gatekeeper.TokenKindRefresh,
		Token:     pair.Refresh,
		UserID:    userID,
		ExpiresAt: pair.RefreshExpiresAt,
	}, nil)

	_, err = f.chain.Admit(context.Background(), validRequest("valid-api-key", pair.Refresh), gatekeeper.RouteOverrides{})
	assert.ErrorIs(t, err, gatekeeper.ErrInvalidTokenType)
}

func TestAdmitAccountDeleted(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")

	userID := uuid.New()
	pair, err := f.service.IssuePair(userID)
	assert.NoError(t, err)

	f.tokens.On("GetByString", mock.Anything, pair.Access).Return(&gatekeeper.AuthToken{
		ID:        uuid.New(),
		Kind:      gatekeeper.TokenKindAccess,
		Token:     pair.Access,
		UserID:    userID,
		ExpiresAt: pair.AccessExpiresAt,
	}, nil)
	f.users.On("GetByID", mock.Anything, userID).Return(nil, assert.AnError)

	_, err = f.chain.Admit(context.Background(), validRequest("valid-api-key", pair.Access), gatekeeper.RouteOverrides{})
	assert.ErrorIs(t, err, gatekeeper.ErrAccountDeleted)
}

func TestAdmitOverrides(t *testing.T) {
	f := newChainFixture()

	// with every guard overridden an empty request passes
	_, err := f.chain.Admit(context.Background(), gatekeeper.GuardRequest{}, gatekeeper.RouteOverrides{
		APIKeyDisabled:    true,
		BlacklistDisabled: true,
		BearerDisabled:    true,
	})
	assert.NoError(t, err)
}

func TestAdmitBearerDisabled(t *testing.T) {
	f := newChainFixture()
	f.knownKey("valid-api-key")

	req := validRequest("valid-api-key", "")
	req.Authorization = ""

	_, err := f.chain.Admit(context.Background(), req, gatekeeper.RouteOverrides{BearerDisabled: true})
	assert.NoError(t, err)
	f.tokens.AssertNotCalled(t, "GetByString", mock.Anything, mock.Anything)
}

func TestAdmitGloballyDisabledGuards(t *testing.T) {
	f := newChainFixture()
	f.cfg.apiKeyEnabled = false
	f.cfg.blacklistEnabled = false
	_, access := f.signedInUser(t)

	req := validRequest("", access)
	_, err := f.chain.Admit(context.Background(), req, gatekeeper.RouteOverrides{})
	assert.NoError(t, err)
}
