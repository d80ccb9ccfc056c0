package gatekeeper_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-gatekeeper"
)

// testConfig implements gatekeeper.Config with deterministic values
type testConfig struct {
	signingKey       string
	issuer           string
	accessTTL        time.Duration
	refreshTTL       time.Duration
	resetTTL         time.Duration
	resetCodeTTL     time.Duration
	apiKeyEnabled    bool
	blacklistEnabled bool
	bearerEnabled    bool
	apiKeyHeader     string
	deviceIDHeader   string
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:       "test-signing-key",
		issuer:           "gatekeeper-test",
		accessTTL:        4 * time.Hour,
		refreshTTL:       2880 * time.Hour,
		resetTTL:         5 * time.Minute,
		resetCodeTTL:     10 * time.Minute,
		apiKeyEnabled:    true,
		blacklistEnabled: true,
		bearerEnabled:    true,
	}
}

func (c *testConfig) GetSigningKey() string             { return c.signingKey }
func (c *testConfig) GetIssuer() string                 { return c.issuer }
func (c *testConfig) GetAccessTokenTTL() time.Duration  { return c.accessTTL }
func (c *testConfig) GetRefreshTokenTTL() time.Duration { return c.refreshTTL }
func (c *testConfig) GetResetTokenTTL() time.Duration   { return c.resetTTL }
func (c *testConfig) GetResetCodeTTL() time.Duration    { return c.resetCodeTTL }
func (c *testConfig) GetAPIKeyEnabled() bool            { return c.apiKeyEnabled }
func (c *testConfig) GetBlacklistEnabled() bool         { return c.blacklistEnabled }
func (c *testConfig) GetBearerEnabled() bool            { return c.bearerEnabled }
func (c *testConfig) GetAPIKeyHeader() string           { return c.apiKeyHeader }
func (c *testConfig) GetDeviceIDHeader() string         { return c.deviceIDHeader }

// MockUsers implements gatekeeper.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id uuid.UUID) (*gatekeeper.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.User), args.Error(1)
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string) (*gatekeeper.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.User), args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *gatekeeper.User) (*gatekeeper.User, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.User), args.Error(1)
}

func (m *MockUsers) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) IsEmailRegistered(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) IsUsernameRegistered(ctx context.Context, username string, excludeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, username, excludeID)
	return args.Bool(0), args.Error(1)
}

// MockTokens implements gatekeeper.Tokens
type MockTokens struct {
	mock.Mock
}

func (m *MockTokens) GetByString(ctx context.Context, raw string) (*gatekeeper.AuthToken, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.AuthToken), args.Error(1)
}

func (m *MockTokens) GetByKindAndString(ctx context.Context, kind gatekeeper.TokenKind, raw string) (*gatekeeper.AuthToken, error) {
	args := m.Called(ctx, kind, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.AuthToken), args.Error(1)
}

func (m *MockTokens) CreateTx(ctx context.Context, tx bun.IDB, record *gatekeeper.AuthToken) (*gatekeeper.AuthToken, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.AuthToken), args.Error(1)
}

func (m *MockTokens) CreatePairTx(ctx context.Context, tx bun.IDB, access, refresh *gatekeeper.AuthToken) error {
	args := m.Called(ctx, tx, access, refresh)
	return args.Error(0)
}

func (m *MockTokens) RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockVerifications implements gatekeeper.Verifications
type MockVerifications struct {
	mock.Mock
}

func (m *MockVerifications) GetByCode(ctx context.Context, code string) (*gatekeeper.AuthVerify, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.AuthVerify), args.Error(1)
}

func (m *MockVerifications) GetByTokenAndUser(ctx context.Context, token string, userID uuid.UUID) (*gatekeeper.AuthVerify, error) {
	args := m.Called(ctx, token, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.AuthVerify), args.Error(1)
}

func (m *MockVerifications) CreateTx(ctx context.Context, tx bun.IDB, record *gatekeeper.AuthVerify) (*gatekeeper.AuthVerify, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.AuthVerify), args.Error(1)
}

func (m *MockVerifications) UpdateTx(ctx context.Context, tx bun.IDB, record *gatekeeper.AuthVerify) (*gatekeeper.AuthVerify, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.AuthVerify), args.Error(1)
}

// MockAPIKeys implements gatekeeper.APIKeys
type MockAPIKeys struct {
	mock.Mock
}

func (m *MockAPIKeys) List(ctx context.Context) ([]*gatekeeper.APIKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*gatekeeper.APIKey), args.Error(1)
}

func (m *MockAPIKeys) GetByID(ctx context.Context, id uuid.UUID) (*gatekeeper.APIKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.APIKey), args.Error(1)
}

func (m *MockAPIKeys) Create(ctx context.Context, record *gatekeeper.APIKey) (*gatekeeper.APIKey, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.APIKey), args.Error(1)
}

func (m *MockAPIKeys) Update(ctx context.Context, record *gatekeeper.APIKey) (*gatekeeper.APIKey, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.APIKey), args.Error(1)
}

func (m *MockAPIKeys) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockBlacklist implements gatekeeper.BlacklistEntries
type MockBlacklist struct {
	mock.Mock
}

func (m *MockBlacklist) List(ctx context.Context) ([]*gatekeeper.BlacklistEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*gatekeeper.BlacklistEntry), args.Error(1)
}

func (m *MockBlacklist) GetByID(ctx context.Context, id uuid.UUID) (*gatekeeper.BlacklistEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.BlacklistEntry), args.Error(1)
}

func (m *MockBlacklist) Create(ctx context.Context, record *gatekeeper.BlacklistEntry) (*gatekeeper.BlacklistEntry, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.BlacklistEntry), args.Error(1)
}

func (m *MockBlacklist) Update(ctx context.Context, record *gatekeeper.BlacklistEntry) (*gatekeeper.BlacklistEntry, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gatekeeper.BlacklistEntry), args.Error(1)
}

func (m *MockBlacklist) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRepositoryManager implements gatekeeper.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
	users         *MockUsers
	tokens        *MockTokens
	verifications *MockVerifications
	apiKeys       *MockAPIKeys
	blacklist     *MockBlacklist
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		users:         &MockUsers{},
		tokens:        &MockTokens{},
		verifications: &MockVerifications{},
		apiKeys:       &MockAPIKeys{},
		blacklist:     &MockBlacklist{},
	}
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if err := args.Error(0); err != nil {
		return err
	}
	return f(ctx, bun.Tx{})
}

// ExpectTx lets RunInTx execute the transactional closure against the mock
// repositories; the closure's error propagates to the caller.
func (m *MockRepositoryManager) ExpectTx() *mock.Call {
	return m.On("RunInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func (m *MockRepositoryManager) Users() gatekeeper.Users { return m.users }

func (m *MockRepositoryManager) Tokens() gatekeeper.Tokens { return m.tokens }

func (m *MockRepositoryManager) Verifications() gatekeeper.Verifications { return m.verifications }

func (m *MockRepositoryManager) APIKeys() gatekeeper.APIKeys { return m.apiKeys }

func (m *MockRepositoryManager) Blacklist() gatekeeper.BlacklistEntries { return m.blacklist }
