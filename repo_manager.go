package gatekeeper

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories plus the transaction boundary
// that keeps pair issuance and refresh rotation atomic.
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
	Tokens() Tokens
	Verifications() Verifications
	APIKeys() APIKeys
	Blacklist() BlacklistEntries
}

type mngr struct {
	db            *bun.DB
	users         Users
	tokens        Tokens
	verifications Verifications
	apiKeys       APIKeys
	blacklist     BlacklistEntries
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:            db,
		users:         NewUsersRepository(db),
		tokens:        NewTokensRepository(db),
		verifications: NewVerificationsRepository(db),
		apiKeys:       NewAPIKeysRepository(db),
		blacklist:     NewBlacklistRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.tokens == nil {
		return errors.New("repository tokens should be initialized")
	}

	if m.verifications == nil {
		return errors.New("repository verifications should be initialized")
	}

	if m.apiKeys == nil {
		return errors.New("repository apiKeys should be initialized")
	}

	if m.blacklist == nil {
		return errors.New("repository blacklist should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Tokens() Tokens {
	return m.tokens
}

func (m mngr) Verifications() Verifications {
	return m.verifications
}

func (m mngr) APIKeys() APIKeys {
	return m.apiKeys
}

func (m mngr) Blacklist() BlacklistEntries {
	return m.blacklist
}
