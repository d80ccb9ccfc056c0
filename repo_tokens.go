package gatekeeper

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tokens is the revocation ledger. The guard path looks rows up by the raw
// string so the cheap existence/revocation check happens before any
// signature work.
type Tokens interface {
	GetByString(ctx context.Context, raw string) (*AuthToken, error)
	GetByKindAndString(ctx context.Context, kind TokenKind, raw string) (*AuthToken, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *AuthToken) (*AuthToken, error)
	CreatePairTx(ctx context.Context, tx bun.IDB, access, refresh *AuthToken) error
	RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type tokens struct {
	repository.Repository[*AuthToken]
	db *bun.DB
}

var _ Tokens = (*tokens)(nil)

func NewTokensRepository(db *bun.DB) Tokens {
	repo := repository.NewRepository[*AuthToken](db, repository.ModelHandlers[*AuthToken]{
		NewRecord: func() *AuthToken { return &AuthToken{} },
		GetID: func(t *AuthToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *AuthToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &tokens{
		Repository: repo,
		db:         db,
	}
}

func (a *tokens) GetByString(ctx context.Context, raw string) (*AuthToken, error) {
	return a.getWhere(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.token = ?", raw)
	})
}

func (a *tokens) GetByKindAndString(ctx context.Context, kind TokenKind, raw string) (*AuthToken, error) {
	return a.getWhere(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("?TableAlias.kind = ?", kind).
			Where("?TableAlias.token = ?", raw)
	})
}

func (a *tokens) getWhere(ctx context.Context, apply func(*bun.SelectQuery) *bun.SelectQuery) (*AuthToken, error) {
	record := &AuthToken{}
	err := apply(a.db.NewSelect().Model(record)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (a *tokens) CreateTx(ctx context.Context, tx bun.IDB, record *AuthToken) (*AuthToken, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, record)
}

// CreatePairTx persists both halves of a freshly issued pair in a single
// insert so a crash cannot leave an access token without its refresh twin.
func (a *tokens) CreatePairTx(ctx context.Context, tx bun.IDB, access, refresh *AuthToken) error {
	records := []*AuthToken{access, refresh}
	for _, r := range records {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
	}

	_, err := tx.NewInsert().Model(&records).Exec(ctx)
	return err
}

// RevokeTx flips is_revoked. There is deliberately no way to clear it.
func (a *tokens) RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*AuthToken)(nil)).
		Set("is_revoked = ?", true).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(ctx)
	return err
}
