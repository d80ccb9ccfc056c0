package gatekeeper

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Verifications stores recovery records. Rows are only ever inserted and
// flagged, never deleted.
type Verifications interface {
	GetByCode(ctx context.Context, code string) (*AuthVerify, error)
	GetByTokenAndUser(ctx context.Context, token string, userID uuid.UUID) (*AuthVerify, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *AuthVerify) (*AuthVerify, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *AuthVerify) (*AuthVerify, error)
}

type verifications struct {
	repository.Repository[*AuthVerify]
	db *bun.DB
}

var _ Verifications = (*verifications)(nil)

func NewVerificationsRepository(db *bun.DB) Verifications {
	repo := repository.NewRepository[*AuthVerify](db, repository.ModelHandlers[*AuthVerify]{
		NewRecord: func() *AuthVerify { return &AuthVerify{} },
		GetID: func(v *AuthVerify) uuid.UUID {
			if v == nil {
				return uuid.Nil
			}
			return v.ID
		},
		SetID: func(v *AuthVerify, id uuid.UUID) {
			if v != nil {
				v.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &verifications{
		Repository: repo,
		db:         db,
	}
}

func (a *verifications) GetByCode(ctx context.Context, code string) (*AuthVerify, error) {
	record := &AuthVerify{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.code = ?", code).
		Where("?TableAlias.purpose = ?", VerifyPurposeRecovery).
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

// GetByTokenAndUser scopes the lookup to the principal baked into the reset
// token so one account's handle cannot redeem another's record.
func (a *verifications) GetByTokenAndUser(ctx context.Context, token string, userID uuid.UUID) (*AuthVerify, error) {
	record := &AuthVerify{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.user_id = ?", userID).
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

func (a *verifications) CreateTx(ctx context.Context, tx bun.IDB, record *AuthVerify) (*AuthVerify, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *verifications) UpdateTx(ctx context.Context, tx bun.IDB, record *AuthVerify) (*AuthVerify, error) {
	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String()))
}
