package gatekeeper

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// APIKeys persists admission credentials. Deletion is soft so revoked keys
// remain auditable.
type APIKeys interface {
	List(ctx context.Context) ([]*APIKey, error)
	GetByID(ctx context.Context, id uuid.UUID) (*APIKey, error)
	Create(ctx context.Context, record *APIKey) (*APIKey, error)
	Update(ctx context.Context, record *APIKey) (*APIKey, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type apiKeys struct {
	repository.Repository[*APIKey]
	db *bun.DB
}

var _ APIKeys = (*apiKeys)(nil)

func NewAPIKeysRepository(db *bun.DB) APIKeys {
	repo := repository.NewRepository[*APIKey](db, repository.ModelHandlers[*APIKey]{
		NewRecord: func() *APIKey { return &APIKey{} },
		GetID: func(k *APIKey) uuid.UUID {
			if k == nil {
				return uuid.Nil
			}
			return k.ID
		},
		SetID: func(k *APIKey, id uuid.UUID) {
			if k != nil {
				k.ID = id
			}
		},
		GetIdentifier: func() string {
			return "key"
		},
	})

	return &apiKeys{
		Repository: repo,
		db:         db,
	}
}

func (a *apiKeys) List(ctx context.Context) ([]*APIKey, error) {
	var records []*APIKey
	if err := a.db.NewSelect().Model(&records).Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *apiKeys) GetByID(ctx context.Context, id uuid.UUID) (*APIKey, error) {
	record := &APIKey{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *apiKeys) Create(ctx context.Context, record *APIKey) (*APIKey, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.Create(ctx, record)
}

func (a *apiKeys) Update(ctx context.Context, record *APIKey) (*APIKey, error) {
	return a.Repository.Update(ctx, record, repository.UpdateByID(record.ID.String()))
}

func (a *apiKeys) Delete(ctx context.Context, id uuid.UUID) error {
	// soft delete: the model carries a soft_delete tag
	_, err := a.db.NewDelete().
		Model((*APIKey)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// BlacklistEntries persists denied IPs and device ids
type BlacklistEntries interface {
	List(ctx context.Context) ([]*BlacklistEntry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*BlacklistEntry, error)
	Create(ctx context.Context, record *BlacklistEntry) (*BlacklistEntry, error)
	Update(ctx context.Context, record *BlacklistEntry) (*BlacklistEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type blacklistEntries struct {
	repository.Repository[*BlacklistEntry]
	db *bun.DB
}

var _ BlacklistEntries = (*blacklistEntries)(nil)

func NewBlacklistRepository(db *bun.DB) BlacklistEntries {
	repo := repository.NewRepository[*BlacklistEntry](db, repository.ModelHandlers[*BlacklistEntry]{
		NewRecord: func() *BlacklistEntry { return &BlacklistEntry{} },
		GetID: func(b *BlacklistEntry) uuid.UUID {
			if b == nil {
				return uuid.Nil
			}
			return b.ID
		},
		SetID: func(b *BlacklistEntry, id uuid.UUID) {
			if b != nil {
				b.ID = id
			}
		},
		GetIdentifier: func() string {
			return "value"
		},
	})

	return &blacklistEntries{
		Repository: repo,
		db:         db,
	}
}

func (a *blacklistEntries) List(ctx context.Context) ([]*BlacklistEntry, error) {
	var records []*BlacklistEntry
	if err := a.db.NewSelect().Model(&records).Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *blacklistEntries) GetByID(ctx context.Context, id uuid.UUID) (*BlacklistEntry, error) {
	record := &BlacklistEntry{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *blacklistEntries) Create(ctx context.Context, record *BlacklistEntry) (*BlacklistEntry, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.Create(ctx, record)
}

func (a *blacklistEntries) Update(ctx context.Context, record *BlacklistEntry) (*BlacklistEntry, error) {
	return a.Repository.Update(ctx, record, repository.UpdateByID(record.ID.String()))
}

func (a *blacklistEntries) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewDelete().
		Model((*BlacklistEntry)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
