// Package repository exposes entity-level persistence on top of the
// row stores, applying the mappers at the boundary so callers only
// ever see domain entities.
package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pagoschile/oneclick-api/internal/domain"
	"github.com/pagoschile/oneclick-api/internal/mapper"
	"github.com/pagoschile/oneclick-api/internal/storage"
)

type InscriptionRepository struct {
	store  storage.InscriptionStore
	schema storage.SchemaVersion
	log    *zap.Logger
}

func NewInscriptionRepository(store storage.InscriptionStore, schema storage.SchemaVersion, log *zap.Logger) *InscriptionRepository {
	return &InscriptionRepository{store: store, schema: schema, log: log}
}

func (r *InscriptionRepository) FindByID(ctx context.Context, id string) (*domain.Inscription, error) {
	row, err := r.store.GetInscription(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapper.InscriptionToDomain(row)
}

func (r *InscriptionRepository) FindByUsername(ctx context.Context, username string) (*domain.Inscription, error) {
	row, err := r.store.GetInscriptionByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return mapper.InscriptionToDomain(row)
}

func (r *InscriptionRepository) FindByTbkUser(ctx context.Context, tbkUser string) (*domain.Inscription, error) {
	row, err := r.store.GetInscriptionByTbkUser(ctx, tbkUser)
	if err != nil {
		return nil, err
	}
	return mapper.InscriptionToDomain(row)
}

// FindActiveByUsername returns the COMPLETED inscription for a user,
// or storage.ErrInscriptionNotFound.
func (r *InscriptionRepository) FindActiveByUsername(ctx context.Context, username string) (*domain.Inscription, error) {
	row, err := r.store.GetActiveInscriptionByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return mapper.InscriptionToDomain(row)
}

// Save inserts a new inscription or updates an existing one in place,
// then returns the entity rebuilt from the persisted row so it carries
// the storage-assigned id and timestamps.
func (r *InscriptionRepository) Save(ctx context.Context, entity *domain.Inscription) (*domain.Inscription, error) {
	var (
		row storage.InscriptionRow
		err error
	)
	if entity.ID != "" {
		row, err = r.store.GetInscription(ctx, entity.ID)
		if err != nil {
			return nil, fmt.Errorf("load inscription %s for update: %w", entity.ID, err)
		}
		if err := mapper.UpdateInscriptionRow(&row, entity); err != nil {
			return nil, err
		}
		row, err = r.store.UpdateInscription(ctx, row)
	} else {
		row, err = mapper.InscriptionToRow(entity, r.schema)
		if err != nil {
			return nil, err
		}
		row, err = r.store.CreateInscription(ctx, row)
	}
	if err != nil {
		return nil, err
	}
	r.log.Debug("inscription saved",
		zap.String("inscription_id", row.ID),
		zap.String("username", row.Username))
	return mapper.InscriptionToDomain(row)
}

// ListPendingBefore returns PENDING inscriptions created before the
// cutoff, for the expiry sweep.
func (r *InscriptionRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.Inscription, error) {
	rows, err := r.store.ListPendingInscriptionsBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Inscription, 0, len(rows))
	for _, row := range rows {
		entity, err := mapper.InscriptionToDomain(row)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

func (r *InscriptionRepository) Delete(ctx context.Context, id string) error {
	found, err := r.store.DeleteInscription(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return storage.ErrInscriptionNotFound
	}
	return nil
}
