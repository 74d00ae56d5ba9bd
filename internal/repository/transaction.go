package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/pagoschile/oneclick-api/internal/domain"
	"github.com/pagoschile/oneclick-api/internal/mapper"
	"github.com/pagoschile/oneclick-api/internal/storage"
)

type TransactionRepository struct {
	store  storage.TransactionStore
	schema storage.SchemaVersion
	log    *zap.Logger
}

func NewTransactionRepository(store storage.TransactionStore, schema storage.SchemaVersion, log *zap.Logger) *TransactionRepository {
	return &TransactionRepository{store: store, schema: schema, log: log}
}

// Save persists the aggregate and its details as one logical unit and
// returns the entity rebuilt from the persisted rows. Transactions are
// insert-only; detail state changes go through the provider flows.
func (r *TransactionRepository) Save(ctx context.Context, entity *domain.Transaction) (*domain.Transaction, error) {
	row, detailRows, err := mapper.TransactionToRows(entity, r.schema)
	if err != nil {
		return nil, err
	}
	created, err := r.store.CreateTransactionWithDetails(ctx, row, detailRows)
	if err != nil {
		return nil, err
	}
	r.log.Debug("transaction saved",
		zap.String("transaction_id", created.ID),
		zap.Int("detail_count", len(detailRows)))

	persisted, err := r.store.GetTransactionDetails(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	return mapper.TransactionToDomain(created, persisted)
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row, details, err := r.store.GetTransactionWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapper.TransactionToDomain(row, details)
}

// FindByBuyOrder returns the transaction for a parent buy order, with
// details loaded, or storage.ErrTransactionNotFound.
func (r *TransactionRepository) FindByBuyOrder(ctx context.Context, buyOrder string) (*domain.Transaction, error) {
	row, err := r.store.GetTransactionByBuyOrder(ctx, buyOrder)
	if err != nil {
		return nil, err
	}
	details, err := r.store.GetTransactionDetails(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	return mapper.TransactionToDomain(row, details)
}

// FindByUsername returns a user's transactions newest first.
func (r *TransactionRepository) FindByUsername(ctx context.Context, username string, skip, limit int) ([]*domain.Transaction, error) {
	rows, err := r.store.ListTransactionsByUsername(ctx, username, skip, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		details, err := r.store.GetTransactionDetails(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		entity, err := mapper.TransactionToDomain(row, details)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}
