package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// table is the generic CRUD base shared by every in-memory collection:
// create, get by id, paginated listing in insertion order, in-place
// partial update and delete.
type table[R any] struct {
	mu    sync.RWMutex
	rows  map[string]R
	order []string
}

func newTable[R any]() *table[R] {
	return &table[R]{rows: make(map[string]R)}
}

func (t *table[R]) create(id string, row R) R {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
	return row
}

func (t *table[R]) get(id string) (R, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rows[id]
	return r, ok
}

func (t *table[R]) all(skip, limit int) []R {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]R, 0, limit)
	for i := skip; i < len(t.order) && len(out) < limit; i++ {
		out = append(out, t.rows[t.order[i]])
	}
	return out
}

func (t *table[R]) update(id string, mutate func(*R)) (R, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rows[id]
	if !ok {
		var zero R
		return zero, false
	}
	mutate(&r)
	t.rows[id] = r
	return r, true
}

func (t *table[R]) delete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *table[R]) find(pred func(R) bool) (R, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, id := range t.order {
		if r := t.rows[id]; pred(r) {
			return r, true
		}
	}
	var zero R
	return zero, false
}

func (t *table[R]) filter(pred func(R) bool) []R {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []R
	for _, id := range t.order {
		if r := t.rows[id]; pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// MemoryStore implements InscriptionStore, TransactionStore and
// UserStore. Used by tests and local development.
type MemoryStore struct {
	schema       SchemaVersion
	inscriptions *table[InscriptionRow]
	transactions *table[TransactionRow]
	details      *table[TransactionDetailRow]
	users        *table[UserAuthRow]
}

func NewMemoryStore(schema SchemaVersion) *MemoryStore {
	return &MemoryStore{
		schema:       schema,
		inscriptions: newTable[InscriptionRow](),
		transactions: newTable[TransactionRow](),
		details:      newTable[TransactionDetailRow](),
		users:        newTable[UserAuthRow](),
	}
}

func (s *MemoryStore) CreateInscription(_ context.Context, row InscriptionRow) (InscriptionRow, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = now
	}
	row.Schema = s.schema
	return s.inscriptions.create(row.ID, row), nil
}

func (s *MemoryStore) GetInscription(_ context.Context, id string) (InscriptionRow, error) {
	r, ok := s.inscriptions.get(id)
	if !ok {
		return InscriptionRow{}, ErrInscriptionNotFound
	}
	return r, nil
}

func (s *MemoryStore) ListInscriptions(_ context.Context, skip, limit int) ([]InscriptionRow, error) {
	return s.inscriptions.all(skip, limit), nil
}

func (s *MemoryStore) UpdateInscription(_ context.Context, row InscriptionRow) (InscriptionRow, error) {
	updated, ok := s.inscriptions.update(row.ID, func(r *InscriptionRow) {
		created := r.CreatedAt
		*r = row
		r.CreatedAt = created
		r.UpdatedAt = time.Now().UTC()
		r.Schema = s.schema
	})
	if !ok {
		return InscriptionRow{}, ErrInscriptionNotFound
	}
	return updated, nil
}

func (s *MemoryStore) DeleteInscription(_ context.Context, id string) (bool, error) {
	return s.inscriptions.delete(id), nil
}

func (s *MemoryStore) GetInscriptionByUsername(_ context.Context, username string) (InscriptionRow, error) {
	r, ok := s.inscriptions.find(func(r InscriptionRow) bool { return r.Username == username })
	if !ok {
		return InscriptionRow{}, ErrInscriptionNotFound
	}
	return r, nil
}

func (s *MemoryStore) GetInscriptionByTbkUser(_ context.Context, tbkUser string) (InscriptionRow, error) {
	r, ok := s.inscriptions.find(func(r InscriptionRow) bool { return r.TbkUser == tbkUser })
	if !ok {
		return InscriptionRow{}, ErrInscriptionNotFound
	}
	return r, nil
}

func (s *MemoryStore) GetActiveInscriptionByUsername(_ context.Context, username string) (InscriptionRow, error) {
	r, ok := s.inscriptions.find(func(r InscriptionRow) bool {
		return r.Username == username && rowIsActive(r)
	})
	if !ok {
		return InscriptionRow{}, ErrInscriptionNotFound
	}
	return r, nil
}

func (s *MemoryStore) ListPendingInscriptionsBefore(_ context.Context, cutoff time.Time) ([]InscriptionRow, error) {
	return s.inscriptions.filter(func(r InscriptionRow) bool {
		return rowIsPending(r) && r.CreatedAt.Before(cutoff)
	}), nil
}

func rowIsActive(r InscriptionRow) bool {
	switch r.Schema {
	case SchemaCurrent:
		return r.Status.Valid && r.Status.String == "COMPLETED"
	default:
		return r.IsActive.Valid && r.IsActive.Bool
	}
}

func rowIsPending(r InscriptionRow) bool {
	switch r.Schema {
	case SchemaCurrent:
		return r.Status.Valid && r.Status.String == "PENDING"
	default:
		return r.IsActive.Valid && !r.IsActive.Bool
	}
}

func (s *MemoryStore) CreateTransactionWithDetails(_ context.Context, row TransactionRow, details []TransactionDetailRow) (TransactionRow, error) {
	buyOrder := row.BuyOrder.String
	if row.Schema == SchemaLegacy {
		buyOrder = row.ParentBuyOrder.String
	}
	if _, ok := s.transactions.find(func(r TransactionRow) bool {
		return r.BuyOrder.String == buyOrder || r.ParentBuyOrder.String == buyOrder
	}); ok {
		return TransactionRow{}, ErrDuplicateBuyOrder
	}

	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	row.Schema = s.schema
	created := s.transactions.create(row.ID, row)

	for _, d := range details {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		d.TransactionID = row.ID
		if d.CreatedAt.IsZero() {
			d.CreatedAt = time.Now().UTC()
		}
		s.details.create(d.ID, d)
	}
	return created, nil
}

func (s *MemoryStore) GetTransactionWithDetails(ctx context.Context, id string) (TransactionRow, []TransactionDetailRow, error) {
	r, ok := s.transactions.get(id)
	if !ok {
		return TransactionRow{}, nil, ErrTransactionNotFound
	}
	details, err := s.GetTransactionDetails(ctx, id)
	if err != nil {
		return TransactionRow{}, nil, err
	}
	return r, details, nil
}

func (s *MemoryStore) ListTransactionsByUsername(_ context.Context, username string, skip, limit int) ([]TransactionRow, error) {
	rows := s.transactions.filter(func(r TransactionRow) bool { return r.Username == username })
	// newest first
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	if skip >= len(rows) {
		return nil, nil
	}
	rows = rows[skip:]
	if limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *MemoryStore) GetTransactionByBuyOrder(_ context.Context, buyOrder string) (TransactionRow, error) {
	r, ok := s.transactions.find(func(r TransactionRow) bool {
		return r.BuyOrder.String == buyOrder || r.ParentBuyOrder.String == buyOrder
	})
	if !ok {
		return TransactionRow{}, ErrTransactionNotFound
	}
	return r, nil
}

func (s *MemoryStore) GetTransactionDetails(_ context.Context, transactionID string) ([]TransactionDetailRow, error) {
	return s.details.filter(func(d TransactionDetailRow) bool { return d.TransactionID == transactionID }), nil
}

func (s *MemoryStore) CreateUser(_ context.Context, row UserAuthRow) error {
	if _, ok := s.users.get(row.Username); ok {
		return ErrUserAlreadyExists
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	s.users.create(row.Username, row)
	return nil
}

func (s *MemoryStore) GetUserAuth(_ context.Context, username string) (UserAuthRow, error) {
	r, ok := s.users.get(username)
	if !ok {
		return UserAuthRow{}, ErrUserNotFound
	}
	return r, nil
}
