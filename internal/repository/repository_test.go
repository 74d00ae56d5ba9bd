package repository

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/pagoschile/oneclick-api/internal/domain"
	"github.com/pagoschile/oneclick-api/internal/storage"
)

func newInscriptionRepo(t *testing.T) *InscriptionRepository {
	t.Helper()
	store := storage.NewMemoryStore(storage.SchemaCurrent)
	return NewInscriptionRepository(store, storage.SchemaCurrent, zap.NewNop())
}

func TestInscriptionSaveInsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newInscriptionRepo(t)

	entity, err := domain.NewInscription("jdoe", "jdoe@example.com", "tbk-token-1", "https://webpay.cl/init")
	if err != nil {
		t.Fatal(err)
	}

	saved, err := repo.Save(ctx, entity)
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" {
		t.Fatal("saved entity must carry the storage-assigned id")
	}
	if saved.CreatedAt.IsZero() {
		t.Error("saved entity must carry server-side timestamps")
	}
	if saved.Status != domain.InscriptionPending {
		t.Errorf("Status = %s, want PENDING", saved.Status)
	}

	card, _ := domain.NewCardDetails("Visa", "****1234")
	if err := saved.Complete("AUTH123", card); err != nil {
		t.Fatal(err)
	}
	updated, err := repo.Save(ctx, saved)
	if err != nil {
		t.Fatal(err)
	}
	if updated.ID != saved.ID {
		t.Errorf("update must keep id: got %q want %q", updated.ID, saved.ID)
	}
	if updated.Status != domain.InscriptionCompleted {
		t.Errorf("Status = %s, want COMPLETED", updated.Status)
	}
	if updated.CardDetails == nil || updated.CardDetails.Number() != "****1234" {
		t.Errorf("card details lost on update: %+v", updated.CardDetails)
	}

	active, err := repo.FindActiveByUsername(ctx, "jdoe")
	if err != nil {
		t.Fatal(err)
	}
	if active.ID != saved.ID {
		t.Errorf("FindActiveByUsername returned %q, want %q", active.ID, saved.ID)
	}
}

func TestInscriptionLookupsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newInscriptionRepo(t)

	if _, err := repo.FindByUsername(ctx, "ghost"); !errors.Is(err, storage.ErrInscriptionNotFound) {
		t.Errorf("FindByUsername error = %v, want ErrInscriptionNotFound", err)
	}
	if _, err := repo.FindByTbkUser(ctx, "ghost-token"); !errors.Is(err, storage.ErrInscriptionNotFound) {
		t.Errorf("FindByTbkUser error = %v, want ErrInscriptionNotFound", err)
	}
	if err := repo.Delete(ctx, "ghost-id"); !errors.Is(err, storage.ErrInscriptionNotFound) {
		t.Errorf("Delete error = %v, want ErrInscriptionNotFound", err)
	}
}

func TestInscriptionActiveExcludesPending(t *testing.T) {
	ctx := context.Background()
	repo := newInscriptionRepo(t)

	entity, _ := domain.NewInscription("jdoe", "jdoe@example.com", "tbk-token-1", "https://webpay.cl/init")
	if _, err := repo.Save(ctx, entity); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.FindActiveByUsername(ctx, "jdoe"); !errors.Is(err, storage.ErrInscriptionNotFound) {
		t.Errorf("PENDING inscription must not be active: err = %v", err)
	}
}

func buildTransaction(t *testing.T, buyOrder string) *domain.Transaction {
	t.Helper()
	e, err := domain.NewTransaction("jdoe", buyOrder)
	if err != nil {
		t.Fatal(err)
	}
	amount, _ := domain.NewAmount(10000)
	d, err := domain.NewTransactionDetail("597055555542", buyOrder+"-C1", amount, domain.TransactionAuthorized)
	if err != nil {
		t.Fatal(err)
	}
	rc := 0
	d.ResponseCode = &rc
	d.AuthorizationCode = "1213"
	if err := e.AddDetail(d); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestTransactionSaveAndLookups(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(storage.SchemaCurrent)
	repo := NewTransactionRepository(store, storage.SchemaCurrent, zap.NewNop())

	saved, err := repo.Save(ctx, buildTransaction(t, "ORDER-1"))
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" {
		t.Fatal("saved transaction must carry the storage-assigned id")
	}
	if len(saved.Details) != 1 {
		t.Fatalf("details = %d, want 1", len(saved.Details))
	}
	if !saved.IsFullyAuthorized() {
		t.Error("saved transaction should remain fully authorized")
	}

	byOrder, err := repo.FindByBuyOrder(ctx, "ORDER-1")
	if err != nil {
		t.Fatal(err)
	}
	if byOrder.ID != saved.ID || len(byOrder.Details) != 1 {
		t.Errorf("FindByBuyOrder mismatch: %+v", byOrder)
	}

	// duplicate buy order rejected by the store
	if _, err := repo.Save(ctx, buildTransaction(t, "ORDER-1")); !errors.Is(err, storage.ErrDuplicateBuyOrder) {
		t.Errorf("duplicate save error = %v, want ErrDuplicateBuyOrder", err)
	}

	if _, err := repo.Save(ctx, buildTransaction(t, "ORDER-2")); err != nil {
		t.Fatal(err)
	}
	history, err := repo.FindByUsername(ctx, "jdoe", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history len = %d, want 2", len(history))
	}
	if history[0].BuyOrder != "ORDER-2" {
		t.Errorf("history[0] = %s, want newest first", history[0].BuyOrder)
	}
}

func TestTransactionRepositoryLegacySchema(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(storage.SchemaLegacy)
	repo := NewTransactionRepository(store, storage.SchemaLegacy, zap.NewNop())

	saved, err := repo.Save(ctx, buildTransaction(t, "ORDER-L1"))
	if err != nil {
		t.Fatal(err)
	}
	if saved.BuyOrder != "ORDER-L1" {
		t.Errorf("BuyOrder = %q after legacy round trip", saved.BuyOrder)
	}
	if _, err := repo.FindByBuyOrder(ctx, "ORDER-L1"); err != nil {
		t.Fatalf("legacy FindByBuyOrder: %v", err)
	}
}
