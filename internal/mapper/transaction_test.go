package mapper

import (
	"testing"
	"time"

	"github.com/pagoschile/oneclick-api/internal/domain"
	"github.com/pagoschile/oneclick-api/internal/storage"
)

func sampleTransaction(t *testing.T) *domain.Transaction {
	t.Helper()
	e, err := domain.NewTransaction("jdoe", "ORDER-1")
	if err != nil {
		t.Fatal(err)
	}
	e.CardNumber = "****1234"
	e.AccountingDate = "0825"
	e.TransactionDate = time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	for i, spec := range []struct {
		commerce string
		buyOrder string
		amount   int64
	}{
		{"597055555542", "CHILD-1", 10000},
		{"597055555543", "CHILD-2", 25000},
	} {
		amount, err := domain.NewAmount(spec.amount)
		if err != nil {
			t.Fatal(err)
		}
		d, err := domain.NewTransactionDetail(spec.commerce, spec.buyOrder, amount, domain.TransactionAuthorized)
		if err != nil {
			t.Fatal(err)
		}
		rc := 0
		d.ResponseCode = &rc
		d.AuthorizationCode = "1213"
		d.PaymentTypeCode = domain.PaymentCredit
		d.InstallmentsNumber = i + 1
		if err := e.AddDetail(d); err != nil {
			t.Fatal(err)
		}
	}
	return e
}

func roundTrip(t *testing.T, schema storage.SchemaVersion) {
	t.Helper()
	e := sampleTransaction(t)

	row, detailRows, err := TransactionToRows(e, schema)
	if err != nil {
		t.Fatal(err)
	}
	if row.ID == "" {
		t.Fatal("row id must be assigned for an unpersisted entity")
	}
	if row.TotalAmount != 35000 {
		t.Errorf("TotalAmount = %d, want 35000", row.TotalAmount)
	}
	if len(detailRows) != 2 {
		t.Fatalf("detail rows = %d, want 2", len(detailRows))
	}
	for _, d := range detailRows {
		if d.TransactionID != row.ID {
			t.Errorf("detail %s not linked to parent", d.ID)
		}
	}

	switch schema {
	case storage.SchemaCurrent:
		if row.BuyOrder.String != "ORDER-1" || row.ParentBuyOrder.Valid {
			t.Errorf("buy order written to wrong column: %+v", row)
		}
	case storage.SchemaLegacy:
		if row.ParentBuyOrder.String != "ORDER-1" || row.BuyOrder.Valid {
			t.Errorf("buy order written to wrong column: %+v", row)
		}
	}

	got, err := TransactionToDomain(row, detailRows)
	if err != nil {
		t.Fatal(err)
	}
	if got.BuyOrder != e.BuyOrder || got.Username != e.Username || got.CardNumber != e.CardNumber ||
		got.AccountingDate != e.AccountingDate || !got.TransactionDate.Equal(e.TransactionDate) {
		t.Errorf("round trip mismatch: got %+v want %+v", got, e)
	}
	if len(got.Details) != 2 {
		t.Fatalf("details = %d, want 2", len(got.Details))
	}
	for i, d := range got.Details {
		want := e.Details[i]
		if d.CommerceCode != want.CommerceCode || d.BuyOrder != want.BuyOrder ||
			d.Amount.Value() != want.Amount.Value() || d.Status != want.Status ||
			d.AuthorizationCode != want.AuthorizationCode ||
			d.PaymentTypeCode != want.PaymentTypeCode ||
			d.InstallmentsNumber != want.InstallmentsNumber {
			t.Errorf("detail %d mismatch: got %+v want %+v", i, d, want)
		}
		if d.ResponseCode == nil || *d.ResponseCode != 0 {
			t.Errorf("detail %d response code lost", i)
		}
	}
	if !got.IsFullyAuthorized() {
		t.Error("round-tripped transaction should still be fully authorized")
	}
}

func TestTransactionRoundTripCurrent(t *testing.T) {
	roundTrip(t, storage.SchemaCurrent)
}

func TestTransactionRoundTripLegacy(t *testing.T) {
	roundTrip(t, storage.SchemaLegacy)
}

func TestDetailToDomainRejectsUnknownStatus(t *testing.T) {
	row := storage.TransactionDetailRow{
		ID:           "d-1",
		CommerceCode: "C1",
		BuyOrder:     "CHILD-1",
		Amount:       1000,
		Status:       "APPROVEDISH",
	}
	if _, err := detailToDomain(row); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestDetailResponseCodeNullDistinctFromZero(t *testing.T) {
	row := storage.TransactionDetailRow{
		ID:           "d-1",
		CommerceCode: "C1",
		BuyOrder:     "CHILD-1",
		Amount:       1000,
		Status:       string(domain.TransactionAuthorized),
	}
	d, err := detailToDomain(row)
	if err != nil {
		t.Fatal(err)
	}
	if d.ResponseCode != nil {
		t.Error("NULL response_code must map to nil, not zero")
	}
	if d.IsAuthorized() {
		t.Error("detail without response code must not count as authorized")
	}
}
