package mapper

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/pagoschile/oneclick-api/internal/domain"
	"github.com/pagoschile/oneclick-api/internal/storage"
)

// TransactionToDomain rebuilds the aggregate from a row of either
// schema generation plus its eagerly loaded detail rows.
func TransactionToDomain(row storage.TransactionRow, details []storage.TransactionDetailRow) (*domain.Transaction, error) {
	var buyOrder, cardNumber string
	switch row.Schema {
	case storage.SchemaCurrent:
		buyOrder = row.BuyOrder.String
		cardNumber = row.CardNumber.String
	case storage.SchemaLegacy:
		buyOrder = row.ParentBuyOrder.String
		cardNumber = row.CardNumberMasked.String
	default:
		return nil, fmt.Errorf("transaction %s: unknown schema %d", row.ID, row.Schema)
	}

	entity, err := domain.NewTransaction(row.Username, buyOrder)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", row.ID, err)
	}
	entity.ID = row.ID
	entity.InscriptionID = row.InscriptionID.String
	entity.SessionID = row.SessionID.String
	entity.CardNumber = cardNumber
	entity.AccountingDate = row.AccountingDate.String
	entity.TransactionDate = row.TransactionDate
	entity.CreatedAt = row.CreatedAt

	for _, d := range details {
		detail, err := detailToDomain(d)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", row.ID, err)
		}
		if err := entity.AddDetail(detail); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", row.ID, err)
		}
	}
	return entity, nil
}

func detailToDomain(row storage.TransactionDetailRow) (*domain.TransactionDetail, error) {
	amount, err := domain.NewAmount(row.Amount)
	if err != nil {
		return nil, fmt.Errorf("detail %s: %w", row.ID, err)
	}
	status := domain.TransactionStatus(row.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("detail %s: unknown status %q", row.ID, row.Status)
	}
	detail, err := domain.NewTransactionDetail(row.CommerceCode, row.BuyOrder, amount, status)
	if err != nil {
		return nil, fmt.Errorf("detail %s: %w", row.ID, err)
	}
	detail.ID = row.ID
	detail.AuthorizationCode = row.AuthorizationCode.String
	detail.PaymentTypeCode = domain.PaymentType(row.PaymentTypeCode.String)
	if row.ResponseCode.Valid {
		rc := int(row.ResponseCode.Int64)
		detail.ResponseCode = &rc
	}
	if row.InstallmentsNumber.Valid {
		detail.InstallmentsNumber = int(row.InstallmentsNumber.Int64)
	}
	if row.Balance.Valid {
		balance := row.Balance.Int64
		detail.Balance = &balance
	}
	return detail, nil
}

// TransactionToRows builds the aggregate-root row and its detail rows
// for the target schema. Row ids are assigned here when the entity has
// not been persisted yet, so the detail rows can reference the parent.
func TransactionToRows(entity *domain.Transaction, schema storage.SchemaVersion) (storage.TransactionRow, []storage.TransactionDetailRow, error) {
	id := entity.ID
	if id == "" {
		id = uuid.NewString()
	}

	var total int64
	for _, d := range entity.Details {
		total += d.Amount.Value()
	}
	status := string(domain.TransactionAuthorized)
	if len(entity.Details) > 0 {
		status = string(entity.Details[0].Status)
	}

	row := storage.TransactionRow{
		Schema:          schema,
		ID:              id,
		Username:        entity.Username,
		InscriptionID:   nullString(entity.InscriptionID),
		SessionID:       nullString(entity.SessionID),
		TransactionDate: entity.TransactionDate,
		AccountingDate:  nullString(entity.AccountingDate),
		TotalAmount:     total,
		Status:          status,
		CreatedAt:       entity.CreatedAt,
	}

	switch schema {
	case storage.SchemaCurrent:
		row.BuyOrder = nullString(entity.BuyOrder)
		row.CardNumber = nullString(entity.CardNumber)
	case storage.SchemaLegacy:
		row.ParentBuyOrder = nullString(entity.BuyOrder)
		row.CardNumberMasked = nullString(entity.CardNumber)
	default:
		return storage.TransactionRow{}, nil, fmt.Errorf("unknown schema %d", schema)
	}

	details := make([]storage.TransactionDetailRow, 0, len(entity.Details))
	for _, d := range entity.Details {
		details = append(details, detailToRow(d, id))
	}
	return row, details, nil
}

func detailToRow(detail *domain.TransactionDetail, transactionID string) storage.TransactionDetailRow {
	id := detail.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := storage.TransactionDetailRow{
		ID:                id,
		TransactionID:     transactionID,
		CommerceCode:      detail.CommerceCode,
		BuyOrder:          detail.BuyOrder,
		Amount:            detail.Amount.Value(),
		Status:            string(detail.Status),
		AuthorizationCode: nullString(detail.AuthorizationCode),
		PaymentTypeCode:   nullString(string(detail.PaymentTypeCode)),
	}
	if detail.ResponseCode != nil {
		row.ResponseCode = sql.NullInt64{Int64: int64(*detail.ResponseCode), Valid: true}
	}
	if detail.InstallmentsNumber != 0 {
		row.InstallmentsNumber = sql.NullInt64{Int64: int64(detail.InstallmentsNumber), Valid: true}
	}
	if detail.Balance != nil {
		row.Balance = sql.NullInt64{Int64: *detail.Balance, Valid: true}
	}
	return row
}
