package domain

import (
	"errors"
	"fmt"
	"time"
)

// TransactionStatus is the provider-facing state of a charge detail.
type TransactionStatus string

const (
	TransactionAuthorized TransactionStatus = "AUTHORIZED"
	TransactionReversed   TransactionStatus = "REVERSED"
	TransactionFailed     TransactionStatus = "FAILED"
	TransactionCaptured   TransactionStatus = "CAPTURED"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionAuthorized, TransactionReversed, TransactionFailed, TransactionCaptured:
		return true
	}
	return false
}

// PaymentType is a provider payment-method code.
type PaymentType string

const (
	PaymentDebit         PaymentType = "VD"
	PaymentCredit        PaymentType = "VN"
	PaymentThreeInstalls PaymentType = "VC"
	PaymentPrepaid       PaymentType = "VP"
	PaymentNoCVV         PaymentType = "S2"
	PaymentNoCVVInstalls PaymentType = "SI"
)

// buy_order is capped by the provider at 26 characters.
const maxBuyOrderLen = 26

var (
	ErrUsernameRequired     = errors.New("username is required")
	ErrBuyOrderRequired     = errors.New("buy order is required")
	ErrBuyOrderTooLong      = fmt.Errorf("buy order must be max %d characters", maxBuyOrderLen)
	ErrCommerceCodeRequired = errors.New("commerce code is required")
	ErrDuplicateDetail      = errors.New("detail already exists in transaction")
	ErrNoDetails            = errors.New("transaction has no details")
)

// TransactionDetail is the per-commerce leg of a mall transaction.
type TransactionDetail struct {
	ID                 string
	CommerceCode       string
	BuyOrder           string
	Amount             Amount
	Status             TransactionStatus
	AuthorizationCode  string
	PaymentTypeCode    PaymentType
	ResponseCode       *int // nil until the provider has answered; 0 means approved
	InstallmentsNumber int
	Balance            *int64
}

// NewTransactionDetail validates the per-detail invariants. Optional
// provider fields are set by the caller after construction.
func NewTransactionDetail(commerceCode, buyOrder string, amount Amount, status TransactionStatus) (*TransactionDetail, error) {
	if commerceCode == "" {
		return nil, ErrCommerceCodeRequired
	}
	if buyOrder == "" {
		return nil, ErrBuyOrderRequired
	}
	if len(buyOrder) > maxBuyOrderLen {
		return nil, ErrBuyOrderTooLong
	}
	return &TransactionDetail{
		CommerceCode: commerceCode,
		BuyOrder:     buyOrder,
		Amount:       amount,
		Status:       status,
	}, nil
}

// IsAuthorized reports whether this detail was approved: authorized
// status, a zero response code and an authorization code present.
func (d *TransactionDetail) IsAuthorized() bool {
	return d.Status == TransactionAuthorized &&
		d.ResponseCode != nil && *d.ResponseCode == 0 &&
		d.AuthorizationCode != ""
}

// IsReversible reports whether this detail can still be reversed.
func (d *TransactionDetail) IsReversible() bool {
	return d.Status == TransactionAuthorized
}

// Transaction is the aggregate root for a mall authorization spanning
// multiple sub-commerces, one detail per commerce.
type Transaction struct {
	ID              string // empty until first persisted
	Username        string
	BuyOrder        string
	Details         []*TransactionDetail
	InscriptionID   string
	SessionID       string
	CardNumber      string
	AccountingDate  string
	TransactionDate time.Time
	CreatedAt       time.Time
}

func NewTransaction(username, buyOrder string) (*Transaction, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if buyOrder == "" {
		return nil, ErrBuyOrderRequired
	}
	if len(buyOrder) > maxBuyOrderLen {
		return nil, ErrBuyOrderTooLong
	}
	return &Transaction{Username: username, BuyOrder: buyOrder}, nil
}

// AddDetail appends a detail, rejecting duplicates. Two details are
// the same when they are the same object or target the same commerce
// with the same child buy order.
func (t *Transaction) AddDetail(detail *TransactionDetail) error {
	for _, d := range t.Details {
		if d == detail || (d.CommerceCode == detail.CommerceCode && d.BuyOrder == detail.BuyOrder) {
			return ErrDuplicateDetail
		}
	}
	t.Details = append(t.Details, detail)
	return nil
}

// TotalAmount sums all detail amounts. A transaction without details
// has no meaningful total and is reported as an error rather than a
// zero Amount, which the Amount invariant would reject anyway.
func (t *Transaction) TotalAmount() (Amount, error) {
	if len(t.Details) == 0 {
		return Amount{}, ErrNoDetails
	}
	var total int64
	for _, d := range t.Details {
		total += d.Amount.Value()
	}
	return NewAmount(total)
}

// IsFullyAuthorized reports whether every detail was individually
// approved. Partial approvals (some commerces approved, others
// declined in the same call) yield false without being an error.
func (t *Transaction) IsFullyAuthorized() bool {
	if len(t.Details) == 0 {
		return false
	}
	for _, d := range t.Details {
		if !d.IsAuthorized() {
			return false
		}
	}
	return true
}

// HasFailedDetails reports whether any detail failed.
func (t *Transaction) HasFailedDetails() bool {
	for _, d := range t.Details {
		if d.Status == TransactionFailed {
			return true
		}
	}
	return false
}

// AuthorizedDetails returns only the approved details.
func (t *Transaction) AuthorizedDetails() []*TransactionDetail {
	var out []*TransactionDetail
	for _, d := range t.Details {
		if d.IsAuthorized() {
			out = append(out, d)
		}
	}
	return out
}

// CanBeRefunded reports whether the whole transaction is refundable.
func (t *Transaction) CanBeRefunded() bool {
	return t.IsFullyAuthorized()
}
