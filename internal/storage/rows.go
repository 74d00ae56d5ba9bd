package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrInscriptionNotFound = errors.New("inscription not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateBuyOrder   = errors.New("buy order already exists")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrUserNotFound        = errors.New("user not found")
)

// SchemaVersion tags which generation of the storage schema a row was
// read from or should be written to. The mapper branches on this tag
// exhaustively instead of probing fields at runtime.
type SchemaVersion int

const (
	// SchemaLegacy is the pre-migration shape: boolean is_active flag,
	// card_number_masked column, parent_buy_order column, no url_webpay.
	SchemaLegacy SchemaVersion = iota
	// SchemaCurrent is the post-migration shape: explicit status enum,
	// card_number and buy_order columns, url_webpay present.
	SchemaCurrent
)

func (s SchemaVersion) String() string {
	if s == SchemaLegacy {
		return "legacy"
	}
	return "current"
}

// InscriptionRow carries both column generations; only the set that
// matches Schema is populated.
type InscriptionRow struct {
	Schema            SchemaVersion
	ID                string
	Username          string
	Email             sql.NullString
	TbkUser           string
	AuthorizationCode sql.NullString
	FailureReason     sql.NullString
	CardType          sql.NullString

	// legacy columns
	CardNumberMasked sql.NullString
	IsActive         sql.NullBool

	// current columns
	CardNumber sql.NullString
	Status     sql.NullString
	URLWebpay  sql.NullString

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransactionRow is the aggregate-root row; details live in
// TransactionDetailRow keyed by TransactionID.
type TransactionRow struct {
	Schema          SchemaVersion
	ID              string
	Username        string
	InscriptionID   sql.NullString
	SessionID       sql.NullString
	TransactionDate time.Time
	AccountingDate  sql.NullString
	TotalAmount     int64
	Status          string

	// legacy columns
	ParentBuyOrder   sql.NullString
	CardNumberMasked sql.NullString

	// current columns
	BuyOrder   sql.NullString
	CardNumber sql.NullString

	CreatedAt time.Time
}

type TransactionDetailRow struct {
	ID                 string
	TransactionID      string
	CommerceCode       string
	BuyOrder           string
	Amount             int64
	Status             string
	AuthorizationCode  sql.NullString
	PaymentTypeCode    sql.NullString
	ResponseCode       sql.NullInt64
	InstallmentsNumber sql.NullInt64
	Balance            sql.NullInt64
	CreatedAt          time.Time
}

// UserAuthRow backs API client authentication.
type UserAuthRow struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// InscriptionStore is row-level persistence for inscriptions. Lookups
// return ErrInscriptionNotFound when nothing matches.
type InscriptionStore interface {
	CreateInscription(ctx context.Context, row InscriptionRow) (InscriptionRow, error)
	GetInscription(ctx context.Context, id string) (InscriptionRow, error)
	ListInscriptions(ctx context.Context, skip, limit int) ([]InscriptionRow, error)
	UpdateInscription(ctx context.Context, row InscriptionRow) (InscriptionRow, error)
	DeleteInscription(ctx context.Context, id string) (bool, error)

	GetInscriptionByUsername(ctx context.Context, username string) (InscriptionRow, error)
	GetInscriptionByTbkUser(ctx context.Context, tbkUser string) (InscriptionRow, error)
	GetActiveInscriptionByUsername(ctx context.Context, username string) (InscriptionRow, error)
	ListPendingInscriptionsBefore(ctx context.Context, cutoff time.Time) ([]InscriptionRow, error)
}

// TransactionStore is row-level persistence for transactions and their
// details. CreateTransactionWithDetails persists the aggregate as one
// logical unit and reports ErrDuplicateBuyOrder on a buy-order clash;
// the unique index is the authoritative duplicate guard.
type TransactionStore interface {
	CreateTransactionWithDetails(ctx context.Context, row TransactionRow, details []TransactionDetailRow) (TransactionRow, error)
	GetTransactionWithDetails(ctx context.Context, id string) (TransactionRow, []TransactionDetailRow, error)
	ListTransactionsByUsername(ctx context.Context, username string, skip, limit int) ([]TransactionRow, error)
	GetTransactionByBuyOrder(ctx context.Context, buyOrder string) (TransactionRow, error)
	GetTransactionDetails(ctx context.Context, transactionID string) ([]TransactionDetailRow, error)
}

// UserStore backs register/login.
type UserStore interface {
	CreateUser(ctx context.Context, row UserAuthRow) error
	GetUserAuth(ctx context.Context, username string) (UserAuthRow, error)
}
