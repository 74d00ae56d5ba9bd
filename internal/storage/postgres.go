package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

// PostgresStore implements the row stores over a live database. The
// schema generation the deployment runs on is fixed at construction;
// queries and scans are written per generation rather than probing
// column presence at runtime.
type PostgresStore struct {
	DB     *sql.DB
	schema SchemaVersion
}

func NewPostgres(dsn string, schema SchemaVersion) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(15)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &PostgresStore{DB: db, schema: schema}, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

// Inscriptions

func (p *PostgresStore) inscriptionSelect() string {
	if p.schema == SchemaCurrent {
		return `SELECT id, username, email, tbk_user, url_webpay, status, card_type, card_number,
			authorization_code, failure_reason, created_at, updated_at
			FROM oneclick_inscriptions`
	}
	return `SELECT id, username, email, tbk_user, card_type, card_number_masked, is_active,
		authorization_code, failure_reason, created_at, updated_at
		FROM oneclick_inscriptions`
}

func (p *PostgresStore) scanInscription(row interface{ Scan(...any) error }) (InscriptionRow, error) {
	r := InscriptionRow{Schema: p.schema}
	var err error
	if p.schema == SchemaCurrent {
		err = row.Scan(&r.ID, &r.Username, &r.Email, &r.TbkUser, &r.URLWebpay, &r.Status,
			&r.CardType, &r.CardNumber, &r.AuthorizationCode, &r.FailureReason, &r.CreatedAt, &r.UpdatedAt)
	} else {
		err = row.Scan(&r.ID, &r.Username, &r.Email, &r.TbkUser, &r.CardType, &r.CardNumberMasked,
			&r.IsActive, &r.AuthorizationCode, &r.FailureReason, &r.CreatedAt, &r.UpdatedAt)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return InscriptionRow{}, ErrInscriptionNotFound
		}
		return InscriptionRow{}, err
	}
	return r, nil
}

func (p *PostgresStore) CreateInscription(ctx context.Context, row InscriptionRow) (InscriptionRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	var err error
	if p.schema == SchemaCurrent {
		_, err = p.DB.ExecContext(ctx, `
			INSERT INTO oneclick_inscriptions
				(id, username, email, tbk_user, url_webpay, status, card_type, card_number,
				 authorization_code, failure_reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			row.ID, row.Username, row.Email, row.TbkUser, row.URLWebpay, row.Status,
			row.CardType, row.CardNumber, row.AuthorizationCode, row.FailureReason)
	} else {
		_, err = p.DB.ExecContext(ctx, `
			INSERT INTO oneclick_inscriptions
				(id, username, email, tbk_user, card_type, card_number_masked, is_active,
				 authorization_code, failure_reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			row.ID, row.Username, row.Email, row.TbkUser,
			row.CardType, row.CardNumberMasked, row.IsActive, row.AuthorizationCode, row.FailureReason)
	}
	if err != nil {
		return InscriptionRow{}, err
	}
	return p.GetInscription(ctx, row.ID)
}

func (p *PostgresStore) GetInscription(ctx context.Context, id string) (InscriptionRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.scanInscription(p.DB.QueryRowContext(ctx, p.inscriptionSelect()+` WHERE id = $1`, id))
}

func (p *PostgresStore) ListInscriptions(ctx context.Context, skip, limit int) ([]InscriptionRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := p.DB.QueryContext(ctx, p.inscriptionSelect()+` ORDER BY created_at OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return p.collectInscriptions(rows)
}

func (p *PostgresStore) collectInscriptions(rows *sql.Rows) ([]InscriptionRow, error) {
	var out []InscriptionRow
	for rows.Next() {
		r, err := p.scanInscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) UpdateInscription(ctx context.Context, row InscriptionRow) (InscriptionRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var res sql.Result
	var err error
	if p.schema == SchemaCurrent {
		res, err = p.DB.ExecContext(ctx, `
			UPDATE oneclick_inscriptions
			SET username = $2, email = $3, tbk_user = $4, url_webpay = $5, status = $6,
			    card_type = $7, card_number = $8, authorization_code = $9, failure_reason = $10,
			    updated_at = now()
			WHERE id = $1`,
			row.ID, row.Username, row.Email, row.TbkUser, row.URLWebpay, row.Status,
			row.CardType, row.CardNumber, row.AuthorizationCode, row.FailureReason)
	} else {
		res, err = p.DB.ExecContext(ctx, `
			UPDATE oneclick_inscriptions
			SET username = $2, email = $3, tbk_user = $4, card_type = $5, card_number_masked = $6,
			    is_active = $7, authorization_code = $8, failure_reason = $9, updated_at = now()
			WHERE id = $1`,
			row.ID, row.Username, row.Email, row.TbkUser,
			row.CardType, row.CardNumberMasked, row.IsActive, row.AuthorizationCode, row.FailureReason)
	}
	if err != nil {
		return InscriptionRow{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return InscriptionRow{}, ErrInscriptionNotFound
	}
	return p.GetInscription(ctx, row.ID)
}

func (p *PostgresStore) DeleteInscription(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := p.DB.ExecContext(ctx, `DELETE FROM oneclick_inscriptions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (p *PostgresStore) GetInscriptionByUsername(ctx context.Context, username string) (InscriptionRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.scanInscription(p.DB.QueryRowContext(ctx, p.inscriptionSelect()+` WHERE username = $1`, username))
}

func (p *PostgresStore) GetInscriptionByTbkUser(ctx context.Context, tbkUser string) (InscriptionRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.scanInscription(p.DB.QueryRowContext(ctx, p.inscriptionSelect()+` WHERE tbk_user = $1`, tbkUser))
}

func (p *PostgresStore) GetActiveInscriptionByUsername(ctx context.Context, username string) (InscriptionRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	cond := ` WHERE username = $1 AND is_active`
	if p.schema == SchemaCurrent {
		cond = ` WHERE username = $1 AND status = 'COMPLETED'`
	}
	return p.scanInscription(p.DB.QueryRowContext(ctx, p.inscriptionSelect()+cond, username))
}

func (p *PostgresStore) ListPendingInscriptionsBefore(ctx context.Context, cutoff time.Time) ([]InscriptionRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cond := ` WHERE NOT is_active AND created_at < $1`
	if p.schema == SchemaCurrent {
		cond = ` WHERE status = 'PENDING' AND created_at < $1`
	}
	rows, err := p.DB.QueryContext(ctx, p.inscriptionSelect()+cond, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return p.collectInscriptions(rows)
}

// Transactions

func (p *PostgresStore) transactionSelect() string {
	if p.schema == SchemaCurrent {
		return `SELECT id, username, inscription_id, buy_order, session_id, transaction_date,
			accounting_date, total_amount, card_number, status, created_at
			FROM oneclick_transactions`
	}
	return `SELECT id, username, inscription_id, parent_buy_order, session_id, transaction_date,
		accounting_date, total_amount, card_number_masked, status, created_at
		FROM oneclick_transactions`
}

func (p *PostgresStore) scanTransaction(row interface{ Scan(...any) error }) (TransactionRow, error) {
	r := TransactionRow{Schema: p.schema}
	var err error
	if p.schema == SchemaCurrent {
		err = row.Scan(&r.ID, &r.Username, &r.InscriptionID, &r.BuyOrder, &r.SessionID,
			&r.TransactionDate, &r.AccountingDate, &r.TotalAmount, &r.CardNumber, &r.Status, &r.CreatedAt)
	} else {
		err = row.Scan(&r.ID, &r.Username, &r.InscriptionID, &r.ParentBuyOrder, &r.SessionID,
			&r.TransactionDate, &r.AccountingDate, &r.TotalAmount, &r.CardNumberMasked, &r.Status, &r.CreatedAt)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TransactionRow{}, ErrTransactionNotFound
		}
		return TransactionRow{}, err
	}
	return r, nil
}

// CreateTransactionWithDetails persists the transaction and all its
// child details inside one database transaction, so a record is never
// visible without its initial detail set. The unique index on the buy
// order column is the authoritative duplicate guard.
func (p *PostgresStore) CreateTransactionWithDetails(ctx context.Context, row TransactionRow, details []TransactionDetailRow) (TransactionRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return TransactionRow{}, err
	}
	defer tx.Rollback()

	if p.schema == SchemaCurrent {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO oneclick_transactions
				(id, username, inscription_id, buy_order, session_id, transaction_date,
				 accounting_date, total_amount, card_number, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			row.ID, row.Username, row.InscriptionID, row.BuyOrder, row.SessionID,
			row.TransactionDate, row.AccountingDate, row.TotalAmount, row.CardNumber, row.Status)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO oneclick_transactions
				(id, username, inscription_id, parent_buy_order, session_id, transaction_date,
				 accounting_date, total_amount, card_number_masked, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			row.ID, row.Username, row.InscriptionID, row.ParentBuyOrder, row.SessionID,
			row.TransactionDate, row.AccountingDate, row.TotalAmount, row.CardNumberMasked, row.Status)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return TransactionRow{}, ErrDuplicateBuyOrder
		}
		return TransactionRow{}, err
	}

	for _, d := range details {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO oneclick_transaction_details
				(id, transaction_id, commerce_code, buy_order, amount, status,
				 authorization_code, payment_type_code, response_code, installments_number, balance)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			d.ID, row.ID, d.CommerceCode, d.BuyOrder, d.Amount, d.Status,
			d.AuthorizationCode, d.PaymentTypeCode, d.ResponseCode, d.InstallmentsNumber, d.Balance)
		if err != nil {
			return TransactionRow{}, fmt.Errorf("insert detail %s: %w", d.BuyOrder, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return TransactionRow{}, err
	}
	return p.getTransaction(ctx, row.ID)
}

func (p *PostgresStore) getTransaction(ctx context.Context, id string) (TransactionRow, error) {
	return p.scanTransaction(p.DB.QueryRowContext(ctx, p.transactionSelect()+` WHERE id = $1`, id))
}

func (p *PostgresStore) GetTransactionWithDetails(ctx context.Context, id string) (TransactionRow, []TransactionDetailRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	r, err := p.getTransaction(ctx, id)
	if err != nil {
		return TransactionRow{}, nil, err
	}
	details, err := p.GetTransactionDetails(ctx, id)
	if err != nil {
		return TransactionRow{}, nil, err
	}
	return r, details, nil
}

func (p *PostgresStore) ListTransactionsByUsername(ctx context.Context, username string, skip, limit int) ([]TransactionRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := p.DB.QueryContext(ctx,
		p.transactionSelect()+` WHERE username = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`,
		username, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionRow
	for rows.Next() {
		r, err := p.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) GetTransactionByBuyOrder(ctx context.Context, buyOrder string) (TransactionRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	cond := ` WHERE parent_buy_order = $1`
	if p.schema == SchemaCurrent {
		cond = ` WHERE buy_order = $1`
	}
	return p.scanTransaction(p.DB.QueryRowContext(ctx, p.transactionSelect()+cond, buyOrder))
}

func (p *PostgresStore) GetTransactionDetails(ctx context.Context, transactionID string) ([]TransactionDetailRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := p.DB.QueryContext(ctx, `
		SELECT id, transaction_id, commerce_code, buy_order, amount, status,
		       authorization_code, payment_type_code, response_code, installments_number, balance, created_at
		FROM oneclick_transaction_details
		WHERE transaction_id = $1
		ORDER BY created_at`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionDetailRow
	for rows.Next() {
		var d TransactionDetailRow
		if err := rows.Scan(&d.ID, &d.TransactionID, &d.CommerceCode, &d.BuyOrder, &d.Amount, &d.Status,
			&d.AuthorizationCode, &d.PaymentTypeCode, &d.ResponseCode, &d.InstallmentsNumber, &d.Balance, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Users

func (p *PostgresStore) CreateUser(ctx context.Context, row UserAuthRow) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO api_users (username, password_hash) VALUES ($1, $2)`,
		row.Username, row.PasswordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

func (p *PostgresStore) GetUserAuth(ctx context.Context, username string) (UserAuthRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var r UserAuthRow
	err := p.DB.QueryRowContext(ctx,
		`SELECT username, password_hash, created_at FROM api_users WHERE username = $1`, username).
		Scan(&r.Username, &r.PasswordHash, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserAuthRow{}, ErrUserNotFound
		}
		return UserAuthRow{}, err
	}
	return r, nil
}
