// Package mapper converts between domain entities and storage rows.
//
// The store runs on one of two schema generations (see
// storage.SchemaVersion); every conversion branches on the row's
// schema tag exhaustively. A value that has no column in the target
// schema is reported as an error, never dropped silently.
package mapper

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/pagoschile/oneclick-api/internal/domain"
	"github.com/pagoschile/oneclick-api/internal/storage"
)

// ErrFieldNotRepresentable means the target schema has no column for a
// field that carries data.
var ErrFieldNotRepresentable = errors.New("field not representable in target schema")

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// InscriptionToDomain rebuilds the entity from a row of either schema
// generation. Status comes from the explicit enum when the row has
// one, otherwise it is derived from the legacy active flag (true means
// COMPLETED, false PENDING). url_webpay defaults to empty on rows
// written before the column existed.
func InscriptionToDomain(row storage.InscriptionRow) (*domain.Inscription, error) {
	var status domain.InscriptionStatus
	switch row.Schema {
	case storage.SchemaCurrent:
		if !row.Status.Valid {
			return nil, fmt.Errorf("inscription %s: current-schema row without status", row.ID)
		}
		status = domain.InscriptionStatus(row.Status.String)
	case storage.SchemaLegacy:
		if row.IsActive.Valid && row.IsActive.Bool {
			status = domain.InscriptionCompleted
		} else {
			status = domain.InscriptionPending
		}
	default:
		return nil, fmt.Errorf("inscription %s: unknown schema %d", row.ID, row.Schema)
	}

	entity, err := domain.RestoreInscription(
		row.ID, row.Username, row.Email.String, row.TbkUser, row.URLWebpay.String, status)
	if err != nil {
		return nil, fmt.Errorf("inscription %s: %w", row.ID, err)
	}

	entity.AuthorizationCode = row.AuthorizationCode.String
	entity.FailureReason = row.FailureReason.String
	entity.CreatedAt = row.CreatedAt
	entity.UpdatedAt = row.UpdatedAt

	cardNumber := row.CardNumber.String
	if row.Schema == storage.SchemaLegacy {
		cardNumber = row.CardNumberMasked.String
	}
	if row.CardType.Valid && cardNumber != "" {
		card, err := domain.NewCardDetails(row.CardType.String, cardNumber)
		if err != nil {
			return nil, fmt.Errorf("inscription %s: %w", row.ID, err)
		}
		entity.CardDetails = &card
	}
	return entity, nil
}

// InscriptionToRow builds a fresh row for the target schema.
func InscriptionToRow(entity *domain.Inscription, schema storage.SchemaVersion) (storage.InscriptionRow, error) {
	row := storage.InscriptionRow{
		Schema:    schema,
		ID:        entity.ID,
		CreatedAt: entity.CreatedAt,
		UpdatedAt: entity.UpdatedAt,
	}
	if err := writeInscriptionFields(&row, entity); err != nil {
		return storage.InscriptionRow{}, err
	}
	return row, nil
}

// UpdateInscriptionRow writes the entity into an existing row in
// place, preserving identity and creation time.
func UpdateInscriptionRow(row *storage.InscriptionRow, entity *domain.Inscription) error {
	return writeInscriptionFields(row, entity)
}

func writeInscriptionFields(row *storage.InscriptionRow, entity *domain.Inscription) error {
	row.Username = entity.Username
	row.Email = nullString(entity.Email)
	row.TbkUser = entity.TbkUser
	row.AuthorizationCode = nullString(entity.AuthorizationCode)
	row.FailureReason = nullString(entity.FailureReason)

	switch row.Schema {
	case storage.SchemaCurrent:
		row.Status = nullString(string(entity.Status))
		row.URLWebpay = nullString(entity.URLWebpay)
		if entity.CardDetails != nil {
			row.CardType = nullString(entity.CardDetails.Type())
			row.CardNumber = nullString(entity.CardDetails.Number())
		}
	case storage.SchemaLegacy:
		if entity.URLWebpay != "" {
			return fmt.Errorf("%w: url_webpay", ErrFieldNotRepresentable)
		}
		row.IsActive = sql.NullBool{Bool: entity.Status == domain.InscriptionCompleted, Valid: true}
		if entity.CardDetails != nil {
			row.CardType = nullString(entity.CardDetails.Type())
			row.CardNumberMasked = nullString(entity.CardDetails.Number())
		}
	default:
		return fmt.Errorf("unknown schema %d", row.Schema)
	}
	return nil
}
