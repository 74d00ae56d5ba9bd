package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// InscriptionStatus is the lifecycle state of a card inscription.
type InscriptionStatus string

const (
	InscriptionPending   InscriptionStatus = "PENDING"
	InscriptionCompleted InscriptionStatus = "COMPLETED"
	InscriptionFailed    InscriptionStatus = "FAILED"
	InscriptionExpired   InscriptionStatus = "EXPIRED"
)

func (s InscriptionStatus) Valid() bool {
	switch s {
	case InscriptionPending, InscriptionCompleted, InscriptionFailed, InscriptionExpired:
		return true
	}
	return false
}

var (
	ErrUsernameTooShort  = errors.New("username must be at least 3 characters")
	ErrInvalidEmail      = errors.New("invalid email format")
	ErrTbkUserRequired   = errors.New("provider user token is required")
	ErrWebpayURLRequired = errors.New("webpay url is required")
	ErrAuthCodeRequired  = errors.New("authorization code is required")
	ErrInvalidStatus     = errors.New("invalid inscription status")
	ErrInvalidTransition = errors.New("invalid inscription transition")
)

// Inscription is a tokenized card registration. It is a pure business
// object with no storage dependency; all mutation goes through the
// named transitions below.
type Inscription struct {
	ID                string // empty until first persisted
	Username          string
	Email             string
	TbkUser           string
	URLWebpay         string
	Status            InscriptionStatus
	CardDetails       *CardDetails
	AuthorizationCode string
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewInscription builds a PENDING inscription, rejecting invalid input
// up front so an invalid entity never exists.
func NewInscription(username, email, tbkUser, urlWebpay string) (*Inscription, error) {
	i := &Inscription{
		Username:  username,
		Email:     email,
		TbkUser:   tbkUser,
		URLWebpay: urlWebpay,
		Status:    InscriptionPending,
	}
	if err := i.validate(); err != nil {
		return nil, err
	}
	return i, nil
}

// RestoreInscription rebuilds an inscription from persisted state.
// Rows written before the url_webpay column existed carry an empty
// URL, so that single rule is relaxed here.
func RestoreInscription(id, username, email, tbkUser, urlWebpay string, status InscriptionStatus) (*Inscription, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	i := &Inscription{
		ID:        id,
		Username:  username,
		Email:     email,
		TbkUser:   tbkUser,
		URLWebpay: urlWebpay,
		Status:    status,
	}
	if len(i.Username) < 3 {
		return nil, ErrUsernameTooShort
	}
	if !strings.Contains(i.Email, "@") {
		return nil, ErrInvalidEmail
	}
	if i.TbkUser == "" {
		return nil, ErrTbkUserRequired
	}
	return i, nil
}

func (i *Inscription) validate() error {
	if len(i.Username) < 3 {
		return ErrUsernameTooShort
	}
	if !strings.Contains(i.Email, "@") {
		return ErrInvalidEmail
	}
	if i.TbkUser == "" {
		return ErrTbkUserRequired
	}
	if i.URLWebpay == "" {
		return ErrWebpayURLRequired
	}
	return nil
}

// Complete finishes the inscription. Only a PENDING inscription can be
// completed, and the provider authorization code must be present.
func (i *Inscription) Complete(authorizationCode string, card CardDetails) error {
	if i.Status != InscriptionPending {
		return fmt.Errorf("%w: cannot complete inscription in %s status", ErrInvalidTransition, i.Status)
	}
	if authorizationCode == "" {
		return ErrAuthCodeRequired
	}
	i.Status = InscriptionCompleted
	i.AuthorizationCode = authorizationCode
	i.CardDetails = &card
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Expire marks a PENDING inscription as expired.
func (i *Inscription) Expire() error {
	if i.Status != InscriptionPending {
		return fmt.Errorf("%w: cannot expire inscription in %s status", ErrInvalidTransition, i.Status)
	}
	i.Status = InscriptionExpired
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail marks the inscription as failed from any state.
func (i *Inscription) Fail(reason string) {
	i.Status = InscriptionFailed
	i.FailureReason = reason
	i.UpdatedAt = time.Now().UTC()
}

// IsActive reports whether the inscription is usable for charges.
func (i *Inscription) IsActive() bool {
	return i.Status == InscriptionCompleted
}
