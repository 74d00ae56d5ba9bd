// Package provider talks to the Oneclick Mall payment provider. The
// rest of the system treats it as an opaque remote service: calls
// either succeed with structured detail records or fail with a
// wrapped communication error.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCommunication wraps any transport or protocol failure talking to
// the provider. The original cause is preserved in the chain.
var ErrCommunication = errors.New("provider communication error")

// RejectionError is a normally-completed call the provider answered
// with a nonzero response code. Distinct from ErrCommunication.
type RejectionError struct {
	ResponseCode int
	Message      string
}

func (e *RejectionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rejected by provider (code %d): %s", e.ResponseCode, e.Message)
	}
	return fmt.Sprintf("rejected by provider (code %d)", e.ResponseCode)
}

type StartResponse struct {
	Token     string `json:"token"`
	URLWebpay string `json:"url_webpay"`
}

type FinishResponse struct {
	TbkUser           string `json:"tbk_user"`
	ResponseCode      int    `json:"response_code"`
	AuthorizationCode string `json:"authorization_code"`
	CardType          string `json:"card_type"`
	CardNumber        string `json:"card_number"`
}

type AuthorizeDetailRequest struct {
	CommerceCode       string `json:"commerce_code"`
	BuyOrder           string `json:"buy_order"`
	Amount             int64  `json:"amount"`
	InstallmentsNumber int    `json:"installments_number"`
}

type DetailResponse struct {
	CommerceCode       string `json:"commerce_code"`
	BuyOrder           string `json:"buy_order"`
	Amount             int64  `json:"amount"`
	AuthorizationCode  string `json:"authorization_code"`
	PaymentTypeCode    string `json:"payment_type_code"`
	ResponseCode       int    `json:"response_code"`
	InstallmentsNumber int    `json:"installments_number"`
	Balance            *int64 `json:"balance,omitempty"`
}

type CardDetail struct {
	CardNumber string `json:"card_number"`
}

type AuthorizeResponse struct {
	ParentBuyOrder  string           `json:"parent_buy_order"`
	SessionID       string           `json:"session_id"`
	CardDetail      CardDetail       `json:"card_detail"`
	AccountingDate  string           `json:"accounting_date"`
	TransactionDate time.Time        `json:"transaction_date"`
	Details         []DetailResponse `json:"details"`
}

type StatusResponse struct {
	BuyOrder        string           `json:"buy_order"`
	SessionID       string           `json:"session_id"`
	CardDetail      CardDetail       `json:"card_detail"`
	AccountingDate  string           `json:"accounting_date"`
	TransactionDate time.Time        `json:"transaction_date"`
	Details         []DetailResponse `json:"details"`
}

type CaptureResponse struct {
	AuthorizationCode string    `json:"authorization_code"`
	AuthorizationDate time.Time `json:"authorization_date"`
	CapturedAmount    int64     `json:"captured_amount"`
	ResponseCode      int       `json:"response_code"`
}

type RefundResponse struct {
	Type           string `json:"type"`
	ResponseCode   int    `json:"response_code"`
	ReversedAmount int64  `json:"reversed_amount"`
}

// Client is the provider collaborator consumed by the service layer.
type Client interface {
	StartInscription(ctx context.Context, username, email, responseURL string) (StartResponse, error)
	FinishInscription(ctx context.Context, token string) (FinishResponse, error)
	DeleteInscription(ctx context.Context, tbkUser, username string) error
	Authorize(ctx context.Context, username, tbkUser, parentBuyOrder string, details []AuthorizeDetailRequest) (AuthorizeResponse, error)
	Status(ctx context.Context, childBuyOrder string) (StatusResponse, error)
	Capture(ctx context.Context, childCommerceCode, childBuyOrder, authorizationCode string, amount int64) (CaptureResponse, error)
	Refund(ctx context.Context, childCommerceCode, childBuyOrder string, amount int64) (RefundResponse, error)
}
