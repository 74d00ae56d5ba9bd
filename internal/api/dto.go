package api

import "time"

// Inscription payloads

type StartInscriptionRequest struct {
	Username    string `json:"username"     validate:"required,min=3,max=64"`
	Email       string `json:"email"        validate:"required,email"`
	ResponseURL string `json:"response_url" validate:"required,url"`
}

type FinishInscriptionRequest struct {
	Token string `json:"token" validate:"required"`
}

type CardResponse struct {
	Type   string `json:"card_type"`
	Number string `json:"card_number"`
}

type InscriptionResponse struct {
	ID                string        `json:"id"`
	Username          string        `json:"username"`
	Email             string        `json:"email"`
	Status            string        `json:"status"`
	URLWebpay         string        `json:"url_webpay,omitempty"`
	Token             string        `json:"token,omitempty"` // start token, only while PENDING
	AuthorizationCode string        `json:"authorization_code,omitempty"`
	Card              *CardResponse `json:"card,omitempty"`
	FailureReason     string        `json:"failure_reason,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Transaction payloads

type AuthorizeDetailRequest struct {
	CommerceCode string `json:"commerce_code" validate:"required"`
	BuyOrder     string `json:"buy_order"     validate:"required,max=26"`
	Amount       int64  `json:"amount"        validate:"required,gt=0"`
	Installments int    `json:"installments_number" validate:"gte=0"`
}

type AuthorizeRequest struct {
	Username string                   `json:"username"  validate:"required,min=3,max=64"`
	BuyOrder string                   `json:"buy_order" validate:"required,max=26"`
	Details  []AuthorizeDetailRequest `json:"details"   validate:"required,min=1,dive"`
}

type TransactionDetailResponse struct {
	CommerceCode       string `json:"commerce_code"`
	BuyOrder           string `json:"buy_order"`
	Amount             int64  `json:"amount"`
	Status             string `json:"status"`
	AuthorizationCode  string `json:"authorization_code,omitempty"`
	PaymentTypeCode    string `json:"payment_type_code,omitempty"`
	ResponseCode       *int   `json:"response_code"`
	InstallmentsNumber int    `json:"installments_number"`
	Balance            *int64 `json:"balance,omitempty"`
}

type TransactionResponse struct {
	ID              string                      `json:"id"`
	Username        string                      `json:"username"`
	BuyOrder        string                      `json:"buy_order"`
	TotalAmount     int64                       `json:"total_amount"`
	FullyAuthorized bool                        `json:"fully_authorized"`
	SessionID       string                      `json:"session_id,omitempty"`
	CardNumber      string                      `json:"card_number,omitempty"`
	AccountingDate  string                      `json:"accounting_date,omitempty"`
	TransactionDate time.Time                   `json:"transaction_date"`
	Details         []TransactionDetailResponse `json:"details"`
	CreatedAt       time.Time                   `json:"created_at"`
}

type CaptureRequest struct {
	CommerceCode      string `json:"commerce_code"      validate:"required"`
	BuyOrder          string `json:"buy_order"          validate:"required,max=26"`
	AuthorizationCode string `json:"authorization_code" validate:"required"`
	Amount            int64  `json:"capture_amount"     validate:"required,gt=0"`
}

type RefundRequest struct {
	DetailBuyOrder string `json:"detail_buy_order" validate:"required,max=26"`
	Amount         int64  `json:"amount"           validate:"required,gt=0"`
}

// Auth payloads

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
