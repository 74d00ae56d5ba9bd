package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pagoschile/oneclick-api/internal/domain"
	"github.com/pagoschile/oneclick-api/internal/provider"
	"github.com/pagoschile/oneclick-api/internal/service"
	"github.com/pagoschile/oneclick-api/internal/storage"
)

// Service is the application surface the handlers depend on.
type Service interface {
	StartInscription(ctx context.Context, username, email, responseURL string) (*domain.Inscription, error)
	FinishInscription(ctx context.Context, token string) (*domain.Inscription, error)
	GetInscription(ctx context.Context, username string) (*domain.Inscription, error)
	DeleteInscription(ctx context.Context, username string) error
	AuthorizeTransaction(ctx context.Context, username, buyOrder string, details []service.DetailInput) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, buyOrder string) (*domain.Transaction, error)
	TransactionHistory(ctx context.Context, username string, skip, limit int) ([]*domain.Transaction, error)
	TransactionStatus(ctx context.Context, childBuyOrder string) (provider.StatusResponse, error)
	CaptureTransaction(ctx context.Context, commerceCode, childBuyOrder, authorizationCode string, amount int64) (provider.CaptureResponse, error)
	RefundTransaction(ctx context.Context, parentBuyOrder, childBuyOrder string, amount int64) (provider.RefundResponse, error)
}

type Handlers struct {
	Log          *zap.Logger
	Svc          Service
	V            *validator.Validate
	DBPing       func(ctx context.Context) error
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// respondError maps domain and infrastructure errors onto HTTP status
// codes in one place so every handler reports consistently.
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrInscriptionNotFound),
		errors.Is(err, storage.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrDuplicateBuyOrder),
		errors.Is(err, service.ErrNoActiveInscription),
		errors.Is(err, service.ErrNotRefundable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, provider.ErrCommunication):
		h.Log.Error("provider unreachable", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
	case errors.Is(err, domain.ErrAmountNegative),
		errors.Is(err, domain.ErrAmountZero),
		errors.Is(err, domain.ErrBuyOrderTooLong),
		errors.Is(err, domain.ErrBuyOrderRequired),
		errors.Is(err, domain.ErrCommerceCodeRequired),
		errors.Is(err, domain.ErrDuplicateDetail),
		errors.Is(err, domain.ErrNoDetails),
		errors.Is(err, domain.ErrUsernameTooShort),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.Log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// health handler
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()

	db := "ok"
	if h.DBPing != nil {
		if err := h.DBPing(ctx); err != nil {
			db = "down"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"db":            db,
		"kafka_enabled": h.KafkaEnabled,
	})
}

// inscription handlers

// StartInscription godoc
// @Summary      Start a card inscription
// @Description  Opens an inscription with the payment provider and returns the redirect URL.
// @Tags         inscriptions
// @Accept       json
// @Produce      json
// @Param        payload  body      StartInscriptionRequest  true  "Inscription payload"
// @Success      201      {object}  InscriptionResponse
// @Failure      422      {object}  map[string]string
// @Failure      502      {object}  map[string]string
// @Security     BearerAuth
// @Router       /inscriptions [post]
func (h *Handlers) StartInscription(c *gin.Context) {
	var req StartInscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.V.Struct(req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	entity, err := h.Svc.StartInscription(c.Request.Context(), req.Username, req.Email, req.ResponseURL)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inscriptionResponse(entity))
}

// FinishInscription godoc
// @Summary      Finish a card inscription
// @Description  Confirms the inscription identified by the start token. A provider rejection is reported through the FAILED status, not an error.
// @Tags         inscriptions
// @Accept       json
// @Produce      json
// @Param        payload  body      FinishInscriptionRequest  true  "Finish payload"
// @Success      200      {object}  InscriptionResponse
// @Failure      404      {object}  map[string]string
// @Failure      502      {object}  map[string]string
// @Security     BearerAuth
// @Router       /inscriptions/finish [put]
func (h *Handlers) FinishInscription(c *gin.Context) {
	var req FinishInscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.V.Struct(req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	entity, err := h.Svc.FinishInscription(c.Request.Context(), req.Token)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inscriptionResponse(entity))
}

func (h *Handlers) GetInscription(c *gin.Context) {
	entity, err := h.Svc.GetInscription(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inscriptionResponse(entity))
}

// DeleteInscription godoc
// @Summary      Delete a card inscription
// @Description  Removes the user's active card from the provider and deletes the local record.
// @Tags         inscriptions
// @Produce      json
// @Param        username  path  string  true  "Username"
// @Success      204
// @Failure      409  {object}  map[string]string
// @Security     BearerAuth
// @Router       /inscriptions/{username} [delete]
func (h *Handlers) DeleteInscription(c *gin.Context) {
	if err := h.Svc.DeleteInscription(c.Request.Context(), c.Param("username")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// transaction handlers

// AuthorizeTransaction godoc
// @Summary      Authorize a mall transaction
// @Description  Charges the user's registered card across one or more sub-commerces in a single call.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        payload  body      AuthorizeRequest  true  "Authorization payload"
// @Success      201      {object}  TransactionResponse
// @Failure      409      {object}  map[string]string
// @Failure      422      {object}  map[string]string
// @Failure      502      {object}  map[string]string
// @Security     BearerAuth
// @Router       /transactions [post]
func (h *Handlers) AuthorizeTransaction(c *gin.Context) {
	var req AuthorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.V.Struct(req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	details := make([]service.DetailInput, 0, len(req.Details))
	for _, d := range req.Details {
		details = append(details, service.DetailInput{
			CommerceCode: d.CommerceCode,
			BuyOrder:     d.BuyOrder,
			Amount:       d.Amount,
			Installments: d.Installments,
		})
	}
	tx, err := h.Svc.AuthorizeTransaction(c.Request.Context(), req.Username, req.BuyOrder, details)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transactionResponse(tx))
}

func (h *Handlers) GetTransaction(c *gin.Context) {
	tx, err := h.Svc.GetTransaction(c.Request.Context(), c.Param("buy_order"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactionResponse(tx))
}

// TransactionHistory godoc
// @Summary      List a user's transactions
// @Description  Returns the user's transactions newest first, paginated with skip and limit.
// @Tags         transactions
// @Produce      json
// @Param        username  path   string  true   "Username"
// @Param        skip      query  int     false  "Offset"    default(0)
// @Param        limit     query  int     false  "Page size" default(20)
// @Success      200  {array}  TransactionResponse
// @Security     BearerAuth
// @Router       /users/{username}/transactions [get]
func (h *Handlers) TransactionHistory(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	txs, err := h.Svc.TransactionHistory(c.Request.Context(), c.Param("username"), skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse(tx))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) TransactionStatus(c *gin.Context) {
	resp, err := h.Svc.TransactionStatus(c.Request.Context(), c.Param("buy_order"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) CaptureTransaction(c *gin.Context) {
	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.V.Struct(req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.Svc.CaptureTransaction(c.Request.Context(), req.CommerceCode, req.BuyOrder, req.AuthorizationCode, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RefundTransaction godoc
// @Summary      Refund one charge leg
// @Description  Refunds one detail of a fully authorized transaction.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        buy_order  path      string         true  "Parent buy order"
// @Param        payload    body      RefundRequest  true  "Refund payload"
// @Success      200        {object}  provider.RefundResponse
// @Failure      409        {object}  map[string]string
// @Security     BearerAuth
// @Router       /transactions/{buy_order}/refunds [post]
func (h *Handlers) RefundTransaction(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.V.Struct(req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.Svc.RefundTransaction(c.Request.Context(), c.Param("buy_order"), req.DetailBuyOrder, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// response mapping

func inscriptionResponse(i *domain.Inscription) InscriptionResponse {
	resp := InscriptionResponse{
		ID:                i.ID,
		Username:          i.Username,
		Email:             i.Email,
		Status:            string(i.Status),
		AuthorizationCode: i.AuthorizationCode,
		FailureReason:     i.FailureReason,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
	}
	if i.Status == domain.InscriptionPending {
		// before completion TbkUser still holds the start token
		resp.Token = i.TbkUser
		resp.URLWebpay = i.URLWebpay
	}
	if i.CardDetails != nil {
		resp.Card = &CardResponse{Type: i.CardDetails.Type(), Number: i.CardDetails.Number()}
	}
	return resp
}

func transactionResponse(t *domain.Transaction) TransactionResponse {
	var total int64
	if amount, err := t.TotalAmount(); err == nil {
		total = amount.Value()
	}
	resp := TransactionResponse{
		ID:              t.ID,
		Username:        t.Username,
		BuyOrder:        t.BuyOrder,
		TotalAmount:     total,
		FullyAuthorized: t.IsFullyAuthorized(),
		SessionID:       t.SessionID,
		CardNumber:      t.CardNumber,
		AccountingDate:  t.AccountingDate,
		TransactionDate: t.TransactionDate,
		CreatedAt:       t.CreatedAt,
	}
	for _, d := range t.Details {
		resp.Details = append(resp.Details, TransactionDetailResponse{
			CommerceCode:       d.CommerceCode,
			BuyOrder:           d.BuyOrder,
			Amount:             d.Amount.Value(),
			Status:             string(d.Status),
			AuthorizationCode:  d.AuthorizationCode,
			PaymentTypeCode:    string(d.PaymentTypeCode),
			ResponseCode:       d.ResponseCode,
			InstallmentsNumber: d.InstallmentsNumber,
			Balance:            d.Balance,
		})
	}
	return resp
}
