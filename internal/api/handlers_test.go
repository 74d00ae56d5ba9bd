package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pagoschile/oneclick-api/internal/domain"
	"github.com/pagoschile/oneclick-api/internal/provider"
	"github.com/pagoschile/oneclick-api/internal/service"
	"github.com/pagoschile/oneclick-api/internal/storage"
)

type stubService struct {
	inscription *domain.Inscription
	transaction *domain.Transaction
	err         error
}

func (s *stubService) StartInscription(context.Context, string, string, string) (*domain.Inscription, error) {
	return s.inscription, s.err
}

func (s *stubService) FinishInscription(context.Context, string) (*domain.Inscription, error) {
	return s.inscription, s.err
}

func (s *stubService) GetInscription(context.Context, string) (*domain.Inscription, error) {
	return s.inscription, s.err
}

func (s *stubService) DeleteInscription(context.Context, string) error {
	return s.err
}

func (s *stubService) AuthorizeTransaction(context.Context, string, string, []service.DetailInput) (*domain.Transaction, error) {
	return s.transaction, s.err
}

func (s *stubService) GetTransaction(context.Context, string) (*domain.Transaction, error) {
	return s.transaction, s.err
}

func (s *stubService) TransactionHistory(context.Context, string, int, int) ([]*domain.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*domain.Transaction{s.transaction}, nil
}

func (s *stubService) TransactionStatus(context.Context, string) (provider.StatusResponse, error) {
	return provider.StatusResponse{}, s.err
}

func (s *stubService) CaptureTransaction(context.Context, string, string, string, int64) (provider.CaptureResponse, error) {
	return provider.CaptureResponse{}, s.err
}

func (s *stubService) RefundTransaction(context.Context, string, string, int64) (provider.RefundResponse, error) {
	return provider.RefundResponse{Type: "REVERSED"}, s.err
}

func testRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handlers{Log: zap.NewNop(), Svc: svc, V: validator.New()}
	r := gin.New()
	r.POST("/v1/inscriptions", h.StartInscription)
	r.PUT("/v1/inscriptions/finish", h.FinishInscription)
	r.GET("/v1/inscriptions/:username", h.GetInscription)
	r.DELETE("/v1/inscriptions/:username", h.DeleteInscription)
	r.POST("/v1/transactions", h.AuthorizeTransaction)
	r.GET("/v1/transactions/:buy_order", h.GetTransaction)
	r.POST("/v1/transactions/:buy_order/refunds", h.RefundTransaction)
	r.PUT("/v1/transactions/capture", h.CaptureTransaction)
	r.GET("/v1/users/:username/transactions", h.TransactionHistory)
	r.GET("/health", h.Health)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func pendingInscription() *domain.Inscription {
	i, _ := domain.NewInscription("maria", "maria@mail.cl", "tok-1", "https://webpay.cl/init")
	i.ID = "ins-1"
	return i
}

func authorizedTransaction() *domain.Transaction {
	tx, _ := domain.NewTransaction("maria", "B1")
	tx.ID = "tx-1"
	amount, _ := domain.NewAmount(10000)
	detail, _ := domain.NewTransactionDetail("C1", "B1-1", amount, domain.TransactionAuthorized)
	rc := 0
	detail.ResponseCode = &rc
	detail.AuthorizationCode = "1213"
	_ = tx.AddDetail(detail)
	tx.TransactionDate = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	return tx
}

func TestStartInscriptionHandler(t *testing.T) {
	r := testRouter(&stubService{inscription: pendingInscription()})

	w := doJSON(t, r, http.MethodPost, "/v1/inscriptions", StartInscriptionRequest{
		Username:    "maria",
		Email:       "maria@mail.cl",
		ResponseURL: "https://shop.cl/return",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}

	var resp InscriptionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "PENDING" || resp.Token != "tok-1" || resp.URLWebpay != "https://webpay.cl/init" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestStartInscriptionHandlerValidation(t *testing.T) {
	r := testRouter(&stubService{})

	tests := []struct {
		name string
		req  StartInscriptionRequest
	}{
		{"short username", StartInscriptionRequest{Username: "ab", Email: "a@b.cl", ResponseURL: "https://x.cl"}},
		{"bad email", StartInscriptionRequest{Username: "maria", Email: "not-an-email", ResponseURL: "https://x.cl"}},
		{"missing url", StartInscriptionRequest{Username: "maria", Email: "a@b.cl"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/v1/inscriptions", tc.req)
			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", w.Code)
			}
		})
	}
}

func TestAuthorizeTransactionHandler(t *testing.T) {
	r := testRouter(&stubService{transaction: authorizedTransaction()})

	w := doJSON(t, r, http.MethodPost, "/v1/transactions", AuthorizeRequest{
		Username: "maria",
		BuyOrder: "B1",
		Details:  []AuthorizeDetailRequest{{CommerceCode: "C1", BuyOrder: "B1-1", Amount: 10000}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}

	var resp TransactionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.FullyAuthorized || resp.TotalAmount != 10000 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAuthorizeTransactionHandlerRejectsLongBuyOrder(t *testing.T) {
	r := testRouter(&stubService{})

	w := doJSON(t, r, http.MethodPost, "/v1/transactions", AuthorizeRequest{
		Username: "maria",
		BuyOrder: "THIS-BUY-ORDER-IS-TOO-LONG-",
		Details:  []AuthorizeDetailRequest{{CommerceCode: "C1", BuyOrder: "B1-1", Amount: 10000}},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"inscription not found", storage.ErrInscriptionNotFound, http.StatusNotFound},
		{"transaction not found", storage.ErrTransactionNotFound, http.StatusNotFound},
		{"duplicate buy order", storage.ErrDuplicateBuyOrder, http.StatusConflict},
		{"no active inscription", service.ErrNoActiveInscription, http.StatusConflict},
		{"not refundable", service.ErrNotRefundable, http.StatusConflict},
		{"provider down", provider.ErrCommunication, http.StatusBadGateway},
		{"domain validation", domain.ErrDuplicateDetail, http.StatusUnprocessableEntity},
		{"wrong-state transition", domain.ErrInvalidTransition, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := testRouter(&stubService{err: tc.err})
			w := doJSON(t, r, http.MethodPost, "/v1/transactions", AuthorizeRequest{
				Username: "maria",
				BuyOrder: "B1",
				Details:  []AuthorizeDetailRequest{{CommerceCode: "C1", BuyOrder: "B1-1", Amount: 10000}},
			})
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestDeleteInscriptionHandler(t *testing.T) {
	r := testRouter(&stubService{})
	w := doJSON(t, r, http.MethodDelete, "/v1/inscriptions/maria", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	r := testRouter(&stubService{})
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health body: %v", body)
	}
}
