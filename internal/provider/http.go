package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const inscriptionPath = "/rswebpaytransaction/api/oneclick/v1.2/inscriptions"
const transactionPath = "/rswebpaytransaction/api/oneclick/v1.2/transactions"

// Config is the provider handle. It is passed explicitly to whichever
// component needs it; there is no package-level SDK state.
type Config struct {
	BaseURL      string
	CommerceCode string
	APIKey       string
	Timeout      time.Duration
}

// HTTPClient implements Client against the provider's REST API.
type HTTPClient struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

func NewHTTPClient(cfg Config, log *zap.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrCommunication, err)
		}
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, buf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCommunication, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Tbk-Api-Key-Id", c.cfg.CommerceCode)
	req.Header.Set("Tbk-Api-Key-Secret", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCommunication, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrCommunication, method, path, resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrCommunication, err)
	}
	return nil
}

func (c *HTTPClient) StartInscription(ctx context.Context, username, email, responseURL string) (StartResponse, error) {
	var out StartResponse
	err := c.do(ctx, http.MethodPost, inscriptionPath, map[string]string{
		"username":     username,
		"email":        email,
		"response_url": responseURL,
	}, &out)
	if err != nil {
		return StartResponse{}, err
	}
	c.log.Info("inscription started", zap.String("username", username))
	return out, nil
}

func (c *HTTPClient) FinishInscription(ctx context.Context, token string) (FinishResponse, error) {
	var out FinishResponse
	err := c.do(ctx, http.MethodPut, inscriptionPath+"/"+url.PathEscape(token), nil, &out)
	if err != nil {
		return FinishResponse{}, err
	}
	if out.ResponseCode != 0 {
		return FinishResponse{}, &RejectionError{ResponseCode: out.ResponseCode, Message: "inscription rejected"}
	}
	return out, nil
}

func (c *HTTPClient) DeleteInscription(ctx context.Context, tbkUser, username string) error {
	return c.do(ctx, http.MethodDelete, inscriptionPath, map[string]string{
		"tbk_user": tbkUser,
		"username": username,
	}, nil)
}

func (c *HTTPClient) Authorize(ctx context.Context, username, tbkUser, parentBuyOrder string, details []AuthorizeDetailRequest) (AuthorizeResponse, error) {
	var out AuthorizeResponse
	err := c.do(ctx, http.MethodPost, transactionPath, map[string]any{
		"username":  username,
		"tbk_user":  tbkUser,
		"buy_order": parentBuyOrder,
		"details":   details,
	}, &out)
	if err != nil {
		return AuthorizeResponse{}, err
	}
	c.log.Info("transaction authorized",
		zap.String("parent_buy_order", out.ParentBuyOrder),
		zap.Int("detail_count", len(out.Details)))
	return out, nil
}

func (c *HTTPClient) Status(ctx context.Context, childBuyOrder string) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, transactionPath+"/"+url.PathEscape(childBuyOrder), nil, &out)
	if err != nil {
		return StatusResponse{}, err
	}
	return out, nil
}

func (c *HTTPClient) Capture(ctx context.Context, childCommerceCode, childBuyOrder, authorizationCode string, amount int64) (CaptureResponse, error) {
	var out CaptureResponse
	err := c.do(ctx, http.MethodPut, transactionPath+"/capture", map[string]any{
		"commerce_code":      childCommerceCode,
		"buy_order":          childBuyOrder,
		"authorization_code": authorizationCode,
		"capture_amount":     amount,
	}, &out)
	if err != nil {
		return CaptureResponse{}, err
	}
	return out, nil
}

func (c *HTTPClient) Refund(ctx context.Context, childCommerceCode, childBuyOrder string, amount int64) (RefundResponse, error) {
	var out RefundResponse
	err := c.do(ctx, http.MethodPost, transactionPath+"/"+url.PathEscape(childBuyOrder)+"/refunds", map[string]any{
		"commerce_code":    childCommerceCode,
		"detail_buy_order": childBuyOrder,
		"amount":           amount,
	}, &out)
	if err != nil {
		return RefundResponse{}, err
	}
	return out, nil
}
