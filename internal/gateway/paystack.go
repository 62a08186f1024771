package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketplace-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Client is the narrow contract the orchestrator consumes: initialize a
// hosted-payment-page charge, confirm a charge by reference.
type Client interface {
	Initialize(ctx context.Context, email string, amount decimal.Decimal, meta Metadata) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

// Metadata round-trips identifiers through the gateway for audit
type Metadata struct {
	SaleID            int64 `json:"sale_id"`
	CustomerID        int64 `json:"customer_id"`
	ProductID         int64 `json:"product_id,omitempty"`
	AdditionalPayment bool  `json:"is_additional_payment,omitempty"`
}

// InitializeResult carries the gateway reference and the redirect
// handle for the hosted payment page
type InitializeResult struct {
	Reference        string
	AuthorizationURL string
}

// VerifyResult carries the gateway's ground-truth charge status
type VerifyResult struct {
	Status      string
	AmountMinor int64
}

// StatusSuccess is the only external status treated as a confirmed
// charge
const StatusSuccess = "success"

// MinorUnits converts a decimal amount to integer minor currency units
// (round(amount * 100))
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Paystack is the hosted-payment-page processor client
type Paystack struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPaystack creates a Paystack client. The secret key comes from
// configuration.
func NewPaystack(baseURL, secretKey string) *Paystack {
	return &Paystack{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: util.GetLogger(),
	}
}

type initializeRequest struct {
	Email    string   `json:"email"`
	Amount   int64    `json:"amount"`
	Metadata Metadata `json:"metadata"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status string `json:"status"`
		Amount int64  `json:"amount"`
	} `json:"data"`
}

// Initialize creates a charge for the given amount and returns the
// reference plus the hosted-page redirect URL
func (p *Paystack) Initialize(ctx context.Context, email string, amount decimal.Decimal, meta Metadata) (*InitializeResult, error) {
	ctx, span := util.StartSpan(ctx, "Paystack.Initialize")
	defer span.End()

	start := time.Now()
	defer func() {
		util.GatewayRequestDuration.WithLabelValues("initialize").Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(initializeRequest{
		Email:    email,
		Amount:   MinorUnits(amount),
		Metadata: meta,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize request: %w", err)
	}

	var resp initializeResponse
	if err := p.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}

	if !resp.Status {
		return nil, fmt.Errorf("gateway rejected initialization: %s", resp.Message)
	}

	p.logger.Info("Gateway charge initialized",
		zap.Int64("sale_id", meta.SaleID),
		zap.String("reference", resp.Data.Reference))

	return &InitializeResult{
		Reference:        resp.Data.Reference,
		AuthorizationURL: resp.Data.AuthorizationURL,
	}, nil
}

// Verify confirms the real-world status of a charge by reference
func (p *Paystack) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	ctx, span := util.StartSpan(ctx, "Paystack.Verify")
	defer span.End()

	start := time.Now()
	defer func() {
		util.GatewayRequestDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	}()

	var resp verifyResponse
	if err := p.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &resp); err != nil {
		return nil, err
	}

	if !resp.Status {
		return nil, fmt.Errorf("gateway rejected verification: %s", resp.Message)
	}

	return &VerifyResult{
		Status:      resp.Data.Status,
		AmountMinor: resp.Data.Amount,
	}, nil
}

func (p *Paystack) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 500 {
		return fmt.Errorf("gateway returned %d", httpResp.StatusCode)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
