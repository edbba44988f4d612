package gateway

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abdallemo/solveit-engine/internal/config"
	"github.com/abdallemo/solveit-engine/internal/domain"
)

// Client talks to the payment gateway's merchant API with signed JSON
// requests.
type Client struct {
	baseURL    string
	merchantID string
	apiKey     string
	httpClient *http.Client
}

var _ PaymentGateway = (*Client)(nil)

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.GatewayURL,
		merchantID: cfg.GatewayMerchantID,
		apiKey:     cfg.GatewayAPIKey,
		httpClient: &http.Client{Timeout: config.GatewayTimeout},
	}
}

func (c *Client) CreateHold(ctx context.Context, amount decimal.Decimal, payerRef string) (string, error) {
	payload := map[string]any{
		"amount":   amount.StringFixed(2),
		"currency": "USD",
		"payer":    payerRef,
	}

	var result struct {
		Result struct {
			UUID string `json:"uuid"`
		} `json:"result"`
	}
	if err := c.post(ctx, "/holds", payload, &result); err != nil {
		return "", err
	}
	if result.Result.UUID == "" {
		return "", fmt.Errorf("%w: empty hold reference", domain.ErrPaymentGateway)
	}
	return result.Result.UUID, nil
}

func (c *Client) MarkSucceeded(ctx context.Context, paymentRef string, releaseDate time.Time) error {
	payload := map[string]any{
		"uuid":         paymentRef,
		"release_date": releaseDate.UTC().Format(time.RFC3339),
	}
	return c.post(ctx, "/holds/capture", payload, nil)
}

func (c *Client) ExecuteRefund(ctx context.Context, paymentRef string) error {
	payload := map[string]any{
		"uuid": paymentRef,
	}
	return c.post(ctx, "/refunds", payload, nil)
}

func (c *Client) TransferToPayee(ctx context.Context, payeeRef string, amount decimal.Decimal) error {
	payload := map[string]any{
		"payee":    payeeRef,
		"amount":   amount.StringFixed(2),
		"currency": "USD",
	}
	return c.post(ctx, "/transfers", payload, nil)
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any, out any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payloadJSON))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("merchant", c.merchantID)
	req.Header.Set("sign", sign(payloadJSON, c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPaymentGateway, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s", domain.ErrPaymentGateway, resp.Status, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func sign(payload []byte, apiKey string) string {
	encoded := base64.StdEncoding.EncodeToString(payload)
	hash := md5.Sum([]byte(encoded + apiKey))
	return hex.EncodeToString(hash[:])
}
