// Package payment talks to the hosted payment processor that finalizes card payments.
package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Confirmation is the processor's answer to an approved confirm call.
// Raw keeps the full payload so callers can echo it unchanged.
type Confirmation struct {
	PaymentKey  string          `json:"paymentKey"`
	OrderID     string          `json:"orderId"`
	Method      string          `json:"method"`
	Status      string          `json:"status"`
	TotalAmount int64           `json:"totalAmount"`
	ApprovedAt  *time.Time      `json:"-"`
	Raw         json.RawMessage `json:"-"`
}

// ProcessorError is a non-2xx answer from the processor.
type ProcessorError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProcessorError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("payment confirmation failed: %s (%s)", msg, e.Code)
	}
	return fmt.Sprintf("payment confirmation failed: %s", msg)
}

type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// NewClient creates a processor client authenticating with secretKey.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	token := base64.StdEncoding.EncodeToString([]byte(secretKey + ":"))
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: "Basic " + token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type confirmRequest struct {
	OrderID string `json:"orderId"`
	Amount  int64  `json:"amount"`
}

// ConfirmPayment finalizes the payment identified by paymentKey. It is not retried.
func (c *Client) ConfirmPayment(ctx context.Context, paymentKey, orderID string, amount int64) (*Confirmation, error) {
	body, err := json.Marshal(confirmRequest{OrderID: orderID, Amount: amount})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal confirm request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, url.PathEscape(paymentKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build confirm request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment processor unreachable: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read processor response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := &ProcessorError{StatusCode: resp.StatusCode}
		var body struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(payload, &body) == nil {
			perr.Code = body.Code
			perr.Message = body.Message
		}
		return nil, perr
	}

	var decoded struct {
		Confirmation
		ApprovedAt string `json:"approvedAt"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode processor response: %w", err)
	}

	conf := decoded.Confirmation
	conf.Raw = json.RawMessage(payload)
	if decoded.ApprovedAt != "" {
		if t, err := time.Parse(time.RFC3339, decoded.ApprovedAt); err == nil {
			conf.ApprovedAt = &t
		}
	}
	return &conf, nil
}
