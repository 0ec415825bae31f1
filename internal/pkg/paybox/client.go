package paybox

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	initScript  = "any_amount.php"
	initBaseURL = "https://api.paybox.money/any_amount.php"
)

// Config holds Paybox gateway configuration
type Config struct {
	MerchantID  string        // Merchant identifier (pg_merchant_id)
	SecretKey   string        // Secret key for pg_sig generation and callback verification
	ResultURL   string        // Server-to-server callback URL (pg_result_url)
	Currency    string        // Payment currency, e.g. "KGS"
	Language    string        // Payment page language, e.g. "ru"
	LifetimeSec int           // Payment lifetime in seconds (pg_lifetime)
	TestMode    bool          // Enables pg_testing_mode
	Timeout     time.Duration
}

// Client represents Paybox payment gateway client
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates new Paybox client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// InitPaymentRequest represents a payment initialization request
type InitPaymentRequest struct {
	OrderID     string // Local order identifier (pg_order_id)
	Description string // Payment description shown on the payment page
	UserID      string // Paying user identifier (pg_user_id)
}

// InitPaymentResponse represents a payment initialization result
type InitPaymentResponse struct {
	RedirectURL string // URL to redirect user for payment
	Success     bool   // True when the gateway answered pg_status=ok
	ErrorText   string // Gateway error description on failure
}

// initResponse is the XML body Paybox returns from any_amount.php
type initResponse struct {
	XMLName          xml.Name `xml:"response"`
	Status           string   `xml:"pg_status"`
	RedirectURL      string   `xml:"pg_redirect_url"`
	ErrorDescription string   `xml:"pg_error_description"`
}

// InitPayment registers the order with Paybox and returns the redirect URL.
// Paybox takes form-encoded parameters signed with pg_sig and answers XML.
func (c *Client) InitPayment(ctx context.Context, req InitPaymentRequest) (*InitPaymentResponse, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, fmt.Errorf("validation error: order ID is empty")
	}
	if strings.TrimSpace(c.config.MerchantID) == "" {
		return nil, fmt.Errorf("paybox config error: merchant_id is empty")
	}
	if strings.TrimSpace(c.config.SecretKey) == "" {
		return nil, fmt.Errorf("paybox config error: secret_key is empty")
	}

	params := map[string]string{
		"pg_order_id":       req.OrderID,
		"pg_merchant_id":    c.config.MerchantID,
		"pg_description":    req.Description,
		"pg_salt":           randomSalt(),
		"pg_currency":       c.config.Currency,
		"pg_result_url":     c.config.ResultURL,
		"pg_request_method": "POST",
		"pg_lifetime":       strconv.Itoa(c.config.LifetimeSec),
		"pg_language":       c.config.Language,
		"pg_user_id":        req.UserID,
	}
	if c.config.TestMode {
		params["pg_testing_mode"] = "1"
	}
	params["pg_sig"] = SignParams(initScript, params, c.config.SecretKey)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", initBaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send paybox request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read paybox response: %w", err)
	}

	var parsed initResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse paybox response: %w", err)
	}

	return &InitPaymentResponse{
		RedirectURL: parsed.RedirectURL,
		Success:     parsed.Status == "ok",
		ErrorText:   parsed.ErrorDescription,
	}, nil
}

// randomSalt generates a pg_salt value
func randomSalt() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(buf)
}
