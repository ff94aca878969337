package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mozpayments/mpesa/crypto"
)

const defaultTimeout = 30 * time.Second

const (
	defaultB2CPaymentServices = "BusinessPayBill"
	defaultB2BPaymentServices = "BusinessToBusinessTransfer"
)

// HTTPClient interface for dependency injection
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// operation describes one gateway endpoint. The five operations share a
// single request pipeline parameterized by this descriptor.
type operation struct {
	name string
	path string
	// apiKeyHeader adds the raw API key as X-Api-Key. C2B is the one
	// operation that does not take it.
	apiKeyHeader bool
}

var (
	opC2B      = operation{name: "c2b", path: "/ipg/v1x/c2bPayment/singleStage/"}
	opB2C      = operation{name: "b2c", path: "/ipg/v1x/b2cPayment/singleStage/", apiKeyHeader: true}
	opB2B      = operation{name: "b2b", path: "/ipg/v1x/b2bPayment/singleStage/", apiKeyHeader: true}
	opQuery    = operation{name: "query", path: "/ipg/v1x/queryPaymentStatus/", apiKeyHeader: true}
	opReversal = operation{name: "reversal", path: "/ipg/v1x/reversal/", apiKeyHeader: true}
)

var validate = validator.New()

// Client implements the M-Pesa open API client. It is immutable after
// construction and safe for concurrent use; the bearer token is derived once
// in NewClient and never refreshed.
type Client struct {
	cfg        Config
	host       string
	token      string
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewClient validates the configuration, resolves the gateway host and
// derives the bearer token. A missing required field, an unresolvable host or
// malformed key material makes construction fail; the client is unusable in
// that case.
func NewClient(cfg Config) (*Client, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	host, err := resolveHost(cfg)
	if err != nil {
		return nil, err
	}

	token, err := crypto.GenerateToken(cfg.APIKey, cfg.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive bearer token: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		cfg:        cfg,
		host:       host,
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// NewClientFromProvider loads credentials from the provider before
// constructing the client. Config.APIKey and Config.PublicKey are overwritten
// with the provider's values.
func NewClientFromProvider(ctx context.Context, cfg Config, provider CredentialProvider) (*Client, error) {
	creds, err := provider.GetCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg.APIKey = creds.APIKey
	cfg.PublicKey = creds.PublicKey
	return NewClient(cfg)
}

func resolveHost(cfg Config) (string, error) {
	if cfg.Host != "" {
		return cfg.Host, nil
	}
	switch cfg.Environment {
	case EnvironmentSandbox:
		return sandboxHost, nil
	case EnvironmentLive:
		return liveHost, nil
	case "":
		return "", fmt.Errorf("invalid configuration: either Host or Environment must be set")
	default:
		return "", fmt.Errorf("invalid configuration: unknown environment %q", cfg.Environment)
	}
}

// C2B requests a single-stage customer-to-business payment, debiting the
// customer wallet in favor of the configured service provider.
func (c *Client) C2B(ctx context.Context, req *C2BRequest) (*Response, error) {
	payload := c2bPayload{
		Amount:               req.Amount.StringFixed(2),
		CustomerMSISDN:       req.CustomerMSISDN,
		TransactionReference: req.TransactionReference,
		ThirdPartyReference:  req.ThirdPartyReference,
		ServiceProviderCode:  c.cfg.ServiceProviderCode,
	}

	raw, err := c.execute(ctx, opC2B, payload)
	if err != nil {
		return nil, err
	}

	return c.envelope(raw, req.ThirdPartyReference, &C2BData{
		Amount:               payload.Amount,
		CustomerMSISDN:       req.CustomerMSISDN,
		TransactionReference: req.TransactionReference,
		TransactionID:        raw.TransactionID,
		ConversationID:       raw.ConversationID,
		ThirdPartyReference:  correlationRef(raw, req.ThirdPartyReference),
	}), nil
}

// B2C requests a single-stage business-to-customer payout.
func (c *Client) B2C(ctx context.Context, req *B2CRequest) (*Response, error) {
	services := req.PaymentServices
	if services == "" {
		services = defaultB2CPaymentServices
	}
	payload := b2cPayload{
		Amount:               req.Amount.StringFixed(2),
		CustomerMSISDN:       req.CustomerMSISDN,
		TransactionReference: req.TransactionReference,
		ThirdPartyReference:  req.ThirdPartyReference,
		ServiceProviderCode:  c.cfg.ServiceProviderCode,
		PaymentServices:      services,
	}

	raw, err := c.execute(ctx, opB2C, payload)
	if err != nil {
		return nil, err
	}

	return c.envelope(raw, req.ThirdPartyReference, &B2CData{
		Amount:               payload.Amount,
		CustomerMSISDN:       req.CustomerMSISDN,
		SettlementAmount:     raw.SettlementAmount,
		RecipientName:        raw.RecipientName,
		TransactionReference: req.TransactionReference,
		TransactionID:        raw.TransactionID,
		ConversationID:       raw.ConversationID,
		ThirdPartyReference:  correlationRef(raw, req.ThirdPartyReference),
	}), nil
}

// B2B requests a single-stage business-to-business transfer.
func (c *Client) B2B(ctx context.Context, req *B2BRequest) (*Response, error) {
	services := req.PaymentServices
	if services == "" {
		services = defaultB2BPaymentServices
	}
	primary := req.PrimaryPartyCode
	if primary == "" {
		primary = c.cfg.ServiceProviderCode
	}
	payload := b2bPayload{
		Amount:               req.Amount.StringFixed(2),
		PrimaryPartyCode:     primary,
		RecipientPartyCode:   req.RecipientPartyCode,
		TransactionReference: req.TransactionReference,
		ThirdPartyReference:  req.ThirdPartyReference,
		PaymentServices:      services,
	}

	raw, err := c.execute(ctx, opB2B, payload)
	if err != nil {
		return nil, err
	}

	return c.envelope(raw, req.ThirdPartyReference, &B2BData{
		Amount:               payload.Amount,
		PrimaryPartyCode:     primary,
		RecipientPartyCode:   req.RecipientPartyCode,
		SettlementAmount:     raw.SettlementAmount,
		RecipientName:        raw.RecipientName,
		TransactionReference: req.TransactionReference,
		TransactionID:        raw.TransactionID,
		ConversationID:       raw.ConversationID,
		ThirdPartyReference:  correlationRef(raw, req.ThirdPartyReference),
	}), nil
}

// Query looks up the status of a previously submitted transaction. Query is
// the one safely repeatable operation; a timed-out C2B/B2C/B2B/Reversal must
// be treated as unknown-outcome and resolved through it.
func (c *Client) Query(ctx context.Context, req *QueryRequest) (*Response, error) {
	payload := queryPayload{
		QueryReference:      req.QueryReference,
		ServiceProviderCode: c.cfg.ServiceProviderCode,
		ThirdPartyReference: req.ThirdPartyReference,
	}

	raw, err := c.execute(ctx, opQuery, payload)
	if err != nil {
		return nil, err
	}

	return c.envelope(raw, req.ThirdPartyReference, &QueryData{
		QueryReference:      req.QueryReference,
		TransactionStatus:   raw.TransactionStatus,
		ConversationID:      raw.ConversationID,
		ThirdPartyReference: correlationRef(raw, req.ThirdPartyReference),
	}), nil
}

// Reversal reverses a settled transaction, fully or partially.
func (c *Client) Reversal(ctx context.Context, req *ReversalRequest) (*Response, error) {
	payload := reversalPayload{
		ReversalAmount:      req.Amount.StringFixed(2),
		TransactionID:       req.TransactionID,
		ThirdPartyReference: req.ThirdPartyReference,
		ServiceProviderCode: c.cfg.ServiceProviderCode,
	}

	raw, err := c.execute(ctx, opReversal, payload)
	if err != nil {
		return nil, err
	}

	return c.envelope(raw, req.ThirdPartyReference, &ReversalData{
		Amount:              payload.ReversalAmount,
		TransactionID:       correlationID(raw.TransactionID, req.TransactionID),
		ConversationID:      raw.ConversationID,
		ThirdPartyReference: correlationRef(raw, req.ThirdPartyReference),
	}), nil
}

// execute runs the shared operation pipeline: marshal payload, attach
// headers, POST, and route the outcome through the error normalizer. It
// returns a decoded body only for success-sentinel responses.
func (c *Client) execute(ctx context.Context, op operation, payload any) (*rawResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", op.name, err)
	}

	url := fmt.Sprintf("https://%s%s", c.host, op.path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op.name, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Origin", c.cfg.Origin)
	if op.apiKeyHeader {
		httpReq.Header.Set("X-Api-Key", c.cfg.APIKey)
	}

	c.logger.Debug("dispatching gateway request",
		zap.String("operation", op.name),
		zap.String("path", op.path))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("gateway request failed",
			zap.String("operation", op.name),
			zap.Error(err))
		return nil, newTransportError(err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(err)
	}

	var raw rawResponse
	if err := json.Unmarshal(bodyBytes, &raw); err != nil {
		return nil, newDecodeError(resp.StatusCode, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || raw.ResponseCode != CodeSuccess {
		apiErr := newGatewayError(&raw, resp.StatusCode)
		c.logger.Debug("gateway reported failure",
			zap.String("operation", op.name),
			zap.String("code", apiErr.Code),
			zap.Int("httpStatus", apiErr.StatusCode))
		return nil, apiErr
	}

	c.logger.Debug("gateway request succeeded",
		zap.String("operation", op.name),
		zap.String("transactionId", raw.TransactionID))
	return &raw, nil
}

// envelope wraps a success-sentinel body into the normalized envelope. The
// http status is fixed at 200 for success outcomes.
func (c *Client) envelope(raw *rawResponse, fallbackRef string, data any) *Response {
	message := raw.ResponseDesc
	if message == "" {
		message = errorDescriptions[CodeSuccess]
	}
	return &Response{
		Status:              "success",
		Code:                raw.ResponseCode,
		Message:             message,
		StatusCode:          http.StatusOK,
		TransactionID:       raw.TransactionID,
		ConversationID:      raw.ConversationID,
		ThirdPartyReference: correlationRef(raw, fallbackRef),
		Data:                data,
		Timestamp:           time.Now(),
	}
}

// correlationRef prefers the gateway-echoed third-party reference over the
// caller-supplied one: the sandbox does not always echo it back.
func correlationRef(raw *rawResponse, fallback string) string {
	if raw.ThirdPartyReference != "" {
		return raw.ThirdPartyReference
	}
	return fallback
}

func correlationID(fromBody, fromRequest string) string {
	if fromBody != "" {
		return fromBody
	}
	return fromRequest
}
