// Package api provides a client for the M-Pesa Mozambique open API.
//
// The client handles:
// - Bearer-token derivation from the API key and the gateway public key
// - Request/response marshaling for the five payment operations
// - Normalization of every upstream outcome into one envelope or one typed error
//
// # Usage
//
// Create a client using NewClient with a validated configuration:
//
//	client, err := api.NewClient(api.Config{
//		APIKey:              "...",
//		PublicKey:           "...",
//		ServiceProviderCode: "171717",
//		Origin:              "developer.mpesa.vm.co.mz",
//		Environment:         api.EnvironmentSandbox,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Call C2B to charge a customer wallet:
//
//	resp, err := client.C2B(ctx, &api.C2BRequest{
//		Amount:               decimal.NewFromInt(100),
//		CustomerMSISDN:       "258841234567",
//		TransactionReference: "T12344C",
//		ThirdPartyReference:  reference.New(),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
package api

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Environment selects one of the two gateway deployments.
type Environment string

const (
	EnvironmentSandbox Environment = "sandbox"
	EnvironmentLive    Environment = "live"
)

const (
	sandboxHost = "api.sandbox.vm.co.mz:18352"
	liveHost    = "api.vm.co.mz:18352"
)

// Credentials is the key material needed to authenticate against the gateway.
type Credentials struct {
	// APIKey is the account secret. It is sent raw in the X-Api-Key header
	// and, encrypted under PublicKey, as the bearer token.
	APIKey string
	// PublicKey is the gateway's RSA public key, either raw base64 or
	// PEM-framed.
	PublicKey string
}

// CredentialProvider supplies credentials to NewClientFromProvider.
type CredentialProvider interface {
	GetCredentials(ctx context.Context) (*Credentials, error)
}

// Config configures a Client. APIKey, PublicKey, ServiceProviderCode and
// Origin are required. Host overrides the Environment-derived address; one of
// the two must be resolvable.
type Config struct {
	APIKey              string `validate:"required"`
	PublicKey           string `validate:"required"`
	ServiceProviderCode string `validate:"required"`
	Origin              string `validate:"required"`

	Environment Environment
	Host        string

	// Timeout applies to every request. Defaults to 30s. Ignored when
	// HTTPClient is supplied.
	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient HTTPClient

	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

// C2BRequest charges a customer wallet in favor of the configured business.
type C2BRequest struct {
	Amount               decimal.Decimal
	CustomerMSISDN       string
	TransactionReference string
	ThirdPartyReference  string
}

// B2CRequest pays out from the configured business to a customer wallet.
type B2CRequest struct {
	Amount               decimal.Decimal
	CustomerMSISDN       string
	TransactionReference string
	ThirdPartyReference  string
	// PaymentServices defaults to "BusinessPayBill".
	PaymentServices string
}

// B2BRequest transfers between two business shortcodes. PrimaryPartyCode
// defaults to the configured ServiceProviderCode.
type B2BRequest struct {
	Amount               decimal.Decimal
	PrimaryPartyCode     string
	RecipientPartyCode   string
	TransactionReference string
	ThirdPartyReference  string
	// PaymentServices defaults to "BusinessToBusinessTransfer".
	PaymentServices string
}

// QueryRequest looks up the status of a prior transaction. QueryReference is
// the gateway transaction id or the conversation id of the original call.
type QueryRequest struct {
	QueryReference      string
	ThirdPartyReference string
}

// ReversalRequest reverses a settled transaction, fully or partially.
type ReversalRequest struct {
	Amount              decimal.Decimal
	TransactionID       string
	ThirdPartyReference string
}

// rawResponse is the gateway's wire-format reply, shared by all operations.
// Fields absent for a given operation are left zero.
type rawResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDesc        string `json:"ResponseDesc"`
	TransactionID       string `json:"TransactionID"`
	ConversationID      string `json:"ConversationID"`
	ThirdPartyReference string `json:"ThirdPartyReference"`
	TransactionStatus   string `json:"ResponseTransactionStatus"`
	SettlementAmount    string `json:"SettlementAmount"`
	RecipientName       string `json:"RecipientName"`
}

// Response is the normalized success envelope. Exactly one of a Response or
// an *Error is produced per call.
type Response struct {
	Status              string    `json:"status"`
	Code                string    `json:"code"`
	Message             string    `json:"message"`
	StatusCode          int       `json:"httpStatus"`
	TransactionID       string    `json:"transactionId,omitempty"`
	ConversationID      string    `json:"conversationId,omitempty"`
	ThirdPartyReference string    `json:"thirdPartyReference,omitempty"`
	Data                any       `json:"data,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

// C2BData is the Data payload of a successful C2B call.
type C2BData struct {
	Amount               string `json:"amount"`
	CustomerMSISDN       string `json:"customerMsisdn"`
	TransactionReference string `json:"transactionReference"`
	TransactionID        string `json:"transactionId"`
	ConversationID       string `json:"conversationId"`
	ThirdPartyReference  string `json:"thirdPartyReference"`
}

// B2CData is the Data payload of a successful B2C call. SettlementAmount and
// RecipientName come from the gateway and may be empty in the sandbox.
type B2CData struct {
	Amount               string `json:"amount"`
	CustomerMSISDN       string `json:"customerMsisdn"`
	SettlementAmount     string `json:"settlementAmount,omitempty"`
	RecipientName        string `json:"recipientName,omitempty"`
	TransactionReference string `json:"transactionReference"`
	TransactionID        string `json:"transactionId"`
	ConversationID       string `json:"conversationId"`
	ThirdPartyReference  string `json:"thirdPartyReference"`
}

// B2BData is the Data payload of a successful B2B call.
type B2BData struct {
	Amount               string `json:"amount"`
	PrimaryPartyCode     string `json:"primaryPartyCode"`
	RecipientPartyCode   string `json:"recipientPartyCode"`
	SettlementAmount     string `json:"settlementAmount,omitempty"`
	RecipientName        string `json:"recipientName,omitempty"`
	TransactionReference string `json:"transactionReference"`
	TransactionID        string `json:"transactionId"`
	ConversationID       string `json:"conversationId"`
	ThirdPartyReference  string `json:"thirdPartyReference"`
}

// QueryData is the Data payload of a successful Query call.
type QueryData struct {
	QueryReference      string `json:"queryReference"`
	TransactionStatus   string `json:"transactionStatus"`
	ConversationID      string `json:"conversationId"`
	ThirdPartyReference string `json:"thirdPartyReference"`
}

// ReversalData is the Data payload of a successful Reversal call.
type ReversalData struct {
	Amount              string `json:"amount"`
	TransactionID       string `json:"transactionId"`
	ConversationID      string `json:"conversationId"`
	ThirdPartyReference string `json:"thirdPartyReference"`
}

// Wire payloads. Field names and casing are the gateway's contract and differ
// between operations (C2B's CustomerMSISDN vs B2C's CustomerMsisdn); they must
// not be unified.

type c2bPayload struct {
	Amount               string `json:"Amount"`
	CustomerMSISDN       string `json:"CustomerMSISDN"`
	TransactionReference string `json:"TransactionReference"`
	ThirdPartyReference  string `json:"ThirdPartyReference"`
	ServiceProviderCode  string `json:"ServiceProviderCode"`
}

type b2cPayload struct {
	Amount               string `json:"Amount"`
	CustomerMSISDN       string `json:"CustomerMsisdn"`
	TransactionReference string `json:"TransactionReference"`
	ThirdPartyReference  string `json:"ThirdPartyReference"`
	ServiceProviderCode  string `json:"ServiceProviderCode"`
	PaymentServices      string `json:"PaymentServices"`
}

type b2bPayload struct {
	Amount               string `json:"Amount"`
	PrimaryPartyCode     string `json:"PrimaryPartyCode"`
	RecipientPartyCode   string `json:"RecipientPartyCode"`
	TransactionReference string `json:"TransactionReference"`
	ThirdPartyReference  string `json:"ThirdPartyReference"`
	PaymentServices      string `json:"PaymentServices"`
}

type queryPayload struct {
	QueryReference      string `json:"QueryReference"`
	ServiceProviderCode string `json:"ServiceProviderCode"`
	ThirdPartyReference string `json:"ThirdPartyReference"`
}

type reversalPayload struct {
	ReversalAmount      string `json:"ReversalAmount"`
	TransactionID       string `json:"TransactionID"`
	ThirdPartyReference string `json:"ThirdPartyReference"`
	ServiceProviderCode string `json:"ServiceProviderCode"`
}
