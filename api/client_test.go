package api

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock implementations for testing

type mockHTTPClient struct {
	statusCode int
	body       string
	err        error

	lastReq  *http.Request
	lastBody []byte
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.lastReq = req
	if req.Body != nil {
		m.lastBody, _ = io.ReadAll(req.Body)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(strings.NewReader(m.body)),
		Header:     make(http.Header),
	}, nil
}

type mockCredentialProvider struct {
	creds *Credentials
	err   error
}

func (m *mockCredentialProvider) GetCredentials(ctx context.Context) (*Credentials, error) {
	return m.creds, m.err
}

func testPublicKey(t *testing.T) string {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	return base64.StdEncoding.EncodeToString(der)
}

func testConfig(t *testing.T, httpClient HTTPClient) Config {
	t.Helper()
	return Config{
		APIKey:              "test-api-key",
		PublicKey:           testPublicKey(t),
		ServiceProviderCode: "171717",
		Origin:              "developer.mpesa.vm.co.mz",
		Environment:         EnvironmentSandbox,
		HTTPClient:          httpClient,
	}
}

func newTestClient(t *testing.T, httpClient HTTPClient) *Client {
	t.Helper()
	client, err := NewClient(testConfig(t, httpClient))
	require.NoError(t, err)
	return client
}

// TestNewClient tests construction-time validation
func TestNewClient(t *testing.T) {
	t.Run("successful client creation", func(t *testing.T) {
		client := newTestClient(t, &mockHTTPClient{})
		require.NotNil(t, client)
		assert.Equal(t, "api.sandbox.vm.co.mz:18352", client.host)
		assert.NotEmpty(t, client.token)
	})

	t.Run("live environment resolves live host", func(t *testing.T) {
		cfg := testConfig(t, &mockHTTPClient{})
		cfg.Environment = EnvironmentLive

		client, err := NewClient(cfg)
		require.NoError(t, err)
		assert.Equal(t, "api.vm.co.mz:18352", client.host)
	})

	t.Run("explicit host overrides environment", func(t *testing.T) {
		cfg := testConfig(t, &mockHTTPClient{})
		cfg.Host = "gateway.example.com:8443"

		client, err := NewClient(cfg)
		require.NoError(t, err)
		assert.Equal(t, "gateway.example.com:8443", client.host)
	})

	t.Run("missing required fields", func(t *testing.T) {
		for _, clear := range []struct {
			name  string
			apply func(*Config)
		}{
			{"api key", func(c *Config) { c.APIKey = "" }},
			{"public key", func(c *Config) { c.PublicKey = "" }},
			{"service provider code", func(c *Config) { c.ServiceProviderCode = "" }},
			{"origin", func(c *Config) { c.Origin = "" }},
		} {
			t.Run(clear.name, func(t *testing.T) {
				cfg := testConfig(t, &mockHTTPClient{})
				clear.apply(&cfg)

				_, err := NewClient(cfg)
				require.Error(t, err)
			})
		}
	})

	t.Run("neither host nor environment", func(t *testing.T) {
		cfg := testConfig(t, &mockHTTPClient{})
		cfg.Environment = ""

		_, err := NewClient(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Host or Environment")
	})

	t.Run("unknown environment", func(t *testing.T) {
		cfg := testConfig(t, &mockHTTPClient{})
		cfg.Environment = "staging"

		_, err := NewClient(cfg)
		require.Error(t, err)
	})

	t.Run("malformed public key fails construction", func(t *testing.T) {
		cfg := testConfig(t, &mockHTTPClient{})
		cfg.PublicKey = "not-a-key"

		_, err := NewClient(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bearer token")
	})
}

// TestNewClientFromProvider tests credential injection
func TestNewClientFromProvider(t *testing.T) {
	t.Run("provider credentials are used", func(t *testing.T) {
		cfg := testConfig(t, &mockHTTPClient{})
		cfg.APIKey = ""
		cfg.PublicKey = ""
		provider := &mockCredentialProvider{creds: &Credentials{
			APIKey:    "provider-key",
			PublicKey: testPublicKey(t),
		}}

		client, err := NewClientFromProvider(context.Background(), cfg, provider)
		require.NoError(t, err)
		assert.Equal(t, "provider-key", client.cfg.APIKey)
	})

	t.Run("provider failure", func(t *testing.T) {
		provider := &mockCredentialProvider{err: errors.New("no credentials")}

		_, err := NewClientFromProvider(context.Background(), testConfig(t, &mockHTTPClient{}), provider)
		require.Error(t, err)
	})
}

// TestC2BSuccess covers the normalized success envelope for C2B
func TestC2BSuccess(t *testing.T) {
	mock := &mockHTTPClient{
		statusCode: http.StatusOK,
		body: `{
			"ResponseCode": "INS-0",
			"ResponseDesc": "Request processed successfully",
			"TransactionID": "T1",
			"ConversationID": "C1"
		}`,
	}
	client := newTestClient(t, mock)

	resp, err := client.C2B(context.Background(), &C2BRequest{
		Amount:               decimal.NewFromInt(100),
		CustomerMSISDN:       "258841234567",
		TransactionReference: "TRX1",
		ThirdPartyReference:  "REF1",
	})
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "INS-0", resp.Code)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "T1", resp.TransactionID)
	assert.Equal(t, "C1", resp.ConversationID)
	assert.Equal(t, "REF1", resp.ThirdPartyReference)
	assert.WithinDuration(t, time.Now(), resp.Timestamp, 5*time.Second)

	data, ok := resp.Data.(*C2BData)
	require.True(t, ok)
	assert.Equal(t, "100.00", data.Amount)
	assert.Equal(t, "258841234567", data.CustomerMSISDN)
	assert.Equal(t, "T1", data.TransactionID)

	// Outgoing wire contract
	assert.Equal(t, http.MethodPost, mock.lastReq.Method)
	assert.Equal(t, "https://api.sandbox.vm.co.mz:18352/ipg/v1x/c2bPayment/singleStage/", mock.lastReq.URL.String())
	assert.Equal(t, "developer.mpesa.vm.co.mz", mock.lastReq.Header.Get("Origin"))
	assert.True(t, strings.HasPrefix(mock.lastReq.Header.Get("Authorization"), "Bearer "))
	assert.Empty(t, mock.lastReq.Header.Get("X-Api-Key"))

	var sent map[string]string
	require.NoError(t, json.Unmarshal(mock.lastBody, &sent))
	assert.Equal(t, "100.00", sent["Amount"])
	assert.Equal(t, "258841234567", sent["CustomerMSISDN"])
	assert.Equal(t, "TRX1", sent["TransactionReference"])
	assert.Equal(t, "REF1", sent["ThirdPartyReference"])
	assert.Equal(t, "171717", sent["ServiceProviderCode"])
}

// TestB2CWireContract covers the B2C field casing quirk and api-key header
func TestB2CWireContract(t *testing.T) {
	mock := &mockHTTPClient{
		statusCode: http.StatusCreated,
		body: `{
			"ResponseCode": "INS-0",
			"TransactionID": "T2",
			"ConversationID": "C2",
			"ThirdPartyReference": "REF2",
			"SettlementAmount": "98.50",
			"RecipientName": "Alice Chissano"
		}`,
	}
	client := newTestClient(t, mock)

	resp, err := client.B2C(context.Background(), &B2CRequest{
		Amount:               decimal.RequireFromString("99.9"),
		CustomerMSISDN:       "258851234567",
		TransactionReference: "TRX2",
		ThirdPartyReference:  "REF2",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.sandbox.vm.co.mz:18352/ipg/v1x/b2cPayment/singleStage/", mock.lastReq.URL.String())
	assert.Equal(t, "test-api-key", mock.lastReq.Header.Get("X-Api-Key"))

	var sent map[string]string
	require.NoError(t, json.Unmarshal(mock.lastBody, &sent))
	// B2C serializes the MSISDN as CustomerMsisdn, unlike C2B; the gateway
	// rejects the other casing.
	assert.Equal(t, "258851234567", sent["CustomerMsisdn"])
	assert.NotContains(t, sent, "CustomerMSISDN")
	assert.Equal(t, "99.90", sent["Amount"])
	assert.Equal(t, "BusinessPayBill", sent["PaymentServices"])

	data, ok := resp.Data.(*B2CData)
	require.True(t, ok)
	assert.Equal(t, "99.90", data.Amount)
	assert.Equal(t, "98.50", data.SettlementAmount)
	assert.Equal(t, "Alice Chissano", data.RecipientName)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestB2BDefaults covers payload defaults for B2B
func TestB2BDefaults(t *testing.T) {
	mock := &mockHTTPClient{
		statusCode: http.StatusOK,
		body:       `{"ResponseCode": "INS-0", "TransactionID": "T3", "ConversationID": "C3"}`,
	}
	client := newTestClient(t, mock)

	resp, err := client.B2B(context.Background(), &B2BRequest{
		Amount:               decimal.NewFromInt(500),
		RecipientPartyCode:   "979797",
		TransactionReference: "TRX3",
		ThirdPartyReference:  "REF3",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.sandbox.vm.co.mz:18352/ipg/v1x/b2bPayment/singleStage/", mock.lastReq.URL.String())

	var sent map[string]string
	require.NoError(t, json.Unmarshal(mock.lastBody, &sent))
	assert.Equal(t, "171717", sent["PrimaryPartyCode"])
	assert.Equal(t, "979797", sent["RecipientPartyCode"])
	assert.Equal(t, "BusinessToBusinessTransfer", sent["PaymentServices"])
	assert.Equal(t, "500.00", sent["Amount"])

	data, ok := resp.Data.(*B2BData)
	require.True(t, ok)
	assert.Equal(t, "171717", data.PrimaryPartyCode)
	assert.Equal(t, "979797", data.RecipientPartyCode)
}

// TestQuerySuccess covers the status-query result shape
func TestQuerySuccess(t *testing.T) {
	mock := &mockHTTPClient{
		statusCode: http.StatusOK,
		body: `{
			"ResponseCode": "INS-0",
			"ConversationID": "C4",
			"ThirdPartyReference": "REF4",
			"ResponseTransactionStatus": "Completed"
		}`,
	}
	client := newTestClient(t, mock)

	resp, err := client.Query(context.Background(), &QueryRequest{
		QueryReference:      "T1",
		ThirdPartyReference: "REF4",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.sandbox.vm.co.mz:18352/ipg/v1x/queryPaymentStatus/", mock.lastReq.URL.String())

	var sent map[string]string
	require.NoError(t, json.Unmarshal(mock.lastBody, &sent))
	assert.Equal(t, "T1", sent["QueryReference"])
	assert.Equal(t, "171717", sent["ServiceProviderCode"])

	data, ok := resp.Data.(*QueryData)
	require.True(t, ok)
	assert.Equal(t, "Completed", data.TransactionStatus)
	assert.Equal(t, "REF4", data.ThirdPartyReference)
}

// TestReversalSuccess covers the reversal payload and result shape
func TestReversalSuccess(t *testing.T) {
	mock := &mockHTTPClient{
		statusCode: http.StatusOK,
		body:       `{"ResponseCode": "INS-0", "TransactionID": "T5", "ConversationID": "C5"}`,
	}
	client := newTestClient(t, mock)

	resp, err := client.Reversal(context.Background(), &ReversalRequest{
		Amount:              decimal.RequireFromString("10.5"),
		TransactionID:       "T5",
		ThirdPartyReference: "REF5",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.sandbox.vm.co.mz:18352/ipg/v1x/reversal/", mock.lastReq.URL.String())

	var sent map[string]string
	require.NoError(t, json.Unmarshal(mock.lastBody, &sent))
	assert.Equal(t, "10.50", sent["ReversalAmount"])
	assert.Equal(t, "T5", sent["TransactionID"])

	data, ok := resp.Data.(*ReversalData)
	require.True(t, ok)
	assert.Equal(t, "10.50", data.Amount)
	assert.Equal(t, "T5", data.TransactionID)
}

// TestBusinessError covers business failures under a 200 transport status
func TestBusinessError(t *testing.T) {
	t.Run("insufficient balance maps through the code table", func(t *testing.T) {
		mock := &mockHTTPClient{
			statusCode: http.StatusOK,
			body:       `{"ResponseCode": "INS-2006", "ThirdPartyReference": "REF6"}`,
		}
		client := newTestClient(t, mock)

		_, err := client.C2B(context.Background(), &C2BRequest{
			Amount:              decimal.NewFromInt(100),
			CustomerMSISDN:      "258841234567",
			ThirdPartyReference: "REF6",
		})
		require.Error(t, err)

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "INS-2006", apiErr.Code)
		assert.Equal(t, "Insufficient balance", apiErr.Description)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "REF6", apiErr.ThirdPartyReference)
	})

	t.Run("unknown code keeps the upstream description", func(t *testing.T) {
		mock := &mockHTTPClient{
			statusCode: http.StatusOK,
			body:       `{"ResponseCode": "INS-9999", "ResponseDesc": "Upstream maintenance window"}`,
		}
		client := newTestClient(t, mock)

		_, err := client.Query(context.Background(), &QueryRequest{QueryReference: "T1"})

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "INS-9999", apiErr.Code)
		assert.Equal(t, "Upstream maintenance window", apiErr.Description)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})
}

// TestTransportError covers HTTP-level and network-level failures
func TestTransportError(t *testing.T) {
	t.Run("http error status is preserved", func(t *testing.T) {
		mock := &mockHTTPClient{
			statusCode: http.StatusUnauthorized,
			body:       `{"ResponseCode": "INS-2", "ConversationID": "C7"}`,
		}
		client := newTestClient(t, mock)

		_, err := client.B2C(context.Background(), &B2CRequest{
			Amount:         decimal.NewFromInt(1),
			CustomerMSISDN: "258851234567",
		})

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "INS-2", apiErr.Code)
		assert.Equal(t, "Invalid API Key", apiErr.Description)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "C7", apiErr.ConversationID)
	})

	t.Run("network failure yields the fixed fallback", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		client := newTestClient(t, &mockHTTPClient{err: cause})

		_, err := client.C2B(context.Background(), &C2BRequest{
			Amount:         decimal.NewFromInt(1),
			CustomerMSISDN: "258841234567",
		})

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeInternalError, apiErr.Code)
		assert.Equal(t, networkErrorDescription, apiErr.Description)
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("non-JSON body yields the generic fallback", func(t *testing.T) {
		mock := &mockHTTPClient{statusCode: http.StatusBadGateway, body: "<html>bad gateway</html>"}
		client := newTestClient(t, mock)

		_, err := client.Query(context.Background(), &QueryRequest{QueryReference: "T1"})

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeInternalError, apiErr.Code)
		assert.Equal(t, "Internal Error", apiErr.Description)
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	})
}
