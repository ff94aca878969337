package api

import (
	"fmt"
	"net/http"
)

// CodeSuccess is the gateway's success sentinel. Every other response code is
// a business-level failure, even under a 200 transport status.
const CodeSuccess = "INS-0"

// CodeInternalError is the fallback code for failures that carry no usable
// response code of their own (network errors, non-JSON bodies).
const CodeInternalError = "INS-1"

// networkErrorDescription is the fixed text for transport failures that
// produced no response at all.
const networkErrorDescription = "Network error: unable to reach the payment gateway"

// errorDescriptions maps gateway response codes to operator-facing text. The
// table is read-only; unknown codes fall back to the body's own description.
var errorDescriptions = map[string]string{
	"INS-0":    "Request processed successfully",
	"INS-1":    "Internal Error",
	"INS-2":    "Invalid API Key",
	"INS-4":    "User is not active",
	"INS-5":    "Transaction cancelled by customer",
	"INS-6":    "Transaction Failed",
	"INS-9":    "Request timeout",
	"INS-10":   "Duplicate Transaction",
	"INS-13":   "Invalid Shortcode Used",
	"INS-14":   "Invalid Reference Used",
	"INS-15":   "Invalid Amount Used",
	"INS-16":   "Unable to handle the request due to a temporary overloading",
	"INS-17":   "Invalid Transaction Reference Length",
	"INS-18":   "Invalid Transaction ID Used",
	"INS-19":   "Invalid Third Party Reference Used",
	"INS-20":   "Not All Parameters Provided. Please try again",
	"INS-21":   "Parameter validations failed. Please try again",
	"INS-22":   "Invalid Operation Type",
	"INS-23":   "Unknown Status. Contact M-Pesa Support",
	"INS-24":   "Invalid Initiator Identifier",
	"INS-25":   "Invalid Security Credential",
	"INS-26":   "Not authorized",
	"INS-993":  "Direct Debit Missing",
	"INS-994":  "Direct Debit Already Exists",
	"INS-995":  "Customer's Profile Has Problems",
	"INS-996":  "Customer Account Status Not Active",
	"INS-997":  "Linking Transaction Not Found",
	"INS-998":  "Invalid Market",
	"INS-2001": "Initiator authentication error",
	"INS-2002": "Receiver invalid",
	"INS-2006": "Insufficient balance",
	"INS-2051": "Invalid MSISDN",
	"INS-2057": "Language code invalid",
}

// Error is the typed error produced for every non-success outcome. It carries
// enough structured detail to log or re-present to an operator.
type Error struct {
	Code                string `json:"code"`
	Description         string `json:"description"`
	StatusCode          int    `json:"httpStatus"`
	TransactionID       string `json:"transactionId,omitempty"`
	ConversationID      string `json:"conversationId,omitempty"`
	ThirdPartyReference string `json:"thirdPartyReference,omitempty"`

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("mpesa: %s (code %s, http %d)", e.Description, e.Code, e.StatusCode)
}

// Unwrap exposes the underlying transport error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// describe resolves the operator-facing text for a response code: the static
// table first, then the body's own description, then the generic fallback.
func describe(code, bodyDesc string) string {
	if desc, ok := errorDescriptions[code]; ok {
		return desc
	}
	if bodyDesc != "" {
		return bodyDesc
	}
	return errorDescriptions[CodeInternalError]
}

// newGatewayError normalizes a decoded body with a non-success response code.
// A 200 transport status is rewritten to 400 since the gateway reported a
// business failure inside a success status.
func newGatewayError(raw *rawResponse, statusCode int) *Error {
	code := raw.ResponseCode
	if code == "" {
		code = CodeInternalError
	}
	if statusCode == http.StatusOK || statusCode == http.StatusCreated {
		statusCode = http.StatusBadRequest
	}
	return &Error{
		Code:                code,
		Description:         describe(code, raw.ResponseDesc),
		StatusCode:          statusCode,
		TransactionID:       raw.TransactionID,
		ConversationID:      raw.ConversationID,
		ThirdPartyReference: raw.ThirdPartyReference,
	}
}

// newTransportError normalizes a failure that produced no response object.
func newTransportError(cause error) *Error {
	return &Error{
		Code:        CodeInternalError,
		Description: networkErrorDescription,
		StatusCode:  http.StatusInternalServerError,
		cause:       cause,
	}
}

// newDecodeError normalizes an HTTP-level failure whose body could not be
// decoded as a gateway response.
func newDecodeError(statusCode int, cause error) *Error {
	return &Error{
		Code:        CodeInternalError,
		Description: errorDescriptions[CodeInternalError],
		StatusCode:  statusCode,
		cause:       cause,
	}
}
