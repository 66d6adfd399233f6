package offer

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation        = "validation"
	CodeOracleUnavailable = "oracle_unavailable"
	CodeMalformedOffer    = "malformed_offer"
	CodeInternal          = "internal"
)

// ValidationError means the user must correct the form and resubmit.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Code() string { return CodeValidation }

// OracleUnavailableError is returned after the adapter exhausted its attempts
// or hit a non-retryable transport failure. Callers surface it as "try again".
type OracleUnavailableError struct {
	Attempts int
	Err      error
}

func (e *OracleUnavailableError) Error() string {
	return fmt.Sprintf("offer model unavailable after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *OracleUnavailableError) Unwrap() error { return e.Err }

func (e *OracleUnavailableError) Code() string { return CodeOracleUnavailable }

// MalformedOfferError means the model answered but the reply broke the
// structural or numeric contract. It is never patched with invented values.
type MalformedOfferError struct {
	Offer  string
	Reason string
}

func (e *MalformedOfferError) Error() string {
	if e.Offer == "" {
		return "malformed offer reply: " + e.Reason
	}
	return fmt.Sprintf("malformed offer reply (%s): %s", e.Offer, e.Reason)
}

func (e *MalformedOfferError) Code() string { return CodeMalformedOffer }

func malformed(offer, format string, args ...any) error {
	return &MalformedOfferError{Offer: offer, Reason: fmt.Sprintf(format, args...)}
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ErrorCode returns the taxonomy code for err, or CodeInternal.
func ErrorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return CodeInternal
}

func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeMalformedOffer:
		return http.StatusBadGateway
	case CodeOracleUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage is the human-readable reason shown in the UI.
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	switch ErrorCode(err) {
	case CodeOracleUnavailable:
		return "The offer generator is not responding right now. Please try again in a minute."
	case CodeMalformedOffer:
		return "The generated offers did not pass validation, so nothing was shown. Please try generating again."
	}
	return "Failed to generate offers."
}
