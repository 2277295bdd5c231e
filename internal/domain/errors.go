package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrWarehouseNotFound    = errors.New("warehouse not found")
	ErrRemittanceNotFound   = errors.New("remittance not found")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrUnknownCourier       = errors.New("unknown courier")
	ErrInsufficientFunds    = errors.New("insufficient wallet balance")
	ErrDuplicateTransaction = errors.New("wallet transaction already applied")
	ErrStatusConflict       = errors.New("order status changed concurrently")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrBookingInProgress    = errors.New("booking already in progress")
	ErrNotBooked            = errors.New("order has no carrier booking")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrWarehouseExists      = errors.New("warehouse name already exists")
	ErrRemittanceNotPayable = errors.New("remittance is not awaiting payout")
	ErrInvalidQuoteRequest  = errors.New("invalid quote request")
	ErrInvalidWarehouse     = errors.New("warehouse name and pincode are required")
	ErrCourierNotQuoted     = errors.New("courier does not serve this shipment")
	ErrChargesMissing       = errors.New("order has no courier charges")
)

// CarrierErrorKind classifies a failed carrier call.
type CarrierErrorKind int

const (
	// Transport covers network failures, timeouts, 429 and 5xx. Retryable.
	CarrierErrTransport CarrierErrorKind = iota + 1
	// Rejection is a valid carrier response refusing the request. Not retryable.
	CarrierErrRejection
	// Auth means the credential was refused even after one forced refresh.
	CarrierErrAuth
	// Configuration means a required secret or endpoint is missing.
	CarrierErrConfiguration
)

func (k CarrierErrorKind) String() string {
	switch k {
	case CarrierErrTransport:
		return "transport"
	case CarrierErrRejection:
		return "rejection"
	case CarrierErrAuth:
		return "auth"
	case CarrierErrConfiguration:
		return "configuration"
	}
	return "unknown"
}

// CarrierError is returned by every adapter call. Message is safe to store
// on the order and show to users; it never carries the raw response body.
type CarrierError struct {
	Kind       CarrierErrorKind
	Carrier    CarrierKind
	Message    string
	StatusCode int
	Err        error
}

func (e *CarrierError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s error (status %d): %s", e.Carrier, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s error: %s", e.Carrier, e.Kind, e.Message)
}

func (e *CarrierError) Unwrap() error { return e.Err }

func NewRejection(carrier CarrierKind, status int, message string) *CarrierError {
	return &CarrierError{Kind: CarrierErrRejection, Carrier: carrier, StatusCode: status, Message: message}
}

func NewTransportError(carrier CarrierKind, status int, err error) *CarrierError {
	msg := "carrier unavailable"
	if err != nil {
		msg = err.Error()
	}
	return &CarrierError{Kind: CarrierErrTransport, Carrier: carrier, StatusCode: status, Message: msg, Err: err}
}

func NewConfigurationError(carrier CarrierKind, message string) *CarrierError {
	return &CarrierError{Kind: CarrierErrConfiguration, Carrier: carrier, Message: message}
}

func carrierErrorKind(err error) CarrierErrorKind {
	var ce *CarrierError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// IsRetryable reports whether a caller may retry the call that produced err.
func IsRetryable(err error) bool { return carrierErrorKind(err) == CarrierErrTransport }

func IsRejection(err error) bool { return carrierErrorKind(err) == CarrierErrRejection }

func IsAuthError(err error) bool { return carrierErrorKind(err) == CarrierErrAuth }

func IsConfigurationError(err error) bool { return carrierErrorKind(err) == CarrierErrConfiguration }

// FailureMessage returns the text to persist on an order for err.
func FailureMessage(err error) string {
	var ce *CarrierError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
