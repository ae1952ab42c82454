package connectors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// APIRequestError is a transient failure: the network, a timeout, a 5xx or
// throttling status, or a non-ok result code on a read.
type APIRequestError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	// NotSent is true when the request never reached the broker.
	NotSent bool
	Err     error
}

func (e *APIRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kis %s: request failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("kis %s: request failed: status=%d code=%s msg=%s", e.Op, e.StatusCode, e.Code, e.Message)
}

func (e *APIRequestError) Unwrap() error { return e.Err }

// AuthenticationError means the credentials or the token were refused.
type AuthenticationError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kis %s: authentication failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("kis %s: authentication failed: status=%d code=%s msg=%s", e.Op, e.StatusCode, e.Code, e.Message)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// OrderRejectedError is an order the broker received and declined.
type OrderRejectedError struct {
	Symbol  string
	Code    string
	Message string
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("kis order %s rejected: code=%s msg=%s", e.Symbol, e.Code, e.Message)
}

// RequestError is a malformed request or an unexpected response body.
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("kis %s: bad request: status=%d msg=%s", e.Op, e.StatusCode, e.Message)
}

// IsTransient reports whether err may succeed when retried.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIRequestError
	return errors.As(err, &apiErr)
}

// IsNotSent reports whether err is a transient failure that happened before
// the request reached the broker.
func IsNotSent(err error) bool {
	var apiErr *APIRequestError
	return errors.As(err, &apiErr) && apiErr.NotSent
}

// IsAuthentication reports whether err is an authentication failure.
func IsAuthentication(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// IsOrderRejected reports whether err is a declined order.
func IsOrderRejected(err error) bool {
	var rej *OrderRejectedError
	return errors.As(err, &rej)
}

// transportError wraps an error returned before any response was read.
func transportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &APIRequestError{
		Op:      op,
		NotSent: isDialError(err),
		Err:     err,
	}
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// KIS message codes that mean the access token is invalid or expired.
var authMessageCodes = map[string]bool{
	"EGW00121": true,
	"EGW00123": true,
	"EGW00205": true,
}

// Rate-limit message code; the broker did not process the request.
const throttledMessageCode = "EGW00201"
