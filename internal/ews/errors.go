package ews

import (
	"errors"
	"fmt"
	"net"
)

// StatusError is an HTTP-level failure from the EWS endpoint.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ews: endpoint returned HTTP %d", e.StatusCode)
}

// Fault is a protocol-level error reported inside an EWS response
// (a SOAP fault or a ResponseMessage with ResponseClass "Error").
type Fault struct {
	ResponseCode string
	Message      string
}

func (e *Fault) Error() string {
	if e.Message == "" {
		return "ews: " + e.ResponseCode
	}
	return fmt.Sprintf("ews: %s: %s", e.ResponseCode, e.Message)
}

// retryableFaults is the fixed set of EWS response codes that signal
// throttling or a transient server condition.
var retryableFaults = map[string]bool{
	"ErrorServerBusy":                   true,
	"ErrorTimeoutExpired":               true,
	"ErrorInternalServerTransientError": true,
	"ErrorTooManyObjectsOpened":         true,
}

// IsRetryable classifies an error as worth retrying: network transport
// failures (timeouts, resets), HTTP 5xx, HTTP 429, and the fixed set of
// transient EWS fault codes. Everything else — auth failures, schema errors,
// not-found — propagates immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == 429
	}

	var fault *Fault
	if errors.As(err, &fault) {
		return retryableFaults[fault.ResponseCode]
	}

	return false
}
