package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureReason classifies why a fetch produced no usable text.
type FailureReason string

const (
	ReasonTimeout    FailureReason = "timeout"
	ReasonNetwork    FailureReason = "network"
	ReasonHTTPStatus FailureReason = "http_status"
	ReasonBlocked    FailureReason = "blocked"
	ReasonEmpty      FailureReason = "empty"
	ReasonTooShort   FailureReason = "too_short"
	ReasonRedirect   FailureReason = "redirect"
	ReasonBrowser    FailureReason = "browser"
)

// Error is a classified fetch failure. The message is recorded on the record as a diagnostic.
type Error struct {
	Reason FailureReason
	Domain string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Reason)
	if e.Domain != "" {
		msg += " from " + e.Domain
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ReasonOf returns the classification of err, or the empty reason for unclassified errors.
func ReasonOf(err error) FailureReason {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ""
}

func newError(reason FailureReason, domain, detail string, err error) *Error {
	return &Error{Reason: reason, Domain: domain, Detail: detail, Err: err}
}

// classifyTransport maps a transport-level error onto timeout or network.
func classifyTransport(domain string, err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return newError(ReasonTimeout, domain, "", err)
	}
	return newError(ReasonNetwork, domain, fmt.Sprintf("%T", unwrapAll(err)), err)
}

func unwrapAll(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
