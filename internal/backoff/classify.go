package backoff

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
	"time"
)

// The upstream adapter surfaces structured errors implementing these
// interfaces; classification prefers them over message sniffing.
type httpStatuser interface {
	HTTPStatus() int
}

type apiStatuser interface {
	APIStatus() string
}

type retryHinter interface {
	RetryHint() time.Duration
}

type quotaDescriber interface {
	QuotaDimension() string
}

// Classify maps an upstream error onto a failure class, extracting the
// server retry hint and quota dimension when present. Precedence:
// connection-reset, then rate-limit, then other.
func Classify(err error) Failure {
	if err == nil {
		return Failure{}
	}

	if isConnectionReset(err) {
		return Failure{Class: ClassConnectionReset}
	}

	if isRateLimited(err) {
		failure := Failure{Class: ClassRateLimited}
		var hinter retryHinter
		if errors.As(err, &hinter) {
			failure.RetryDelay = hinter.RetryHint()
		}
		var quota quotaDescriber
		if errors.As(err, &quota) {
			failure.QuotaDimension = quota.QuotaDimension()
		}
		return failure
	}

	return Failure{Class: ClassOther}
}

// Retryable reports whether the error is worth feeding into the retry loop
// at all. Context cancellation and deadline expiry belong to the caller, not
// the policy.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func isConnectionReset(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	// Text fallback for errors that lost their type crossing an API
	// boundary.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "connecterror")
}

func isRateLimited(err error) bool {
	var httpErr httpStatuser
	if errors.As(err, &httpErr) && httpErr.HTTPStatus() == 429 {
		return true
	}
	var apiErr apiStatuser
	if errors.As(err, &apiErr) && apiErr.APIStatus() == "RESOURCE_EXHAUSTED" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429")
}
