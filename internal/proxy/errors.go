package proxy

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAllModesExhausted means every tier in the ladder failed for a URL.
	ErrAllModesExhausted = errors.New("all proxy modes exhausted for host")
	// ErrPermanent marks failures no tier can fix, like a 404.
	ErrPermanent = errors.New("permanent fetch failure")
	// ErrInvalidContent means the body arrived but the caller's validator
	// rejected it.
	ErrInvalidContent = errors.New("content validation failed")

	// errEscalate and errRetryable classify failures internally:
	// errRetryable is retried within the current mode, errEscalate moves
	// straight to the next tier.
	errEscalate  = errors.New("escalate to next proxy mode")
	errRetryable = errors.New("transient fetch failure")
)

// classifyStatus folds an HTTP status into the retry taxonomy. 403 and 429
// are treated as anti-bot pushback: a better IP tier may get through, so
// they escalate rather than fail the URL outright.
func classifyStatus(statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", errRetryable, statusCode)
	case statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", errEscalate, statusCode)
	case statusCode >= 400 && statusCode < 500:
		return fmt.Errorf("%w: status %d", ErrPermanent, statusCode)
	default:
		return fmt.Errorf("%w: status %d", errRetryable, statusCode)
	}
}
