package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a provider failure so callers can decide whether
// and how to retry without knowing which provider produced it.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindAuth
	KindRateLimited
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// ProviderError wraps a transport or API failure with its classification.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s provider error (%s, status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s provider error (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// kindFromStatus maps an HTTP status code to an ErrorKind.
func kindFromStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 429:
		return KindRateLimited
	case status == 408 || status == 504:
		return KindTimeout
	default:
		return KindOther
	}
}

// Classify inspects an error returned by a Provider and reports its kind.
// Context deadline expiry and network timeouts classify as KindTimeout.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindOther
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}

	return KindOther
}
