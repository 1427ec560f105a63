package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindOther},
		{"plain error", errors.New("boom"), KindOther},
		{"auth provider error", &ProviderError{Kind: KindAuth, Provider: "openai"}, KindAuth},
		{"rate limited", &ProviderError{Kind: KindRateLimited, Provider: "openai"}, KindRateLimited},
		{"wrapped provider error", fmt.Errorf("calling api: %w", &ProviderError{Kind: KindTimeout, Provider: "ollama"}), KindTimeout},
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{401, KindAuth},
		{403, KindAuth},
		{429, KindRateLimited},
		{408, KindTimeout},
		{504, KindTimeout},
		{500, KindOther},
		{400, KindOther},
	}

	for _, tt := range tests {
		if got := kindFromStatus(tt.status); got != tt.want {
			t.Errorf("kindFromStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &ProviderError{Kind: KindAuth, Provider: "openai", Status: 401, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("ProviderError should unwrap to its cause")
	}
	if err.Error() == "" {
		t.Error("empty error string")
	}
}
