package llm

import (
	"errors"
	"testing"
)

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		limited bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("connection reset"), false},
		{"429 status", errors.New("HTTP 429: slow down"), true},
		{"rate limit text", errors.New("rate limit exceeded, retry later"), true},
		{"too many requests", errors.New("Too Many Requests"), true},
		{"timeout not limited", errors.New("context deadline exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isRateLimited(tt.err)
			if got != tt.limited {
				t.Errorf("isRateLimited(%v) = %v, want %v", tt.err, got, tt.limited)
			}
		})
	}
}

func TestIsFatalAPIError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("connection reset"), false},
		{"credit balance", errors.New("insufficient credit balance"), true},
		{"quota exceeded", errors.New("quota exceeded for model"), true},
		{"billing issue", errors.New("billing account inactive"), true},
		{"invalid api key", errors.New("invalid api key"), true},
		{"authentication failed", errors.New("authentication failed"), true},
		{"unauthorized", errors.New("unauthorized request"), true},
		{"401 status", errors.New("HTTP 401: not allowed"), true},
		{"404 not fatal", errors.New("HTTP 404: not found"), false},
		{"timeout not fatal", errors.New("context deadline exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isFatalAPIError(tt.err)
			if got != tt.fatal {
				t.Errorf("isFatalAPIError(%v) = %v, want %v", tt.err, got, tt.fatal)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	if err := ClassifyError(nil); err != nil {
		t.Errorf("ClassifyError(nil) = %v, want nil", err)
	}

	err := ClassifyError(errors.New("HTTP 429: rate limit exceeded"))
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	// Rate limiting takes priority even when the message also matches a
	// fatal marker.
	if errors.Is(err, ErrFatalAPI) {
		t.Errorf("rate limit error should not be fatal: %v", err)
	}

	err = ClassifyError(errors.New("invalid api key"))
	if !errors.Is(err, ErrFatalAPI) {
		t.Errorf("expected ErrFatalAPI, got %v", err)
	}

	plain := errors.New("connection reset")
	if got := ClassifyError(plain); got != plain {
		t.Errorf("plain errors should pass through unchanged, got %v", got)
	}
}
