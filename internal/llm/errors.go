// Package llm provides LLM and embedding services using langchaingo.
package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRateLimited marks provider throttling. Callers may retry after backoff.
var ErrRateLimited = errors.New("rate limited")

// ErrFatalAPI marks provider errors that retrying cannot fix, such as
// billing or authentication failures. Callers should stop the operation.
var ErrFatalAPI = errors.New("fatal API error")

// ErrUpstream marks an unreachable or failing model backend. Stages degrade
// locally instead of failing the whole request.
var ErrUpstream = errors.New("upstream unavailable")

var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"too many requests",
}

var fatalMarkers = []string{
	"credit balance",
	"quota exceeded",
	"billing",
	"invalid api key",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

// isRateLimited reports whether an error looks like provider throttling.
// Providers surface this inconsistently, so this matches on message text.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// isFatalAPIError reports whether an error is unrecoverable at the API level.
func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range fatalMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ClassifyError wraps provider errors with the matching sentinel so callers
// can branch with errors.Is. Rate limiting is checked first since some
// providers phrase 429s with auth-like wording.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if isRateLimited(err) {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	if isFatalAPIError(err) {
		return fmt.Errorf("%w: %w", ErrFatalAPI, err)
	}
	return err
}
