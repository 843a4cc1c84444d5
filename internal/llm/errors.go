package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFatalAPI marks model API errors that retrying cannot fix: bad
// credentials, billing problems, malformed requests. Callers check with
// errors.Is and fail the job instead of burning retry attempts. Rate limits
// and server errors are NOT fatal; the retry backoff absorbs those.
var ErrFatalAPI = errors.New("non-retryable model API error")

// fatalMarkers are substrings of provider error messages that indicate a
// permanent failure.
var fatalMarkers = []string{
	"credit balance",
	"billing",
	"invalid api key",
	"invalid_api_key",
	"authentication",
	"unauthorized",
	"401",
	"403",
	"model_not_found",
}

// isFatalAPIError reports whether a model call error is permanent.
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

// wrapFatalError wraps permanent errors with ErrFatalAPI so callers can use
// errors.Is; transient errors pass through unchanged.
func wrapFatalError(err error) error {
	if isFatalAPIError(err) {
		return fmt.Errorf("%w: %v", ErrFatalAPI, err)
	}
	return err
}
