package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DefaultStructuredAttempts bounds the retry loop for structured output.
const DefaultStructuredAttempts = 3

// GenerateStructured asks the model for JSON, validates it against the
// schema, and decodes it into T. API failures, unparseable responses, and
// schema violations are all retried with exponential backoff (1s, 2s, 4s...)
// because model output is stochastic; only errors matching ErrFatalAPI abort
// immediately. The returned Usage covers every attempt, including failed
// ones: those tokens were consumed too.
func GenerateStructured[T any](
	ctx context.Context,
	m *Model,
	systemPrompt string,
	userPrompt string,
	schema *jsonschema.Schema,
	maxAttempts int,
) (*T, Usage, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultStructuredAttempts
	}

	var total Usage
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			slog.Debug("retrying structured generation", "attempt", attempt+1, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, total, ctx.Err()
			case <-time.After(backoff):
			}
		}

		response, usage, err := m.GenerateWithSystem(ctx, systemPrompt, userPrompt)
		total.Add(usage)
		if err != nil {
			if isFatalAPIError(err) {
				return nil, total, wrapFatalError(err)
			}
			lastErr = err
			continue
		}

		raw, err := ExtractJSON(response)
		if err != nil {
			lastErr = err
			continue
		}

		// Validate the untyped document first so schema violations surface
		// with the validator's path diagnostics instead of a decode error.
		var untyped any
		if err := json.Unmarshal([]byte(raw), &untyped); err != nil {
			lastErr = fmt.Errorf("parse model JSON: %w", err)
			continue
		}
		if err := schema.Validate(untyped); err != nil {
			lastErr = fmt.Errorf("model output does not match schema: %w", err)
			continue
		}

		var out T
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			lastErr = fmt.Errorf("decode model JSON: %w", err)
			continue
		}
		return &out, total, nil
	}

	return nil, total, fmt.Errorf("structured generation failed after %d attempts: %w", maxAttempts, lastErr)
}
