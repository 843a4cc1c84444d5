package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
)

// bucketState mirrors a rate_limit row for remaining-token reads.
type bucketState struct {
	Tokens float64 `json:"tokens"`
}

// QueryTakeTokens refills a token bucket up to capacity based on elapsed time
// and then attempts to take cost tokens from it. The refill and the take run
// in one transaction so concurrent workers never over-spend a bucket.
// Returns whether the take succeeded and the tokens remaining afterwards.
func (c *Client) QueryTakeTokens(
	ctx context.Context,
	key string,
	cost float64,
	capacity float64,
	refillPerMinute float64,
	now time.Time,
) (bool, float64, error) {
	refillPerSecond := refillPerMinute / 60.0

	sql := `
		BEGIN TRANSACTION;
		UPSERT type::record("rate_limit", $key) SET
			tokens = math::min(
				$capacity,
				(tokens ?? $capacity) + duration::secs($now - (updated_at ?? $now)) * $refill_per_second
			),
			updated_at = $now;
		UPDATE type::record("rate_limit", $key) SET
			tokens -= $cost
		WHERE tokens >= $cost
		RETURN AFTER;
		COMMIT TRANSACTION;
	`

	results, err := surrealdb.Query[[]bucketState](ctx, c.db, sql, map[string]any{
		"key":               key,
		"cost":              cost,
		"capacity":          capacity,
		"refill_per_second": refillPerSecond,
		"now":               now,
	})
	if err != nil {
		return false, 0, fmt.Errorf("take tokens: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return false, 0, nil
	}

	// The conditional UPDATE is the last statement: a row means the take
	// went through; no row means the bucket was short.
	last := (*results)[len(*results)-1]
	if len(last.Result) > 0 {
		return true, last.Result[0].Tokens, nil
	}

	// Read back the refilled balance for the caller's error message.
	remaining, err := c.queryBucketTokens(ctx, key)
	if err != nil {
		return false, 0, err
	}
	return false, remaining, nil
}

func (c *Client) queryBucketTokens(ctx context.Context, key string) (float64, error) {
	results, err := surrealdb.Query[[]bucketState](ctx, c.db, `
		SELECT tokens FROM type::record("rate_limit", $key)
	`, map[string]any{"key": key})
	if err != nil {
		return 0, fmt.Errorf("bucket tokens: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Tokens, nil
}
