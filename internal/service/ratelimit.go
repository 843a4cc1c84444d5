package service

import (
	"context"
	"fmt"
)

// Token bucket parameters for expensive user-triggered operations. Each
// project has one bucket; profile builds and generation runs spend from it.
const (
	RateLimitCapacity  = 100.0
	RateLimitRefillMin = 10.0

	CostProfileBuild  = 10.0
	CostGenerationRun = 20.0
)

// takeTokens spends cost from the project's bucket or returns ErrRateLimited
// with the remaining balance.
func (s *Service) takeTokens(ctx context.Context, projectID string, cost float64) error {
	allowed, remaining, err := s.repo.QueryTakeTokens(
		ctx, projectID, cost, RateLimitCapacity, RateLimitRefillMin, s.now())
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: operation needs %.0f tokens, %.0f available", ErrRateLimited, cost, remaining)
	}
	return nil
}
