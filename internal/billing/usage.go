package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"mess-o-midi-backend/internal/apperr"
	"mess-o-midi-backend/internal/database"
	"mess-o-midi-backend/internal/models"
)

const DefaultPlan = "free"

// UsageGate applies per-plan project limits. The plan comes from users.plan,
// which the billing provider keeps up to date.
type UsageGate struct {
	store  *database.Store
	limits map[string]*int
}

// NewUsageGate takes plan limits keyed by plan name; a nil limit is unlimited.
func NewUsageGate(store *database.Store, limits map[string]*int) *UsageGate {
	return &UsageGate{store: store, limits: limits}
}

func (g *UsageGate) CanCreateProject(ctx context.Context, ownerID uuid.UUID) (*models.Usage, error) {
	plan, err := g.Plan(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var current int
	if err := g.store.FetchOne(ctx, &current, "SELECT COUNT(*) FROM projects WHERE owner_id = ?", ownerID); err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	limit := g.Limit(plan)
	usage := &models.Usage{
		Current:   current,
		Limit:     limit,
		Plan:      plan,
		CanCreate: limit == nil || current < *limit,
	}
	if limit != nil && *limit > 0 {
		usage.Percentage = float64(current) / float64(*limit) * 100
	}
	return usage, nil
}

// Plan returns the owner's plan. Unknown users and unknown plan names fall
// back to the free plan.
func (g *UsageGate) Plan(ctx context.Context, ownerID uuid.UUID) (string, error) {
	var plan string
	err := g.store.FetchOne(ctx, &plan, "SELECT plan FROM users WHERE id = ?", ownerID)
	if errors.Is(err, apperr.ErrNotFound) {
		return DefaultPlan, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load plan: %w", err)
	}
	if _, ok := g.limits[plan]; !ok {
		return DefaultPlan, nil
	}
	return plan, nil
}

func (g *UsageGate) Limit(plan string) *int {
	limit, ok := g.limits[plan]
	if !ok {
		return g.limits[DefaultPlan]
	}
	return limit
}
