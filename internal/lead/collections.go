package lead

import (
	"context"

	"github.com/dealerdesk/dealerdesk/internal/scope"
)

// NewLeadCollection lists a group's leads for the dashboard.
func NewLeadCollection(repo Repository) *scope.Resource[Lead] {
	return scope.NewResource(func(ctx context.Context, s scope.Scope) ([]Lead, error) {
		return repo.ListByGroup(ctx, s.DealerGroupID)
	}, scope.KeyDealerGroup)
}

// NewDealershipLeadCollection lists one rooftop's leads; it stays empty
// until both scope keys are bound.
func NewDealershipLeadCollection(repo Repository) *scope.Resource[Lead] {
	return scope.NewResource(func(ctx context.Context, s scope.Scope) ([]Lead, error) {
		return repo.ListByDealership(ctx, s.DealerGroupID, s.DealershipID)
	}, scope.KeyDealerGroup, scope.KeyDealership)
}
