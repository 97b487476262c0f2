package dealer

import (
	"context"

	"github.com/dealerdesk/dealerdesk/internal/scope"
)

// Collection constructors: each dashboard view instantiates the generic
// scoped resource with the fetch for its entity. The scope package supplies
// the null-scope and staleness guards; nothing here repeats them.

// NewDealershipCollection lists a group's rooftops.
func NewDealershipCollection(repo DealershipRepository) *scope.Resource[Dealership] {
	return scope.NewResource(func(ctx context.Context, s scope.Scope) ([]Dealership, error) {
		return repo.ListByGroup(ctx, s.DealerGroupID)
	}, scope.KeyDealerGroup)
}

// NewUserCollection lists a group's staff records.
func NewUserCollection(repo UserRepository) *scope.Resource[User] {
	return scope.NewResource(func(ctx context.Context, s scope.Scope) ([]User, error) {
		return repo.ListByGroup(ctx, s.DealerGroupID)
	}, scope.KeyDealerGroup)
}

// NewDealershipUserCollection lists staff of one rooftop; it requires both
// scope keys and stays empty until both are bound.
func NewDealershipUserCollection(repo UserRepository) *scope.Resource[User] {
	return scope.NewResource(func(ctx context.Context, s scope.Scope) ([]User, error) {
		return repo.ListByDealership(ctx, s.DealerGroupID, s.DealershipID)
	}, scope.KeyDealerGroup, scope.KeyDealership)
}

// NewDepartmentCollection lists a group's departments.
func NewDepartmentCollection(repo DepartmentRepository) *scope.Resource[Department] {
	return scope.NewResource(func(ctx context.Context, s scope.Scope) ([]Department, error) {
		return repo.ListDepartments(ctx, s.DealerGroupID)
	}, scope.KeyDealerGroup)
}
