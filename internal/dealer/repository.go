package dealer

import (
	"context"

	"github.com/dealerdesk/dealerdesk/internal/access"
)

// Every read below takes the dealer group id (and, where relevant, the
// dealership id) as an explicit argument: an unscoped read is not
// expressible through these interfaces.

// GroupRepository defines the interface for dealer group storage. It also
// satisfies access.GroupReader for the context resolver.
type GroupRepository interface {
	Create(ctx context.Context, group *DealerGroup) error
	GetByID(ctx context.Context, id string) (*DealerGroup, error)
	Update(ctx context.Context, group *DealerGroup) error
	SubscriptionState(ctx context.Context, dealerGroupID string) (*access.SubscriptionState, error)
}

// DealershipRepository defines the interface for dealership storage.
type DealershipRepository interface {
	Create(ctx context.Context, d *Dealership) error
	GetByID(ctx context.Context, dealerGroupID, id string) (*Dealership, error)
	ListByGroup(ctx context.Context, dealerGroupID string) ([]Dealership, error)
	Update(ctx context.Context, d *Dealership) error
	Delete(ctx context.Context, dealerGroupID, id string) error
}

// UserRepository defines the interface for staff-record storage.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, dealerGroupID, id string) (*User, error)
	ListByGroup(ctx context.Context, dealerGroupID string) ([]User, error)
	ListByDealership(ctx context.Context, dealerGroupID, dealershipID string) ([]User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, dealerGroupID, id string) error
	AssignDealership(ctx context.Context, link *UserDealership) error
}

// DepartmentRepository defines the interface for departments and job titles.
type DepartmentRepository interface {
	CreateDepartment(ctx context.Context, d *Department) error
	ListDepartments(ctx context.Context, dealerGroupID string) ([]Department, error)
	DeleteDepartment(ctx context.Context, dealerGroupID, id string) error
	CreateJobTitle(ctx context.Context, jt *JobTitle) error
	ListJobTitles(ctx context.Context, dealerGroupID, departmentID string) ([]JobTitle, error)
}
