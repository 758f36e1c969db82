package directory

import (
	"context"
	"errors"

	"prospera-platform/internal/access"
)

// ErrNotFound aliases the resolver's sentinel so stores satisfy its contract directly.
var ErrNotFound = access.ErrNotFound

var ErrInvalidArgument = errors.New("directory: invalid argument")

// Store is the read/write surface over users, company admins and employees.
type Store interface {
	access.RoleStore
	access.CompanyAdminStore
	access.OwnerStore

	Profile(ctx context.Context, userID string) (Profile, error)
	Employee(ctx context.Context, companyID, employeeID string) (Employee, error)

	// UpdateRole sets the stored role and returns the previous one.
	UpdateRole(ctx context.Context, userID string, role access.Role) (access.Role, error)
	// SetCompanyAdmin grants or revokes the flag and reports whether anything changed.
	SetCompanyAdmin(ctx context.Context, userID, companyID string, enabled bool) (bool, error)
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
