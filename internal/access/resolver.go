package access

import (
	"context"
	"errors"

	"prospera-platform/pkg/logger"
)

// ErrNotFound is returned by stores when no record exists.
var ErrNotFound = errors.New("access: not found")

// RoleStore resolves the current stored global role for a user.
// Implementations return ErrNotFound when the user has no role record.
type RoleStore interface {
	RoleByIdentity(ctx context.Context, userID string) (Role, error)
}

// CompanyAdminStore resolves the per-(user, company) administrator flag.
type CompanyAdminStore interface {
	IsCompanyAdmin(ctx context.Context, userID, companyID string) (bool, error)
}

// OwnerStore resolves the identity linked to a resource such as an employee record.
// Implementations return ErrNotFound when the resource is unknown or unlinked.
type OwnerStore interface {
	ResourceOwner(ctx context.Context, resourceID string) (string, error)
}

// Resolver decides whether a user may exercise a capability.
//
// Priority (first match wins):
//  1. role lookup (errors fail closed)
//  2. superadmin-tools requires super_admin
//  3. super_admin bypasses everything else
//  4. view / manage-company require bank_manager
//  5. manage-employees: bank_manager, company_manager, company admin flag, self access
//
// Resolve only reads. It keeps no state between calls and is safe for concurrent use.
type Resolver struct {
	Roles         RoleStore
	CompanyAdmins CompanyAdminStore
	Owners        OwnerStore
}

func NewResolver(roles RoleStore, companyAdmins CompanyAdminStore, owners OwnerStore) *Resolver {
	return &Resolver{Roles: roles, CompanyAdmins: companyAdmins, Owners: owners}
}

// Resolve never returns an error; every failure is a denying Decision.
// An empty userID means the caller is not authenticated.
func (r *Resolver) Resolve(ctx context.Context, userID string, capability Capability, rc *ResourceContext) Decision {
	if userID == "" {
		return deny(ReasonUnauthenticated)
	}
	if !capability.Valid() {
		return deny(ReasonDenied)
	}

	role, err := r.lookupRole(ctx, userID)
	if err != nil {
		return r.lookupFailed(ctx, userID, capability, err)
	}

	if capability == CapabilitySuperadminTools {
		if IsSuperAdmin(role) {
			return grant(BasisSuperAdmin)
		}
		return deny(ReasonDenied)
	}

	if IsSuperAdmin(role) {
		return grant(BasisSuperAdmin)
	}

	switch capability {
	case CapabilityView, CapabilityManageCompany:
		if IsBankAdmin(role) {
			return grant(BasisRole)
		}
		return deny(ReasonDenied)
	case CapabilityManageEmployees:
		return r.resolveManageEmployees(ctx, userID, role, rc)
	}
	return deny(ReasonDenied)
}

func (r *Resolver) resolveManageEmployees(ctx context.Context, userID string, role Role, rc *ResourceContext) Decision {
	if IsBankAdmin(role) || role == RoleCompanyManager {
		return grant(BasisRole)
	}
	if rc.empty() {
		return deny(ReasonDenied)
	}

	if rc.CompanyID != "" {
		if r.CompanyAdmins == nil {
			return r.lookupFailed(ctx, userID, CapabilityManageEmployees, errors.New("company admin store not configured"))
		}
		ok, err := r.CompanyAdmins.IsCompanyAdmin(ctx, userID, rc.CompanyID)
		if err != nil {
			return r.lookupFailed(ctx, userID, CapabilityManageEmployees, err)
		}
		if ok {
			return grant(BasisCompanyAdmin)
		}
	}

	// A resource's owner always comes from the store. A supplied owner is
	// only used when no resource is named.
	owner := rc.ResourceOwnerUserID
	if rc.ResourceID != "" {
		owner = ""
		if r.Owners == nil {
			return r.lookupFailed(ctx, userID, CapabilityManageEmployees, errors.New("owner store not configured"))
		}
		o, err := r.Owners.ResourceOwner(ctx, rc.ResourceID)
		switch {
		case errors.Is(err, ErrNotFound):
			// unlinked record: nobody owns it
		case err != nil:
			return r.lookupFailed(ctx, userID, CapabilityManageEmployees, err)
		default:
			owner = o
		}
	}
	// Ownership is strict equality; same company is not enough.
	if owner != "" && owner == userID {
		return grant(BasisSelf)
	}
	return deny(ReasonDenied)
}

func (r *Resolver) lookupRole(ctx context.Context, userID string) (Role, error) {
	if r.Roles == nil {
		return "", errors.New("role store not configured")
	}
	role, err := r.Roles.RoleByIdentity(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return RoleCompanyEmployee, nil
	}
	if err != nil {
		return "", err
	}
	if !role.Valid() {
		return RoleCompanyEmployee, nil
	}
	return role, nil
}

func (r *Resolver) lookupFailed(ctx context.Context, userID string, capability Capability, err error) Decision {
	logger.From(ctx).Warn("access lookup failed",
		"user_id", userID, "capability", string(capability), "err", err)
	return deny(ReasonLookupFailed)
}
