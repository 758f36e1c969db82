package access

import "fmt"

// Capability is a named action class being authorized.
type Capability string

const (
	CapabilityView            Capability = "view"
	CapabilityManageEmployees Capability = "manage-employees"
	CapabilityManageCompany   Capability = "manage-company"
	CapabilitySuperadminTools Capability = "superadmin-tools"
)

func (c Capability) Valid() bool {
	switch c {
	case CapabilityView, CapabilityManageEmployees, CapabilityManageCompany, CapabilitySuperadminTools:
		return true
	default:
		return false
	}
}

func ParseCapability(raw string) (Capability, error) {
	c := Capability(raw)
	if !c.Valid() {
		return "", fmt.Errorf("access: unknown capability %q", raw)
	}
	return c, nil
}

// ResourceContext narrows a check to a company and/or an owned resource.
// All fields are optional.
type ResourceContext struct {
	CompanyID string `json:"company_id,omitempty"`

	// ResourceID identifies an owned record (e.g. an employee row).
	// Its owner is always looked up in the OwnerStore.
	ResourceID string `json:"resource_id,omitempty"`

	// ResourceOwnerUserID is only consulted when ResourceID is empty.
	ResourceOwnerUserID string `json:"resource_owner_user_id,omitempty"`
}

func (rc *ResourceContext) empty() bool {
	return rc == nil || (rc.CompanyID == "" && rc.ResourceID == "" && rc.ResourceOwnerUserID == "")
}

// Reason is the outcome code carried by a Decision.
type Reason string

const (
	ReasonGranted         Reason = "granted"
	ReasonDenied          Reason = "denied"
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonLookupFailed    Reason = "lookup_failed"
)

// Basis records which rule produced a grant. Internal only; never shown to a denied user.
type Basis string

const (
	BasisSuperAdmin   Basis = "super_admin"
	BasisRole         Basis = "role"
	BasisCompanyAdmin Basis = "company_admin"
	BasisSelf         Basis = "self"
)

// Decision is the resolver's output.
type Decision struct {
	Granted bool   `json:"granted"`
	Reason  Reason `json:"reason"`
	Basis   Basis  `json:"-"`
}

// SelfOnly reports a grant limited to the caller's own record.
func (d Decision) SelfOnly() bool { return d.Granted && d.Basis == BasisSelf }

func grant(b Basis) Decision { return Decision{Granted: true, Reason: ReasonGranted, Basis: b} }

func deny(r Reason) Decision { return Decision{Reason: r} }
