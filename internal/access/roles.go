package access

import (
	"fmt"
	"strings"
)

// Role is the global privilege tier stored per user.
type Role string

// Role names. Keep these stable; they are stored in profiles.role.
const (
	RoleSuperAdmin      Role = "super_admin"
	RoleBankManager     Role = "bank_manager"
	RoleCompanyManager  Role = "company_manager"
	RoleCompanyEmployee Role = "company_employee"

	// legacyRoleAdmin is the pre-migration bank admin name still present in older rows.
	legacyRoleAdmin = "admin"
)

// Rank orders roles by privilege. Unknown roles rank below company_employee.
func (r Role) Rank() int {
	switch r {
	case RoleSuperAdmin:
		return 4
	case RoleBankManager:
		return 3
	case RoleCompanyManager:
		return 2
	case RoleCompanyEmployee:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r is as privileged as other.
func (r Role) AtLeast(other Role) bool { return r.Rank() >= other.Rank() && r.Rank() > 0 }

func (r Role) Valid() bool { return r.Rank() > 0 }

func (r Role) String() string { return string(r) }

// ParseRole maps a stored role value to a Role.
// An empty value means no role record and yields company_employee.
func ParseRole(raw string) (Role, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "":
		return RoleCompanyEmployee, nil
	case legacyRoleAdmin:
		return RoleBankManager, nil
	}
	r := Role(v)
	if !r.Valid() {
		return "", fmt.Errorf("access: unknown role %q", raw)
	}
	return r, nil
}

func IsSuperAdmin(r Role) bool { return r == RoleSuperAdmin }

// IsBankAdmin reports the bank-wide administrative tier.
func IsBankAdmin(r Role) bool { return r == RoleBankManager }
