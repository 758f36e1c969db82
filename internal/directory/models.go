package directory

import (
	"time"

	"prospera-platform/internal/access"
)

// Profile is the platform user record. Role is mutated only through Store.UpdateRole.
type Profile struct {
	ID        string      `json:"id" db:"id"`
	BankID    string      `json:"bank_id,omitempty" db:"bank_id"`
	Email     string      `json:"email,omitempty" db:"email"`
	Role      access.Role `json:"role" db:"role"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// Employee is a corporate client's employee record. PlatformUserID links it to the
// platform user it belongs to, if any.
type Employee struct {
	ID             string `json:"id" db:"id"`
	CompanyID      string `json:"company_id" db:"company_id"`
	PlatformUserID string `json:"platform_user_id,omitempty" db:"platform_user_id"`
	FullName       string `json:"full_name" db:"full_name"`
	Email          string `json:"email,omitempty" db:"email"`
}
