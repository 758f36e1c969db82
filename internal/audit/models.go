package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Audit is best-effort; callers must not block access decisions on audit failures.
// - Denial events never reach the denied user.
type Event struct {
	ID     string `json:"id" db:"id"`
	BankID string `json:"bank_id,omitempty" db:"bank_id"`

	Type EventType `json:"type" db:"type"`

	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	// ActorRole is the role at the time of the event.
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`

	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	TargetUserID string `json:"target_user_id,omitempty" db:"target_user_id"`
	CompanyID    string `json:"company_id,omitempty" db:"company_id"`
	Capability   string `json:"capability,omitempty" db:"capability"`
	Reason       string `json:"reason,omitempty" db:"reason"`

	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON (JSONB in Postgres).
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeRoleChanged         EventType = "role_changed"
	EventTypeCompanyAdminChanged EventType = "company_admin_changed"
	EventTypeAccessDenied        EventType = "access_denied"
)
