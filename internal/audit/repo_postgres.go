package audit

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo writes to audit_events, which should carry an INSERT-only grant.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	if r.db == nil {
		return errors.New("audit: db is nil")
	}
	const q = `
INSERT INTO audit_events (
  id, bank_id, type, actor_user_id, actor_role, ip_address,
  target_user_id, company_id, capability, reason, message, metadata, created_at
) VALUES (
  $1, NULLIF($2,''), $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''),
  NULLIF($7,''), NULLIF($8,''), NULLIF($9,''), NULLIF($10,''), $11, NULLIF($12,'')::jsonb, $13
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.BankID,
		e.Type,
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.TargetUserID,
		e.CompanyID,
		e.Capability,
		e.Reason,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
