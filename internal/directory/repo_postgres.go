package directory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"prospera-platform/internal/access"
	"prospera-platform/pkg/utils"
)

// PostgresStore reads and writes profiles, company_admins and employees.
// Reads are single point lookups; the resolver owns no joins.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

func (s *PostgresStore) RoleByIdentity(ctx context.Context, userID string) (access.Role, error) {
	const q = `SELECT role FROM profiles WHERE id = $1`
	var raw sql.NullString
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return access.ParseRole(raw.String)
}

func (s *PostgresStore) IsCompanyAdmin(ctx context.Context, userID, companyID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM company_admins WHERE user_id = $1 AND company_id = $2)`
	var ok bool
	if err := s.db.QueryRowContext(ctx, q, userID, companyID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (s *PostgresStore) ResourceOwner(ctx context.Context, resourceID string) (string, error) {
	const q = `SELECT platform_user_id FROM employees WHERE id = $1`
	var owner sql.NullString
	if err := s.db.QueryRowContext(ctx, q, resourceID).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !owner.Valid || owner.String == "" {
		return "", ErrNotFound
	}
	return owner.String, nil
}

func (s *PostgresStore) Profile(ctx context.Context, userID string) (Profile, error) {
	const q = `
SELECT id, COALESCE(bank_id, ''), COALESCE(email, ''), COALESCE(role, ''), updated_at
FROM profiles
WHERE id = $1
`
	var p Profile
	var raw string
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&p.ID, &p.BankID, &p.Email, &raw, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	role, err := access.ParseRole(raw)
	if err != nil {
		return Profile{}, err
	}
	p.Role = role
	return p, nil
}

func (s *PostgresStore) Employee(ctx context.Context, companyID, employeeID string) (Employee, error) {
	const q = `
SELECT id, company_id, COALESCE(platform_user_id, ''), full_name, COALESCE(email, '')
FROM employees
WHERE company_id = $1 AND id = $2
`
	var e Employee
	if err := s.db.QueryRowContext(ctx, q, companyID, employeeID).Scan(
		&e.ID,
		&e.CompanyID,
		&e.PlatformUserID,
		&e.FullName,
		&e.Email,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}

func (s *PostgresStore) UpdateRole(ctx context.Context, userID string, role access.Role) (access.Role, error) {
	if userID == "" || !role.Valid() {
		return "", ErrInvalidArgument
	}

	var previous access.Role
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the row so concurrent role updates serialize.
		const sel = `SELECT COALESCE(role, '') FROM profiles WHERE id = $1 FOR UPDATE`
		var raw string
		if err := tx.QueryRowContext(ctx, sel, userID).Scan(&raw); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		prev, err := access.ParseRole(raw)
		if err != nil {
			return err
		}
		previous = prev

		const upd = `UPDATE profiles SET role = $2, updated_at = $3 WHERE id = $1`
		_, err = tx.ExecContext(ctx, upd, userID, string(role), s.clock().UTC())
		return err
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

func (s *PostgresStore) SetCompanyAdmin(ctx context.Context, userID, companyID string, enabled bool) (bool, error) {
	if userID == "" || companyID == "" {
		return false, ErrInvalidArgument
	}

	var res sql.Result
	var err error
	if enabled {
		const q = `
INSERT INTO company_admins (user_id, company_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, company_id) DO NOTHING
`
		res, err = s.db.ExecContext(ctx, q, userID, companyID, s.clock().UTC())
	} else {
		const q = `DELETE FROM company_admins WHERE user_id = $1 AND company_id = $2`
		res, err = s.db.ExecContext(ctx, q, userID, companyID)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
