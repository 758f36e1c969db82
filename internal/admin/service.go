package admin

import (
	"context"
	"errors"
	"fmt"

	"prospera-platform/internal/access"
	"prospera-platform/internal/audit"
	"prospera-platform/internal/directory"
	"prospera-platform/internal/metrics"
	"prospera-platform/pkg/logger"
)

var (
	ErrInvalidArgument = errors.New("admin: invalid argument")
	ErrForbidden       = errors.New("admin: forbidden")
	// ErrUnavailable means the actor's privileges could not be established; retry later.
	ErrUnavailable = errors.New("admin: authorization lookup failed")
)

// Service performs the privileged mutations that own Role and CompanyAdminFlag.
//
// Rules:
// - the actor must be super_admin or bank_manager
// - only super_admin may grant or take away super_admin
// - a bank_manager may only act on users of their own bank
// - every applied change is audited (best-effort)
type Service struct {
	store    directory.Store
	resolver *access.Resolver
	audit    *audit.Service
	metrics  *metrics.Access
}

func NewService(store directory.Store, resolver *access.Resolver, auditSvc *audit.Service, m *metrics.Access) *Service {
	return &Service{store: store, resolver: resolver, audit: auditSvc, metrics: m}
}

type RoleChange struct {
	UserID   string      `json:"user_id"`
	Previous access.Role `json:"previous_role"`
	Current  access.Role `json:"role"`
}

type CompanyAdminChange struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Enabled   bool   `json:"enabled"`
	Changed   bool   `json:"changed"`
}

type actor struct {
	profile    directory.Profile
	superAdmin bool
}

func (s *Service) UpdateRole(ctx context.Context, actorID, targetID string, role access.Role) (out RoleChange, err error) {
	defer func() { s.metrics.ObserveAdminAction("update_role", err) }()

	if actorID == "" || targetID == "" || !role.Valid() {
		return RoleChange{}, ErrInvalidArgument
	}
	act, target, err := s.authorize(ctx, actorID, targetID)
	if err != nil {
		return RoleChange{}, err
	}
	// Nobody but a super admin may grant or take away a tier above their own.
	if !act.superAdmin && (!act.profile.Role.AtLeast(role) || !act.profile.Role.AtLeast(target.Role)) {
		return RoleChange{}, ErrForbidden
	}

	prev, err := s.store.UpdateRole(ctx, targetID, role)
	if err != nil {
		return RoleChange{}, fmt.Errorf("admin: update role: %w", err)
	}

	if s.audit != nil {
		if aerr := s.audit.LogRoleChange(ctx, target.BankID, actorID, string(act.profile.Role), targetID, string(prev), string(role)); aerr != nil {
			logger.From(ctx).Warn("audit role change failed", "target_user_id", targetID, "err", aerr)
		}
	}
	logger.From(ctx).Info("role updated", "actor_user_id", actorID, "target_user_id", targetID, "from", string(prev), "to", string(role))
	return RoleChange{UserID: targetID, Previous: prev, Current: role}, nil
}

func (s *Service) SetCompanyAdmin(ctx context.Context, actorID, companyID, targetID string, enabled bool) (out CompanyAdminChange, err error) {
	defer func() { s.metrics.ObserveAdminAction("set_company_admin", err) }()

	if actorID == "" || targetID == "" || companyID == "" {
		return CompanyAdminChange{}, ErrInvalidArgument
	}
	act, target, err := s.authorize(ctx, actorID, targetID)
	if err != nil {
		return CompanyAdminChange{}, err
	}

	changed, err := s.store.SetCompanyAdmin(ctx, targetID, companyID, enabled)
	if err != nil {
		return CompanyAdminChange{}, fmt.Errorf("admin: set company admin: %w", err)
	}

	if changed && s.audit != nil {
		if aerr := s.audit.LogCompanyAdminChange(ctx, target.BankID, actorID, string(act.profile.Role), targetID, companyID, enabled); aerr != nil {
			logger.From(ctx).Warn("audit company admin change failed", "target_user_id", targetID, "err", aerr)
		}
	}
	return CompanyAdminChange{UserID: targetID, CompanyID: companyID, Enabled: enabled, Changed: changed}, nil
}

// authorize checks the actor's administrative standing and loads the target profile.
func (s *Service) authorize(ctx context.Context, actorID, targetID string) (actor, directory.Profile, error) {
	if s.resolver == nil || s.store == nil {
		return actor{}, directory.Profile{}, ErrUnavailable
	}

	d := s.resolver.Resolve(ctx, actorID, access.CapabilityManageCompany, nil)
	switch {
	case d.Reason == access.ReasonLookupFailed:
		return actor{}, directory.Profile{}, ErrUnavailable
	case !d.Granted:
		return actor{}, directory.Profile{}, ErrForbidden
	}

	actorProfile, err := s.store.Profile(ctx, actorID)
	if err != nil {
		return actor{}, directory.Profile{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	target, err := s.store.Profile(ctx, targetID)
	if errors.Is(err, directory.ErrNotFound) {
		return actor{}, directory.Profile{}, directory.ErrNotFound
	}
	if err != nil {
		return actor{}, directory.Profile{}, fmt.Errorf("admin: load target: %w", err)
	}

	act := actor{profile: actorProfile, superAdmin: d.Basis == access.BasisSuperAdmin}
	if !act.superAdmin && (actorProfile.BankID == "" || actorProfile.BankID != target.BankID) {
		return actor{}, directory.Profile{}, ErrForbidden
	}
	return act, target, nil
}
