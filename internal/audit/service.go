package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events. It is append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit information.
// Audit is internal-only; records are not exposed to tenant users.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.Type != EventTypeAccessDenied && e.ActorUserID == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogRoleChange records a role update performed by an administrator.
func (s *Service) LogRoleChange(ctx context.Context, bankID, actorUserID, actorRole, targetUserID, from, to string) error {
	return s.Append(ctx, Event{
		BankID:       bankID,
		Type:         EventTypeRoleChanged,
		ActorUserID:  actorUserID,
		ActorRole:    actorRole,
		IPAddress:    ClientIPFromContext(ctx),
		TargetUserID: targetUserID,
		Message:      fmt.Sprintf("role %s -> %s", from, to),
	})
}

// LogCompanyAdminChange records a company-admin flag toggle.
func (s *Service) LogCompanyAdminChange(ctx context.Context, bankID, actorUserID, actorRole, targetUserID, companyID string, enabled bool) error {
	msg := "company admin revoked"
	if enabled {
		msg = "company admin granted"
	}
	return s.Append(ctx, Event{
		BankID:       bankID,
		Type:         EventTypeCompanyAdminChanged,
		ActorUserID:  actorUserID,
		ActorRole:    actorRole,
		IPAddress:    ClientIPFromContext(ctx),
		TargetUserID: targetUserID,
		CompanyID:    companyID,
		Message:      msg,
	})
}

// LogAccessDenied records a denied route access.
func (s *Service) LogAccessDenied(ctx context.Context, bankID, userID, capability, reason, companyID string) error {
	return s.Append(ctx, Event{
		BankID:      bankID,
		Type:        EventTypeAccessDenied,
		ActorUserID: userID,
		IPAddress:   ClientIPFromContext(ctx),
		CompanyID:   companyID,
		Capability:  capability,
		Reason:      reason,
	})
}
