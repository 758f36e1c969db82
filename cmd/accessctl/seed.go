package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"prospera-platform/internal/access"
	"prospera-platform/internal/admin"
	"prospera-platform/internal/audit"
	"prospera-platform/internal/auth"
	"prospera-platform/internal/config"
	"prospera-platform/internal/directory"
	"prospera-platform/internal/metrics"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML fixture loaded by --dry-run --seed.
//
//	profiles:
//	  - {id: bm, bank_id: b1, role: bank_manager}
//	employees:
//	  - {id: e3, company_id: c1, platform_user_id: u3}
//	company_admins:
//	  - {user_id: u9, company_id: c1}
type seedFile struct {
	Profiles []struct {
		ID     string `yaml:"id"`
		BankID string `yaml:"bank_id"`
		Email  string `yaml:"email"`
		Role   string `yaml:"role"`
	} `yaml:"profiles"`
	Employees []struct {
		ID             string `yaml:"id"`
		CompanyID      string `yaml:"company_id"`
		PlatformUserID string `yaml:"platform_user_id"`
		FullName       string `yaml:"full_name"`
		Email          string `yaml:"email"`
	} `yaml:"employees"`
	CompanyAdmins []struct {
		UserID    string `yaml:"user_id"`
		CompanyID string `yaml:"company_id"`
	} `yaml:"company_admins"`
}

// loadSeed fills store from a YAML fixture. An empty path leaves the store empty.
func loadSeed(ctx context.Context, store *directory.MemoryStore, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}

	for _, p := range f.Profiles {
		if p.ID == "" {
			return fmt.Errorf("seed %s: profile without id", path)
		}
		role, err := access.ParseRole(p.Role)
		if err != nil {
			return fmt.Errorf("seed %s: profile %s: %w", path, p.ID, err)
		}
		store.PutProfile(directory.Profile{ID: p.ID, BankID: p.BankID, Email: p.Email, Role: role, UpdatedAt: time.Now().UTC()})
	}
	for _, e := range f.Employees {
		if e.ID == "" || e.CompanyID == "" {
			return fmt.Errorf("seed %s: employee needs id and company_id", path)
		}
		store.PutEmployee(directory.Employee{
			ID:             e.ID,
			CompanyID:      e.CompanyID,
			PlatformUserID: e.PlatformUserID,
			FullName:       e.FullName,
			Email:          e.Email,
		})
	}
	for _, a := range f.CompanyAdmins {
		if _, err := store.SetCompanyAdmin(ctx, a.UserID, a.CompanyID, true); err != nil {
			return fmt.Errorf("seed %s: company admin %s@%s: %w", path, a.UserID, a.CompanyID, err)
		}
	}
	return nil
}

// openDryRun builds deps on an in-memory directory. Nothing is persisted.
// Tokens can be minted when JWT_SECRET is set.
func openDryRun(ctx context.Context, seedPath string) (*deps, error) {
	store := directory.NewMemoryStore()
	if err := loadSeed(ctx, store, seedPath); err != nil {
		return nil, err
	}

	var m *auth.Manager
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		var err error
		m, err = auth.NewManager(config.AuthConfig{
			JWTSecret:       secret,
			JWTIssuer:       os.Getenv("JWT_ISSUER"),
			JWTAudience:     os.Getenv("JWT_AUDIENCE"),
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		}, nil)
		if err != nil {
			return nil, err
		}
	}

	resolver := access.NewResolver(store, store, store)
	return &deps{
		resolver: resolver,
		admin:    admin.NewService(store, resolver, audit.NewService(audit.NewMemoryRepo()), metrics.NewAccess()),
		auth:     m,
	}, nil
}
