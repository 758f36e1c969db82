package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
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
	"prospera-platform/pkg/logger"
	"prospera-platform/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// deps is what the subcommands operate on.
type deps struct {
	resolver *access.Resolver
	admin    *admin.Service
	auth     *auth.Manager
	close    func()
}

type openFunc func(ctx context.Context) (*deps, error)

func main() {
	root := newRootCmd(openFromEnv, os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// openFromEnv connects to Postgres using the same configuration as the API.
// The CLI never revokes tokens, so it runs without Redis.
func openFromEnv(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := utils.OpenPostgres(ctx, utils.DriverPGX, cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxOpenConns: 2})
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	m, err := auth.NewManager(cfg.Auth, nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := directory.NewPostgresStore(db)
	resolver := access.NewResolver(store, store, store)
	return &deps{
		resolver: resolver,
		admin:    admin.NewService(store, resolver, audit.NewService(audit.NewPostgresRepo(db)), metrics.NewAccess()),
		auth:     m,
		close:    func() { _ = db.Close() },
	}, nil
}

func newRootCmd(open openFunc, stdout io.Writer) *cobra.Command {
	var (
		out      = envOr("ACCESSCTL_OUT", "text")
		timeout  = 30 * time.Second
		dryRun   bool
		seedPath string
		d        *deps
		cancel   context.CancelFunc = func() {}
	)

	root := &cobra.Command{
		Use:           "accessctl",
		Short:         "Operator tool for 4Prospera access control",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if out != "text" && out != "json" {
				return fmt.Errorf("--out must be json or text")
			}
			var ctx context.Context
			ctx, cancel = context.WithTimeout(cmd.Context(), timeout)
			ctx = logger.With(ctx, logger.NewWithWriter(cmd.ErrOrStderr(), envOr("APP_ENV", "dev")))
			cmd.SetContext(ctx)

			if seedPath != "" && !dryRun {
				return fmt.Errorf("--seed requires --dry-run")
			}
			var err error
			if dryRun {
				d, err = openDryRun(ctx, seedPath)
			} else {
				d, err = open(ctx)
			}
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			cancel()
			if d != nil && d.close != nil {
				d.close()
			}
		},
	}
	root.SetOut(stdout)
	root.PersistentFlags().StringVar(&out, "out", out, "Output format: json|text (env ACCESSCTL_OUT)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "Overall deadline for the command")
	root.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Use an in-memory directory instead of Postgres; changes are discarded")
	root.PersistentFlags().StringVar(&seedPath, "seed", "", "YAML fixture loaded into the in-memory directory (with --dry-run)")

	emit := func(cmd *cobra.Command, text string, v any) error {
		if out == "json" {
			b, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}

	// check
	var chkUser, chkCap string
	var rc access.ResourceContext
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Resolve a capability for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if chkUser == "" || chkCap == "" {
				return fmt.Errorf("--user and --capability are required")
			}
			dec := d.resolver.Resolve(cmd.Context(), chkUser, access.Capability(chkCap), &rc)
			text := string(dec.Reason)
			if dec.Granted {
				text = "granted (" + string(dec.Basis) + ")"
			}
			return emit(cmd, text, struct {
				access.Decision
				Basis access.Basis `json:"basis,omitempty"`
			}{dec, dec.Basis})
		},
	}
	checkCmd.Flags().StringVar(&chkUser, "user", "", "User ID to check")
	checkCmd.Flags().StringVar(&chkCap, "capability", "", "view|manage-employees|manage-company|superadmin-tools")
	checkCmd.Flags().StringVar(&rc.CompanyID, "company", "", "Company ID (optional)")
	checkCmd.Flags().StringVar(&rc.ResourceID, "resource", "", "Employee record ID (optional)")
	checkCmd.Flags().StringVar(&rc.ResourceOwnerUserID, "owner", "", "Owner user ID of the resource (optional)")

	// token
	var tokUser, tokBank, tokEmail string
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access/refresh token pair (development only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokUser == "" {
				return fmt.Errorf("--user is required")
			}
			if d.auth == nil {
				return fmt.Errorf("token signing is not configured (set JWT_SECRET)")
			}
			pair, err := d.auth.IssuePair(time.Now(), tokUser, tokBank, tokEmail)
			if err != nil {
				return err
			}
			return emit(cmd, pair.AccessToken, pair)
		},
	}
	tokenCmd.Flags().StringVar(&tokUser, "user", "", "User ID (token subject)")
	tokenCmd.Flags().StringVar(&tokBank, "bank", "", "Bank ID")
	tokenCmd.Flags().StringVar(&tokEmail, "email", "", "Email")

	// set-role
	var srActor, srUser, srRole string
	setRoleCmd := &cobra.Command{
		Use:   "set-role",
		Short: "Change a user's global role on behalf of an administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if srActor == "" || srUser == "" || strings.TrimSpace(srRole) == "" {
				return fmt.Errorf("--actor, --user and --role are required")
			}
			role, err := access.ParseRole(srRole)
			if err != nil {
				return err
			}
			change, err := d.admin.UpdateRole(cmd.Context(), srActor, srUser, role)
			if err != nil {
				return fmt.Errorf("set-role failed: %w", err)
			}
			return emit(cmd, fmt.Sprintf("%s: %s -> %s", change.UserID, change.Previous, change.Current), change)
		},
	}
	setRoleCmd.Flags().StringVar(&srActor, "actor", "", "Administrator user ID performing the change")
	setRoleCmd.Flags().StringVar(&srUser, "user", "", "Target user ID")
	setRoleCmd.Flags().StringVar(&srRole, "role", "", "super_admin|bank_manager|company_manager|company_employee")

	// company-admin
	var caActor, caUser, caCompany string
	var caRevoke bool
	companyAdminCmd := &cobra.Command{
		Use:   "company-admin",
		Short: "Grant or revoke the company administrator flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			if caActor == "" || caUser == "" || caCompany == "" {
				return fmt.Errorf("--actor, --user and --company are required")
			}
			change, err := d.admin.SetCompanyAdmin(cmd.Context(), caActor, caCompany, caUser, !caRevoke)
			if err != nil {
				return fmt.Errorf("company-admin failed: %w", err)
			}
			return emit(cmd, fmt.Sprintf("%s@%s enabled=%t changed=%t", change.UserID, change.CompanyID, change.Enabled, change.Changed), change)
		},
	}
	companyAdminCmd.Flags().StringVar(&caActor, "actor", "", "Administrator user ID performing the change")
	companyAdminCmd.Flags().StringVar(&caUser, "user", "", "Target user ID")
	companyAdminCmd.Flags().StringVar(&caCompany, "company", "", "Company ID")
	companyAdminCmd.Flags().BoolVar(&caRevoke, "revoke", false, "Revoke instead of grant")

	root.AddCommand(checkCmd, tokenCmd, setRoleCmd, companyAdminCmd)
	return root
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
