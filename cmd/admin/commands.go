package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"ideaboard/internal/auth"
	"ideaboard/internal/bootstrap"
	"ideaboard/internal/config"
	"ideaboard/internal/database"
	"ideaboard/internal/models"
	"ideaboard/internal/repository"
	"ideaboard/internal/service"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	// Global flags
	envFile string

	// Command flags
	promoteRole   string
	exportOut     string
	olderThanDays int
	purgeAll      bool

	rt *adminEnv
)

// adminEnv bundles the repositories and services the commands act on.
type adminEnv struct {
	users    repository.UserRepository
	admin    *service.AdminService
	export   *service.ExportService
	migrator *database.Migrator
	out      io.Writer
}

func newAdminEnv(db *gorm.DB, out io.Writer) *adminEnv {
	users := repository.NewUserRepository(db)
	ideas := repository.NewIdeaRepository(db)
	return &adminEnv{
		users:    users,
		admin:    service.NewAdminService(users, ideas, repository.NewFlagRepository(db), nil),
		export:   service.NewExportService(ideas, repository.NewCommentRepository(db)),
		migrator: database.NewMigrator(db),
		out:      out,
	}
}

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Idea board operator utilities",
	Long: `Operator utilities for the IT idea board.

Commands act directly on the configured database and bypass the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		} else {
			_ = godotenv.Load()
		}
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		db, _, err := bootstrap.InitRuntime(cmd.Context(), cfg, bootstrap.Options{SkipAdmin: true})
		if err != nil {
			return err
		}
		rt = newAdminEnv(db, cmd.OutOrStdout())
		return nil
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote <user_id>",
	Short: "Grant a user the moderator or admin role",
	Long: `Grant a user a role. Defaults to admin.

Examples:
  admin promote 42
  admin promote 42 --role moderator`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		role, err := parseRoleName(promoteRole)
		if err != nil {
			return err
		}
		return rt.setRole(cmd.Context(), id, role)
	},
}

var demoteCmd = &cobra.Command{
	Use:   "demote <user_id>",
	Short: "Reset a user to the regular user role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		return rt.setRole(cmd.Context(), id, models.RoleUser)
	},
}

var listAdminsCmd = &cobra.Command{
	Use:   "list-admins",
	Short: "List all administrators",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return rt.listAdmins(cmd.Context())
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair vote counters that drifted from the vote rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return rt.reconcile(cmd.Context())
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <ideas|comments>",
	Short: "Export ideas or comments as CSV",
	Long: `Export ideas or comments as CSV to stdout or a file.

Examples:
  admin export ideas > ideas.csv
  admin export comments --out comments.csv`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"ideas", "comments"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := rt.out
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return rt.exportCSV(cmd.Context(), args[0], w)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete old ideas, or every idea with --all",
	Long: `Delete ideas together with their votes, comments and flags.

Examples:
  admin purge --older-than-days 365
  admin purge --all`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return rt.purge(cmd.Context(), olderThanDays, purgeAll)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Inspect or revert schema migrations",
	Long: `Inspect or revert schema migrations. Pending migrations are applied
automatically whenever the server or this tool starts.

Subcommands:
  status  - Show which migrations are applied
  down    - Revert the most recent migration`,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return rt.migrationStatus(cmd.Context())
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down <version>",
	Short: "Revert the most recently applied migration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return rt.migrator.Down(cmd.Context(), version)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of ./.env")

	promoteCmd.Flags().StringVar(&promoteRole, "role", "admin", "Role to grant: moderator or admin")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to this file instead of stdout")
	purgeCmd.Flags().IntVar(&olderThanDays, "older-than-days", 0, "Delete ideas created more than N days ago")
	purgeCmd.Flags().BoolVar(&purgeAll, "all", false, "Delete every idea")

	migrateCmd.AddCommand(migrateStatusCmd, migrateDownCmd)
	rootCmd.AddCommand(promoteCmd, demoteCmd, listAdminsCmd, reconcileCmd, exportCmd, purgeCmd, migrateCmd)
}

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return uint(id), nil
}

func parseRoleName(name string) (models.Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "user":
		return models.RoleUser, nil
	case "moderator", "mod":
		return models.RoleModerator, nil
	case "admin":
		return models.RoleAdmin, nil
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

// operator acts as the oldest administrator so service-level checks apply.
func (r *adminEnv) operator(ctx context.Context) (service.Actor, error) {
	admins, err := r.users.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if len(admins) == 0 {
		return nil, errors.New("no administrator exists; start the server once to bootstrap one")
	}
	u := auth.NewSessionUser(&admins[0])
	return &u, nil
}

func (r *adminEnv) setRole(ctx context.Context, id uint, role models.Role) error {
	user, err := r.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("user with ID %d not found", id)
	}
	if err != nil {
		return err
	}
	if user.Role == role {
		fmt.Fprintf(r.out, "%s (ID: %d) is already %s\n", user.Email, user.ID, role)
		return nil
	}
	if err := r.users.OverrideRole(ctx, id, role); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s (ID: %d) is now %s\n", user.Email, user.ID, role)
	return nil
}

func (r *adminEnv) listAdmins(ctx context.Context) error {
	admins, err := r.users.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		fmt.Fprintln(r.out, "No admins found")
		return nil
	}
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tCREATED")
	for _, a := range admins {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", a.ID, a.Email, a.Name, a.CreatedOn.Format("2006-01-02"))
	}
	return w.Flush()
}

func (r *adminEnv) reconcile(ctx context.Context) error {
	drift, err := r.admin.ReconcileVotes(ctx)
	if err != nil {
		return err
	}
	if len(drift) == 0 {
		fmt.Fprintln(r.out, "All vote counters match")
		return nil
	}
	for _, d := range drift {
		fmt.Fprintf(r.out, "idea %d: %d -> %d\n", d.IdeaID, d.Stored, d.Actual)
	}
	fmt.Fprintf(r.out, "Repaired %d idea(s)\n", len(drift))
	return nil
}

func (r *adminEnv) exportCSV(ctx context.Context, what string, w io.Writer) error {
	actor, err := r.operator(ctx)
	if err != nil {
		return err
	}
	switch what {
	case "ideas":
		return r.export.ExportIdeasCSV(ctx, actor, w)
	case "comments":
		return r.export.ExportCommentsCSV(ctx, actor, w)
	}
	return fmt.Errorf("unknown export %q: want ideas or comments", what)
}

func (r *adminEnv) purge(ctx context.Context, days int, all bool) error {
	if all == (days > 0) {
		return errors.New("pass exactly one of --older-than-days or --all")
	}
	actor, err := r.operator(ctx)
	if err != nil {
		return err
	}
	var n int64
	if all {
		n, err = r.admin.DeleteAllIdeas(ctx, actor)
	} else {
		n, err = r.admin.DeleteOlderThan(ctx, actor, days)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Deleted %d idea(s)\n", n)
	return nil
}

func (r *adminEnv) migrationStatus(ctx context.Context) error {
	status, err := r.migrator.Status(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tAPPLIED")
	for _, st := range status {
		applied := "pending"
		if st.AppliedAt != nil {
			applied = st.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\n", st.Migration, applied)
	}
	return w.Flush()
}
