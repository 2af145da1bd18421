package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"emberhold/realmd/pkg/cli"
	"emberhold/realmd/pkg/config"
	"emberhold/realmd/pkg/migrate"
	"emberhold/realmd/pkg/storage"
	"emberhold/realmd/pkg/telemetry/logging"
)

var migrateFlags struct {
	dryRun bool
	output string
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending game store schema converters",
	Long: `Apply pending schema converters to the game store without starting the realm.

The realm runs the same check at startup; this command lets an operator
inspect or apply a migration ahead of a deploy.

Examples:
  # Show what would be applied
  realmd migrate --dry-run

  # Apply and print the result as JSON
  realmd migrate --output json`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&migrateFlags.dryRun, "dry-run", false, "show pending converters without applying them")
	migrateCmd.Flags().StringVarP(&migrateFlags.output, "output", "o", "text", "output format (text, json, yaml)")
}

// migrationPlan is the result printed by the migrate command.
type migrationPlan struct {
	VersionFile string `json:"version_file" yaml:"version_file"`
	Current     int    `json:"current" yaml:"current"`
	Latest      int    `json:"latest" yaml:"latest"`
	Pending     []int  `json:"pending" yaml:"pending"`
	LastError   string `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	Applied     bool   `json:"applied" yaml:"applied"`
}

func (p migrationPlan) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Version file: %s\n", p.VersionFile)
	fmt.Fprintf(&b, "Schema version: %d (latest %d)\n", p.Current, p.Latest)
	if len(p.Pending) == 0 {
		b.WriteString("✓ Schema is up to date\n")
	} else {
		versions := make([]string, len(p.Pending))
		for i, v := range p.Pending {
			versions[i] = fmt.Sprint(v)
		}
		verb := "Pending"
		if p.Applied {
			verb = "Applied"
		}
		fmt.Fprintf(&b, "%s: %s\n", verb, strings.Join(versions, ", "))
	}
	if p.LastError != "" {
		fmt.Fprintf(&b, "Last error: %s\n", p.LastError)
	}
	return b.String()
}

func runMigrate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(migrateFlags.output)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return cli.NewCommandError("migrate", err)
	}
	defer store.Close()

	plan, err := planMigration(cmd.Context(), cfg, store, migrateFlags.dryRun, migrate.WithLogger(logging.Component(logger, "migrate")))
	if err != nil {
		return cli.NewCommandError("migrate", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), plan)
}

func planMigration(ctx context.Context, cfg *config.Config, store storage.Store, dryRun bool, opts ...migrate.Option) (migrationPlan, error) {
	vs := migrate.NewFileStore(resolvePath(cfg, cfg.Database.VersionFile))
	reg := migrate.NewRegistry(storage.Converters(store)...)
	m := migrate.New(vs, reg, opts...)

	rec, err := m.Current()
	if err != nil {
		return migrationPlan{}, err
	}
	plan := migrationPlan{
		VersionFile: vs.Path(),
		Current:     rec.DatabaseVersion,
		Latest:      reg.Latest(),
		Pending:     reg.Pending(rec.DatabaseVersion),
		LastError:   rec.LastError,
	}
	if err := reg.Validate(); err != nil {
		return plan, err
	}
	if dryRun || len(plan.Pending) == 0 {
		return plan, nil
	}

	if err := m.CheckAndMigrate(ctx); err != nil {
		return plan, err
	}
	rec, err = m.Current()
	if err != nil {
		return plan, err
	}
	plan.Current = rec.DatabaseVersion
	plan.LastError = rec.LastError
	plan.Applied = true
	return plan, nil
}
