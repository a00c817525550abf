package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BaSui01/scripturerag/internal/migration"
)

// =============================================================================
// 🗄️ migrate 命令（快照表）
// =============================================================================

var (
	migrateDBType string
	migrateDBURL  string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <action> [arg]",
	Short: "Manage the snapshot database schema",
	Long: `Applies or rolls back the schema used by the database snapshot backend.

Actions:
  up          Apply all pending migrations
  down        Roll back the last migration
  reset       Roll back all migrations
  steps <n>   Apply (n > 0) or roll back (n < 0) n migrations
  goto <v>    Migrate to a specific version
  force <v>   Force set the version without running migrations
  version     Show the current version
  status      Show the status of every migration
  info        Show a migration summary`,
	Example: `  scripturerag migrate up
  scripturerag migrate status --config /etc/scripturerag/config.yaml
  scripturerag migrate goto 1 --db-type sqlite --db-url "file:index.db?mode=rwc"`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: migration.Actions,
	RunE:      runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDBType, "db-type", "", "database type: postgres, mysql, sqlite (default: from config)")
	migrateCmd.Flags().StringVar(&migrateDBURL, "db-url", "", "database connection URL (default: from config)")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if !isMigrateAction(args[0]) {
		return fmt.Errorf("unknown migrate action %q (expected one of %s)", args[0], strings.Join(migration.Actions, ", "))
	}

	migrator, err := createMigrator()
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	cli := migration.NewCLI(migrator)
	cli.SetOutput(cmd.OutOrStdout())
	return cli.Run(cmd.Context(), args[0], args[1:])
}

// createMigrator --db-type 与 --db-url 同时给出时直接使用，否则读取配置
func createMigrator() (*migration.DefaultMigrator, error) {
	if migrateDBType != "" && migrateDBURL != "" {
		return migration.NewMigratorFromURL(migrateDBType, migrateDBURL)
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if migrateDBType != "" {
		cfg.Database.Driver = migrateDBType
	}
	return migration.NewMigratorFromDatabaseConfig(cfg.Database)
}

func isMigrateAction(action string) bool {
	for _, a := range migration.Actions {
		if a == action {
			return true
		}
	}
	return false
}
