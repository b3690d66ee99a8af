package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/noah-isme/gradestats-sync/pkg/config"
	"github.com/noah-isme/gradestats-sync/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|version|force N]",
	Short:     "Manage the database schema",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"up", "down", "version", "force"},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	migrator, err := database.NewMigrator(cfg.Migrations.Dir, cfg.Database)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck

	switch args[0] {
	case "up":
		return migrator.Up()
	case "down":
		return migrator.Down()
	case "version":
		v, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		cmd.Printf("version %d (dirty=%t)\n", v, dirty)
		return nil
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("force requires a version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return migrator.Force(v)
	default:
		return fmt.Errorf("unknown migrate action %q", args[0])
	}
}
