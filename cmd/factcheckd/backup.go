package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mangomango3x/Discord-fact-check/internal/backup"
	"github.com/mangomango3x/Discord-fact-check/internal/storage"
)

var (
	backupList    bool
	backupRestore string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot, list or restore the sqlite database",
	Long: `Without flags, writes a verified snapshot of the sqlite database and
applies the retention policy. Restore only while serve is stopped.`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().BoolVar(&backupList, "list", false, "List existing snapshots")
	backupCmd.Flags().StringVar(&backupRestore, "restore", "", "Restore the database from this snapshot file")
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Storage.Engine != storage.EngineSQLite {
		return fmt.Errorf("backup needs the sqlite engine, configured engine is %q", cfg.Storage.Engine)
	}

	ctx := cmd.Context()
	if backupRestore != "" {
		if err := backup.Restore(ctx, backupRestore, cfg.Storage.SQLitePath()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %s from %s\n", cfg.Storage.SQLitePath(), backupRestore)
		return nil
	}

	svc, err := backup.NewService(cfg.Storage.SQLitePath(), cfg.Storage.BackupPath(), backup.WithLogger(logger))
	if err != nil {
		return err
	}

	var out interface{}
	if backupList {
		out, err = svc.List()
	} else {
		out, err = svc.Snapshot(ctx)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
