package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	backupSecrets bool
	backupDraft   bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up every application's DSL into a zip archive",
	Example: `  dbt backup
  dbt backup --secrets --draft`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

var backupAppCmd = &cobra.Command{
	Use:   "backup-app [flags] APP_ID",
	Short: "Export a single application's DSL",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupApp,
}

func init() {
	for _, c := range []*cobra.Command{backupCmd, backupAppCmd} {
		c.Flags().BoolVar(&backupSecrets, "secrets", false, "Include secret values (overrides BACKUP_INCLUDE_SECRETS)")
	}
	backupCmd.Flags().BoolVar(&backupDraft, "draft", false, "Include workflow drafts (overrides BACKUP_INCLUDE_WORKFLOW_DRAFT)")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(backupAppCmd)
}

func runBackup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("secrets") {
		cfg.IncludeSecrets = backupSecrets
	}
	if cmd.Flags().Changed("draft") {
		cfg.IncludeWorkflowDraft = backupDraft
	}

	mgr, ctx, release, err := headless(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer release()

	res, err := mgr.RunBackup(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d of %d applications saved to %s\n",
		res.WorkspaceName, res.SuccessCount, res.TotalApps, res.Path)
	if res.FailedCount > 0 {
		return fmt.Errorf("%d applications failed to export", res.FailedCount)
	}
	return nil
}

func runBackupApp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("secrets") {
		cfg.IncludeSecrets = backupSecrets
	}

	mgr, ctx, release, err := headless(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer release()

	path, err := mgr.BackupApp(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
	return nil
}
