package main

import (
	"github.com/spf13/cobra"

	"github.com/mossland/Algora-sub004/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if workflowDefsPath != "" {
			if err := applyWorkflowOverrides(workflowDefsPath); err != nil {
				return err
			}
		}
		cmd.Printf("%s is valid (database %s, provider %s)\n",
			configPath, cfg.Database.Path, cfg.Specialist.Provider.Kind)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&workflowDefsPath, "workflows", "", "optional workflow transition override file")
	rootCmd.AddCommand(validateCmd)
}
