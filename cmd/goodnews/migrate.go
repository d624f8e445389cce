package main

import (
	"fmt"

	"github.com/spf13/cobra"

	riverAdapter "github.com/neomorfeo/goodnews/internal/adapter/river"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the content and job queue schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			// Opening the repository applies the content schema.
			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := riverAdapter.Migrate(cmd.Context(), repo.DB()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", cfg.Database.Path)
			return nil
		},
	}
}
