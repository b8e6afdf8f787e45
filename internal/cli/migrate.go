package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/identity-backend/internal/data/db"
)

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the contact schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			theDB, err := db.Open(c.log, c.cfg.DB)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = db.Close(theDB) }()

			if err := db.AutoMigrateAll(theDB); err != nil {
				return fmt.Errorf("migrate store: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", c.cfg.DB.Driver)
			return nil
		},
	}
}
