package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docuhub/exam-service/internal/config"
	"github.com/docuhub/exam-service/pkg"
)

func newMigrateCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the exam tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, slogLogger, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.StoragePostgres {
				return fmt.Errorf("migrate requires STORAGE_DRIVER=%s, got %q", config.StoragePostgres, cfg.StorageDriver)
			}

			db, err := pkg.InitDatabase(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if sqlDB, err := db.DB(); err == nil {
					sqlDB.Close()
				}
			}()

			if err := pkg.Migrate(db.WithContext(cmd.Context())); err != nil {
				return err
			}
			slogLogger.Info("Database migrated")
			return nil
		},
	}
}
