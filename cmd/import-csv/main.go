package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"planethub/internal/catalog"
	"planethub/internal/intake"
	"planethub/internal/kvstore"
	"planethub/internal/planetcsv"
	"planethub/pkg/database"
	"planethub/pkg/utils"
)

func main() {
	v := utils.NewViper()
	var in string

	cmd := &cobra.Command{
		Use:   "import-csv",
		Short: "Add custom planets from a CSV file",
		Long: "Each row goes through the same validation as the intake form.\n" +
			"Rows missing name, image or description are skipped and reported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.LoadConfig(v)
			if err != nil {
				return err
			}
			logger, err := utils.NewLogger(cfg.LogLevel, cfg.Dev)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := database.Open(database.Config{Path: cfg.DBPath})
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("db migrate: %w", err)
			}

			f, err := os.Open(in)
			if err != nil {
				return err
			}
			defer f.Close()

			store := catalog.NewStore(kvstore.NewSQLite(db), cfg.StoreKey, logger.Named("store"))
			form := intake.NewForm(store, nil, logger.Named("intake"))

			res, err := planetcsv.Import(ctx, f, form, logger)
			if err != nil {
				return fmt.Errorf("import %s: %w", in, err)
			}
			for _, s := range res.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "line %d skipped: missing %v\n", s.Line, s.Missing)
			}
			logger.Info("import finished",
				zap.String("file", in), zap.Int("imported", res.Imported), zap.Int("skipped", len(res.Skipped)))
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "data/custom_planets.csv", "input CSV path")
	cmd.Flags().String("db", "", "sqlite database path")
	_ = v.BindPFlag("db_path", cmd.Flags().Lookup("db"))

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
