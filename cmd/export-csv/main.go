package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"planethub/internal/catalog"
	"planethub/internal/kvstore"
	"planethub/internal/planetcsv"
	"planethub/internal/reconcile"
	"planethub/internal/remote"
	"planethub/internal/view"
	"planethub/pkg/database"
	"planethub/pkg/utils"
)

func main() {
	v := utils.NewViper()
	var (
		out  string
		sort string
	)

	cmd := &cobra.Command{
		Use:   "export-csv",
		Short: "Write the reconciled planet catalog (remote and custom) to CSV",
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

			db, err := database.Open(database.Config{Path: cfg.DBPath})
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("db migrate: %w", err)
			}

			client := remote.NewClient(cfg.RemoteURL, cfg.RemoteTimeout, logger.Named("remote"))
			store := catalog.NewStore(kvstore.NewSQLite(db), cfg.StoreKey, logger.Named("store"))

			dir := view.NewDirectory(client, store, reconcile.New(cfg.Locale), logger)
			defer dir.Teardown()
			dir.OnSortChange(sort)
			if err := dir.OnMount(cmd.Context()); err != nil {
				return err
			}

			st := dir.Snapshot()
			if st.Banner != "" {
				logger.Warn(st.Banner)
			}

			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := planetcsv.Write(f, st.Planets); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			logger.Info("exported planets",
				zap.Int("count", st.Total), zap.String("sort", string(st.SortMode)), zap.String("file", out))
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&out, "out", "data/planets.csv", "output CSV path")
	cmd.Flags().StringVar(&sort, "sort", string(reconcile.DefaultSortMode), "name-asc, name-desc or mass-desc")
	cmd.Flags().String("remote", "", "remote catalog URL")
	_ = v.BindPFlag("remote_url", cmd.Flags().Lookup("remote"))

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
