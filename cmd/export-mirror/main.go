package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"planethub/internal/mirror"
	"planethub/internal/remote"
	"planethub/pkg/utils"
)

func main() {
	v := utils.NewViper()

	cmd := &cobra.Command{
		Use:   "export-mirror",
		Short: "Snapshot the remote planet catalog for mirror-server",
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

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RemoteTimeout+cfg.RemoteTimeout/2)
			defer cancel()

			raw, err := remote.NewClient(cfg.RemoteURL, cfg.RemoteTimeout, logger).FetchRaw(ctx)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", cfg.RemoteURL, err)
			}

			n, err := mirror.Write(cfg.MirrorFile, raw)
			if err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			logger.Info("exported planets", zap.Int("count", n), zap.String("file", cfg.MirrorFile))
			return nil
		},
	}
	cmd.Flags().String("out", "", "output path (default "+utils.DefaultMirrorFile+")")
	cmd.Flags().String("remote", "", "remote catalog URL")
	_ = v.BindPFlag("mirror_file", cmd.Flags().Lookup("out"))
	_ = v.BindPFlag("remote_url", cmd.Flags().Lookup("remote"))

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
