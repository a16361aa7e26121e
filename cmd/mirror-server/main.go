package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"planethub/internal/mirror"
	"planethub/pkg/utils"
)

func main() {
	v := utils.NewViper()

	cmd := &cobra.Command{
		Use:   "mirror-server",
		Short: "Serve a local planet catalog snapshot at " + mirror.Route,
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

			gin.SetMode(gin.ReleaseMode)
			r := gin.New()
			r.Use(gin.Recovery())
			r.GET(mirror.Route, mirror.Handler(cfg.MirrorFile, logger))

			logger.Info("mirror-server listening",
				zap.String("addr", cfg.MirrorAddr), zap.String("file", cfg.MirrorFile))
			return http.ListenAndServe(cfg.MirrorAddr, r)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :9000)")
	cmd.Flags().String("file", "", "snapshot path (default "+utils.DefaultMirrorFile+")")
	_ = v.BindPFlag("mirror_addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("mirror_file", cmd.Flags().Lookup("file"))

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
