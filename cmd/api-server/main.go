package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planethub/internal/catalog"
	"planethub/internal/events"
	"planethub/internal/intake"
	"planethub/internal/kvstore"
	"planethub/internal/planets"
	"planethub/internal/reconcile"
	"planethub/internal/remote"
	"planethub/pkg/database"
	"planethub/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := utils.LoadConfig(utils.NewViper())
	if err != nil {
		return err
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dbCfg := database.Config{Path: cfg.DBPath}
	db, err := database.Open(dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	if !cfg.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	// planet names may carry an encoded "/"
	router.UseRawPath = true
	router.Use(gin.Recovery(), requestLogger(logger.Named("http")))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := events.NewHub(logger.Named("events"))
	router.GET("/ws", events.WSHandler(hub))

	var tcpSrv *events.TCPServer
	if cfg.TCPAddr != "" {
		tcpSrv = events.NewTCPServer(cfg.TCPAddr, hub, logger.Named("tcp"))
		// bind first so address errors stop startup
		if err := tcpSrv.Listen(); err != nil {
			return fmt.Errorf("tcp listen: %w", err)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"subscribers": stats.Subscribers,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"subscribers": stats.Subscribers,
			"ws_clients":  stats.WSClients,
		})
	})

	client := remote.NewClient(cfg.RemoteURL, cfg.RemoteTimeout, logger.Named("remote"))
	cache := remote.NewCache(cfg.CacheTTL)
	catalogClient := remote.NewCachingClient(client, cache, logger.Named("remote"))

	store := catalog.NewStore(kvstore.NewSQLite(db), cfg.StoreKey, logger.Named("store"))
	form := intake.NewForm(store, hub, logger.Named("intake"))

	handler := planets.NewHandler(catalogClient, store, form, reconcile.New(cfg.Locale), logger.Named("planets"))
	handler.RegisterRoutes(router.Group("/planets"))

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = handler.Run(runCtx, hub, cfg.RefreshInterval)
	}()

	if tcpSrv != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tcpSrv.Serve(); err != nil {
				errCh <- err
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("HTTP API server listening", zap.String("addr", cfg.HTTPAddr), zap.String("remote", cfg.RemoteURL))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
	if tcpSrv != nil {
		if err := tcpSrv.Close(); err != nil {
			logger.Error("tcp shutdown error", zap.Error(err))
		}
	}
	stopRun()

	wg.Wait()
	logger.Info("servers stopped")
	return nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
