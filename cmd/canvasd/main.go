package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/celerix-dev/celerix-canvas/internal/api"
	"github.com/celerix-dev/celerix-canvas/internal/app"
	"github.com/celerix-dev/celerix-canvas/internal/broadcast"
	"github.com/celerix-dev/celerix-canvas/internal/config"
	"github.com/celerix-dev/celerix-canvas/internal/engine"
	"github.com/celerix-dev/celerix-canvas/internal/server"
	"github.com/celerix-dev/celerix-canvas/internal/sticker"
	"github.com/celerix-dev/celerix-canvas/internal/vault"
)

func main() {
	cfg, err := config.Load(os.Getenv("CANVAS_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	logger.Info("starting canvas daemon", "storage", cfg.Storage, "sync", cfg.Sync.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Durable storage
	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize persistence: %v", err)
	}
	defer closeBackend()

	vaultSeed := cfg.VaultKey
	if vaultSeed == "" {
		vaultSeed = app.DefaultVaultSeed
		logger.Warn("CANVAS_VAULT_KEY not set, using the built-in key for stored credentials")
	}
	prefs := engine.NewPreferences(backend, vault.DeriveKey(vaultSeed), logger)

	// 2. Sync: the configured transport plus browser tabs on /ws
	origin := uuid.NewString()
	bridge := broadcast.NewWSBridge(origin, checkOrigin(cfg.AllowedOrigins()), logger)
	transport := broadcast.Open(ctx, broadcast.Options{
		Mode: cfg.Sync.Mode,
		Redis: broadcast.RedisOptions{
			Addr:      cfg.Sync.Redis.Addr,
			Password:  cfg.Sync.Redis.Password,
			DB:        cfg.Sync.Redis.DB,
			Namespace: cfg.Sync.Namespace,
		},
	}, origin, logger)
	channel := broadcast.NewFanout(logger, transport, bridge)

	// 3. Sticker generation
	var gen sticker.Generator = sticker.Disabled{}
	if cfg.Sticker.Endpoint != "" {
		gen = sticker.NewHTTPGenerator(cfg.Sticker.Endpoint, prefs, cfg.Sticker.Timeout)
	}

	// 4. Controller
	canvas := app.New(app.Options{
		Backend:   backend,
		Prefs:     prefs,
		Channel:   channel,
		Generator: gen,
		Logger:    logger,
	})
	if err := canvas.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize controller: %v", err)
	}
	go canvas.Run(ctx)
	logger.Info("controller started", "boards", len(canvas.Boards()))

	// 5. TCP router
	router := server.NewRouter(canvas, logger)
	if !cfg.DisableTLS {
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			log.Fatalf("Failed to generate TLS certificate: %v", err)
		}
		router.SetCertificate(cert)
		logger.Info("TLS encryption enabled")
	} else {
		logger.Info("TLS encryption disabled (CANVAS_DISABLE_TLS=true)")
	}

	// 6. HTTP API
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), cors(cfg.AllowedOrigins()))
	h := &api.Handler{App: canvas, Bridge: bridge, Logger: logger}
	h.Register(r)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP API listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	go func() {
		logger.Info("canvas engine listening", "port", cfg.Port, "proto", "tcp")
		if err := router.Listen(cfg.Port); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Fatalf("TCP server failed: %v", err)
		}
	}()

	// 7. Graceful shutdown
	<-ctx.Done()
	fmt.Println("\nShutdown signal received. Finalizing disk writes...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", "error", err)
	}
	router.Stop()
	if err := canvas.Close(); err != nil {
		logger.Warn("closing sync channel", "error", err)
	}
	fmt.Println("Persistence complete. Exiting.")
}

// openBackend builds the configured store, wrapped in the quota when one is set.
func openBackend(ctx context.Context, cfg config.Config) (engine.Backend, func(), error) {
	var backend engine.Backend
	closer := func() {}

	switch cfg.Storage {
	case config.StorageSQLite, config.StoragePostgres:
		driver, dsn := engine.DriverSQLite, cfg.SQLiteDSN()
		if cfg.Storage == config.StoragePostgres {
			driver, dsn = engine.DriverPostgres, cfg.DatabaseURL
		}
		if driver == engine.DriverSQLite && cfg.DatabaseURL == "" {
			if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
				return nil, nil, err
			}
		}
		db, err := engine.Connect(driver, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect %s: %w", cfg.Storage, err)
		}
		sqlBackend, err := engine.NewSQLBackend(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		backend = sqlBackend
		closer = func() { sqlBackend.Close() }
	default:
		p, err := engine.NewFilePersistence(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		backend = p
	}

	if cfg.QuotaBytes > 0 {
		backend = engine.NewQuotaBackend(backend, int(cfg.QuotaBytes))
	}
	return backend, closer, nil
}

func originAllowed(allowed []string, origin string) bool {
	return allowed == nil || origin == "" || slices.Contains(allowed, origin)
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		return originAllowed(allowed, r.Header.Get("Origin"))
	}
}

func cors(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed == nil {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if originAllowed(allowed, origin) && origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{
			"Content-Type", "Content-Length", "Accept-Encoding", "Accept-Language", api.UserHeader,
		}, ", "))
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
