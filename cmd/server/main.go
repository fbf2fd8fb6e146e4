package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/ai"
	"github.com/frostdev-ops/home-panel-go/internal/ai/providers"
	"github.com/frostdev-ops/home-panel-go/internal/api"
	"github.com/frostdev-ops/home-panel-go/internal/api/handlers"
	"github.com/frostdev-ops/home-panel-go/internal/api/middleware"
	"github.com/frostdev-ops/home-panel-go/internal/config"
	"github.com/frostdev-ops/home-panel-go/internal/core/auth"
	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/internal/core/metrics"
	"github.com/frostdev-ops/home-panel-go/internal/core/system"
	"github.com/frostdev-ops/home-panel-go/internal/core/voice"
	"github.com/frostdev-ops/home-panel-go/internal/database"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
	"github.com/frostdev-ops/home-panel-go/internal/database/seed"
	"github.com/frostdev-ops/home-panel-go/internal/mqtt"
	"github.com/frostdev-ops/home-panel-go/internal/websocket"
	"github.com/frostdev-ops/home-panel-go/pkg/logger"
	"github.com/frostdev-ops/home-panel-go/pkg/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	err = run(cfg, log)
	log.FlushPending()
	if err != nil {
		log.WithError(err).Error("Home Panel stopped with an error")
		os.Exit(1)
	}
}

// run serves until a signal arrives or the listener fails. Everything it
// opens is closed before it returns.
func run(cfg *config.Config, log *logger.BatchLogger) error {
	log.WithFields(logrus.Fields{
		"version": version.GetVersion(),
		"backend": cfg.Database.Backend,
	}).Info("Starting Home Panel")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := database.Initialize(cfg.Database, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	if cfg.Database.Seed {
		if err := seedStore(ctx, cfg, store, log.Logger); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}
	}

	// Metrics
	var (
		collector      metrics.MetricsCollector
		metricsHandler http.Handler
		homeOpts       []home.Option
	)
	if cfg.Monitoring.Enabled {
		prom := metrics.NewPrometheusCollector(&metrics.MetricsConfig{Enabled: true, Prefix: "home_panel"})
		collector = prom
		metricsHandler = prom.Handler()
		homeOpts = append(homeOpts, home.WithRecorder(prom))
	}

	// Notifications
	hub := websocket.NewHub(websocket.SettingsFromConfig(cfg.WebSocket, cfg.Security.AllowedOrigins), log.Logger)
	if collector != nil {
		hub.SetRecorder(collector)
	}
	go hub.Run(ctx)
	homeOpts = append(homeOpts, home.WithNotifier(hub))

	if cfg.MQTT.Enabled {
		publisher, err := mqtt.Connect(cfg.MQTT, log.Logger)
		if err != nil {
			log.WithError(err).Warn("MQTT broker unavailable, state will not be mirrored")
		} else {
			go publisher.Run(ctx)
			homeOpts = append(homeOpts, home.WithNotifier(publisher))
		}
	}

	// Core services
	homeService := home.NewService(store, log.Logger, homeOpts...)
	authService := auth.NewService(homeService, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry, cfg.Auth.BcryptCost, log.Logger)
	hub.SetAuthenticator(authService)

	manager := ai.NewLLMManager(cfg.AI, log.Logger)
	providers.Register(manager, cfg.AI, log.Logger)
	if collector != nil {
		manager.SetObserver(collector)
	}
	assistant := ai.NewAssistant(manager, cfg.AI.Voice, log.Logger)
	dispatcher := voice.NewDispatcher(homeService, assistant, true, log.Logger)
	systemService := system.NewService(homeService, "/", log.Logger)

	deps := handlers.Deps{
		Home:      homeService,
		Auth:      authService,
		Assistant: assistant,
		Voice:     dispatcher,
		System:    systemService,
		Providers: manager,
		Hub:       hub,
		Metrics:   collector,
		Ping: func(ctx context.Context) error {
			return database.Ping(ctx, store)
		},
		Backend: cfg.Database.Backend,
	}

	opts := api.Options{MetricsHandler: metricsHandler}
	if cfg.Security.LoginRateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.Security.LoginRateLimit.Requests, cfg.Security.LoginRateLimit.WindowDuration())
		defer limiter.Stop()
		opts.LoginLimiter = limiter
	}

	router := api.NewRouter(cfg, deps, log, opts)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	stop()

	log.Info("Server exited")
	return runErr
}

func seedStore(ctx context.Context, cfg *config.Config, store repositories.Store, log *logrus.Logger) error {
	var (
		data *seed.Data
		err  error
	)
	if cfg.Database.SeedFile != "" {
		data, err = seed.Load(cfg.Database.SeedFile)
	} else {
		data, err = seed.Default()
	}
	if err != nil {
		return err
	}

	result, err := seed.Apply(ctx, store, data, cfg.Auth.BcryptCost, log)
	if err != nil {
		return err
	}
	if result.Applied {
		log.WithFields(logrus.Fields{
			"users":       result.Users,
			"rooms":       result.Rooms,
			"devices":     result.Devices,
			"scenes":      result.Scenes,
			"automations": result.Automations,
		}).Info("Seeded database")
	}
	return nil
}
