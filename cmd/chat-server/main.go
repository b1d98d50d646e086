// Command chat-server runs the easy-chat HTTP backend.
//
// Configuration is read from ./application.yaml, /etc/config/easy-chat.yaml
// or the file named by $EASY_CHAT_CONFIG, with EASY_CHAT_* environment
// overrides.
package main

import (
	"context"
	"os"

	"github.com/kbukum/easychat/auth/jwt"
	"github.com/kbukum/easychat/auth/password"
	"github.com/kbukum/easychat/bootstrap"
	"github.com/kbukum/easychat/chat"
	"github.com/kbukum/easychat/component"
	"github.com/kbukum/easychat/config"
	"github.com/kbukum/easychat/database"
	"github.com/kbukum/easychat/logger"
	"github.com/kbukum/easychat/notify"
	"github.com/kbukum/easychat/observability"
	"github.com/kbukum/easychat/server"
	"github.com/kbukum/easychat/server/middleware"
	"github.com/kbukum/easychat/store"
	"github.com/kbukum/easychat/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().String()
	}

	logger.Init(cfg.Log, cfg.Name)
	log := logger.GetGlobalLogger()

	ctx := context.Background()
	shutdownTelemetry, err := observability.Init(ctx, cfg.Observability())
	if err != nil {
		log.Fatal("Failed to initialize telemetry", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	metrics, err := observability.NewHTTPMetrics(observability.Meter())
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}

	signer, verifier, err := jwt.Load(cfg.Auth.Config)
	if err != nil {
		log.Fatal("Failed to load token keys", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	log.Info("Authentication configured", map[string]interface{}{
		"auth": cfg.Auth.Describe(),
	})

	db := database.NewComponent(cfg.DB, log).
		WithMigrations(store.Migrations, store.MigrationsDir).
		WithAutoMigrate(store.Models()...)
	hub := notify.NewComponent(log)

	srv := server.New(cfg.Server, log, middleware.PipelineConfig{
		Verifier: verifier,
		Metrics:  metrics,
	})
	engine := srv.GinEngine()

	authService := chat.NewAuthService(store.NewUserStore(db), password.NewHasher(cfg.Auth.Password), signer, log)
	chat.NewHandler(authService, store.NewChatStore(db), hub.Hub(), log).Register(engine)
	notify.NewHandler(hub.Hub(), log, notify.DefaultKeepAlive).Register(engine)

	app := bootstrap.NewApp(cfg.Name, cfg.Version, bootstrap.WithLogger(log))
	srv.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)
	for _, c := range []component.Component{db, hub, server.NewComponent(srv)} {
		if err := app.RegisterComponent(c); err != nil {
			log.Fatal("Failed to register component", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
	}

	runErr := app.Run(ctx)
	if err := shutdownTelemetry(context.Background()); err != nil {
		log.Warn("Telemetry shutdown failed", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	if runErr != nil {
		log.Error("Application stopped with errors", map[string]interface{}{
			logger.FieldError: runErr.Error(),
		})
		os.Exit(1)
	}
}
