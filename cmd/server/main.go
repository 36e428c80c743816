package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/athlos-app/athlos/internal/api"
	"github.com/athlos-app/athlos/internal/app"
	"github.com/athlos-app/athlos/internal/app/maintenance"
	"github.com/athlos-app/athlos/internal/database"
	"github.com/athlos-app/athlos/internal/identity"
	"github.com/athlos-app/athlos/internal/notifications"
	"github.com/athlos-app/athlos/internal/services"
	"github.com/athlos-app/athlos/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("athlos-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	users, err := identity.NewService(db)
	if err != nil {
		return fmt.Errorf("initialise identity service: %w", err)
	}

	verifier, provider, err := buildVerifier(ctx, cfg, log)
	if err != nil {
		return err
	}

	hub := notifications.NewHub()

	svc, err := buildServices(db, hub)
	if err != nil {
		return err
	}

	var cleaner *maintenance.Cleaner
	if cfg.Maintenance.Enabled {
		cleaner = maintenance.NewCleaner(db,
			maintenance.WithNotificationRetentionDays(cfg.Maintenance.NotificationRetention),
			maintenance.WithNotificationSchedule(cfg.Maintenance.NotificationSchedule),
			maintenance.WithParticipantSchedule(cfg.Maintenance.ParticipantSchedule),
			maintenance.WithConversationSchedule(cfg.Maintenance.ConversationSchedule),
		)
		if err := cleaner.Start(); err != nil {
			return fmt.Errorf("start maintenance jobs: %w", err)
		}
		defer func() {
			stopCtx := cleaner.Stop()
			if err := cleaner.RunOnce(stopCtx); err != nil {
				log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
			}
		}()
	}

	router, err := api.NewRouter(db, verifier, users, provider, hub, svc)
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

// buildVerifier selects between OIDC discovery and shared-secret token
// verification depending on configuration. The OIDC provider, when
// configured, also powers the interactive login flow.
func buildVerifier(ctx context.Context, cfg *app.Config, log *zap.Logger) (identity.TokenVerifier, *identity.OIDCProvider, error) {
	if issuer := strings.TrimSpace(cfg.Auth.OIDC.Issuer); issuer != "" {
		provider, err := identity.NewOIDCProvider(ctx, identity.OIDCConfig{
			Issuer:       issuer,
			ClientID:     cfg.Auth.OIDC.ClientID,
			ClientSecret: cfg.Auth.OIDC.ClientSecret,
			RedirectURL:  cfg.Auth.OIDC.RedirectURL,
			Scopes:       cfg.Auth.OIDC.Scopes,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("initialise oidc provider: %w", err)
		}
		log.Info("using oidc token verification", zap.String("issuer", issuer))
		return provider, provider, nil
	}

	verifier, err := identity.NewStaticVerifier(identity.StaticVerifierConfig{
		Secret:   cfg.Auth.Token.Secret,
		Issuer:   cfg.Auth.Token.Issuer,
		Audience: cfg.Auth.Token.Audience,
		Leeway:   cfg.Auth.Token.Leeway,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initialise token verifier: %w", err)
	}
	return verifier, nil, nil
}

func buildServices(db *gorm.DB, hub *notifications.Hub) (api.Services, error) {
	notifier, err := services.NewNotificationService(db, hub)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise notification service: %w", err)
	}

	membership, err := services.NewMembershipService(db)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise membership service: %w", err)
	}

	teams, err := services.NewTeamService(db, notifier)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise team service: %w", err)
	}

	conversations, err := services.NewConversationService(db, membership, notifier)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise conversation service: %w", err)
	}

	participants, err := services.NewParticipantService(db, membership)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise participant service: %w", err)
	}

	messages, err := services.NewMessageService(db, conversations, participants, membership, notifier)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise message service: %w", err)
	}

	return api.Services{
		Teams:         teams,
		Conversations: conversations,
		Participants:  participants,
		Messages:      messages,
		Notifier:      notifier,
	}, nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	db, err := database.Open(convertDatabaseConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Database.Driver)) {
	case "postgres", "postgresql":
		dbCfg.Host = cfg.Database.Postgres.Host
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = cfg.Database.Postgres.Database
		dbCfg.User = cfg.Database.Postgres.Username
		dbCfg.Password = cfg.Database.Postgres.Password
	case "mysql", "mariadb":
		dbCfg.Host = cfg.Database.MySQL.Host
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = cfg.Database.MySQL.Database
		dbCfg.User = cfg.Database.MySQL.Username
		dbCfg.Password = cfg.Database.MySQL.Password
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("database close skipped", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
