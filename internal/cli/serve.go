package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/ai"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/api"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/audit"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/auth"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/cleanup"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/config"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/crypto"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/logging"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/metrics"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/notes"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/notify"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/oauth"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/refresh"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/session"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/store"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/youtube"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s", "server", "run"},
	Short:   "Start the API server",
	Long: `Start the dashboard API server in main mode.

This command starts the HTTP server that handles sign-in, the provider
API routes, notes, and AI generation.

Example:
  ytcompanion serve --config config.yaml --db ./data/ytcompanion.db`,
	RunE: runServe,
}

var serveFlags struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Server host (overrides config)")
	serveCmd.Flags().IntVar(&serveFlags.Port, "port", 0, "Server port (overrides config)")
	serveCmd.Flags().DurationVar(&serveFlags.Timeout, "timeout", 0, "Shutdown timeout (overrides config)")

	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if globalFlags.Verbose {
		log.Println("Starting server...")
		log.Printf("Config path: %s", globalFlags.Config)
	}

	loader := config.NewLoader(globalFlags.Config)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if serveFlags.Host != "" {
		cfg.Server.Host = serveFlags.Host
	}
	if serveFlags.Port != 0 {
		cfg.Server.HTTPPort = serveFlags.Port
	}
	if serveFlags.Timeout != 0 {
		cfg.Server.ShutdownTimeout = serveFlags.Timeout
	}

	logger := logging.NewLogger(logging.WithLevel(logging.LogLevel(cfg.Server.LogLevel)))

	key, err := hex.DecodeString(cfg.Security.EncryptionKey)
	if err != nil {
		return fmt.Errorf("security.encryption_key is not valid hex: %w", err)
	}
	codec, err := crypto.NewCodec(key)
	if err != nil {
		return fmt.Errorf("failed to build encryption codec: %w", err)
	}

	dbPath := cfg.Database.Path
	if cmd.Flags().Changed("db") || RootCmd.PersistentFlags().Changed("db") {
		dbPath = globalFlags.DBPath
	}
	sqliteStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	if globalFlags.Verbose {
		log.Printf("Database initialized at: %s", dbPath)
	}

	m := metrics.NewMetrics("ytcompanion")

	notifier, err := notify.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, logger)
	if err != nil {
		log.Printf("Operator alerting warning: %v", err)
	}

	auditOpts := []audit.Option{audit.WithDropHook(m.RecordAuditDrop)}
	if notifier != nil {
		auditOpts = append(auditOpts, audit.WithNotifier(notifier))
	}
	auditLog := audit.NewLogger(sqliteStore, logger, auditOpts...)

	oauthClient := oauth.NewClient(cfg.Provider)

	issuer, err := session.NewIssuer([]byte(cfg.Session.SigningSecret), session.WithTTL(cfg.Session.TTL))
	if err != nil {
		return fmt.Errorf("failed to build session issuer: %w", err)
	}

	manager := refresh.NewManager(sqliteStore, codec, oauthClient, logger,
		refresh.WithBuffer(cfg.Provider.RefreshBuffer),
		refresh.WithTimeout(cfg.Provider.Timeout),
		refresh.WithAudit(auditLog),
		refresh.WithMetrics(m),
	)

	ytOpts := []youtube.Option{
		youtube.WithTimeout(cfg.Provider.Timeout),
		youtube.WithAudit(auditLog),
		youtube.WithMetrics(m),
	}
	if cfg.Provider.APIBaseURL != "" {
		ytOpts = append(ytOpts, youtube.WithBaseURL(cfg.Provider.APIBaseURL))
	}
	ytClient := youtube.NewClient(manager, logger, ytOpts...)

	authSvc := auth.NewService(oauthClient, ytClient, sqliteStore, codec, issuer, auditLog, logger)

	var generator api.Generator
	if cfg.AI.APIKey != "" {
		aiOpts := []ai.Option{
			ai.WithModel(cfg.AI.Model),
			ai.WithTimeout(cfg.AI.Timeout),
			ai.WithAudit(auditLog),
		}
		if cfg.AI.Endpoint != "" {
			aiOpts = append(aiOpts, ai.WithEndpoint(cfg.AI.Endpoint))
		}
		aiClient, err := ai.NewClient(cfg.AI.APIKey, logger, aiOpts...)
		if err != nil {
			return fmt.Errorf("failed to build generation client: %w", err)
		}
		generator = aiClient
	} else if globalFlags.Verbose {
		log.Println("AI generation disabled: no api key configured")
	}

	server := api.NewServer(cfg.Server, cfg.API, api.Deps{
		Auth:        authSvc,
		Videos:      ytClient,
		Generator:   generator,
		Notes:       notes.NewService(sqliteStore),
		Credentials: manager,
		Store:       sqliteStore,
		AuditLog:    auditLog,
		Metrics:     m,
		Logger:      logger,
	})

	sweeper := cleanup.NewSweeper(sqliteStore, logger,
		cleanup.WithRetention(cfg.Database.AuditRetention),
		cleanup.WithInterval(cfg.Database.SweepInterval))
	if err := sweeper.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start audit sweeper: %w", err)
	}
	defer sweeper.Stop()

	// Config edits take effect on restart; the watcher only surfaces them.
	loader.SetOnChange(func(updated *config.Config) {
		logger.Info("configuration file changed, restart to apply")
	})
	if err := loader.StartWatcher(); err != nil {
		logger.Warn("config watcher unavailable", "error", err.Error())
	}
	defer loader.StopWatcher()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	signals := api.SetupSignalHandler()
	select {
	case err := <-errCh:
		// The listener died on its own. Still run the shutdown path so the
		// audit queue drains and the store closes cleanly.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if cerr := server.Shutdown(ctx); cerr != nil {
			logger.Error("cleanup after server failure", "error", cerr.Error())
		}
		return err
	case sig := <-signals:
		logger.Info("received shutdown signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}
