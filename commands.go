package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"companion/internal/config"
	"companion/internal/conversation"
	"companion/internal/crisis"
	"companion/internal/crypto"
	"companion/internal/emotion"
	"companion/internal/llm"
	"companion/internal/logging"
	"companion/internal/metrics"
	"companion/internal/ml_client"
	"companion/internal/pipeline"
	"companion/internal/repository"
	"companion/internal/revocation"
	"companion/internal/server"
	"companion/internal/service"
	"companion/internal/support"
	"companion/internal/telegram_bot"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sqlx.DB, logger *zap.Logger) error {
			return repository.MigrateDB(db, logger)
		})
	},
}

var rollbackSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sqlx.DB, logger *zap.Logger) error {
			return repository.RollbackDB(db, rollbackSteps, logger)
		})
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "number of migrations to roll back")
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

func withDB(fn func(db *sqlx.DB, logger *zap.Logger) error) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.URL, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return fn(db, logger)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Database connection
	db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.URL, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := repository.MigrateDB(db, logger); err != nil {
		return err
	}

	cipher, err := crypto.NewContentCipher(cfg.Security.ContentKey)
	if err != nil {
		return fmt.Errorf("failed to initialize content cipher: %w", err)
	}
	if cfg.Security.ContentKey == "" {
		logger.Warn("security.content_key is not set, messages are stored in plain text")
	}

	revoked, closeRevoked, err := newRevocationStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRevoked()

	authRepo := repository.NewAuthRepository(db, logger)
	chatRepo := repository.NewChatRepository(db, cipher, logger)
	authService := service.NewAuthService(authRepo, revoked, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)

	predictor, backend := newModelBackends(cfg, logger)

	phrases := make([]crisis.Phrase, 0, len(cfg.Crisis.Phrases))
	for _, p := range cfg.Crisis.Phrases {
		phrases = append(phrases, crisis.Phrase{Text: p.Phrase, Severity: crisis.Severity(p.Severity)})
	}
	if len(phrases) == 0 {
		phrases = crisis.DefaultPhrases()
	}

	bot, err := telegram_bot.NewBot(cfg.Alerts.Enabled, cfg.Alerts.TelegramBotToken, cfg.Alerts.ChatID, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram bot, continuing without crisis alerts", zap.Error(err))
		bot = nil
	}

	m := metrics.New()
	screener := crisis.NewScreener(phrases, cfg.Crisis.Message)
	logger.Info("Crisis screener ready", zap.Int("phrases", len(screener.Phrases())))
	selector := support.NewSelector(support.DefaultTable(), cfg.Support.Triggers, support.NewRand(cfg.Support.Seed))
	deps := pipeline.Deps{
		Screener:    screener,
		Classifier:  emotion.NewService(predictor, logger),
		Recommender: selector,
		Generator:   conversation.NewService(backend, logger),
		Repo:        chatRepo,
		Metrics:     m,
		Logger:      logger,
	}
	if bot != nil {
		deps.Alerter = bot
		go func() {
			if err := bot.Start(ctx); err != nil {
				logger.Error("Telegram bot failed", zap.Error(err))
			}
		}()
	}

	proc := pipeline.New(deps)
	srv := server.NewServer(server.Options{
		Mode:        cfg.Server.Mode,
		CORSOrigins: cfg.Server.CORSOrigins,
		AuthService: authService,
		Processor:   proc,
		ChatRepo:    chatRepo,
		Analytics:   repository.NewAnalyticsRepository(db, logger),
		Suggestions: selector,
		Labels:      labelNames(),
		Helpline:    screener.Message(),
		Metrics:     m,
		Logger:      logger,
	})

	if err := srv.Run(ctx, cfg.Server.Port); err != nil {
		return err
	}
	proc.Wait()
	logger.Info("Application stopped.")
	return nil
}

func newRevocationStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (revocation.Store, func(), error) {
	if cfg.Redis.URL == "" {
		logger.Info("Using in-memory token revocation store")
		return revocation.NewMemoryStore(), func() {}, nil
	}
	store, err := revocation.NewRedisStore(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("Using Redis token revocation store")
	return store, func() { _ = store.Close() }, nil
}

// newModelBackends picks the emotion predictor and reply backend per the
// configured providers.
func newModelBackends(cfg *config.Config, logger *zap.Logger) (emotion.Predictor, conversation.Backend) {
	hf := ml_client.NewClient(ml_client.Options{
		BaseURL:         cfg.MLService.URL,
		Token:           cfg.MLService.Token,
		EmotionModel:    cfg.MLService.EmotionModel,
		GenerationModel: cfg.MLService.GenerationModel,
		MaxLength:       cfg.Conversation.MaxLength,
		Timeout:         cfg.MLService.Timeout,
	})

	var openai *llm.Client
	if cfg.Emotion.Provider == config.ProviderOpenAI || cfg.Conversation.Provider == config.ProviderOpenAI {
		openai = llm.NewClient(llm.Options{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.Conversation.MaxLength,
			Labels:      labelNames(),
		}, logger)
	}

	var predictor emotion.Predictor = hf
	if cfg.Emotion.Provider == config.ProviderOpenAI {
		predictor = openai
	}
	var backend conversation.Backend = hf
	if cfg.Conversation.Provider == config.ProviderOpenAI {
		backend = openai
	}

	logger.Info("Model backends configured",
		zap.String("emotion_provider", cfg.Emotion.Provider),
		zap.String("conversation_provider", cfg.Conversation.Provider))
	return predictor, backend
}

func labelNames() []string {
	labels := make([]string, 0, len(emotion.Labels))
	for _, l := range emotion.Labels {
		labels = append(labels, string(l))
	}
	return labels
}
