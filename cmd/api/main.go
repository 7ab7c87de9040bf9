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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/zhouzirui/bzik/backend/internal/config"
	"github.com/zhouzirui/bzik/backend/internal/handler"
	"github.com/zhouzirui/bzik/backend/internal/logging"
	"github.com/zhouzirui/bzik/backend/internal/model/persona"
	"github.com/zhouzirui/bzik/backend/internal/service/ai"
	"github.com/zhouzirui/bzik/backend/internal/service/chat"
	"github.com/zhouzirui/bzik/backend/internal/service/conversation"
	"github.com/zhouzirui/bzik/backend/internal/service/credential"
	"github.com/zhouzirui/bzik/backend/internal/service/dedupe"
	"github.com/zhouzirui/bzik/backend/internal/service/knowledge"
	"github.com/zhouzirui/bzik/backend/internal/service/voice"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, NoColor: !cfg.Log.Color})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}
	zlog.Logger = logger
	zerolog.DefaultContextLogger = &logger

	if envErr != nil {
		logger.Debug().Err(envErr).Msg("未加载 .env 文件，仅使用系统环境变量")
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	content, err := config.LoadContent(cfg.Content)
	if err != nil {
		return err
	}

	personaStore := persona.NewMemoryStore(persona.Apply(persona.Seed(), content.Personas))
	knowledgeTable := knowledge.NewTable(knowledge.Merge(knowledge.Defaults(), content.Knowledge))

	pool := credential.NewPool(cfg.LLM.Keys, credential.WithCooldown(cfg.Limits.CredentialCooldown))
	if pool.Len() == 0 {
		logger.Warn().Msg("未配置任何上游凭证，所有回复将来自知识库或兜底规则")
	}

	dispatcher := ai.NewDispatcher(pool, newCompleter(cfg.LLM),
		ai.WithAttemptTimeout(cfg.LLM.Timeout),
		ai.WithPromptBuilder(ai.NewPromptBuilder(cfg.Limits.ConversationContext)),
		ai.WithLogger(logger),
	)

	store, err := openStore(cfg.Memory, cfg.Limits.ConversationCap, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭对话存储失败")
		}
	}()

	voiceManager := voice.NewManager(voice.Config{
		ListenDuration: cfg.Voice.ListenDuration,
		SilenceTimeout: cfg.Voice.SilenceTimeout,
		SilenceGrace:   cfg.Voice.SilenceGrace,
		ExitPhrases:    content.ExitPhrases,
	}, logger)
	go voiceManager.Run(ctx, cfg.Voice.SweepInterval)

	chatSvc, err := chat.NewService(chat.Deps{
		Personas:   personaStore,
		Knowledge:  knowledgeTable,
		Dispatcher: dispatcher,
		Dedupe:     dedupe.New(cfg.Limits.DuplicateWindow, cfg.Limits.DuplicateCapacity),
		Store:      store,
		Voice:      voiceManager,
	}, chat.WithLogger(logger))
	if err != nil {
		return err
	}

	router := handler.NewRouter(handler.Deps{
		Personas:      personaStore,
		Chat:          chatSvc,
		Pool:          pool,
		Provider:      string(cfg.LLM.Provider),
		MaxConcurrent: cfg.Server.MaxConcurrent,
	}, logger)

	logger.Info().
		Str("provider", string(cfg.LLM.Provider)).
		Int("credentials", pool.Len()).
		Int("knowledge", knowledgeTable.Len()).
		Str("memory", cfg.Memory.Backend).
		Msg("Bzik backend initialized")

	return startServer(ctx, cfg.Server, router, logger)
}

func newCompleter(cfg config.LLMConfig) ai.Completer {
	if cfg.Provider == config.ProviderArk {
		return ai.NewArkCompleter(ai.ArkConfig{
			BaseURL:     cfg.BaseURL,
			Region:      cfg.Region,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	}
	return ai.NewHTTPCompleter(ai.HTTPConfig{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		SiteURL:     cfg.SiteURL,
		SiteName:    cfg.SiteName,
	}, &http.Client{})
}

func openStore(cfg config.MemoryConfig, limit int, logger zerolog.Logger) (conversation.Store, error) {
	if cfg.Backend == "sqlite" {
		store, err := conversation.OpenSQLite(cfg.DBPath, limit, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite conversation store: %w", err)
		}
		return store, nil
	}
	store, err := conversation.OpenFile(cfg.Path, conversation.WithFileCap(limit), conversation.WithFileLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open conversation file: %w", err)
	}
	return store, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger zerolog.Logger) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("Bzik backend listening")
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
