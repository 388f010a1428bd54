package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/subosito/gotenv"
	_ "github.com/viant/afsc/gs"
	_ "github.com/viant/afsc/s3"
	"go.uber.org/zap"

	"github.com/xak1234/Huntley/adapters/hasher"
	httpadapter "github.com/xak1234/Huntley/adapters/http"
	"github.com/xak1234/Huntley/adapters/llm"
	"github.com/xak1234/Huntley/adapters/message_broker"
	"github.com/xak1234/Huntley/adapters/persona"
	"github.com/xak1234/Huntley/adapters/storage"
	"github.com/xak1234/Huntley/adapters/transcript"
	"github.com/xak1234/Huntley/adapters/websocket"
	"github.com/xak1234/Huntley/domain"
	"github.com/xak1234/Huntley/usecase"
	"github.com/xak1234/Huntley/utils/config"
	"github.com/xak1234/Huntley/utils/log"
)

func main() {
	gotenv.Load()
	defer log.Sync()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.With(zap.Error(err)).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.With(zap.Error(err)).Fatal("Server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	snapshots, err := newSnapshotStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}

	// Requests arriving before the document is parsed see the default.
	bot := usecase.NewPersona(usecase.DefaultPersona)
	go bot.Load(ctx, persona.NewSource(cfg.PersonaPath))

	broker := message_broker.NewChannelMessageBroker()
	defer broker.Close()

	svc := usecase.NewChatService(
		transcript.NewStore(snapshots),
		generator,
		bot,
		usecase.WithAssistantName(cfg.AssistantName),
		usecase.WithBroker(broker),
	)
	// The chat loop outlives ctx so requests accepted before shutdown still
	// get answered while the HTTP server drains.
	svcCtx, stopService := context.WithCancel(context.WithoutCancel(ctx))
	defer stopService()
	go svc.Run(svcCtx)

	feed := websocket.NewServer(svc, broker)
	if err := feed.Start(ctx); err != nil {
		return fmt.Errorf("start websocket feed: %w", err)
	}

	chatHandler := httpadapter.NewChatHandler(svc, hasher.New())

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(httpadapter.RequestContext)
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	e.GET("/health", chatHandler.HealthCheck)
	e.GET("/ws", feed.Handler)

	api := e.Group("/api")
	api.POST("/chat", chatHandler.Chat)
	api.GET("/chat-history", chatHandler.History)

	// Frontend, with unknown paths falling back to index.html.
	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Root:  cfg.StaticDir,
		HTML5: true,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return strings.HasPrefix(p, "/api/") || p == "/ws" || p == "/health"
		},
	}))

	errCh := make(chan error, 1)
	go func() {
		log.With(zap.Int("port", cfg.Port), zap.String("history_backend", cfg.HistoryBackend)).Info("Server listening")
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = e.Shutdown(shutdownCtx)
	stopService()
	return err
}

func newSnapshotStorage(ctx context.Context, cfg *config.Config) (domain.SnapshotStorage, error) {
	switch cfg.HistoryBackend {
	case config.BackendRedis:
		s, err := storage.NewRedisStorage(storage.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		})
		if err != nil {
			return nil, err
		}
		if err := s.Ping(ctx); err != nil {
			log.With(zap.Error(err)).Warn("Redis is not reachable yet, history will start empty")
		}
		return s, nil
	case config.BackendBolt:
		return storage.NewBoltStorage(cfg.BoltPath)
	default:
		return storage.NewAFSStorage(cfg.HistoryURL)
	}
}

// newGenerator builds the provider chain: Gemini first, OpenAI as the
// fallback when a key is configured.
func newGenerator(ctx context.Context, cfg *config.Config) (*usecase.FallbackLlm, error) {
	var providers []domain.Llm

	if cfg.Gemini.APIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, gemini)
	}

	if cfg.OpenAI.APIKey != "" {
		openAI, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:       cfg.OpenAI.APIKey,
			Model:        cfg.OpenAI.Model,
			BaseURL:      cfg.OpenAI.BaseURL,
			SystemPrompt: usecase.PromptBuilder{Name: cfg.AssistantName}.SystemReminder(),
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, openAI)
	}

	if !cfg.HasProvider() {
		log.With().Warn("No provider API key configured, every chat request will fail")
	}
	return usecase.NewFallbackLlm(cfg.ProviderTimeout, providers...), nil
}
