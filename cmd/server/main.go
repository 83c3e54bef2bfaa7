package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/larkrelay/backend/internal/ai"
	"github.com/larkrelay/backend/internal/config"
	httpapi "github.com/larkrelay/backend/internal/http"
	"github.com/larkrelay/backend/internal/lark"
	"github.com/larkrelay/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "lark-relay").Logger()

	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal().Err(err).Msg("refusing to start")
	}

	outbound := &http.Client{Timeout: cfg.OutboundTimeout}

	var completer ai.Completer
	if !cfg.CompletionEnabled() {
		completer = ai.EchoCompleter{}
		logger.Warn().Msg("OPENAI_API_KEY not set, using echo completer")
	} else {
		completer = ai.OpenAICompatAssistant{
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.OpenAIModel,
			APIKey:    cfg.OpenAIAPIKey,
			MaxTokens: cfg.OpenAIMaxTokens,
			Client:    outbound,
		}
	}

	larkClient := &lark.Client{
		BaseURL:   cfg.LarkBaseURL,
		AppID:     cfg.LarkAppID,
		AppSecret: cfg.LarkAppSecret,
		HTTP:      outbound,
		Cache:     lark.NewTokenCache(cfg.LarkTokenCacheTTL),
	}
	if larkClient.Cache != nil {
		logger.Info().Dur("ttl", cfg.LarkTokenCacheTTL).Msg("token cache enabled")
	}

	relay := &service.RelayService{
		Completer:    completer,
		Lark:         larkClient,
		Model:        cfg.OpenAIModel,
		SystemPrompt: cfg.OpenAISystemPrompt,
		ReplyMode:    cfg.LarkReplyMode,
		Logger:       logger,
	}

	router := httpapi.Router(cfg, relay, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("reply_mode", cfg.LarkReplyMode).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
