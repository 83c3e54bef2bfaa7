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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/larkrelay/backend/internal/config"
	"github.com/larkrelay/backend/internal/lark"
	"github.com/larkrelay/backend/internal/service"
)

type options struct {
	dryRun   bool
	every    time.Duration
	chatID   string
	appToken string
	tableID  string
}

func main() {
	var opts options

	root := &cobra.Command{
		Use:   "bitable-summary",
		Short: "Post a summary of a Lark bitable into a group chat",
		Long: "Reads the payment requests table with an app access token, formats one line per record " +
			"and sends the text to a Lark chat. With --every it keeps polling until interrupted.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := root.Flags()
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the summary instead of posting it")
	f.DurationVar(&opts.every, "every", 0, "poll interval; 0 runs once")
	f.StringVar(&opts.chatID, "chat-id", "", "target chat id (default LARK_CHAT_ID)")
	f.StringVar(&opts.appToken, "app-token", "", "bitable app token (default BITABLE_APP_TOKEN)")
	f.StringVar(&opts.tableID, "table-id", "", "bitable table id (default BITABLE_TABLE_ID)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.chatID != "" {
		cfg.LarkChatID = opts.chatID
	}
	if opts.appToken != "" {
		cfg.BitableAppToken = opts.appToken
	}
	if opts.tableID != "" {
		cfg.BitableTableID = opts.tableID
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "bitable-summary").Logger()

	if err := cfg.ValidateSummary(); err != nil {
		return err
	}
	if cfg.LarkChatID == "" && !opts.dryRun {
		return errors.New("no target chat: set LARK_CHAT_ID or --chat-id")
	}

	summary := &service.SummaryService{
		Lark: &lark.Client{
			BaseURL:   cfg.LarkBaseURL,
			AppID:     cfg.LarkAppID,
			AppSecret: cfg.LarkAppSecret,
			HTTP:      &http.Client{Timeout: cfg.OutboundTimeout},
			Cache:     lark.NewTokenCache(cfg.LarkTokenCacheTTL),
		},
		Fields: service.SummaryFields{
			Employee: cfg.BitableFieldEmployee,
			Amount:   cfg.BitableFieldAmount,
			Status:   cfg.BitableFieldStatus,
		},
		PageSize: cfg.BitablePageSize,
		Logger:   logger,
	}

	once := func() error {
		text, err := summary.FetchSummary(ctx, cfg.BitableAppToken, cfg.BitableTableID)
		if err != nil {
			return fmt.Errorf("fetch summary: %w", err)
		}
		if opts.dryRun {
			fmt.Println(text)
			return nil
		}
		if err := summary.PublishSummary(ctx, cfg.LarkChatID, text, ""); err != nil {
			return fmt.Errorf("publish summary: %w", err)
		}
		logger.Info().Str("chat_id", cfg.LarkChatID).Int("len", len(text)).Msg("summary published")
		return nil
	}

	if opts.every <= 0 {
		return once()
	}

	ticker := time.NewTicker(opts.every)
	defer ticker.Stop()
	for {
		if err := once(); err != nil {
			logger.Error().Err(err).Msg("summary run failed")
		}
		select {
		case <-ctx.Done():
			logger.Info().Msg("stopped")
			return nil
		case <-ticker.C:
		}
	}
}
