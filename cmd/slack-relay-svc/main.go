package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/BitwaveCorp/slack-relay-svc/internal/api"
	"github.com/BitwaveCorp/slack-relay-svc/internal/config"
	"github.com/BitwaveCorp/slack-relay-svc/internal/observability"
	"github.com/BitwaveCorp/slack-relay-svc/internal/paramstore"
	"github.com/BitwaveCorp/slack-relay-svc/internal/slack"
)

func main() {
	// Make sure a panic during startup still reaches the logs
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "FATAL PANIC: %v\n", r)
			os.Exit(1)
		}
	}()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(logger)
	if err != nil {
		slog.Error("Failed to process config", "error", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	slog.Info("Starting slack-relay-svc", "config", cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	token, err := resolveBotToken(ctx, cfg)
	cancel()
	if err != nil {
		slog.Error("Failed to resolve Slack bot token", "error", err, "param", cfg.SlackBotTokenParam)
		os.Exit(1)
	}
	if token == "" {
		slog.Warn("SLACK_BOT_TOKEN is not set, Slack will reject every message with not_authed")
	}
	if cfg.SlackChannel == "" {
		slog.Warn("SLACK_CHANNEL is not set, requests without a channel will be rejected")
	}

	tracing, err := observability.Setup(context.Background(), cfg.Telemetry, logger)
	if err != nil {
		slog.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}

	slackClient := slack.NewClient(token, logger,
		slack.WithAPIURL(cfg.SlackAPIURL),
		slack.WithTimeout(cfg.SlackTimeout),
		slack.WithTracerProvider(tracing.Provider),
	)
	handler := api.NewHandler(slackClient, cfg.SlackChannel, logger)
	router := api.NewRouter(handler, logger)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           observability.Middleware(router, "slack-relay-svc", tracing.Provider),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.SlackTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("Starting HTTP server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	slog.Info("Received signal, shutting down", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		slog.Error("Tracer shutdown failed", "error", err)
	}

	slog.Info("Service shutdown complete")
}

// resolveBotToken prefers SLACK_BOT_TOKEN and falls back to the SSM parameter
// named by SLACK_BOT_TOKEN_PARAM.
func resolveBotToken(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.SlackBotToken != "" || cfg.SlackBotTokenParam == "" {
		return cfg.SlackBotToken, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("load AWS config: %w", err)
	}
	store, err := paramstore.New(ssm.NewFromConfig(awsCfg))
	if err != nil {
		return "", err
	}
	token, err := store.BotToken(ctx, cfg.SlackBotTokenParam)
	if err != nil {
		return "", err
	}
	slog.Info("Loaded Slack bot token from parameter store",
		"param", cfg.SlackBotTokenParam,
		"token", config.Mask(token))
	return token, nil
}
