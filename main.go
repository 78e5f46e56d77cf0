// Package main implements a daemon that monitors the CC98 forum for newly
// created topics and pushes matching ones to a DingTalk group chat.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cc98-notifier/boards"
	"cc98-notifier/config"
	"cc98-notifier/creds"
	"cc98-notifier/dingtalk"
	"cc98-notifier/poll"
	"cc98-notifier/server"
	"cc98-notifier/session"

	"github.com/mattn/go-isatty"
)

func main() {
	logger := newLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Configuration error", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting CC98 monitor",
		"interval", cfg.Interval.String(),
		"rules", len(cfg.Rules),
		"debug", cfg.Debug)

	// Credential discovery is best-effort: a failure here surfaces as the
	// login failure below rather than aborting immediately.
	resolver := creds.New(creds.DefaultBaseURL, logger)
	credentials, err := resolver.Resolve(ctx)
	if err != nil {
		logger.Error("Credential discovery failed", "error", err)
	}

	sess := session.New(&session.Config{
		Username:    cfg.Username,
		Password:    cfg.Password,
		Credentials: credentials,
		Logger:      logger,
	})

	// Without any valid session nothing else can function.
	if err := sess.Login(ctx); err != nil {
		logger.Error("Initial login failed", "error", err)
		os.Exit(1)
	}

	directory := boards.New(sess, logger)

	var provider dingtalk.Provider
	if cfg.Debug {
		provider = dingtalk.NewMockProvider(logger)
	} else {
		provider = dingtalk.NewWebhookProvider(cfg.WebhookURL, cfg.WebhookSecret, logger)
	}
	sender := dingtalk.New(provider, logger)

	monitor := poll.New(&poll.Config{
		Client:   sess,
		Boards:   directory,
		Notifier: sender,
		Rules:    cfg.Rules,
		Policy:   poll.DefaultRecoveryPolicy(),
		Interval: cfg.Interval,
		Logger:   logger,
	})

	// Operating without a baseline would mass-notify on every pre-existing
	// topic, so this failure is fatal too.
	if err := monitor.Init(ctx); err != nil {
		logger.Error("Failed to establish baseline", "error", err)
		os.Exit(1)
	}

	if cfg.StatusAddr != "" {
		statusServer := server.New(monitor, logger)
		go func() {
			if err := statusServer.ListenAndServe(cfg.StatusAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Status server failed", "error", err)
			}
		}()
	}

	if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Poll loop exited", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// newLogger returns a text logger on terminals and a JSON logger otherwise.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if v := os.Getenv("DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
