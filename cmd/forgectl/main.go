package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/Strob0t/TaskForge/internal/adapter/settingsapi"
	"github.com/Strob0t/TaskForge/internal/config"
	"github.com/Strob0t/TaskForge/internal/domain/settings"
	"github.com/Strob0t/TaskForge/internal/domain/webhook"
	"github.com/Strob0t/TaskForge/internal/resilience"
	"github.com/Strob0t/TaskForge/internal/statecache"
	"github.com/Strob0t/TaskForge/internal/tui"
	"github.com/Strob0t/TaskForge/internal/webhookflow"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "forgectl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("forgectl needs an interactive terminal")
	}

	flags, err := config.ParseFlags(args)
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}

	cfg, _, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	client := settingsapi.NewClient(cfg.Client.BaseURL, cfg.Client.Timeout)
	client.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	settingsCache := statecache.New(func(ctx context.Context) (*settings.Settings, error) {
		return client.GetSettings(ctx)
	}, cfg.Cache.SettingsTTL)
	statusCache := webhookflow.NewStatusCache(func(ctx context.Context) (*webhook.Status, error) {
		return client.WebhookStatus(ctx)
	}, cfg.Cache.StatusTTL)

	return tui.Run(client, settingsCache, statusCache)
}
