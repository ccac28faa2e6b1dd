package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/llamachat/toolchat/internal/config"
	"github.com/llamachat/toolchat/internal/router"
	"github.com/llamachat/toolchat/internal/tickets"
	"github.com/llamachat/toolchat/internal/tools"
)

// app holds the dependencies shared by the chat and serve commands.
type app struct {
	cfg      *config.Config
	registry *tools.Registry
	router   *router.Router
	tickets  *tickets.Store
}

// loadConfig loads and validates configuration, applying a strategy override.
func loadConfig(strategy string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if s := strings.TrimSpace(strategy); s != "" {
		cfg.Router.Strategy = strings.ToLower(s)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	warnStartupConditions(cfg)
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	modelProvider, err := providerFactory(cfg.LLM)
	if err != nil {
		return nil, err
	}

	registry, store, err := buildToolRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	strategy, err := router.ParseStrategy(cfg.Router.Strategy)
	if err != nil {
		store.Close()
		return nil, err
	}
	rt, err := router.New(modelProvider, registry, router.Options{
		Strategy:     strategy,
		SystemPrompt: cfg.Router.SystemPrompt,
		ToolChoice:   cfg.Router.ToolChoice,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return &app{cfg: cfg, registry: registry, router: rt, tickets: store}, nil
}

// Close releases the ticket store.
func (a *app) Close() error {
	if a == nil || a.tickets == nil {
		return nil
	}
	return a.tickets.Close()
}

// buildToolRegistry registers the builtin tools in match order, backed by a
// fresh in-memory ticket store.
func buildToolRegistry(ctx context.Context, cfg *config.Config) (*tools.Registry, *tickets.Store, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is required")
	}
	store, err := tickets.Open(ctx, cfg.Tickets.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("open ticket store: %w", err)
	}
	registry := tools.NewRegistry()
	if err := tools.RegisterBuiltins(registry, tools.BuiltinDeps{Tickets: store}); err != nil {
		store.Close()
		return nil, nil, err
	}
	return registry, store, nil
}
