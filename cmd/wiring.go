package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mihaisavezi/mutual-dissent/internal/config"
	"github.com/mihaisavezi/mutual-dissent/internal/debate"
	"github.com/mihaisavezi/mutual-dissent/internal/pricing"
	"github.com/mihaisavezi/mutual-dissent/internal/providers"
	"github.com/mihaisavezi/mutual-dissent/internal/router"
	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
	"github.com/mihaisavezi/mutual-dissent/internal/vendor"
)

// engine bundles the wired-up core: a router with every configured
// vendor registered, the transcript store, and the orchestrator that
// ties them together. Every command that actually runs a debate builds
// one of these from the loaded configuration.
type engine struct {
	Router       *router.Router
	Store        *transcript.Store
	Orchestrator *debate.Orchestrator
}

// buildEngine wires a fresh engine from cfg: it registers a provider
// client for every vendor with a configured API key (the local/Ollama
// vendor needs no key and is registered whenever the config has an entry
// for it), prefetches
// the aggregator's pricing catalog best-effort, and opens the transcript
// store.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*engine, error) {
	registry := vendor.DefaultRegistry()

	r := router.New(registry, cfg.Routing.Mode, cfg.Routing.Overrides, logger)

	if vc, ok := cfg.Vendors[vendor.Anthropic]; ok && vc.APIKey != "" {
		r.RegisterVendor(vendor.Anthropic, providers.NewAnthropicProvider(vc.APIKey, vc.Endpoint))
	}

	if vc, ok := cfg.Vendors[vendor.OpenAI]; ok && vc.APIKey != "" {
		r.RegisterVendor(vendor.OpenAI, providers.NewOpenAIProvider(vc.APIKey, vc.Endpoint))
	}

	if vc, ok := cfg.Vendors[vendor.Google]; ok && vc.APIKey != "" {
		r.RegisterVendor(vendor.Google, providers.NewGoogleProvider(vc.APIKey, vc.Endpoint))
	}

	if vc, ok := cfg.Vendors[vendor.XAI]; ok && vc.APIKey != "" {
		r.RegisterVendor(vendor.XAI, providers.NewXAIProvider(vc.APIKey, vc.Endpoint))
	}

	if vc, ok := cfg.Vendors[vendor.Groq]; ok && vc.APIKey != "" {
		r.RegisterVendor(vendor.Groq, providers.NewGroqProvider(vc.APIKey, vc.Endpoint))
	}

	if vc, ok := cfg.Vendors[vendor.Aggregator]; ok && vc.APIKey != "" {
		r.RegisterVendor(vendor.Aggregator, providers.NewAggregatorProvider(vc.APIKey, vc.Endpoint, "", AppName))
	}

	if vc, ok := cfg.Vendors[vendor.Local]; ok {
		r.RegisterVendor(vendor.Local, providers.NewLocalProvider(vc.Endpoint))
	}

	store, err := transcript.NewStore(cfg.TranscriptDir)
	if err != nil {
		return nil, fmt.Errorf("open transcript store: %w", err)
	}

	directToAggregator := map[string]string{}

	for _, alias := range registry.Aliases() {
		model, getErr := registry.Get(alias)
		if getErr != nil {
			continue
		}

		if model.DirectID != "" && model.AggregatorID != "" {
			directToAggregator[model.DirectID] = model.AggregatorID
		}
	}

	priceCache := pricing.NewCache(directToAggregator, logger)

	prefetchCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := priceCache.Prefetch(prefetchCtx); err != nil {
		logger.Warn("pricing catalog prefetch failed, continuing without prices", "error", err)
	}

	orch := debate.New(r, store, priceCache, logger)

	return &engine{Router: r, Store: store, Orchestrator: orch}, nil
}
