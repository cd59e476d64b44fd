// Package router picks the right provider for a model alias and fans out
// concurrent panelist calls while preserving their requested order.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mihaisavezi/mutual-dissent/internal/providers"
	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
	"github.com/mihaisavezi/mutual-dissent/internal/vendor"
)

// ErrNoProvider is returned when an alias resolves to a vendor that has no
// registered client (no credential configured for it).
var ErrNoProvider = errors.New("router: no provider configured for vendor")

// maxConcurrency bounds how many panelist calls run at once, regardless of
// panel size.
const maxConcurrency = 8

// Router resolves aliases via a vendor.Registry and dispatches calls to
// the matching providers.Provider, opening each client lazily on first
// use.
type Router struct {
	aliases   *vendor.Registry
	mode      vendor.Mode
	overrides map[string]vendor.Mode
	logger    *slog.Logger

	mu      sync.Mutex
	clients map[vendor.Vendor]providers.Provider
	opened  map[vendor.Vendor]bool
}

// New builds a Router. Register providers with RegisterVendor before
// calling Complete.
func New(aliases *vendor.Registry, mode vendor.Mode, overrides map[string]vendor.Mode, logger *slog.Logger) *Router {
	return &Router{
		aliases:   aliases,
		mode:      mode,
		overrides: overrides,
		logger:    logger,
		clients:   make(map[vendor.Vendor]providers.Provider),
		opened:    make(map[vendor.Vendor]bool),
	}
}

// RegisterVendor wires a concrete client for v. Vendors with no configured
// credential should simply never be registered: an alias of such a vendor
// is then routed through the aggregator, and a call whose dispatch vendor
// has no client comes back as a failed response carrying ErrNoProvider
// instead of opening a client that can't authenticate.
func (r *Router) RegisterVendor(v vendor.Vendor, p providers.Provider) {
	r.clients[v] = p
}

func (r *Router) ensureOpen(ctx context.Context, v vendor.Vendor) (providers.Provider, error) {
	client, ok := r.clients[v]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, v)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opened[v] {
		return client, nil
	}

	if err := client.Open(ctx); err != nil {
		return nil, fmt.Errorf("open %s client: %w", v, err)
	}

	r.opened[v] = true

	return client, nil
}

// Close shuts down every client that was opened.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error

	for v, opened := range r.opened {
		if !opened {
			continue
		}

		if err := r.clients[v].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Request describes one panelist call to dispatch.
type Request struct {
	Alias       string
	Messages    []providers.Message
	RoundNumber int
	MaxTokens   int
}

// hasClient reports whether a client has been registered for v. Vendors
// with no configured credential are never registered (see RegisterVendor),
// so this doubles as "is a direct client available for v" at decision time.
func (r *Router) hasClient(v vendor.Vendor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.clients[v]

	return ok
}

// route resolves alias to a model and routing decision, reconciling the
// registry's static mode decision with which clients are actually
// registered: direct mode falls back to the aggregator with a warning when
// no direct client is available (whether because the alias has no
// DirectID at all or because no client was registered for the vendor), auto
// mode falls back silently. Aggregator mode is left untouched — a missing
// aggregator client surfaces as a NoProvider failure at dispatch, not here.
func (r *Router) route(alias string) (vendor.Model, vendor.RoutingDecision, error) {
	model, decision, err := r.aliases.Resolve(alias, r.mode, r.overrides)
	if err != nil {
		return vendor.Model{}, vendor.RoutingDecision{}, err
	}

	if decision.Mode == vendor.ModeDirect && decision.ViaAggregator {
		r.logger.Warn("direct mode requested but no direct route is available, falling back to aggregator", "alias", alias, "vendor", model.Vendor)
	}

	if !decision.ViaAggregator && !r.hasClient(model.Vendor) {
		if decision.Mode == vendor.ModeDirect {
			r.logger.Warn("direct mode requested but no direct client is open, falling back to aggregator", "alias", alias, "vendor", model.Vendor)
		}

		decision.ViaAggregator = true
	}

	return model, decision, nil
}

// Route resolves alias to a routing decision without dispatching any call.
func (r *Router) Route(alias string) (vendor.RoutingDecision, error) {
	_, decision, err := r.route(alias)
	return decision, err
}

// Complete resolves alias to a vendor and model ID and dispatches a single
// call. It never returns a Go error for a vendor-side or no-provider
// failure — those are captured in the returned ModelResponse, with the
// routing decision attached — but does for routing misconfiguration
// (unknown alias, no usable route for the requested mode).
func (r *Router) Complete(ctx context.Context, req Request) (transcript.ModelResponse, error) {
	model, decision, err := r.route(req.Alias)
	if err != nil {
		return transcript.ModelResponse{}, err
	}

	dispatchVendor := model.Vendor
	modelID := model.DirectID

	if decision.ViaAggregator {
		dispatchVendor = vendor.Aggregator
		modelID = model.AggregatorID
	}

	client, openErr := r.ensureOpen(ctx, dispatchVendor)
	if openErr != nil {
		return transcript.ModelResponse{
			ModelAlias:  req.Alias,
			ModelID:     modelID,
			RoundNumber: req.RoundNumber,
			Error:       openErr.Error(),
			Routing:     &decision,
			CreatedAt:   timeNowUTC(),
		}, nil
	}

	resp, err := client.Complete(ctx, providers.CompletionRequest{
		ModelID:     modelID,
		ModelAlias:  req.Alias,
		RoundNumber: req.RoundNumber,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return transcript.ModelResponse{}, err
	}

	resp.Routing = &decision

	return resp, nil
}

// CompleteParallel dispatches every request concurrently, bounded by
// maxConcurrency, and returns responses in the same order as reqs
// regardless of completion order. A panic inside one call is recovered
// and turned into a failed response for that slot rather than crashing
// the whole round.
func (r *Router) CompleteParallel(ctx context.Context, reqs []Request) []transcript.ModelResponse {
	results := make([]transcript.ModelResponse, len(reqs))

	sem := make(chan struct{}, maxConcurrency)

	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)

		go func(idx int, request Request) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("panic during panelist call", "alias", request.Alias, "panic", rec, "stack", string(debug.Stack()))
					results[idx] = transcript.ModelResponse{
						ModelAlias:  request.Alias,
						RoundNumber: request.RoundNumber,
						Error:       fmt.Sprintf("internal error: %v", rec),
						CreatedAt:   timeNowUTC(),
					}
				}
			}()

			resp, err := r.Complete(ctx, request)
			if err != nil {
				r.logger.Error("panelist call failed", "alias", request.Alias, "error", err)
				results[idx] = transcript.ModelResponse{
					ModelAlias:  request.Alias,
					RoundNumber: request.RoundNumber,
					Error:       err.Error(),
					CreatedAt:   timeNowUTC(),
				}

				return
			}

			results[idx] = resp
		}(i, req)
	}

	wg.Wait()

	return results
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
