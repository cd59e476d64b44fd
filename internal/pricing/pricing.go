// Package pricing fetches and caches per-model token prices from the
// aggregator's public catalog, and computes call costs from them.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// DefaultCatalogURL is the aggregator's public model/pricing catalog.
const DefaultCatalogURL = "https://openrouter.ai/api/v1/models"

// ModelPricing is the per-token price for one model. ContextLength is nil
// when the catalog entry omitted it.
type ModelPricing struct {
	PromptPrice     float64
	CompletionPrice float64
	ContextLength   *int
}

// Cache is a one-shot, in-memory pricing catalog. Build one with NewCache
// and call Prefetch before the first GetPricing to populate it. Prefetch
// failures are logged and leave the cache empty rather than fatal — a
// debate should proceed even when the pricing catalog is unreachable, just
// without costs.
type Cache struct {
	mu                 sync.RWMutex
	cache              map[string]ModelPricing
	directToAggregator map[string]string // direct model id -> aggregator model id, one level only

	catalogURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCache builds an unpopulated cache. aliasMap maps a direct model ID
// (e.g. "claude-sonnet-4-5-20250929") to its aggregator equivalent (e.g.
// "anthropic/claude-sonnet-4.5"), used so a direct-mode response can still
// be priced from the aggregator's catalog.
func NewCache(aliasMap map[string]string, logger *slog.Logger) *Cache {
	direct := make(map[string]string, len(aliasMap))
	for k, v := range aliasMap {
		direct[k] = v
	}

	return &Cache{
		cache:              make(map[string]ModelPricing),
		directToAggregator: direct,
		catalogURL:         DefaultCatalogURL,
		httpClient:         &http.Client{Timeout: 30 * time.Second},
		logger:             logger,
	}
}

// Prefetch populates the cache from the catalog. It is idempotent and safe
// to call more than once; a later call simply replaces the cache.
func (c *Cache) Prefetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.catalogURL, nil)
	if err != nil {
		return fmt.Errorf("build pricing request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("pricing catalog fetch failed, continuing without prices", "error", err)
		c.mu.Lock()
		c.cache = map[string]ModelPricing{}
		c.mu.Unlock()

		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("pricing catalog returned non-200, continuing without prices", "status", resp.StatusCode)
		c.mu.Lock()
		c.cache = map[string]ModelPricing{}
		c.mu.Unlock()

		return nil
	}

	var payload catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Warn("pricing catalog decode failed, continuing without prices", "error", err)
		c.mu.Lock()
		c.cache = map[string]ModelPricing{}
		c.mu.Unlock()

		return nil
	}

	parsed := parseCatalog(payload)

	c.mu.Lock()
	c.cache = parsed
	c.mu.Unlock()

	return nil
}

type catalogResponse struct {
	Data []catalogEntry `json:"data"`
}

type catalogEntry struct {
	ID      string `json:"id"`
	Pricing struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
	} `json:"pricing"`
	ContextLength *int `json:"context_length"`
}

func parseCatalog(payload catalogResponse) map[string]ModelPricing {
	out := make(map[string]ModelPricing, len(payload.Data))

	for _, entry := range payload.Data {
		prompt, err := strconv.ParseFloat(entry.Pricing.Prompt, 64)
		if err != nil {
			continue
		}

		completion, err := strconv.ParseFloat(entry.Pricing.Completion, 64)
		if err != nil {
			continue
		}

		out[entry.ID] = ModelPricing{
			PromptPrice:     prompt,
			CompletionPrice: completion,
			ContextLength:   entry.ContextLength,
		}
	}

	return out
}

// GetPricing returns the price for modelID. It tries an exact match first,
// then — if modelID looks like a direct vendor model ID — its aggregator
// equivalent. It does not recurse past that one hop.
func (c *Cache) GetPricing(modelID string) (ModelPricing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.cache[modelID]; ok {
		return p, true
	}

	if aggID, ok := c.directToAggregator[modelID]; ok {
		if p, ok := c.cache[aggID]; ok {
			return p, true
		}
	}

	return ModelPricing{}, false
}

// GetContextLength returns the catalog's context window size for modelID,
// if known.
func (c *Cache) GetContextLength(modelID string) (int, bool) {
	p, ok := c.GetPricing(modelID)
	if !ok || p.ContextLength == nil {
		return 0, false
	}

	return *p.ContextLength, true
}

// ComputeCost returns the USD cost of a call, or nil when either the token
// split or the pricing is unknown. Absence is deliberate: a debate with an
// unpriceable model must not silently report a cost of zero.
func ComputeCost(inputTokens, outputTokens *int, pricing ModelPricing, hasPricing bool) *float64 {
	if !hasPricing || inputTokens == nil || outputTokens == nil {
		return nil
	}

	cost := float64(*inputTokens)*pricing.PromptPrice + float64(*outputTokens)*pricing.CompletionPrice

	return &cost
}
