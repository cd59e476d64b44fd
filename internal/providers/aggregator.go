package providers

import (
	"context"

	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

const aggregatorEndpoint = "https://openrouter.ai/api/v1/chat/completions"

// AggregatorProvider calls the OpenRouter-compatible aggregator, which
// fronts every vendor behind one OpenAI-style chat-completions endpoint.
type AggregatorProvider struct {
	core *openAICompatible
}

// NewAggregatorProvider builds a client for the given API key. endpoint
// defaults to the public OpenRouter API when empty. siteURL and appName
// populate the attribution headers OpenRouter uses for its public
// leaderboard.
func NewAggregatorProvider(apiKey, endpoint, siteURL, appName string) *AggregatorProvider {
	if endpoint == "" {
		endpoint = aggregatorEndpoint
	}

	extra := map[string]string{}
	if siteURL != "" {
		extra["HTTP-Referer"] = siteURL
	}

	if appName != "" {
		extra["X-Title"] = appName
	}

	return &AggregatorProvider{core: &openAICompatible{vendorName: "aggregator", apiKey: apiKey, endpoint: endpoint, extraHeaders: extra}}
}

func (p *AggregatorProvider) Open(_ context.Context) error { return p.core.open() }
func (p *AggregatorProvider) Close() error                 { return nil }

func (p *AggregatorProvider) Complete(ctx context.Context, req CompletionRequest) (transcript.ModelResponse, error) {
	return p.core.complete(ctx, req)
}
