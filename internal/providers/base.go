// Package providers implements outbound HTTP clients for each backend
// vendor a debate panelist can be routed to.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

// DefaultTimeout bounds every outbound vendor call.
const DefaultTimeout = 120 * time.Second

var (
	// ErrNotOpen is reported in a response's Error when Complete is called
	// on a provider that needs an API key and has none. Complete does not
	// check whether Open was called.
	ErrNotOpen = errors.New("providers: client not open")
	// ErrTransport wraps network-level failures (timeouts, DNS, connection
	// refused) so callers can distinguish them from vendor-reported errors.
	ErrTransport = errors.New("providers: transport error")
	// ErrMalformedResponse is returned when a vendor's response cannot be
	// parsed into the expected shape.
	ErrMalformedResponse = errors.New("providers: malformed response")
)

// Message is one turn in a chat-style request.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is everything a Provider needs to answer one panelist
// turn.
type CompletionRequest struct {
	ModelID     string
	ModelAlias  string
	RoundNumber int
	Messages    []Message
	MaxTokens   int
}

// Provider is an outbound client for one vendor. A Provider must be
// Open'd before Complete is called, and Close'd when the caller is done
// with it, matching lazy-open/eager-close lifecycle of spec.md's vendor
// clients (a client with no configured credential is simply never
// opened).
type Provider interface {
	// Open prepares the client (e.g. validates it has credentials). It is
	// always called before the first Complete.
	Open(ctx context.Context) error
	// Close releases any resources held by the client.
	Close() error
	// Complete answers a single request. Transport failures, non-2xx
	// statuses, unparseable bodies, and vendor-reported failures are all
	// captured into the returned ModelResponse's Error field so the
	// orchestrator never aborts a round over one bad panelist.
	Complete(ctx context.Context, req CompletionRequest) (transcript.ModelResponse, error)
}

// httpClient is shared by every vendor's thin HTTP wrapper.
func httpClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// postJSON POSTs body as JSON to url with the given headers and decodes a
// 2xx response into out. Non-2xx responses are returned as *HTTPError so
// callers can extract a vendor error message.
func postJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response body: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}

// HTTPError carries a vendor's non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("providers: vendor returned status %d: %s", e.StatusCode, truncate(e.Body, 300))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}

// errorResponse builds the ModelResponse an orchestrator-visible failure
// (transport error, malformed payload, non-2xx status) is reported as.
// This never returns a Go error: the whole point is that one panelist's
// failure doesn't abort the round.
func errorResponse(req CompletionRequest, err error) transcript.ModelResponse {
	return transcript.ModelResponse{
		ModelAlias:  req.ModelAlias,
		ModelID:     req.ModelID,
		RoundNumber: req.RoundNumber,
		Error:       err.Error(),
		CreatedAt:   time.Now().UTC(),
	}
}

// estimateTokens approximates a prompt's token count with tiktoken-go when
// a vendor's response omits a usage block. cl100k_base is a reasonable
// stand-in encoding across vendors for this purpose: it's an estimate, not
// a billed count.
func estimateTokens(text string) *int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil
	}

	n := len(enc.Encode(text, nil, nil))

	return &n
}

func ptr(n int) *int {
	return &n
}
