package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/mihaisavezi/mutual-dissent/internal/config"
	"github.com/mihaisavezi/mutual-dissent/internal/debate"
	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

// DebatesHandler exposes the debate engine over HTTP: fresh debates,
// replays, and transcript listing/retrieval.
type DebatesHandler struct {
	orchestrator *debate.Orchestrator
	store        *transcript.Store
	config       *config.Manager
	logger       *slog.Logger
}

// NewDebatesHandler builds a handler backed by orch and store.
func NewDebatesHandler(orch *debate.Orchestrator, store *transcript.Store, cfg *config.Manager, logger *slog.Logger) *DebatesHandler {
	return &DebatesHandler{orchestrator: orch, store: store, config: cfg, logger: logger}
}

type createDebateRequest struct {
	Query       string   `json:"query"`
	Panel       []string `json:"panel,omitempty"`
	Synthesizer string   `json:"synthesizer,omitempty"`
	Rounds      *int     `json:"rounds,omitempty"`
	GroundTruth string   `json:"ground_truth,omitempty"`
}

type replayDebateRequest struct {
	Synthesizer      string `json:"synthesizer,omitempty"`
	AdditionalRounds int    `json:"additional_rounds"`
	GroundTruth      string `json:"ground_truth,omitempty"`
}

// CreateDebate handles POST /debates: runs a fresh debate synchronously
// and returns the saved transcript.
func (h *DebatesHandler) CreateDebate(w http.ResponseWriter, r *http.Request) {
	var req createDebateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	cfg := h.config.Get()

	panel := req.Panel
	if len(panel) == 0 {
		panel = cfg.DefaultPanel
	}

	synthesizer := req.Synthesizer
	if synthesizer == "" {
		synthesizer = cfg.DefaultSynthesizer
	}

	rounds := cfg.DefaultRounds
	if req.Rounds != nil {
		rounds = *req.Rounds
	}

	tr, err := h.orchestrator.Run(r.Context(), debate.RunOptions{
		Query:       req.Query,
		Panel:       panel,
		Synthesizer: synthesizer,
		Rounds:      rounds,
		GroundTruth: req.GroundTruth,
	})
	if err != nil {
		h.logger.Error("debate run failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	if _, err := h.store.Save(tr); err != nil {
		h.logger.Error("failed to save transcript", "error", err)
		writeError(w, http.StatusInternalServerError, "debate completed but could not be saved")

		return
	}

	writeJSON(w, http.StatusCreated, tr)
}

// ReplayDebate handles POST /debates/{id}/replay.
func (h *DebatesHandler) ReplayDebate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "transcript id is required")
		return
	}

	source, err := h.loadOne(w, id)
	if err != nil || source == nil {
		return
	}

	var req replayDebateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
	}

	if req.AdditionalRounds <= 0 {
		req.AdditionalRounds = 1
	}

	tr, err := h.orchestrator.Replay(r.Context(), debate.ReplayOptions{
		Source:           source,
		Synthesizer:      req.Synthesizer,
		AdditionalRounds: req.AdditionalRounds,
		GroundTruth:      req.GroundTruth,
	})
	if err != nil {
		h.logger.Error("debate replay failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	if _, err := h.store.Save(tr); err != nil {
		h.logger.Error("failed to save replayed transcript", "error", err)
		writeError(w, http.StatusInternalServerError, "replay completed but could not be saved")

		return
	}

	writeJSON(w, http.StatusCreated, tr)
}

// ListTranscripts handles GET /transcripts. A response over roughly 8KB
// is brotli-compressed when the client advertises "br" support, matching
// the teacher's use of brotli for large upstream payloads.
func (h *DebatesHandler) ListTranscripts(w http.ResponseWriter, r *http.Request) {
	limit := 50

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	summaries, err := h.store.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	data, err := json.Marshal(summaries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if len(data) > 8192 && strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
		w.Header().Set("Content-Encoding", "br")
		w.WriteHeader(http.StatusOK)

		bw := brotli.NewWriter(w)
		defer bw.Close()

		if _, err := bw.Write(data); err != nil {
			h.logger.Error("brotli write failed", "error", err)
		}

		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetTranscript handles GET /transcripts/{id}.
func (h *DebatesHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "transcript id is required")
		return
	}

	tr, err := h.loadOne(w, id)
	if err != nil || tr == nil {
		return
	}

	writeJSON(w, http.StatusOK, tr)
}

func (h *DebatesHandler) loadOne(w http.ResponseWriter, id string) (*transcript.Transcript, error) {
	tr, err := h.store.Load(id)
	if err != nil {
		var ambiguous *transcript.AmbiguousError
		if errors.As(err, &ambiguous) {
			writeError(w, http.StatusConflict, err.Error())
			return nil, err
		}

		if errors.Is(err, transcript.ErrPrefixTooShort) {
			writeError(w, http.StatusBadRequest, err.Error())
			return nil, err
		}

		writeError(w, http.StatusInternalServerError, err.Error())

		return nil, err
	}

	if tr == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no transcript found matching %q", id))
		return nil, nil
	}

	return tr, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
