// Package server runs the debate engine's HTTP API: a thin net/http
// layer over the orchestrator and transcript store, guarded by the
// shared middleware chain.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mihaisavezi/mutual-dissent/internal/config"
	"github.com/mihaisavezi/mutual-dissent/internal/debate"
	"github.com/mihaisavezi/mutual-dissent/internal/handlers"
	"github.com/mihaisavezi/mutual-dissent/internal/middleware"
	"github.com/mihaisavezi/mutual-dissent/internal/transcript"
)

// Server is the debate engine's HTTP daemon.
type Server struct {
	config *config.Manager
	debate *handlers.DebatesHandler
	logger *slog.Logger
	server *http.Server
}

// New builds a Server around an already-wired orchestrator and
// transcript store; the caller is responsible for registering provider
// clients on the router before starting the server.
func New(configManager *config.Manager, orch *debate.Orchestrator, store *transcript.Store, logger *slog.Logger) *Server {
	return &Server{
		config: configManager,
		debate: handlers.NewDebatesHandler(orch, store, configManager, logger),
		logger: logger,
	}
}

// Start runs the HTTP server in the foreground until it receives
// SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	cfg := s.config.Get()
	if cfg == nil {
		return errors.New("configuration not loaded")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	mux := s.setupRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	s.logger.Info("starting server", "address", addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)

			if strings.Contains(err.Error(), "address already in use") {
				s.handleAddressInUse(addr)
				os.Exit(1)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	s.logger.Info("server is shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("server exited")

	return nil
}

// Stop shuts the server down from another goroutine. It does nothing when
// Start has not been called.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(s.logger)
	middlewareSet := middleware.NewMiddlewareSet(s.config, s.logger)

	mux.Handle("/health", middlewareSet.HealthChain().Handler(healthHandler))

	authenticated := middlewareSet.DefaultChain()

	mux.Handle("POST /debates", authenticated.Handler(http.HandlerFunc(s.debate.CreateDebate)))
	mux.Handle("POST /debates/{id}/replay", authenticated.Handler(http.HandlerFunc(s.debate.ReplayDebate)))
	mux.Handle("GET /transcripts", authenticated.Handler(http.HandlerFunc(s.debate.ListTranscripts)))
	mux.Handle("GET /transcripts/{id}", authenticated.Handler(http.HandlerFunc(s.debate.GetTranscript)))

	return mux
}

// handleAddressInUse reports which process is holding addr, best-effort,
// so an operator doesn't have to guess why the daemon failed to bind.
func (s *Server) handleAddressInUse(addr string) {
	s.logger.Error("address already in use", "address", addr)

	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		s.logger.Error("failed to parse address", "address", addr, "error", err)
		return
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		s.logger.Error("invalid port number", "port", portStr, "error", err)
		return
	}

	pid := findProcessUsingPort(port)
	if pid > 0 {
		s.logger.Error("port is being used by another process", "port", port, "pid", pid, "process", processInfo(pid))
	} else {
		s.logger.Error("could not determine which process is using the port", "port", port)
	}
}

func findProcessUsingPort(port int) int {
	switch runtime.GOOS {
	case "linux", "darwin":
		if pid := tryLsof(port); pid > 0 {
			return pid
		}

		return tryNetstat(port)
	default:
		return 0
	}
}

func tryLsof(port int) int {
	if port < 1 || port > 65535 {
		return 0
	}

	cmd := exec.Command("lsof", "-ti", fmt.Sprintf(":%d", port))

	output, err := cmd.Output()
	if err != nil {
		return 0
	}

	pidStr := strings.TrimSpace(string(output))
	if pidStr == "" {
		return 0
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0
	}

	return pid
}

func tryNetstat(port int) int {
	cmd := exec.Command("netstat", "-tlnp")

	output, err := cmd.Output()
	if err != nil {
		return 0
	}

	portPattern := fmt.Sprintf(":%d ", port)

	for _, line := range strings.Split(string(output), "\n") {
		if !strings.Contains(line, portPattern) || !strings.Contains(line, "LISTEN") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 7 {
			continue
		}

		pidProgram := strings.Split(parts[6], "/")[0]
		if pidProgram == "-" {
			continue
		}

		if pid, err := strconv.Atoi(pidProgram); err == nil {
			return pid
		}
	}

	return 0
}

func processInfo(pid int) string {
	if pid < 1 || pid > 4194304 {
		return fmt.Sprintf("PID %d (invalid)", pid)
	}

	cmd := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "comm=")

	output, err := cmd.Output()
	if err != nil {
		return fmt.Sprintf("PID %d", pid)
	}

	name := strings.TrimSpace(string(output))
	if name == "" {
		return fmt.Sprintf("PID %d", pid)
	}

	return fmt.Sprintf("%s (PID: %d)", name, pid)
}
