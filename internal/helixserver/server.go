package helixserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/devmemory/memento/internal/storage"
)

// Config configures the wire-protocol listener.
type Config struct {
	Host  string
	Port  int
	Token string // Bearer token required of every caller
}

// Start builds the wire-protocol HTTP server over backend, begins
// listening, and returns the bound address (useful when cfg.Port is 0).
// The server shuts down gracefully when ctx is canceled.
func Start(ctx context.Context, cfg Config, backend storage.Backend) (string, error) {
	h := New(backend)
	limiter := newRateLimiter(50.0, 100)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /memories", h.PostMemory)
	apiMux.HandleFunc("POST /memories/list", h.PostMemoryList)
	apiMux.HandleFunc("POST /memories/decay", h.PostMemoryDecay)
	apiMux.HandleFunc("GET /memories/{id}", h.GetMemory)
	apiMux.HandleFunc("POST /memories/{id}", h.PostMemoryUpdate)
	apiMux.HandleFunc("DELETE /memories/{id}", h.DeleteMemory)
	apiMux.HandleFunc("POST /memories/{id}/access", h.PostMemoryAccess)
	apiMux.HandleFunc("GET /memories/{id}/relations", h.GetMemoryRelations)
	apiMux.HandleFunc("GET /memories/{id}/relations/count", h.GetMemoryRelationsCount)
	apiMux.HandleFunc("POST /memories/{id}/embedding", h.PostMemoryEmbedding)
	apiMux.HandleFunc("GET /memories/{id}/embedding", h.GetMemoryEmbedding)
	apiMux.HandleFunc("DELETE /memories/{id}/embedding", h.DeleteMemoryEmbedding)
	apiMux.HandleFunc("POST /search/text", h.PostSearchText)
	apiMux.HandleFunc("POST /search/vector", h.PostSearchVector)
	apiMux.HandleFunc("POST /relations", h.PostRelation)
	apiMux.HandleFunc("DELETE /relations/{id}", h.DeleteRelation)
	apiMux.HandleFunc("GET /graph/traverse", h.GetGraphTraverse)
	apiMux.HandleFunc("GET /graph/path", h.GetGraphPath)
	apiMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	handler := securityHeaders(rateLimitMiddleware(requireAuth(apiMux, cfg.Token), limiter))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("helixserver: listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			fmt.Printf("helixserver: serve error: %v\n", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	return listener.Addr().String(), nil
}
