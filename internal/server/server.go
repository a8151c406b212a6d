package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/devmemory/memento/internal/config"
	"github.com/devmemory/memento/internal/engine"
)

// Start builds the HTTP+WebSocket server, begins listening, and returns the
// actual bound address (useful when cfg.Port is 0) along with the
// activity Hub so the caller can wire engine notifications into it. The
// server shuts down gracefully when ctx is canceled.
func Start(ctx context.Context, cfg config.ServerConfig, eng *engine.Engine) (string, *Hub, error) {
	hub := NewHub()
	go hub.Run()

	mh := newMemoryHandlers(eng)
	limiter := newRateLimiter(10.0, 20)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/memories", mh.PostCapture)
	apiMux.HandleFunc("GET /api/memories/{id}", mh.GetMemory)
	apiMux.HandleFunc("GET /api/memories/{id}/history", mh.GetHistory)
	apiMux.HandleFunc("GET /api/memories/{id}/assess", mh.GetAssess)
	apiMux.HandleFunc("GET /api/search", mh.GetSearch)
	apiMux.HandleFunc("POST /api/relations", mh.PostRelation)
	apiMux.HandleFunc("GET /api/graph/chain", mh.GetChain)
	apiMux.HandleFunc("POST /api/consolidate", mh.PostConsolidate)
	apiMux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", requireAuth(apiMux, cfg))
	mux.Handle("/ws/activity", hub)

	handler := securityHeaders(rateLimitMiddleware(mux, limiter))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("server: listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			fmt.Printf("server: serve error: %v\n", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		hub.Stop()
	}()

	return listener.Addr().String(), hub, nil
}
