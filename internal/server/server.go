// Package server provides HTTP server initialization and lifecycle management
// for the eventfinder API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/commonground/eventfinder/internal/config"
	"github.com/commonground/eventfinder/internal/engine"
	"github.com/commonground/eventfinder/web/handlers"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start initializes and starts the HTTP server.
// Returns the actual address being listened on (useful for testing with port 0)
// and the ActivityHub for wiring feedback broadcasts.
// The health parameter is optional (may be nil) and is used to expose store
// availability in /api/stats.
func Start(ctx context.Context, cfg *config.Config, eng *engine.Engine, health handlers.StoreHealthReporter) (string, *handlers.ActivityHub) {
	// Listen before building the activity hub: its origin allowlist needs
	// the actual port, which differs from the configured one when that is 0.
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", addr, err)
	}
	actualAddr := listener.Addr().String()
	port := cfg.Server.Port
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	mux := http.NewServeMux()

	wsHub := handlers.NewActivityHub(cfg.Server.Host, port)
	go wsHub.Run()

	// Create rate limiter (10 req/sec, burst of 20)
	rateLimiter := handlers.NewRateLimiter(10.0, 20)

	// Create API handlers
	apiHandlers := handlers.NewAPIHandlers(eng, cfg)
	apiHandlers.SetHub(wsHub)
	if health != nil {
		apiHandlers.SetHealthReporter(health)
	}

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/recommendations", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			apiHandlers.GetRecommendations(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/feedback", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			apiHandlers.SubmitFeedback(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/feedback/history", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			apiHandlers.GetHistory(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			apiHandlers.GetEvent(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			apiHandlers.GetStats(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Health endpoint, no auth required, used by monitoring
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
	})

	// Wrap API routes with auth middleware
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// WebSocket endpoint (no auth required - origin validation handles security)
	mux.Handle("/ws/activity", wsHub)

	// Wrap entire server with rate limiting, then security headers
	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	// Create server with security timeouts
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, wsHub
}
