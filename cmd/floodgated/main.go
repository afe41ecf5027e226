// Command floodgated runs the request priority subsystem behind an HTTP
// front end. Incoming requests are classified and admitted into the priority
// queues; dispatch workers drain them asynchronously, so admission answers
// 202 Accepted. Admin endpoints expose the mode state machine, statistics
// and health, and /metrics serves prometheus exposition.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ryswick/floodgate/logger"
	"github.com/ryswick/floodgate/mempool"
	"github.com/ryswick/floodgate/metrics"
	"github.com/ryswick/floodgate/priority"
	"github.com/ryswick/floodgate/queue"
	"github.com/ryswick/floodgate/types"
)

func main() {
	var (
		listenAddr        = flag.String("listen", ":8080", "HTTP listen address")
		logLevel          = flag.String("log-level", "info", "minimum log level (debug, info, warn, error)")
		reliableCapacity  = flag.Int("reliable-capacity", mempool.DefaultReliableCapacity, "reliable memory region size in bytes")
		expansionCapacity = flag.Int("expansion-capacity", mempool.DefaultExpansionCapacity, "expansion memory region size in bytes (0 disables)")
		rateLimit         = flag.Int("rate-limit", 0, "admissions allowed per second (0 disables rate limiting)")
		rateBurst         = flag.Int("rate-burst", 0, "rate limiter burst (defaults to the per-second limit)")
		sheddingThreshold = flag.Int("shedding-threshold", 0, "load percentage that triggers demotion (0 uses the default)")
		shutdownTimeout   = flag.Duration("shutdown-timeout", 10*time.Second, "grace period for draining on shutdown")
	)
	flag.Parse()

	log, err := logger.NewZapLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "floodgated: %v\n", err)
		os.Exit(1)
	}

	alloc, err := mempool.NewArenaAllocator(mempool.Config{
		ReliableCapacity:  *reliableCapacity,
		ExpansionCapacity: *expansionCapacity,
		Logger:            log,
	})
	if err != nil {
		log.Fatalw("failed to create allocator", "error", err)
	}

	registry := prometheus.NewRegistry()

	cfg := priority.DefaultConfig()
	cfg.Queue.Allocator = alloc
	cfg.Queue.Metrics = metrics.NewQueueMetrics(registry)
	cfg.Metrics = metrics.NewManagerMetrics(registry)
	cfg.Logger = log
	cfg.LoadSheddingThreshold = *sheddingThreshold
	if *rateLimit > 0 {
		burst := *rateBurst
		if burst <= 0 {
			burst = *rateLimit
		}
		cfg.RateLimiter = priority.NewTokenBucketRateLimiter(*rateLimit, burst, time.Second, log)
	}

	manager, err := priority.NewManager(cfg)
	if err != nil {
		log.Fatalw("failed to create priority manager", "error", err)
	}
	if err := manager.Start(); err != nil {
		log.Fatalw("failed to start priority manager", "error", err)
	}

	srv := &http.Server{
		Addr:         *listenAddr,
		Handler:      newRouter(manager, registry),
		ReadTimeout:  queue.DefaultRequestTimeout,
		WriteTimeout: queue.DefaultRequestTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infow("floodgated listening", "addr", *listenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Infow("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http shutdown incomplete", "error", err)
	}

	manager.LogStatusReport()
	flushed := manager.Flush(*shutdownTimeout)
	if flushed > 0 {
		log.Infow("flushed pending requests", "count", flushed)
	}
	if err := manager.Stop(); err != nil {
		log.Errorw("manager stop failed", "error", err)
	}
	log.Infow("floodgated stopped")
}

// httpHandle adapts an incoming HTTP request to the classification handle.
type httpHandle struct {
	uri    string
	method string
}

func (h *httpHandle) URI() string    { return h.uri }
func (h *httpHandle) Method() string { return h.method }

func newRouter(manager *priority.Manager, registry *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealth(manager)).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/stats", handleStats(manager)).Methods(http.MethodGet)
	admin.HandleFunc("/stats", handleResetStats(manager)).Methods(http.MethodDelete)
	admin.HandleFunc("/mode", handleMode(manager)).Methods(http.MethodGet)
	admin.HandleFunc("/mode/emergency", handleEnterEmergency(manager)).Methods(http.MethodPost)
	admin.HandleFunc("/mode/emergency", handleExitEmergency(manager)).Methods(http.MethodDelete)
	admin.HandleFunc("/mode/load-shedding", handleLoadShedding(manager)).Methods(http.MethodPost)

	// Everything else flows through classification and admission.
	r.PathPrefix("/").HandlerFunc(handleAdmit(manager))
	return r
}

func handleAdmit(manager *priority.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle := &httpHandle{uri: r.RequestURI, method: r.Method}
		if err := manager.QueueRequest(handle); err != nil {
			writeAdmissionError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// writeAdmissionError maps admission outcomes to HTTP statuses: policy
// rejections become 429/503 with the rejection reason, resource exhaustion
// becomes 507.
func writeAdmissionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, priority.ErrRateLimited):
		writeJSONError(w, http.StatusTooManyRequests, err)
	case errors.Is(err, priority.ErrEmergencyFiltered),
		errors.Is(err, priority.ErrLoadSheddingFiltered),
		errors.Is(err, priority.ErrQueueFull):
		writeJSONError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, priority.ErrNoMemory):
		writeJSONError(w, http.StatusInsufficientStorage, err)
	default:
		writeJSONError(w, http.StatusInternalServerError, err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"error": err.Error()}
	if reason := priority.RejectionReason(err); reason != "" {
		body["reason"] = reason
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func handleHealth(manager *priority.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !manager.HealthCheck() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleStats(manager *priority.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, manager.Statistics())
	}
}

func handleResetStats(manager *priority.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		manager.ResetStatistics()
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleMode(manager *priority.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"mode":         manager.Mode().String(),
			"system_load":  manager.SystemLoad(),
			"is_high_load": manager.IsHighLoad(),
		})
	}
}

func handleEnterEmergency(manager *priority.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var timeout time.Duration
		if raw := r.URL.Query().Get("timeout"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil || d < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid timeout"})
				return
			}
			timeout = d
		}
		if err := manager.EnterEmergencyMode(timeout); err != nil {
			writeJSONError(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"mode": types.ModeEmergency.String()})
	}
}

func handleExitEmergency(manager *priority.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := manager.ExitEmergencyMode(); err != nil {
			writeJSONError(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"mode": types.ModeNormal.String()})
	}
}

func handleLoadShedding(manager *priority.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enable := r.URL.Query().Get("enabled") == "true"
		if err := manager.SetLoadSheddingEnabled(enable); err != nil {
			writeJSONError(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"mode": manager.Mode().String()})
	}
}
