package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/EasterCompany/dex-leveling-service/constants"
	"github.com/EasterCompany/dex-leveling-service/health"
	dexlog "github.com/EasterCompany/dex-leveling-service/log"
	"github.com/EasterCompany/dex-leveling-service/system"
	"github.com/EasterCompany/dex-leveling-service/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Gauges are live counts shown on /status.
type Gauges interface {
	GuildCount() int
}

// StatusServer provides HTTP status endpoint for this service
type StatusServer struct {
	startTime time.Time
	addr      string
	checker   *health.Checker
	gauges    Gauges
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	sample    func() (system.Snapshot, error)
}

// NewStatusServer creates a new status server
func NewStatusServer(addr string, checker *health.Checker, gauges Gauges, gatherer prometheus.Gatherer, logger *slog.Logger) *StatusServer {
	return &StatusServer{
		startTime: time.Now(),
		addr:      addr,
		checker:   checker,
		gauges:    gauges,
		gatherer:  gatherer,
		logger:    dexlog.Named(logger, "status"),
		sample:    system.Sample,
	}
}

// Handler returns the routed endpoints.
func (ss *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", ss.handleHealth)
	mux.HandleFunc("GET /status", ss.handleStatus)
	mux.Handle("GET /metrics", promhttp.HandlerFor(ss.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Run serves until ctx is done, then shuts down gracefully.
func (ss *StatusServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ss.addr)
	if err != nil {
		return err
	}
	return ss.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (ss *StatusServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           ss.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		ss.logger.Info("status server listening", "addr", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealth returns simple health check (for load balancers)
func (ss *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := ss.checker.Check(r.Context())
	code := http.StatusOK
	if !report.Healthy() {
		code = http.StatusServiceUnavailable
	}
	ss.writeJSON(w, code, report)
}

// handleStatus returns detailed service status
func (ss *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, err := ss.sample()
	if err != nil {
		ss.logger.Debug("host sample incomplete", dexlog.Err(err))
	}
	report := ss.checker.Check(r.Context())

	guilds := 0
	if ss.gauges != nil {
		guilds = ss.gauges.GuildCount()
	}
	ss.writeJSON(w, http.StatusOK, map[string]any{
		"service":   constants.ServiceName,
		"status":    report.Status,
		"store":     report.Store,
		"version":   utils.GetVersion(),
		"uptime":    time.Since(ss.startTime).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"guilds":    guilds,
		"system":    snapshot,
	})
}

func (ss *StatusServer) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		ss.logger.Warn("failed to encode response", dexlog.Err(err))
	}
}
