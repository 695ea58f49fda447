// Package server exposes the goquad tools over HTTP.
//
// Endpoints:
//
//	POST /tool    execute a tool call
//	GET  /schema  tool schema for agent registration
//	GET  /health  liveness check
//	POST /explain explanation of a finished solve
//	GET  /metrics Prometheus metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/njchilds90/goquad"
	"github.com/njchilds90/goquad/internal/config"
)

type Server struct {
	cfg       config.Config
	explainer goquad.Explainer
	metrics   *metrics
	mux       *http.ServeMux
}

// New builds the server. explainer may be nil, which disables /explain.
func New(cfg config.Config, explainer goquad.Explainer, reg *prometheus.Registry) *Server {
	s := &Server{
		cfg:       cfg,
		explainer: explainer,
		metrics:   newMetrics(reg),
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("/tool", s.handleTool)
	s.mux.HandleFunc("/schema", s.handleSchema)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/explain", s.handleExplain)
	s.mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return s
}

func (s *Server) Handler() http.Handler { return recoverer(s.mux) }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		klog.InfoS("goquad server listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		klog.InfoS("goquad server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				klog.ErrorS(fmt.Errorf("%v", rec), "panic in handler", "path", r.URL.Path, "stack", string(debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.ErrorS(err, "encode response")
	}
}

// decode reads exactly one JSON value from the body into v.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("invalid JSON: trailing data")
	}
	return nil
}

// withDefaults fills the configured tolerance and budget into solve calls
// that omit them.
func (s *Server) withDefaults(req goquad.ToolRequest) goquad.ToolRequest {
	var tol float64
	var maxIter int
	switch req.Tool {
	case "integrate":
		tol, maxIter = s.cfg.Tolerance1D, s.cfg.MaxIterations1D
	case "integrate_double":
		tol, maxIter = s.cfg.Tolerance2D, s.cfg.MaxIterations2D
	default:
		return req
	}
	params := make(map[string]interface{}, len(req.Params)+2)
	for k, v := range req.Params {
		params[k] = v
	}
	if _, ok := params["tolerance"]; !ok {
		params["tolerance"] = tol
	}
	if _, ok := params["max_iterations"]; !ok {
		params["max_iterations"] = float64(maxIter)
	}
	req.Params = params
	return req
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req goquad.ToolRequest
	if err := s.decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	start := time.Now()
	resp := goquad.HandleToolCallContext(r.Context(), s.withDefaults(req))
	elapsed := time.Since(start)

	outcome := "ok"
	if resp.Error != "" {
		outcome = "error"
	}
	s.metrics.toolCalls.WithLabelValues(req.Tool, outcome).Inc()
	s.metrics.toolDuration.WithLabelValues(req.Tool).Observe(elapsed.Seconds())
	if res, ok := resp.Result.(goquad.SolverResult); ok && resp.Error == "" {
		kind := "1d"
		if req.Tool == "integrate_double" {
			kind = "2d"
		}
		s.metrics.observeSolve(kind, res)
	}
	klog.V(2).InfoS("tool call", "tool", req.Tool, "outcome", outcome, "elapsed", elapsed)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, goquad.ToolSpec())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.explainer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "explanations are not configured"})
		return
	}
	var req goquad.ExplainRequest
	if err := s.decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ExplainTimeout)
	defer cancel()
	writeJSON(w, http.StatusOK, map[string]string{"text": goquad.Explain(ctx, s.explainer, req)})
}
