// Package statusapi serves the live dashboard over HTTP: health, totals,
// the filtered list and Prometheus metrics. It is read-only.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"financas/internal/core"
	"financas/internal/dashboard"
	"financas/internal/log"
	"financas/internal/store"
)

// Views is the dashboard as seen by the server.
type Views interface {
	Current() dashboard.View
	ViewFor(c core.Criteria) dashboard.View
}

type Server struct {
	http.Server
	views    Views
	gatherer prometheus.Gatherer
	loc      *time.Location
	logger   *log.Logger
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l.WithComponent(log.ComponentStatus) }
}

// WithGatherer exposes g on /metrics. Without it /metrics is not mounted.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLocation sets the zone date query parameters are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) { s.loc = loc }
}

func NewServer(addr string, views Views, opts ...Option) *Server {
	s := &Server{
		views:  views,
		loc:    time.Local,
		logger: log.Default().WithComponent(log.ComponentStatus),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Routes returns the chi router with all routes mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(securityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", s.handleReady)
	r.Get("/summary", s.handleSummary)
	r.Get("/transactions", s.handleTransactions)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Status API listening", log.FieldAddr, s.Addr)
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("Shutting down status API", log.FieldOperation, log.OpShutdown)
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

type stateResponse struct {
	Owner      string `json:"owner,omitempty"`
	Status     string `json:"status"`
	Generation uint64 `json:"generation"`
	Version    uint64 `json:"version"`
	Error      string `json:"error,omitempty"`
}

func newStateResponse(st store.State) stateResponse {
	resp := stateResponse{
		Owner:      st.OwnerID,
		Status:     st.Status.String(),
		Generation: st.Generation,
		Version:    st.Version,
	}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	return resp
}

// handleReady answers 200 only while a session's list is current.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.views.Current().State
	code := http.StatusOK
	if st.Status != store.StatusReady {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, newStateResponse(st))
}

type summaryResponse struct {
	stateResponse
	Summary            core.Summary          `json:"summary"`
	FilteredSummary    core.Summary          `json:"filteredSummary"`
	ExpensesByCategory []core.CategoryAmount `json:"expensesByCategory"`
	IncomeByCategory   []core.CategoryAmount `json:"incomeByCategory"`
	Count              int                   `json:"count"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	v, ok := s.viewFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		stateResponse:      newStateResponse(v.State),
		Summary:            v.Summary,
		FilteredSummary:    v.FilteredSummary,
		ExpensesByCategory: v.ExpensesByCategory,
		IncomeByCategory:   v.IncomeByCategory,
		Count:              len(v.Filtered),
	})
}

type transactionsResponse struct {
	stateResponse
	Transactions []core.Transaction `json:"transactions"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	v, ok := s.viewFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, transactionsResponse{
		stateResponse: newStateResponse(v.State),
		Transactions:  v.Filtered,
	})
}

// viewFor answers with the board's active view when the request carries no
// criteria, and with an ad hoc view otherwise.
func (s *Server) viewFor(w http.ResponseWriter, r *http.Request) (dashboard.View, bool) {
	params := criteriaParams(r)
	if params == (core.CriteriaParams{}) {
		return s.views.Current(), true
	}
	c, err := core.ParseCriteria(params, s.loc)
	if err != nil {
		log.FromContext(r.Context()).Warn("Invalid criteria", log.FieldError, err.Error())
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return dashboard.View{}, false
	}
	return s.views.ViewFor(c), true
}

func criteriaParams(r *http.Request) core.CriteriaParams {
	q := r.URL.Query()
	return core.CriteriaParams{
		Kind:     q.Get("kind"),
		Category: q.Get("category"),
		Search:   q.Get("q"),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Month:    q.Get("month"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// securityHeaders sets the headers a JSON-only API needs.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
