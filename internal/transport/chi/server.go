package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/candex/internal/domain"
	"github.com/kailas-cloud/candex/internal/domain/search/facet"
	"github.com/kailas-cloud/candex/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/candex/internal/logger"
	healthuc "github.com/kailas-cloud/candex/internal/usecase/health"
	"github.com/kailas-cloud/candex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/candex/internal/usecase/search"
)

// Searcher runs a search and reports its plan details.
type Searcher interface {
	Run(ctx context.Context, query string, sel facet.Selection) (searchuc.Outcome, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// SyncController starts background sync runs and reports their status.
type SyncController interface {
	Start(ctx context.Context, opts ingest.Options) error
	Status() ingest.Status
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the search, health, metrics and admin endpoints.
type Server struct {
	search        Searcher
	health        HealthChecker
	sync          SyncController
	searchTimeout time.Duration
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. sync may be nil, which disables the admin routes.
func NewServer(search Searcher, health HealthChecker, sync SyncController, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search: search,
		health: health,
		sync:   sync,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidFacet, http.StatusBadRequest, ErrorCodeInvalidFacet),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrSyncInProgress, http.StatusConflict, ErrorCodeSyncInProgress),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
	}
	return s
}

// WithSearchTimeout bounds each search request.
func (s *Server) WithSearchTimeout(d time.Duration) *Server {
	s.searchTimeout = d
	return s
}

// Search handles GET /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if len(query) > request.MaxQueryLength {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
			fmt.Sprintf("query too long (max %d chars)", request.MaxQueryLength))
		return
	}

	sel, err := facetSelection(q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx := r.Context()
	if s.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.searchTimeout)
		defer cancel()
	}

	out, err := s.search.Run(ctx, query, sel)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if out.Query == "" {
		out.Query = strings.TrimSpace(query)
	}

	writeJSON(w, http.StatusOK, searchResponse(out))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// StartSync handles POST /admin/sync.
func (s *Server) StartSync(w http.ResponseWriter, r *http.Request) {
	opts, err := syncOptions(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	if err := s.sync.Start(r.Context(), opts); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	s.logger.Info("Sync started via admin API",
		zap.Int64("start_id", opts.StartID),
		zap.Bool("force_start", opts.ForceStart),
	)
	writeJSON(w, http.StatusAccepted, SyncStartResponse{Status: "started"})
}

// SyncStatus handles GET /admin/sync.
func (s *Server) SyncStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, syncStatusResponse(s.sync.Status()))
}

// facetSelection binds the facet query parameters. Blank values are ignored.
func facetSelection(q url.Values) (facet.Selection, error) {
	q = withoutBlank(q)
	values := make(map[facet.Name][]int64)
	for _, d := range facet.Definitions {
		if d.Multi {
			var vs *[]int64
			if err := runtime.BindQueryParameter("form", true, false, d.Param, q, &vs); err != nil {
				return facet.Selection{}, fmt.Errorf("%w: %s: %w", domain.ErrInvalidFacet, d.Param, err)
			}
			if vs != nil && len(*vs) > 0 {
				values[d.Name] = *vs
			}
			continue
		}

		var v *int64
		if err := runtime.BindQueryParameter("form", true, false, d.Param, q, &v); err != nil {
			return facet.Selection{}, fmt.Errorf("%w: %s: %w", domain.ErrInvalidFacet, d.Param, err)
		}
		if v != nil {
			values[d.Name] = []int64{*v}
		}
	}
	return facet.NewSelection(values)
}

// maxSyncPageSize bounds the page_size override of a sync run.
const maxSyncPageSize = 1000

func syncOptions(q url.Values) (ingest.Options, error) {
	q = withoutBlank(q)
	var (
		startID  *int64
		force    *bool
		pageSize *int
	)
	if err := runtime.BindQueryParameter("form", true, false, "start_id", q, &startID); err != nil {
		return ingest.Options{}, fmt.Errorf("invalid start_id: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "force_start", q, &force); err != nil {
		return ingest.Options{}, fmt.Errorf("invalid force_start: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "page_size", q, &pageSize); err != nil {
		return ingest.Options{}, fmt.Errorf("invalid page_size: %w", err)
	}

	var opts ingest.Options
	if startID != nil {
		if *startID < 0 {
			return ingest.Options{}, errors.New("start_id must be >= 0")
		}
		opts.StartID = *startID
	}
	if force != nil {
		opts.ForceStart = *force
	}
	if pageSize != nil {
		if *pageSize <= 0 || *pageSize > maxSyncPageSize {
			return ingest.Options{}, fmt.Errorf("page_size must be between 1 and %d", maxSyncPageSize)
		}
		opts.PageSize = *pageSize
	}
	return opts, nil
}

func withoutBlank(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, vs := range q {
		for _, v := range vs {
			if v = strings.TrimSpace(v); v != "" {
				out[k] = append(out[k], v)
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidFacet,
		domain.ErrNotFound,
		domain.ErrSyncInProgress,
		domain.ErrEmbeddingProviderError,
		domain.ErrUpsertFailed,
		domain.ErrCollectionBootstrap,
		domain.ErrCursorBoundExceeded,
		domain.ErrUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
