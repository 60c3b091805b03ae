package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/radiusdt/prediction-monitor/internal/config"
	"github.com/radiusdt/prediction-monitor/internal/database"
	"github.com/radiusdt/prediction-monitor/internal/export"
	"github.com/radiusdt/prediction-monitor/internal/guidelines"
	"github.com/radiusdt/prediction-monitor/internal/metrics"
	"github.com/radiusdt/prediction-monitor/internal/mockdata"
	"github.com/radiusdt/prediction-monitor/internal/models"
	"github.com/radiusdt/prediction-monitor/internal/prediction"
	"github.com/radiusdt/prediction-monitor/internal/reporting"
	"github.com/radiusdt/prediction-monitor/internal/storage"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	DB         *database.PostgresDB
	Redis      *database.RedisDB
	ClickHouse *database.ClickHouseDB
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics

	// Reporting overrides the service built from the connections above.
	Reporting *reporting.Service
}

// Server wraps HTTP handlers and the reporting service.
type Server struct {
	reporting *reporting.Service
	deps      *Dependencies
	logger    *zap.Logger
	config    *config.Config
	metrics   *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) (http.Handler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	svc := deps.Reporting
	if svc == nil {
		var err error
		svc, err = NewReportingService(deps)
		if err != nil {
			return nil, err
		}
	}

	s := &Server{
		reporting: svc,
		deps:      deps,
		logger:    logger,
		config:    deps.Config,
		metrics:   deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled && deps.Metrics != nil {
		mux.Handle(deps.Config.Metrics.Path, deps.Metrics.Handler())
	}

	// Predictions
	mux.HandleFunc("/predictions/status", s.handleStatus)
	mux.HandleFunc("/predictions/summary/channels", s.handleChannelSummary)
	mux.HandleFunc("/predictions/summary/overall", s.handleOverallSummary)
	mux.HandleFunc("/predictions/report", s.handleReport)
	mux.HandleFunc("/predictions/trend", s.handleTrend)

	// Custom channel mappings
	mux.HandleFunc("/mappings", s.handleMappings)
	mux.HandleFunc("/mappings/", s.handleMappingByName)

	return mux, nil
}

// NewReportingService wires the snapshot source and the mapping repository
// selected by the configuration and the available connections. Without
// Postgres the mappings live in memory; with Redis they are cached.
func NewReportingService(deps *Dependencies) (*reporting.Service, error) {
	cfg := deps.Config

	var source storage.SnapshotSource
	switch cfg.Report.Source {
	case config.SourceClickHouse:
		if deps.ClickHouse == nil {
			return nil, fmt.Errorf("snapshot source %q requires a ClickHouse connection", cfg.Report.Source)
		}
		chSource, err := storage.NewClickHouseSnapshotSource(deps.ClickHouse.Conn, cfg.Report.SnapshotTable)
		if err != nil {
			return nil, err
		}
		source = chSource
	default:
		source = storage.NewInMemorySnapshotSource(config.SourceMock, mockdata.Snapshots(time.Now(), cfg.Report.MockDays))
	}

	var mappings storage.MappingRepo
	if deps.DB != nil {
		mappings = storage.NewPostgresMappingRepo(deps.DB.Pool)
	} else {
		mappings = storage.NewInMemoryMappingRepo()
	}
	if deps.Redis != nil {
		mappings = storage.NewCachedMappingRepo(mappings, deps.Redis.Client, cfg.Report.MappingCacheTTL, deps.Logger, deps.Metrics)
	}

	return reporting.NewService(source, mappings, cfg.Report, deps.Logger, deps.Metrics), nil
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	check := func(name string, err error) {
		if err != nil {
			checks[name] = err.Error()
			healthy = false
			return
		}
		checks[name] = "ok"
	}
	if s.deps.DB != nil {
		check("postgres", s.deps.DB.Health(ctx))
	}
	if s.deps.Redis != nil {
		check("redis", s.deps.Redis.Health(ctx))
	}
	if s.deps.ClickHouse != nil {
		check("clickhouse", s.deps.ClickHouse.Health(ctx))
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "checks": checks})
}

// ---- Predictions ----

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st, err := s.reporting.Status(r.Context())
	if err != nil {
		s.serviceError(w, "failed to load predictions", err)
		return
	}
	s.jsonResponse(w, st)
}

func (s *Server) handleChannelSummary(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parseSummaryRequest(w, r)
	if !ok {
		return
	}

	rows, err := s.reporting.ChannelSummary(r.Context(), req)
	if err != nil {
		s.serviceError(w, "failed to summarize by channel", err)
		return
	}
	s.jsonResponse(w, rows)
}

func (s *Server) handleOverallSummary(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parseSummaryRequest(w, r)
	if !ok {
		return
	}

	rows, err := s.reporting.OverallSummary(r.Context(), req)
	if err != nil {
		s.serviceError(w, "failed to summarize predictions", err)
		return
	}
	s.jsonResponse(w, rows)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parseSummaryRequest(w, r)
	if !ok {
		return
	}

	report, err := s.reporting.Report(r.Context(), req)
	if err != nil {
		s.serviceError(w, "failed to build report", err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		s.jsonResponse(w, report)
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="prediction-report-%s.xlsx"`, report.GeneratedAt.Format(dateLayout)))
		if err := export.WriteWorkbook(w, report); err != nil {
			s.logger.Error("failed to write workbook", zap.String("run_id", report.RunID), zap.Error(err))
		}
	default:
		s.errorResponse(w, "unknown format: "+format, http.StatusBadRequest)
	}
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	req := reporting.TrendRequest{
		Period:     q.Get("period"),
		Metric:     q.Get("metric"),
		Prediction: q.Get("prediction"),
		Channel:    q.Get("channel"),
	}
	if req.Period == "" {
		req.Period = s.config.Report.DefaultPeriod
	}

	points, err := s.reporting.Trend(r.Context(), req)
	if err != nil {
		s.serviceError(w, "failed to compute trend", err)
		return
	}
	s.jsonResponse(w, points)
}

// summaryBody is the POST form of the summary parameters.
type summaryBody struct {
	StartDate string                  `json:"start_date"`
	EndDate   string                  `json:"end_date"`
	Window    string                  `json:"window"`
	Period    string                  `json:"period"`
	Debug     bool                    `json:"debug"`
	Mappings  []models.ChannelMapping `json:"mappings"`
}

// parseSummaryRequest reads summary parameters from the query string (GET)
// or a JSON body (POST). It writes the error response itself.
func (s *Server) parseSummaryRequest(w http.ResponseWriter, r *http.Request) (reporting.Request, bool) {
	var body summaryBody

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		body.StartDate = q.Get("start_date")
		body.EndDate = q.Get("end_date")
		body.Window = q.Get("window")
		body.Period = q.Get("period")
		if v := q.Get("debug"); v != "" {
			debug, err := strconv.ParseBool(v)
			if err != nil {
				s.errorResponse(w, "invalid debug flag: "+v, http.StatusBadRequest)
				return reporting.Request{}, false
			}
			body.Debug = debug
		}
		for _, raw := range q["mapping"] {
			m, err := guidelines.ParseMapping(raw)
			if err != nil {
				s.errorResponse(w, err.Error(), http.StatusBadRequest)
				return reporting.Request{}, false
			}
			body.Mappings = append(body.Mappings, m)
		}

	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return reporting.Request{}, false
		}

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return reporting.Request{}, false
	}

	req, err := body.toRequest()
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return reporting.Request{}, false
	}
	return req, true
}

func (b summaryBody) toRequest() (reporting.Request, error) {
	req := reporting.Request{
		Period:   b.Period,
		Debug:    b.Debug,
		Mappings: b.Mappings,
	}
	for i, m := range req.Mappings {
		if strings.TrimSpace(m.Prediction) == "" {
			return req, fmt.Errorf("mapping %d: prediction name is required", i)
		}
	}

	var err error
	if req.StartDate, err = parseDate("start_date", b.StartDate); err != nil {
		return req, err
	}
	if req.EndDate, err = parseDate("end_date", b.EndDate); err != nil {
		return req, err
	}
	if b.Window != "" {
		d, err := prediction.ParseWindow(b.Window)
		if err != nil {
			return req, err
		}
		req.Window = &d
	}
	return req, nil
}

func parseDate(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: want YYYY-MM-DD", name, v)
	}
	return &t, nil
}

// ---- Mappings ----

func (s *Server) handleMappings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.reporting.Mappings(r.Context())
		if err != nil {
			s.serviceError(w, "failed to list mappings", err)
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var m models.ChannelMapping
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.reporting.SaveMapping(r.Context(), m); err != nil {
			s.serviceError(w, "failed to save mapping", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(m)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleMappingByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/mappings/")
	if name == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodDelete:
		if err := s.reporting.DeleteMapping(r.Context(), name); err != nil {
			s.serviceError(w, "failed to delete mapping", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ---- Helper Methods ----

// serviceError maps service errors to status codes. Unexpected errors are
// logged and reported with the generic message.
func (s *Server) serviceError(w http.ResponseWriter, message string, err error) {
	switch {
	case reporting.IsRequestError(err), errors.Is(err, storage.ErrInvalidMapping):
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, storage.ErrMappingNotFound):
		s.errorResponse(w, err.Error(), http.StatusNotFound)
	default:
		s.logger.Error(message, zap.Error(err))
		s.errorResponse(w, message, http.StatusInternalServerError)
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
