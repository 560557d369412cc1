package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"income-predictor/internal/common"
	"income-predictor/internal/ml"
)

// maxBodyBytes bounds a /predict request body.
const maxBodyBytes = 1 << 20

// MetricsInterface is the slice of the metrics wrapper the server uses.
type MetricsInterface interface {
	PredictionsInc()
	FailuresInc(reason string)
	LatencyObserve(d time.Duration)
	ScoreObserve(p float64)
	RequestObserve(route string, code int, d time.Duration)
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server exposes the prediction service over HTTP.
type Server struct {
	svc      *Service
	metrics  MetricsInterface
	router   *mux.Router
	server   *http.Server
	upgrader websocket.Upgrader
	home     []byte
}

// NewServer wires routes, middleware and the http.Server. metrics and
// gatherer may be nil.
func NewServer(svc *Service, metrics MetricsInterface, gatherer prometheus.Gatherer, cfg ServerConfig) (*Server, error) {
	home, err := renderHome(svc)
	if err != nil {
		return nil, err
	}

	s := &Server{
		svc:     svc,
		metrics: metrics,
		home:    home,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/model/info", s.handleModelInfo).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	// mux skips middleware for unmatched requests.
	r.MethodNotAllowedHandler = withRequestID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}))
	r.NotFoundHandler = withRequestID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	}))
	r.Use(withRequestID, s.withLogging, withRecovery)
	s.router = r

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting prediction server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// predict runs one request body through decode and inference and records
// metrics for the outcome.
func (s *Server) predict(ctx context.Context, body []byte) (Prediction, error) {
	start := time.Now()
	in, err := DecodeInput(body)
	if err == nil {
		var pred Prediction
		pred, err = s.svc.Predict(ctx, in)
		if err == nil {
			if s.metrics != nil {
				s.metrics.PredictionsInc()
				s.metrics.LatencyObserve(time.Since(start))
				s.metrics.ScoreObserve(pred.Probability)
			}
			return pred, nil
		}
	}

	if s.metrics != nil {
		s.metrics.FailuresInc(common.Reason(err))
	}
	log.Warn().
		Err(err).
		Str("request_id", RequestIDFromContext(ctx)).
		Str("reason", common.Reason(err)).
		Msg("Prediction rejected")
	return Prediction{}, err
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body: "+err.Error())
		return
	}

	pred, err := s.predict(r.Context(), body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, errorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":        "ok",
		"model_version": s.svc.Info().Version,
	})
}

// handleModelInfo describes the served model. ?top=N trims the importance
// ranking to its first N entries.
func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	info := s.svc.Info()
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSONError(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		info.Importances = ml.TopFeatures(info.Importances, n)
	}
	writeJSON(w, http.StatusOK, info)
}
