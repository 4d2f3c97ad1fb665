package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cosmossdk.io/log"
	"github.com/gorilla/mux"

	"github.com/openalpha/stake-ledger/api/handlers"
	"github.com/openalpha/stake-ledger/api/middleware"
	"github.com/openalpha/stake-ledger/api/websocket"
	"github.com/openalpha/stake-ledger/app"
	"github.com/openalpha/stake-ledger/metrics"
)

// Server is the ledger HTTP and websocket server
type Server struct {
	config     app.APIConfig
	httpServer *http.Server
	handler    http.Handler

	service     *LedgerService
	hub         *websocket.Hub
	rateLimiter *middleware.RateLimiter
	logger      log.Logger
}

// NewServer wires the ledger routes. collector and metricsHandler may be nil;
// without a metrics handler /metrics serves the default registry.
func NewServer(config app.APIConfig, service *LedgerService, hub *websocket.Hub, collector *metrics.Collector, metricsHandler http.Handler, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if metricsHandler == nil {
		metricsHandler = metrics.Handler()
	}

	s := &Server{
		config:  config,
		service: service,
		hub:     hub,
		logger:  logger.With("module", "api"),
	}

	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Logging(s.logger, collector))

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	if hub != nil {
		r.HandleFunc("/ws", hub.ServeWS).Methods(http.MethodGet)
	}
	handlers.NewLedgerHandler(service).RegisterRoutes(r)

	var handler http.Handler = r
	if !config.DisableRateLimit {
		rlConfig := middleware.DefaultRateLimitConfig()
		if config.RequestsPerSecond > 0 {
			rlConfig.IPRequestsPerSecond = config.RequestsPerSecond
		}
		if config.Burst > 0 {
			rlConfig.IPBurst = config.Burst
		}
		s.rateLimiter = middleware.NewRateLimiter(rlConfig, collector)
		handler = middleware.RateLimitMiddleware(s.rateLimiter)(handler)
	}
	s.handler = corsMiddleware(handler)

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start runs the websocket hub and serves HTTP until Stop
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	if s.hub != nil {
		go s.hub.Run()
	}

	s.logger.Info("API server starting",
		"addr", addr,
		"rate_limit", !s.config.DisableRateLimit,
		"requests_per_second", s.config.RequestsPerSecond,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.hub != nil {
		s.hub.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, s.service.Health())
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+middleware.CallerHeader+", "+middleware.RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
