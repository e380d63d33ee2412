package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seantiz/wayfarer/internal/feed"
	"github.com/seantiz/wayfarer/internal/itinerary"
	"github.com/seantiz/wayfarer/internal/ledger"
	"github.com/seantiz/wayfarer/internal/store"
	"github.com/seantiz/wayfarer/internal/tally"
	"github.com/seantiz/wayfarer/internal/trip"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second
)

// Services are the engines and collaborators the HTTP layer dispatches to.
type Services struct {
	Store     store.Store
	Ledger    *ledger.Ledger
	Tally     *tally.Tally
	Itinerary *itinerary.Planner
	Trips     *trip.Planner
	Broker    *feed.Broker
}

// Server wraps the chi router and application dependencies.
type Server struct {
	router    *chi.Mux
	svc       Services
	jwtSecret []byte
	logger    *slog.Logger
	addr      string
}

// NewServer creates and configures a new HTTP server. An empty jwtSecret
// disables caller identity checks.
func NewServer(addr string, svc Services, jwtSecret string, logger *slog.Logger) *Server {
	srv := &Server{
		router: chi.NewRouter(),
		svc:    svc,
		logger: logger,
		addr:   addr,
	}
	if jwtSecret != "" {
		srv.jwtSecret = []byte(jwtSecret)
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router.
func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.identityMiddleware)

		r.Route("/CostSplitting", s.expenseRoutes)
		r.Route("/Polling", s.pollRoutes)
		r.Route("/ItineraryPlanner", s.itineraryRoutes)
		r.Route("/TripPlanning", s.tripRoutes)
		r.Post("/Activity/_getActivity", handle(s, engineActivity, "_getActivity", s.getActivity))

		r.Get("/stream/{id}", s.handleStream)
	})
}

// Router returns the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
