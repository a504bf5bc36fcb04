// Package server exposes the changesheet preview over HTTP.
//
// Every request is handled on its own: the body is parsed, normalized and
// translated, and the result is returned. Nothing is kept between requests.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/changesheet-preview/internal/config"
	"github.com/ginjaninja78/changesheet-preview/internal/logging"
	"github.com/ginjaninja78/changesheet-preview/internal/payload"
)

// MaxBodyBytes caps the size of an uploaded changesheet.
const MaxBodyBytes = 10 << 20

const shutdownTimeout = 5 * time.Second

// Server serves the preview API.
type Server struct {
	router     *mux.Router
	translator *payload.Translator
	parser     config.ParserSettings
	logger     logging.Logger
}

// New creates a Server using the collection name and parser defaults from cfg.
func New(cfg *config.MainConfig, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		router:     mux.NewRouter(),
		translator: cfg.Translator(),
		parser:     cfg.Parser,
		logger:     logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(
		s.loggerWare(),
		handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.logger})),
	)
	s.router.HandleFunc("/healthz", s.healthHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/actions", s.actionsHandler()).Methods(http.MethodGet)
	s.router.HandleFunc("/api/changesheets:preview", s.previewHandler()).Methods(http.MethodPost)
	s.router.HandleFunc("/api/changesheets:payload", s.payloadHandler()).Methods(http.MethodPost)
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	egp, ctx := errgroup.WithContext(ctx)
	egp.Go(func() error {
		s.logger.Info("preview server listening", map[string]any{"addr": addr})
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	egp.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return egp.Wait()
}

// loggerWare logs one line per request.
func (s *Server) loggerWare() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			s.logger.Debug("request", map[string]any{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   m.Code,
				"bytes":    m.Written,
				"duration": m.Duration.String(),
			})
		})
	}
}

type recoveryLogger struct {
	logger logging.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("panic while serving request", nil, map[string]any{"panic": v})
}
