package server

import (
	"fmt"
	"net/http"
	"time"

	"scanlane/internal/catalog"
	"scanlane/internal/config"
	custommiddleware "scanlane/internal/middleware"
	"scanlane/internal/printing"
	"scanlane/internal/session"
	"scanlane/internal/storage"
	"scanlane/internal/transport"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config   *config.Config
	logger   *zap.Logger
	sessions *session.Manager
	store    storage.Store
}

func NewServer(cfg *config.Config, logger *zap.Logger, store storage.Store) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// External collaborators
	cat := catalog.NewClient(cfg.Catalog)
	sessions := session.NewManager(store, cat, cfg, logger)

	// Print pipeline
	printer := printing.NewLPPrinter()
	dispatcher := printing.NewDispatcher(
		printing.NewNativeChannel(printer),
		printing.NewBridgeChannel(printing.NewHTTPBridge(cfg.Printer.BridgeURL)),
		printing.NewSystemChannel(store),
		printer,
		store,
		cfg.Printer.SendTimeout,
		logger,
	)

	// Initialize handlers
	posHandler := transport.NewPOSHandler(sessions, logger)
	printHandler := transport.NewPrintHandler(dispatcher, logger)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	sessionMiddleware := custommiddleware.SessionMiddleware()

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(sessionMiddleware)
		posHandler.RegisterRoutes(r)
		printHandler.RegisterRoutes(r)
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:   cfg,
		logger:   logger,
		sessions: sessions,
		store:    store,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Flush every live session so the save debounce cannot eat the last
	// cart/cache mutations.
	s.sessions.CloseAll()

	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("Failed to close storage", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
