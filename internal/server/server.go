package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/TutorAPI/internal/adapter/utils"
	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/handlers"
	"github.com/akolanti/TutorAPI/internal/middleware"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger *logger_i.Logger
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// RegisterRoutes mounts the API behind chain. mcp may be nil when the MCP endpoint is disabled.
func RegisterRoutes(r chi.Router, chain *middleware.Chain, mcp http.Handler) {
	r.Get("/health", handlers.GetHandler)

	r.Post("/chat", chain.Wrap(handlers.ChatHandler))
	r.Get("/status/{id}", chain.Wrap(handlers.GetStatusHandler))

	r.Post("/documents", chain.Wrap(handlers.PostDocumentHandler))
	r.Get("/documents/{id}", chain.Wrap(handlers.GetDocumentHandler))
	r.Post("/documents/{id}/index", chain.Wrap(handlers.PostIndexHandler))

	r.Post("/search", chain.Wrap(handlers.SearchHandler))
	r.Post("/tests/generate", chain.Wrap(handlers.GenerateTestHandler))

	if mcp != nil {
		r.Handle("/mcp", chain.WrapHandler(mcp))
	}
}

func CreateServer(settings config.Settings, mcp http.Handler) {
	_logger = logger_i.NewLogger("Server")

	r := utils.GetRouter()
	RegisterRoutes(r.Router, middleware.NewChain(settings), mcp)

	server = &http.Server{
		Addr:         settings.ListenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", settings.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", settings.ListenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	log := logger_i.NewLogger("Server")
	state := <-shutdownParams.GracefulShutdown
	log.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				log.Error("Could not shutdown gracefully", "error", err)
			}
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		log.Info("Gracefully shut down")
	case <-ctx.Done():
		log.Info("Force Shut down")
		os.Exit(1)
	}
}
