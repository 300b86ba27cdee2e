package webd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/mux"
	"github.com/olahol/melody"
	"github.com/rotblauer/trackfix/api"
	"github.com/rotblauer/trackfix/params"
)

type WebDaemon struct {
	Config  *params.WebDaemonConfig
	Cleaner *api.Cleaner

	logger         *slog.Logger
	started        time.Time
	melodyInstance *melody.Melody
	runSub         event.Subscription

	// closed is set by Close. The melody hub's own open flag is set
	// asynchronously after melody.New, so it can't tell a new daemon from a closed one.
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewWebDaemon(config *params.WebDaemonConfig) (*WebDaemon, error) {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	cleanerConfig := params.DefaultCleanerConfig()
	cleanerConfig.Check = params.DefaultSpeedCheckConfig
	cleanerConfig.DataDir = config.DataDir
	cleanerConfig.Store = config.Store
	cleanerConfig.Influx = config.Influx
	cleaner, err := api.NewCleaner(cleanerConfig)
	if err != nil {
		return nil, err
	}
	s := &WebDaemon{
		Config:  config,
		Cleaner: cleaner,
		logger:  slog.With("d", "web"),
		started: time.Now(),
	}
	s.initMelody()
	s.waitMelodyOpen(time.Second)
	return s, nil
}

// waitMelodyOpen waits for the melody hub goroutine to start, so that Close
// reaches a running hub.
func (s *WebDaemon) waitMelodyOpen(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for s.melodyInstance.IsClosed() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
}

// Run listens and serves until the context is canceled,
// then shuts the server down and closes the daemon.
func (s *WebDaemon) Run(ctx context.Context) error {
	ln, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           s.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down web daemon")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Shutdown", "error", err)
		}
	}()
	s.logger.Info("Starting web daemon", "network", s.Config.Network, "address", ln.Addr().String())
	err = server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return errors.Join(err, s.Close())
}

// Close stops the websocket broadcast and closes the cleaner's ledger.
// Calls after the first return the first call's error.
func (s *WebDaemon) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.runSub.Unsubscribe()
		var errs []error
		// Close errors only if the hub is already stopped, which is the goal.
		if err := s.melodyInstance.Close(); err != nil && !s.melodyInstance.IsClosed() {
			errs = append(errs, err)
		}
		errs = append(errs, s.Cleaner.Close())
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func (s *WebDaemon) NewRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(false)
	router.Use(recoveryMiddleware, loggingMiddleware)

	// Handle websocket.
	router.Path("/socket").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.melodyInstance.HandleRequest(w, r); err != nil {
			s.logger.Warn("Websocket request", "error", err)
		}
	}).Methods(http.MethodGet)

	apiRoutes := router.NewRoute().Subrouter()

	// All API routes use permissive CORS settings.
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))

	apiJSONRoutes.Path("/status").HandlerFunc(s.statusReport).Methods(http.MethodGet)
	apiJSONRoutes.Path("/last/{id}").HandlerFunc(s.handleLast).Methods(http.MethodGet)
	apiJSONRoutes.Path("/clean").HandlerFunc(s.handleClean).Methods(http.MethodPost)

	return router
}
