// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/api"
	"github.com/eval-printer/SmartHome-Demo/api/middleware"
	"github.com/eval-printer/SmartHome-Demo/internal/config"
	"github.com/eval-printer/SmartHome-Demo/internal/database"
	"github.com/eval-printer/SmartHome-Demo/internal/devices"
	"github.com/eval-printer/SmartHome-Demo/internal/eventloop"
	"github.com/eval-printer/SmartHome-Demo/internal/gateway"
	"github.com/eval-printer/SmartHome-Demo/internal/hubservice"
	"github.com/eval-printer/SmartHome-Demo/internal/monitoring"
	"github.com/eval-printer/SmartHome-Demo/internal/transport"
	"github.com/eval-printer/SmartHome-Demo/internal/transport/loopback"
	"github.com/eval-printer/SmartHome-Demo/internal/transport/rest"
)

const loopQueueSize = 1024

// Server runs one process of the home: the gateway, or a single device.
type Server struct {
	config     *config.Config
	srv        *http.Server
	router     *api.Router
	loop       *eventloop.Loop
	monitoring *monitoring.Service

	restHost  *rest.Host
	host      transport.Host
	client    transport.Client
	directory transport.Directory
	network   *loopback.Network
	closers   []func() error

	hubservice *hubservice.HubService
	db         database.DB
	registry   *gateway.Registry
	recorder   *recorder
	devices    []*devices.Device

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:     cfg,
		loop:       eventloop.New(loopQueueSize),
		monitoring: monitoring.NewService(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start runs the gateway, or the configured device, and blocks until a
// termination signal arrives.
func (s *Server) Start() error {
	go s.loop.Run(s.ctx)

	if err := s.buildTransport(s.ctx); err != nil {
		s.cancel()
		return err
	}

	var err error
	switch {
	case s.config.Device.Kind != "":
		err = s.startDevice(s.ctx, s.config.Device.Kind)
	case s.config.Transport.Mode == config.TransportLoopback:
		err = s.startDemo(s.ctx)
	default:
		err = s.startGateway(s.ctx)
	}
	if err != nil {
		s.shutdownComponents()
		return err
	}

	s.setupRoutes()

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      s.handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}
	go func() {
		nuts.L.Infof("[Server] Starting server on %s (advertised as %s)", s.srv.Addr, s.config.Server.AdvertiseAddress)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	s.shutdownComponents()

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// shutdownComponents stops devices and the registry while the loop is still
// running, then releases the backends.
func (s *Server) shutdownComponents() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	for _, d := range s.devices {
		d.Stop(ctx)
	}
	if s.registry != nil {
		if err := s.registry.Stop(ctx); err != nil {
			nuts.L.Warnf("[Server] Gateway did not stop cleanly: %v", err)
		}
	}
	s.cancel()
	s.loop.Stop()

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			nuts.L.Warnf("[Server] Error during shutdown: %v", err)
		}
	}
}

// setupRoutes configures all routes for the server
func (s *Server) setupRoutes() {
	if s.registry != nil {
		kc := s.config.Keycloak
		s.router = api.NewRouter(s.hubservice, s.registry, middleware.KeycloakConfig{
			URL:          kc.URL,
			Realm:        kc.Realm,
			ClientID:     kc.ClientID,
			ClientSecret: kc.ClientSecret,
		})
	} else {
		s.router = api.NewRouter(nil, nil, middleware.KeycloakConfig{})
	}
	s.router.Resources().SetHealthCheck(s.handleHealth())
	s.router.Resources().SetMetrics(s.monitoring.Handler().ServeHTTP)
	s.router.Setup(s.restHost)
}

// handler wraps the router with recovery, CORS and access logging
func (s *Server) handler() http.Handler {
	var h http.Handler = s.router
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	return handlers.LoggingHandler(accessLog{}, h)
}

// handleHealth returns a simple health check handler
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if s.db != nil {
			if err := s.db.Ping(r.Context()); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		w.Write([]byte(`{"status":"` + status + `","version":"` + nuts.GetVersion() + `"}`))
	}
}

// accessLog forwards gorilla access log lines to the debug logger
type accessLog struct{}

func (accessLog) Write(p []byte) (int, error) {
	nuts.L.Debugf("[HTTP] %s", string(p))
	return len(p), nil
}
