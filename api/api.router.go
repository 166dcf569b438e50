package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/swaggo/swag"

	"github.com/eval-printer/SmartHome-Demo/api/docs"
	"github.com/eval-printer/SmartHome-Demo/api/middleware"
	"github.com/eval-printer/SmartHome-Demo/api/resources"
	"github.com/eval-printer/SmartHome-Demo/internal/hubservice"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/transport/rest"
)

// AdminRole is required for changing the rule and gateway configuration
const AdminRole = "gateway-admin"

type Router struct {
	router    *mux.Router
	auth      *middleware.KeycloakMiddleware
	resources *resources.Resources
	gateway   bool
}

// NewRouter builds the HTTP surface of a process. svc and status are nil on devices,
// keycloak is left out when its URL is empty.
func NewRouter(svc *hubservice.HubService, status resources.StatusSource, keycloakConfig middleware.KeycloakConfig) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		resources: resources.NewResources(svc, status),
		gateway:   svc != nil && status != nil,
	}
	if keycloakConfig.Enabled() {
		r.auth = middleware.NewKeycloakMiddleware(keycloakConfig)
	}
	return r
}

// Resources exposes the handlers so callers can replace health and metrics
func (r *Router) Resources() *resources.Resources {
	return r.resources
}

// Setup registers all routes. The resource host is mounted last since it owns
// the catch-all; it is nil when resources are only reachable in-process.
func (r *Router) Setup(host *rest.Host) {
	// Public routes
	r.router.HandleFunc("/v1/health", r.resources.HealthCheck).Methods(http.MethodGet)
	r.router.HandleFunc("/metrics", r.resources.Metrics).Methods(http.MethodGet)
	r.router.HandleFunc("/swagger/doc.json", serveDoc).Methods(http.MethodGet)

	if r.gateway {
		api := r.router.PathPrefix("/api/v1").Subrouter()
		if r.auth != nil {
			api.Use(r.auth.Authenticate)
		}
		api.HandleFunc("/sensors", r.resources.Readings.ListKnownSensors).Methods(http.MethodGet)
		api.HandleFunc("/sensors/{slot}/readings", r.resources.Readings.GetSensorReadings).Methods(http.MethodGet)
		api.HandleFunc("/actuators/{slot}/commands", r.resources.Commands.ListActuatorCommands).Methods(http.MethodGet)
		api.HandleFunc("/gateway/status", r.resources.Gateway.GetGatewayStatus).Methods(http.MethodGet)

		if r.auth != nil && host != nil {
			admin := r.auth.Authenticate(r.auth.RequireRoles([]string{AdminRole})(host.ResourceHandler()))
			r.router.Handle(models.URIRules, admin).Methods(http.MethodPut)
			r.router.Handle(models.URIConfig, admin).Methods(http.MethodPut)
		}
	}

	if host != nil {
		host.Mount(r.router)
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

func serveDoc(w http.ResponseWriter, _ *http.Request) {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}
