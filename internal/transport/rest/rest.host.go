// FilePath: internal/transport/rest/rest.host.go
package rest

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/gorilla/websocket"
	"github.com/segmentio/encoding/json"
	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/transport"
)

const writeWait = 5 * time.Second

// requestParams are the query parameters understood on resource URIs.
type requestParams struct {
	Observe int `schema:"observe"`
}

type wsObserver struct {
	id      models.ObservationID
	uri     string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (o *wsObserver) send(rep models.Representation) error {
	payload, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	_ = o.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return o.conn.WriteMessage(websocket.TextMessage, payload)
}

// Host serves registered resources over HTTP. GET and PUT map onto the resource
// operations; GET with ?observe=1 upgrades to a websocket notification stream.
type Host struct {
	address  string
	decoder  *schema.Decoder
	upgrader websocket.Upgrader

	mu        sync.RWMutex
	handlers  map[string]transport.Handler
	observers map[models.ObservationID]*wsObserver
}

// NewHost creates a host reachable by peers at address, e.g. "http://10.0.0.2:8080".
func NewHost(address string) *Host {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return &Host{
		address: address,
		decoder: decoder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		handlers:  make(map[string]transport.Handler),
		observers: make(map[models.ObservationID]*wsObserver),
	}
}

// Address implements transport.Host.
func (h *Host) Address() string {
	return h.address
}

// Register implements transport.Host.
func (h *Host) Register(handler transport.Handler) (models.ResourceInfo, error) {
	info := handler.Info()
	info.Host = h.address
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.handlers[info.URI]; exists {
		return models.ResourceInfo{}, errors.NewValidationError("resource already registered: "+info.URI, nil)
	}
	h.handlers[info.URI] = handler
	nuts.L.Infof("[RestHost] Registered %s (%v)", info.URI, info.Types)
	return info, nil
}

// Unregister implements transport.Host.
func (h *Host) Unregister(uri string) error {
	h.mu.Lock()
	_, ok := h.handlers[uri]
	delete(h.handlers, uri)
	var dropped []*wsObserver
	for id, obs := range h.observers {
		if obs.uri == uri {
			dropped = append(dropped, obs)
			delete(h.observers, id)
		}
	}
	h.mu.Unlock()
	for _, obs := range dropped {
		_ = obs.conn.Close()
	}
	if !ok {
		return errors.NewNotFoundError("resource not registered: "+uri, errors.ErrResourceNotFound)
	}
	nuts.L.Infof("[RestHost] Unregistered %s", uri)
	return nil
}

// Notify implements transport.Host.
func (h *Host) Notify(uri string, observers []models.ObservationID, rep models.Representation) error {
	delivered := 0
	for _, id := range observers {
		h.mu.RLock()
		obs, ok := h.observers[id]
		h.mu.RUnlock()
		if !ok || obs.uri != uri {
			continue
		}
		if err := obs.send(rep); err != nil {
			nuts.L.Warnf("[RestHost] Dropping observer %s of %s: %v", id, uri, err)
			h.dropObserver(obs)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return errors.ErrNoObservers
	}
	return nil
}

// Mount registers the discovery listing and the resource catch-all on r.
// It must be called after any other routes.
func (h *Host) Mount(r *mux.Router) {
	r.HandleFunc(transport.DiscoveryPath, h.handleDiscovery).Methods(http.MethodGet)
	r.PathPrefix("/").HandlerFunc(h.handleResource).Methods(http.MethodGet, http.MethodPut)
}

// ResourceHandler serves GET and PUT on registered resource URIs. It lets callers
// put middleware in front of single resources before Mount adds the catch-all.
func (h *Host) ResourceHandler() http.Handler {
	return http.HandlerFunc(h.handleResource)
}

// Resources lists the registered resources matching q.
func (h *Host) Resources(q transport.Query) []models.ResourceInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.ResourceInfo, 0, len(h.handlers))
	for _, handler := range h.handlers {
		info := handler.Info()
		info.Host = h.address
		if q.Matches(info) {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

func (h *Host) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	var q transport.Query
	if err := h.decoder.Decode(&q, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid discovery query", err))
		return
	}
	// Only local resources are listed, whatever host the caller asked for.
	q.Host = ""
	respondWithJSON(w, http.StatusOK, h.Resources(q))
}

func (h *Host) handleResource(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	h.mu.RLock()
	handler, ok := h.handlers[r.URL.Path]
	h.mu.RUnlock()
	if !ok {
		respondWithError(w, errors.NewNotFoundError("resource not found: "+r.URL.Path, nil).WithRequestID(requestID))
		return
	}

	var params requestParams
	if err := h.decoder.Decode(&params, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	switch r.Method {
	case http.MethodGet:
		if params.Observe == 1 {
			h.serveObserve(w, r, handler)
			return
		}
		respondWithJSON(w, http.StatusOK, handler.Get())
	case http.MethodPut:
		var delta models.Representation
		if err := json.NewDecoder(r.Body).Decode(&delta); err != nil {
			respondWithError(w, errors.NewValidationError("invalid representation", err).WithRequestID(requestID))
			return
		}
		respondWithJSON(w, http.StatusOK, handler.Put(delta))
	}
}

func (h *Host) serveObserve(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		nuts.L.Warnf("[RestHost] Observe upgrade failed for %s: %v", r.URL.Path, err)
		return
	}
	obs := &wsObserver{
		id:   models.ObservationID(nuts.NID("obs", 10)),
		uri:  handler.Info().URI,
		conn: conn,
	}
	h.mu.Lock()
	h.observers[obs.id] = obs
	h.mu.Unlock()
	handler.RegisterObserver(obs.id)
	nuts.L.Debugf("[RestHost] Observer %s attached to %s from %s", obs.id, obs.uri, r.RemoteAddr)

	if err := obs.send(handler.Get()); err != nil {
		h.dropObserver(obs)
		return
	}

	// Reads only detect the peer going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.dropObserver(obs)
				return
			}
		}
	}()
}

func (h *Host) dropObserver(obs *wsObserver) {
	h.mu.Lock()
	_, live := h.observers[obs.id]
	delete(h.observers, obs.id)
	handler := h.handlers[obs.uri]
	h.mu.Unlock()
	if !live {
		return
	}
	_ = obs.conn.Close()
	if handler != nil {
		handler.UnregisterObserver(obs.id)
	}
}

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	nuts.L.Errorf("[RestHost] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
