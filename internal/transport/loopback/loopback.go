// FilePath: internal/transport/loopback/loopback.go
package loopback

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/transport"
	nuts "github.com/vaudience/go-nuts"
)

const (
	scheme           = "loop://"
	subscriptionSize = 64
)

// Network is an in-process network of hosts. It implements transport.Client and
// transport.Directory, and hands out transport.Host values.
type Network struct {
	mu      sync.RWMutex
	hosts   map[string]*Host
	entries map[string]models.ResourceInfo
	subs    map[models.ObservationID]*subscription
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		hosts:   make(map[string]*Host),
		entries: make(map[string]models.ResourceInfo),
		subs:    make(map[models.ObservationID]*subscription),
	}
}

// Host returns the host with the given name, creating it on first use.
func (n *Network) Host(name string) *Host {
	addr := scheme + name
	n.mu.Lock()
	defer n.mu.Unlock()
	if h, ok := n.hosts[addr]; ok {
		return h
	}
	h := &Host{network: n, address: addr, handlers: make(map[string]transport.Handler)}
	n.hosts[addr] = h
	return h
}

// Disconnect removes a host from the network as if it lost power. Its resources stop
// answering, its observers stop receiving and its directory entries disappear.
func (n *Network) Disconnect(name string) {
	addr := scheme + name
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.hosts, addr)
	for key, info := range n.entries {
		if info.Host == addr {
			delete(n.entries, key)
		}
	}
	for id, sub := range n.subs {
		if sub.info.Host == addr {
			delete(n.subs, id)
			sub.close()
		}
	}
}

func (n *Network) lookup(info models.ResourceInfo) (transport.Handler, error) {
	n.mu.RLock()
	h, ok := n.hosts[strings.TrimSuffix(info.Host, "/")]
	n.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("host %s unreachable: %w", info.Host, errors.ErrTimeout)
	}
	return h.handler(info.URI)
}

// Get implements transport.Client.
func (n *Network) Get(ctx context.Context, info models.ResourceInfo) (models.Representation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := n.lookup(info)
	if err != nil {
		return nil, err
	}
	return h.Get().Clone(), nil
}

// Put implements transport.Client.
func (n *Network) Put(ctx context.Context, info models.ResourceInfo, delta models.Representation) (models.Representation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := n.lookup(info)
	if err != nil {
		return nil, err
	}
	return h.Put(delta.Clone()).Clone(), nil
}

// Observe implements transport.Client. The current state is delivered first.
func (n *Network) Observe(ctx context.Context, info models.ResourceInfo, fn transport.ObserveFunc) (transport.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := n.lookup(info)
	if err != nil {
		return nil, err
	}
	sub := newSubscription(n, info, models.ObservationID(nuts.NID("obs", 10)), fn)
	n.mu.Lock()
	n.subs[sub.id] = sub
	n.mu.Unlock()

	h.RegisterObserver(sub.id)
	sub.deliver(h.Get())
	return sub, nil
}

func (n *Network) cancel(sub *subscription) {
	n.mu.Lock()
	_, live := n.subs[sub.id]
	delete(n.subs, sub.id)
	n.mu.Unlock()
	if !live {
		return
	}
	if h, err := n.lookup(sub.info); err == nil {
		h.UnregisterObserver(sub.id)
	}
	sub.close()
}

// Advertise implements transport.Directory.
func (n *Network) Advertise(_ context.Context, info models.ResourceInfo) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries[info.Key()] = info
	return nil
}

// Withdraw implements transport.Directory.
func (n *Network) Withdraw(_ context.Context, info models.ResourceInfo) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.entries, info.Key())
	return nil
}

// Find implements transport.Directory.
func (n *Network) Find(ctx context.Context, q transport.Query) (<-chan models.ResourceInfo, error) {
	n.mu.RLock()
	matches := make([]models.ResourceInfo, 0)
	for _, info := range n.entries {
		if q.Matches(info) {
			matches = append(matches, info)
		}
	}
	n.mu.RUnlock()

	out := make(chan models.ResourceInfo, len(matches))
	go func() {
		defer close(out)
		for _, info := range matches {
			select {
			case out <- info:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Host serves resources on the loopback network.
type Host struct {
	network  *Network
	address  string
	mu       sync.RWMutex
	handlers map[string]transport.Handler
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
		return models.ResourceInfo{}, fmt.Errorf("resource %s already registered on %s", info.URI, h.address)
	}
	h.handlers[info.URI] = handler
	return info, nil
}

// Unregister implements transport.Host.
func (h *Host) Unregister(uri string) error {
	h.mu.Lock()
	_, ok := h.handlers[uri]
	delete(h.handlers, uri)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("unregister %s: %w", uri, errors.ErrResourceNotFound)
	}
	h.network.mu.Lock()
	for id, sub := range h.network.subs {
		if sub.info.Host == h.address && sub.info.URI == uri {
			delete(h.network.subs, id)
			sub.close()
		}
	}
	h.network.mu.Unlock()
	return nil
}

// Notify implements transport.Host.
func (h *Host) Notify(uri string, observers []models.ObservationID, rep models.Representation) error {
	h.network.mu.RLock()
	delivered := 0
	for _, id := range observers {
		sub, ok := h.network.subs[id]
		if !ok || sub.info.URI != uri {
			continue
		}
		sub.deliver(rep)
		delivered++
	}
	h.network.mu.RUnlock()
	if delivered == 0 {
		return errors.ErrNoObservers
	}
	return nil
}

func (h *Host) handler(uri string) (transport.Handler, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.handlers[uri]
	if !ok {
		return nil, fmt.Errorf("%s%s: %w", h.address, uri, errors.ErrResourceNotFound)
	}
	return handler, nil
}

// subscription delivers notifications in order on its own goroutine.
type subscription struct {
	network *Network
	info    models.ResourceInfo
	id      models.ObservationID
	queue   chan models.Representation
	done    chan struct{}
	once    sync.Once
}

func newSubscription(n *Network, info models.ResourceInfo, id models.ObservationID, fn transport.ObserveFunc) *subscription {
	s := &subscription{
		network: n,
		info:    info,
		id:      id,
		queue:   make(chan models.Representation, subscriptionSize),
		done:    make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-s.done:
				return
			case rep := <-s.queue:
				fn(rep)
			}
		}
	}()
	return s
}

func (s *subscription) ID() models.ObservationID {
	return s.id
}

func (s *subscription) Cancel() {
	s.network.cancel(s)
}

func (s *subscription) deliver(rep models.Representation) {
	select {
	case <-s.done:
	case s.queue <- rep.Clone():
	default:
		nuts.L.Warnf("[Loopback] dropping notification for %s%s, observer %s is slow", s.info.Host, s.info.URI, s.id)
	}
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.done) })
}
