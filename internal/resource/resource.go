// FilePath: internal/resource/resource.go
package resource

import (
	stderrors "errors"
	"sync"
	"time"

	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/eventloop"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// Notifier delivers a representation to a set of observers of uri.
type Notifier interface {
	Notify(uri string, observers []models.ObservationID, rep models.Representation) error
}

// Scheduler runs recurring callbacks; returning false from the callback cancels it.
type Scheduler interface {
	AddTimeout(interval time.Duration, fn func() bool) *eventloop.Timer
}

// Sampler reads fresh attribute values, typically from hardware.
type Sampler func() models.Representation

// PutHook is invoked with the attributes a PUT actually changed.
type PutHook func(applied models.Representation)

// Applier merges delta into state and returns what it applied.
type Applier func(state, delta models.Representation) models.Representation

// Option configures an ObservableResource.
type Option func(*ObservableResource)

// WithSampler refreshes state from the sampler before every Get.
func WithSampler(s Sampler) Option {
	return func(r *ObservableResource) { r.sampler = s }
}

// WithPutHook registers the side effect of an accepted PUT.
func WithPutHook(h PutHook) Option {
	return func(r *ObservableResource) { r.putHook = h }
}

// WithApplier replaces the schema-driven merge of PUT bodies.
func WithApplier(a Applier) Option {
	return func(r *ObservableResource) { r.applier = a }
}

// WithPresenceInterval overrides the presence notification period.
func WithPresenceInterval(d time.Duration) Option {
	return func(r *ObservableResource) { r.interval = d }
}

// ObservableResource is a network-addressable resource with an observer set and a
// presence timer that re-notifies observers while any are registered.
type ObservableResource struct {
	mu        sync.Mutex
	info      models.ResourceInfo
	schema    Schema
	state     models.Representation
	observers *ObserverSet
	presence  *eventloop.Timer
	interval  time.Duration

	notifier  Notifier
	scheduler Scheduler
	sampler   Sampler
	putHook   PutHook
	applier   Applier
}

// New creates a resource at uri with the given initial state.
func New(uri string, schema Schema, initial models.Representation, notifier Notifier, scheduler Scheduler, opts ...Option) *ObservableResource {
	interfaces := schema.Interfaces
	if len(interfaces) == 0 {
		interfaces = []string{models.InterfaceBase}
	}
	r := &ObservableResource{
		info: models.ResourceInfo{
			URI:        uri,
			Types:      []string{schema.Type},
			Interfaces: interfaces,
		},
		schema:    schema,
		state:     initial.Clone(),
		observers: NewObserverSet(),
		interval:  models.PresenceCycle,
		notifier:  notifier,
		scheduler: scheduler,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Info returns the resource handle. Host is filled in by the transport.
func (r *ObservableResource) Info() models.ResourceInfo {
	return r.info
}

// URI returns the resource path.
func (r *ObservableResource) URI() string {
	return r.info.URI
}

// Get returns a snapshot of the current state.
func (r *ObservableResource) Get() models.Representation {
	if r.sampler != nil {
		fresh := r.sampler()
		r.Set(fresh)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// Put applies delta and returns the new snapshot. Attributes outside the schema are ignored.
func (r *ObservableResource) Put(delta models.Representation) models.Representation {
	r.mu.Lock()
	var applied models.Representation
	if r.applier != nil {
		applied = r.applier(r.state, delta)
	} else {
		applied = r.schema.Apply(r.info.URI, delta)
		r.state.Merge(applied)
	}
	snapshot := r.state.Clone()
	hook := r.putHook
	r.mu.Unlock()

	if hook != nil && len(applied) > 0 {
		hook(applied)
	}
	return snapshot
}

// Set updates state from the owning process without running the PUT hook.
// It reports whether any attribute changed value.
func (r *ObservableResource) Set(delta models.Representation) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := false
	for k, v := range r.schema.Apply(r.info.URI, delta) {
		if old, ok := r.state[k]; !ok || old != v {
			changed = true
		}
		r.state[k] = v
	}
	return changed
}

// Replace swaps the whole state. Used by resources whose attributes are not fixed.
func (r *ObservableResource) Replace(state models.Representation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state.Clone()
}

// RegisterObserver adds id. The first observer starts the presence timer.
func (r *ObservableResource) RegisterObserver(id models.ObservationID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.observers.Add(id) {
		return
	}
	nuts.L.Debugf("[Resource] %s: observer %s registered (%d total)", r.info.URI, id, r.observers.Len())
	if r.observers.Len() == 1 {
		r.startPresenceLocked()
	}
}

// UnregisterObserver removes id. Removing the last observer stops the presence timer.
func (r *ObservableResource) UnregisterObserver(id models.ObservationID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.observers.Remove(id) {
		return
	}
	nuts.L.Debugf("[Resource] %s: observer %s unregistered (%d left)", r.info.URI, id, r.observers.Len())
	if r.observers.Len() == 0 {
		r.stopPresenceLocked()
	}
}

// Observers returns the registered observation IDs.
func (r *ObservableResource) Observers() []models.ObservationID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observers.IDs()
}

// PresenceActive reports whether the presence timer is running.
func (r *ObservableResource) PresenceActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presence != nil
}

// Notify pushes the current state to every observer. When the transport reports
// that nobody is listening any more, the observer set is cleared and presence stops.
func (r *ObservableResource) Notify() error {
	r.mu.Lock()
	if r.observers.Len() == 0 || r.notifier == nil {
		r.mu.Unlock()
		return nil
	}
	ids := r.observers.IDs()
	snapshot := r.state.Clone()
	r.mu.Unlock()

	err := r.notifier.Notify(r.info.URI, ids, snapshot)
	if stderrors.Is(err, errors.ErrNoObservers) {
		nuts.L.Infof("[Resource] %s: no observers left, stopping presence", r.info.URI)
		r.mu.Lock()
		r.observers.Clear()
		r.stopPresenceLocked()
		r.mu.Unlock()
		return nil
	}
	return err
}

// Close stops the presence timer and drops all observers.
func (r *ObservableResource) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers.Clear()
	r.stopPresenceLocked()
}

func (r *ObservableResource) startPresenceLocked() {
	if r.scheduler == nil || r.presence != nil {
		return
	}
	var timer *eventloop.Timer
	timer = r.scheduler.AddTimeout(r.interval, func() bool {
		r.mu.Lock()
		stale := r.presence != timer || r.observers.Len() == 0
		r.mu.Unlock()
		if stale {
			return false
		}
		if err := r.Notify(); err != nil {
			nuts.L.Warnf("[Resource] %s: presence notify failed: %v", r.info.URI, err)
		}
		return r.PresenceActive()
	})
	r.presence = timer
}

func (r *ObservableResource) stopPresenceLocked() {
	if r.presence == nil {
		return
	}
	r.presence.Cancel()
	r.presence = nil
}
