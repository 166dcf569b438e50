// FilePath: internal/gateway/gateway.registry.go
package gateway

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/eventloop"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/resource"
	"github.com/eval-printer/SmartHome-Demo/internal/transport"
	nuts "github.com/vaudience/go-nuts"
)

// RuleStore persists the rule configuration across restarts.
type RuleStore interface {
	Load(ctx context.Context) (*models.RuleConfig, error)
	Save(ctx context.Context, cfg models.RuleConfig) error
}

// Announcer streams resources as they are advertised.
type Announcer interface {
	Announcements(ctx context.Context) <-chan models.ResourceInfo
}

// Options tunes the registry. Zero durations fall back to the defaults in models.
type Options struct {
	StationID        string
	ResetTimeout     time.Duration
	ActiveInterval   time.Duration
	PresenceInterval time.Duration
	RequestTimeout   time.Duration
	Rules            RuleStore
}

func (o Options) withDefaults() Options {
	if o.ResetTimeout <= 0 {
		o.ResetTimeout = models.DefaultTimeout
	}
	if o.ActiveInterval <= 0 {
		o.ActiveInterval = models.ActiveInterval
	}
	if o.PresenceInterval <= 0 {
		o.PresenceInterval = models.PresenceCycle
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 3 * time.Second
	}
	return o
}

type slot struct {
	record      models.SensorRecord
	sub         transport.Subscription
	subscribing bool
	gen         uint64
	// listed slots appear in the published /gw/sensor map
	listed bool
	// local slots are served by this process and exempt from liveness checks
	local bool
}

// Status is a point-in-time view of the registry.
type Status struct {
	Sensors          map[string]models.SensorRecord `json:"sensors"`
	Rules            models.RuleConfig              `json:"rules"`
	FanOn            bool                           `json:"fanOn"`
	LedColor         int                            `json:"ledColor"`
	HeartRateSession string                         `json:"heartRateSession,omitempty"`
}

// Registry is the gateway: it tracks registered child sensors, observes them,
// runs the automation rules and serves /gw/sensor, /gw/rul and /gw/con.
// All mutable state is owned by the event loop.
type Registry struct {
	loop      *eventloop.Loop
	host      transport.Host
	client    transport.Client
	directory transport.Directory
	opts      Options
	events    *nuts.EventEmitter

	ctx    context.Context
	cancel context.CancelFunc

	sensors *resource.ObservableResource
	rules   *resource.ObservableResource
	config  *resource.ObservableResource

	slots    map[string]*slot
	ruleCfg  models.RuleConfig
	fanOn    bool
	ledColor int
	// pending holds the last command sent to each actuator slot until it is acknowledged
	pending map[string]models.Command

	heartRate  *resource.ObservableResource
	bleAddress string

	resetTimer *eventloop.Timer
	checkTimer *eventloop.Timer
}

// New creates a registry. Nothing is served until Start.
func New(loop *eventloop.Loop, host transport.Host, client transport.Client, directory transport.Directory, opts Options) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		loop:      loop,
		host:      host,
		client:    client,
		directory: directory,
		opts:      opts.withDefaults(),
		events:    nuts.NewEventEmitter(),
		ctx:       ctx,
		cancel:    cancel,
		slots:     make(map[string]*slot),
		pending:   make(map[string]models.Command),
		ruleCfg:   models.DefaultRuleConfig(),
		ledColor:  models.ColorBlue,
	}
	r.sensors = r.newSensorsResource()
	r.rules = r.newRulesResource()
	r.config = r.newConfigResource()
	return r
}

// Start loads persisted rules, serves and advertises the gateway resources and
// starts the liveness cycle.
func (r *Registry) Start(ctx context.Context) error {
	if r.opts.Rules != nil {
		cfg, err := r.opts.Rules.Load(ctx)
		switch {
		case err == nil:
			loaded := *cfg
			r.loop.Post(func() { r.applyRules(loaded, false) })
		case errors.IsNotFound(err):
			nuts.L.Infof("[Gateway] No stored rules, using defaults")
		default:
			nuts.L.Warnf("[Gateway] Failed to load rules, using defaults: %v", err)
		}
	}

	for _, res := range []*resource.ObservableResource{r.sensors, r.rules, r.config} {
		info, err := r.host.Register(res)
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", res.URI(), err)
		}
		if err := r.directory.Advertise(ctx, info); err != nil {
			return fmt.Errorf("failed to advertise %s: %w", res.URI(), err)
		}
		nuts.L.Infof("[Gateway] Serving %s%s", info.Host, info.URI)
	}

	if a, ok := r.directory.(Announcer); ok {
		go r.followAnnouncements(a)
	}

	r.resetTimer = r.loop.AddTimeout(r.opts.ResetTimeout, func() bool {
		r.ResetStatus()
		if r.checkTimer != nil {
			r.checkTimer.Cancel()
		}
		r.checkTimer = r.loop.AddOneShot(r.opts.ActiveInterval, r.ActiveCheck)
		return true
	})
	return nil
}

// Stop cancels every subscription and timer and withdraws the gateway resources.
func (r *Registry) Stop(ctx context.Context) error {
	return r.loop.Call(ctx, func() {
		if r.resetTimer != nil {
			r.resetTimer.Cancel()
		}
		if r.checkTimer != nil {
			r.checkTimer.Cancel()
		}
		if r.bleAddress != "" {
			r.BluetoothDisconnected(r.bleAddress)
		}
		for _, s := range r.slots {
			r.dropSubscription(s)
		}
		for _, res := range []*resource.ObservableResource{r.sensors, r.rules, r.config} {
			info := res.Info()
			info.Host = r.host.Address()
			if err := r.directory.Withdraw(ctx, info); err != nil {
				nuts.L.Warnf("[Gateway] Failed to withdraw %s: %v", info.URI, err)
			}
			if err := r.host.Unregister(res.URI()); err != nil {
				nuts.L.Warnf("[Gateway] Failed to unregister %s: %v", res.URI(), err)
			}
			res.Close()
		}
		r.cancel()
		nuts.L.Infof("[Gateway] Stopped")
	})
}

// Status returns a snapshot of the registry state.
func (r *Registry) Status(ctx context.Context) (Status, error) {
	var st Status
	err := r.loop.Call(ctx, func() {
		st = Status{
			Sensors:          make(map[string]models.SensorRecord, len(r.slots)),
			Rules:            r.ruleCfg,
			FanOn:            r.fanOn,
			LedColor:         r.ledColor,
			HeartRateSession: r.bleAddress,
		}
		for name, s := range r.slots {
			rec := s.record
			if rec.Resource != nil {
				res := *rec.Resource
				rec.Resource = &res
			}
			st.Sensors[name] = rec
		}
	})
	return st, err
}

// ResetStatus clears the liveness flag of every remote slot. It runs on the loop.
func (r *Registry) ResetStatus() {
	nuts.L.Debugf("[Gateway] Reset sensor active status")
	for _, s := range r.slots {
		if !s.local {
			s.record.Active = false
		}
	}
}

// ActiveCheck drops slots that stayed silent since the last reset and rediscovers
// slots that are alive without a resource. It runs on the loop.
func (r *Registry) ActiveCheck() {
	changed := false
	for _, name := range r.slotNames() {
		s := r.slots[name]
		if s.local {
			continue
		}
		switch {
		case !s.record.Active && s.record.Resource != nil:
			nuts.L.Infof("[Gateway] Sensor %s is offline", name)
			r.dropSubscription(s)
			s.record.Resource = nil
			if s.listed {
				s.listed = false
				changed = true
			}
			r.emit(EventSensorInactive, SensorEvent{Name: name, Address: s.record.Address})
		case s.record.Active && s.record.Resource == nil:
			r.startMonitor(s.record.Address)
			s.record.Active = false
		case s.record.Resource == nil && s.record.Address != "" && !s.subscribing:
			r.startMonitor(s.record.Address)
		}
	}
	if changed {
		r.publishSensors()
	}
}

func (r *Registry) slotNames() []string {
	names := make([]string, 0, len(r.slots))
	for name := range r.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// handleRegistration runs on the loop after a PUT on /gw/sensor.
func (r *Registry) handleRegistration(name, address string) {
	s, exists := r.slots[name]
	if exists && s.local {
		nuts.L.Warnf("[Gateway] Ignoring registration of %s, the slot is served locally", name)
		r.publishSensors()
		return
	}
	if !exists {
		s = &slot{record: models.SensorRecord{Name: name}}
		r.slots[name] = s
	}
	if exists && s.record.Address != address {
		nuts.L.Infof("[Gateway] Sensor %s moved from %s to %s", name, s.record.Address, address)
		r.dropSubscription(s)
		s.record.Resource = nil
	}
	nuts.L.Infof("[Gateway] Registered sensor name: %s address: %s", name, address)

	wasListed := s.listed
	s.record.Address = address
	s.record.Active = true
	s.listed = true
	if !wasListed {
		r.emit(EventSensorAdded, SensorEvent{Name: name, Address: address})
	}
	r.publishSensors()
	r.startMonitor(address)
}

// startMonitor discovers the resources behind a registered address. Results are
// posted back to the loop.
func (r *Registry) startMonitor(address string) {
	q, err := transport.ParseQuery(address)
	if err != nil {
		nuts.L.Warnf("[Gateway] Cannot monitor %s: %v", address, err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, r.opts.RequestTimeout)
		defer cancel()
		found, err := r.directory.Find(ctx, q)
		if err != nil {
			nuts.L.Warnf("[Gateway] Discovery of %s failed: %v", address, err)
			return
		}
		for info := range found {
			r.loop.Post(func() { r.foundResource(info) })
		}
	}()
}

func (r *Registry) followAnnouncements(a Announcer) {
	for info := range a.Announcements(r.ctx) {
		r.loop.Post(func() {
			name, ok := models.SlotForURI(info.URI)
			if !ok {
				return
			}
			s := r.slots[name]
			if s == nil || s.local || s.record.Address == "" {
				return
			}
			q, err := transport.ParseQuery(s.record.Address)
			if err != nil || !q.Matches(info) {
				return
			}
			r.foundResource(info)
		})
	}
}

// foundResource routes a discovered resource to its slot and observes it. A slot
// that already observes the same resource is left alone.
func (r *Registry) foundResource(info models.ResourceInfo) {
	name, ok := models.SlotForURI(info.URI)
	if !ok {
		nuts.L.Debugf("[Gateway] Resource unknown: %s%s", info.Host, info.URI)
		return
	}
	s := r.slots[name]
	if s == nil || s.local {
		nuts.L.Debugf("[Gateway] No registered sensor for %s%s", info.Host, info.URI)
		return
	}
	if s.record.Resource != nil && s.record.Resource.Key() == info.Key() && (s.sub != nil || s.subscribing) {
		return
	}
	nuts.L.Infof("[Gateway] Found %s sensor at %s%s", name, info.Host, info.URI)

	r.dropSubscription(s)
	res := info
	s.record.Resource = &res
	s.record.Active = true
	s.subscribing = true
	gen := s.gen
	r.observe(name, gen, info)

	if name == models.SlotFan || name == models.SlotLed {
		r.seedShadow(name, gen, info)
	}
	if !s.listed {
		s.listed = true
		r.emit(EventSensorAdded, SensorEvent{Name: name, Address: s.record.Address})
		r.publishSensors()
	}
}

func (r *Registry) observe(name string, gen uint64, info models.ResourceInfo) {
	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, r.opts.RequestTimeout)
		defer cancel()
		sub, err := r.client.Observe(ctx, info, func(rep models.Representation) {
			r.loop.Post(func() { r.onObservation(name, gen, rep) })
		})
		if !r.loop.Post(func() {
			s := r.slots[name]
			if s == nil || s.gen != gen {
				if sub != nil {
					sub.Cancel()
				}
				return
			}
			s.subscribing = false
			if err != nil {
				nuts.L.Warnf("[Gateway] Failed to observe %s%s: %v", info.Host, info.URI, err)
				return
			}
			s.sub = sub
		}) && sub != nil {
			sub.Cancel()
		}
	}()
}

func (r *Registry) seedShadow(name string, gen uint64, info models.ResourceInfo) {
	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, r.opts.RequestTimeout)
		defer cancel()
		rep, err := r.client.Get(ctx, info)
		if err != nil {
			nuts.L.Warnf("[Gateway] Initial GET of %s%s failed: %v", info.Host, info.URI, err)
			return
		}
		r.loop.Post(func() {
			if s := r.slots[name]; s != nil && s.gen == gen {
				r.updateShadow(rep)
			}
		})
	}()
}

// dropSubscription cancels the slot's observation and invalidates callbacks that
// are still in flight for it.
func (r *Registry) dropSubscription(s *slot) {
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
	s.subscribing = false
	s.gen++
}

func (r *Registry) updateShadow(rep models.Representation) {
	if state, ok := rep.String(models.AttrFanState); ok {
		r.fanOn = state == models.FanOn
	}
	if color, ok := rep.Int(models.AttrLedColor); ok {
		r.ledColor = color
	}
}

func (r *Registry) usable(name string) bool {
	s := r.slots[name]
	return s != nil && s.record.Usable()
}

// onObservation runs on the loop for every notification of an observed slot.
func (r *Registry) onObservation(name string, gen uint64, rep models.Representation) {
	s := r.slots[name]
	if s == nil || s.gen != gen || s.record.Resource == nil {
		return
	}
	s.record.Active = true
	r.emit(EventSensorObserved, Observation{
		Slot:       name,
		URI:        s.record.Resource.URI,
		State:      rep.Clone(),
		ObservedAt: time.Now().UTC(),
	})

	switch name {
	case models.SlotGas:
		if density, ok := rep.Int(models.AttrDensity); ok {
			r.execute(EvaluateGas(r.ruleCfg, density, r.usable(models.SlotFan), r.expectedFanOn()))
		}
	case models.SlotFan, models.SlotLed:
		r.updateShadow(rep)
	case models.SlotMotion:
		if motion, ok := rep.Bool(models.AttrMotion); ok {
			r.execute(EvaluateMotion(motion, r.usable(models.SlotLed)))
		}
	case models.SlotHeartRate:
		if hr, ok := rep.Int(models.AttrHeartRate); ok {
			r.execute(EvaluateHeartRate(r.ruleCfg, hr, r.usable(models.SlotLed)))
		}
	}
}

// expectedFanOn is the fan state once the command in flight lands, or the shadow
// when nothing is pending.
func (r *Registry) expectedFanOn() bool {
	if p, ok := r.pending[models.SlotFan]; ok {
		if state, ok := p.Delta.String(models.AttrFanState); ok {
			return state == models.FanOn
		}
	}
	return r.fanOn
}

// execute sends a rule command without waiting. The acknowledgement is posted back
// to the loop and only updates the local shadow; failures are not retried.
// A command equal to the one still in flight for the slot is dropped.
func (r *Registry) execute(cmd Command, ok bool) {
	if !ok {
		return
	}
	s := r.slots[cmd.Slot]
	if s == nil || !s.record.Usable() {
		return
	}
	if p, inFlight := r.pending[cmd.Slot]; inFlight && p.Delta.Equal(cmd.Delta) {
		nuts.L.Debugf("[Gateway] Rule %s: %v already in flight to %s", cmd.Rule, cmd.Delta, cmd.Slot)
		return
	}
	target := *s.record.Resource
	issued := models.Command{
		RequestID: nuts.NID("cmd", 12),
		Slot:      cmd.Slot,
		URI:       target.URI,
		Rule:      cmd.Rule,
		Delta:     cmd.Delta.Clone(),
		IssuedAt:  time.Now().UTC(),
	}
	r.pending[cmd.Slot] = issued
	nuts.L.Infof("[Gateway] Rule %s: PUT %s%s %v", cmd.Rule, target.Host, target.URI, cmd.Delta)

	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, r.opts.RequestTimeout)
		defer cancel()
		rep, err := r.client.Put(ctx, target, issued.Delta)
		r.loop.Post(func() { r.onCommandAck(issued, rep, err) })
	}()
}

func (r *Registry) onCommandAck(cmd models.Command, rep models.Representation, err error) {
	if p, ok := r.pending[cmd.Slot]; ok && p.RequestID == cmd.RequestID {
		delete(r.pending, cmd.Slot)
	}
	if err != nil {
		nuts.L.Warnf("[Gateway] Rule %s command %s to %s failed: %v", cmd.Rule, cmd.RequestID, cmd.URI, err)
		r.emit(EventRuleCommand, CommandResult{Command: cmd, OK: false, Err: err})
		return
	}
	if len(rep) == 0 {
		rep = cmd.Delta
	}
	r.updateShadow(rep)
	r.emit(EventRuleCommand, CommandResult{Command: cmd, OK: true})
}
