// FilePath: internal/gateway/gateway.events.go
package gateway

import (
	"time"

	"github.com/eval-printer/SmartHome-Demo/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// Events emitted by the registry.
const (
	EventSensorAdded    = "sensor.added"
	EventSensorInactive = "sensor.inactive"
	EventSensorRemoved  = "sensor.removed"
	EventSensorObserved = "sensor.observed"
	EventRuleCommand    = "rule.command"
	EventRulesChanged   = "rules.changed"
)

// SensorEvent describes a change of the registered sensor map.
type SensorEvent struct {
	Name    string
	Address string
}

// Observation is one notification received from an observed child resource.
type Observation struct {
	Slot       string
	URI        string
	State      models.Representation
	ObservedAt time.Time
}

// CommandResult reports the outcome of an actuator command issued by a rule.
type CommandResult struct {
	Command models.Command
	OK      bool
	Err     error
}

// OnSensorEvent registers a callback for sensor.added, sensor.inactive or sensor.removed.
func (r *Registry) OnSensorEvent(event, handlerID string, handler func(SensorEvent)) {
	r.on(event, handlerID, handler)
}

// OnObservation registers a callback for every observation the registry receives.
func (r *Registry) OnObservation(handlerID string, handler func(Observation)) {
	r.on(EventSensorObserved, handlerID, handler)
}

// OnCommand registers a callback for acknowledged or failed rule commands.
func (r *Registry) OnCommand(handlerID string, handler func(CommandResult)) {
	r.on(EventRuleCommand, handlerID, handler)
}

// OnRulesChanged registers a callback for accepted rule configuration updates.
func (r *Registry) OnRulesChanged(handlerID string, handler func(models.RuleConfig)) {
	r.on(EventRulesChanged, handlerID, handler)
}

// on registers a typed listener. The emitter matches arguments by type, so the
// handler must take exactly the emitted value.
func (r *Registry) on(event, handlerID string, handler interface{}) {
	if _, err := r.events.On(event, handlerID, handler); err != nil {
		nuts.L.Errorf("[Gateway] Failed to register %s handler %s: %v", event, handlerID, err)
	}
}

// emit runs the listeners of event synchronously on the calling goroutine.
func (r *Registry) emit(event string, arg interface{}) {
	if err := r.events.Emit(event, arg); err != nil {
		nuts.L.Errorf("[Gateway] Failed to emit %s: %v", event, err)
	}
}
