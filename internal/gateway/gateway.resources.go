// FilePath: internal/gateway/gateway.resources.go
package gateway

import (
	"context"

	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/resource"
	nuts "github.com/vaudience/go-nuts"
)

// newSensorsResource builds /gw/sensor. A PUT of {name, address} appends the entry
// right away so the response already shows it; the loop then takes over.
func (r *Registry) newSensorsResource() *resource.ObservableResource {
	return resource.New(models.URISensors, resource.SensorsSchema, models.Representation{}, r.host, r.loop,
		resource.WithPresenceInterval(r.opts.PresenceInterval),
		resource.WithApplier(func(state, delta models.Representation) models.Representation {
			name, _ := delta.String(models.AttrName)
			address, _ := delta.String(models.AttrAddress)
			if name == "" || address == "" {
				nuts.L.Warnf("[Gateway] Ignoring sensor registration without name or address: %v", delta)
				return nil
			}
			state[name] = address
			return models.Representation{models.AttrName: name, models.AttrAddress: address}
		}),
		resource.WithPutHook(func(applied models.Representation) {
			name, _ := applied.String(models.AttrName)
			address, _ := applied.String(models.AttrAddress)
			r.loop.Post(func() { r.handleRegistration(name, address) })
		}),
	)
}

// newRulesResource builds /gw/rul.
func (r *Registry) newRulesResource() *resource.ObservableResource {
	return resource.New(models.URIRules, resource.RulesSchema, r.ruleCfg.Representation(), r.host, r.loop,
		resource.WithPresenceInterval(r.opts.PresenceInterval),
		resource.WithPutHook(func(applied models.Representation) {
			delta := applied.Clone()
			r.loop.Post(func() { r.updateRules(delta) })
		}),
	)
}

// newConfigResource builds /gw/con. It only stores what it is given.
func (r *Registry) newConfigResource() *resource.ObservableResource {
	var cfg *resource.ObservableResource
	cfg = resource.New(models.URIConfig, resource.ConfigSchema, models.DefaultGatewayConfig().Representation(), r.host, r.loop,
		resource.WithPresenceInterval(r.opts.PresenceInterval),
		resource.WithPutHook(func(applied models.Representation) {
			nuts.L.Infof("[Gateway] Gateway config updated: %v", applied)
			r.loop.Post(func() {
				if err := cfg.Notify(); err != nil {
					nuts.L.Warnf("[Gateway] Failed to notify %s observers: %v", models.URIConfig, err)
				}
			})
		}),
	)
	return cfg
}

// updateRules merges an accepted /gw/rul delta into the current rules on the loop.
// A delta that changes nothing is not persisted.
func (r *Registry) updateRules(delta models.Representation) {
	merged := r.ruleCfg.Representation()
	merged.Merge(delta)
	cfg := models.RuleConfigFrom(merged)
	if cfg == r.ruleCfg {
		nuts.L.Debugf("[Gateway] Rules unchanged by %v", delta)
		r.rules.Replace(cfg.Representation())
		return
	}
	r.applyRules(cfg, true)
}

// applyRules runs on the loop.
func (r *Registry) applyRules(cfg models.RuleConfig, persist bool) {
	r.ruleCfg = cfg
	r.rules.Replace(cfg.Representation())
	nuts.L.Infof("[Gateway] Rules: density=%d heartRate=%d kitchenMonitor=%t crazyJumping=%t",
		cfg.Density, cfg.HeartRate, cfg.KitchenMonitor, cfg.CrazyJumping)
	r.emit(EventRulesChanged, cfg)

	if persist && r.opts.Rules != nil {
		go func() {
			ctx, cancel := context.WithTimeout(r.ctx, r.opts.RequestTimeout)
			defer cancel()
			if err := r.opts.Rules.Save(ctx, cfg); err != nil {
				nuts.L.Errorf("[Gateway] Failed to persist rules: %v", err)
			}
		}()
	}
	if err := r.rules.Notify(); err != nil {
		nuts.L.Warnf("[Gateway] Failed to notify %s observers: %v", models.URIRules, err)
	}
}

// publishSensors replaces the /gw/sensor state with the listed slots and notifies
// its observers once.
func (r *Registry) publishSensors() {
	rep := models.Representation{}
	for name, s := range r.slots {
		if s.listed {
			rep[name] = s.record.Address
		}
	}
	r.sensors.Replace(rep)
	if err := r.sensors.Notify(); err != nil {
		nuts.L.Warnf("[Gateway] Failed to notify %s observers: %v", models.URISensors, err)
	}
}
