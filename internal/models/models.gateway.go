// FilePath: internal/models/models.gateway.go
package models

import "time"

// Resource URIs.
const (
	URIFan          = "/a/fan"
	URIGas          = "/sensor/gas"
	URIMotion       = "/sensor/pri"
	URILed          = "/led_edison"
	URILedChainable = "/intel/chainable_led_edison"
	URIHeartRate    = "/sensor/heartrate"
	URISensors      = "/gw/sensor"
	URIRules        = "/gw/rul"
	URIConfig       = "/gw/con"
)

// Resource types.
const (
	TypeFan       = "intel.fan"
	TypeGas       = "intel.gas"
	TypeMotion    = "intel.pir"
	TypeIntel     = "com.intel"
	TypeSensors   = "gw.sensor"
	TypeRules     = "gw.rule"
	TypeConfig    = "gw.config"
	InterfaceBase = "oic.if.baseline"
)

// Attribute names.
const (
	AttrFanState       = "fanstate"
	AttrDensity        = "density"
	AttrMotion         = "motion"
	AttrLedColor       = "ledColor"
	AttrLedState       = "ledState"
	AttrAddress        = "address"
	AttrHeartRate      = "heartRate"
	AttrName           = "name"
	AttrKitchenMonitor = "kitchenMonitor"
	AttrCrazyJumping   = "crazyJumping"
)

// Slot names used in the gateway sensor map.
const (
	SlotGas       = "gas"
	SlotFan       = "fan"
	SlotLed       = "led"
	SlotMotion    = "pri"
	SlotHeartRate = "heartRate"
)

// Fan states.
const (
	FanOn  = "on"
	FanOff = "off"
)

// LED colors.
const (
	ColorRed   = 9
	ColorBlue  = 10
	ColorGreen = 11
)

// Timing constants of the gateway liveness cycle and presence notifications.
const (
	DefaultTimeout = 5 * time.Second
	ActiveInterval = 4 * time.Second
	PresenceCycle  = 2 * time.Second
	SampleInterval = 1500 * time.Millisecond
)

// SlotForURI maps a resource URI to the gateway slot that tracks it.
func SlotForURI(uri string) (string, bool) {
	switch uri {
	case URIGas:
		return SlotGas, true
	case URIFan:
		return SlotFan, true
	case URILed, URILedChainable:
		return SlotLed, true
	case URIMotion:
		return SlotMotion, true
	case URIHeartRate:
		return SlotHeartRate, true
	}
	return "", false
}

// SensorRecord is the gateway's bookkeeping for one registered child sensor.
// Resource is nil while the sensor is not observed.
type SensorRecord struct {
	Name     string        `json:"name"`
	Address  string        `json:"address"`
	Resource *ResourceInfo `json:"resource,omitempty"`
	Active   bool          `json:"active"`
}

// Usable reports whether the record is live and points at a resource.
func (s *SensorRecord) Usable() bool {
	return s != nil && s.Active && s.Resource != nil
}

// RuleConfig holds the automation thresholds and enable flags.
type RuleConfig struct {
	Density        int  `json:"density" db:"density"`
	HeartRate      int  `json:"heartRate" db:"heart_rate"`
	KitchenMonitor bool `json:"kitchenMonitor" db:"kitchen_monitor"`
	CrazyJumping   bool `json:"crazyJumping" db:"crazy_jumping"`
}

// DefaultRuleConfig returns the rule configuration a fresh gateway starts with.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		Density:        70,
		HeartRate:      95,
		KitchenMonitor: false,
		CrazyJumping:   false,
	}
}

// Representation renders the rule configuration as a resource representation.
func (c RuleConfig) Representation() Representation {
	return Representation{
		AttrDensity:        c.Density,
		AttrHeartRate:      c.HeartRate,
		AttrKitchenMonitor: c.KitchenMonitor,
		AttrCrazyJumping:   c.CrazyJumping,
	}
}

// RuleConfigFrom reads a rule configuration back from a representation, keeping
// defaults for absent attributes.
func RuleConfigFrom(rep Representation) RuleConfig {
	cfg := DefaultRuleConfig()
	if v, ok := rep.Int(AttrDensity); ok {
		cfg.Density = v
	}
	if v, ok := rep.Int(AttrHeartRate); ok {
		cfg.HeartRate = v
	}
	if v, ok := rep.Bool(AttrKitchenMonitor); ok {
		cfg.KitchenMonitor = v
	}
	if v, ok := rep.Bool(AttrCrazyJumping); ok {
		cfg.CrazyJumping = v
	}
	return cfg
}

// GatewayConfig is the published /gw/con state.
type GatewayConfig struct {
	LedState bool `json:"ledState"`
	LedColor int  `json:"ledColor"`
}

// DefaultGatewayConfig returns the initial /gw/con state.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{LedState: false, LedColor: ColorBlue}
}

// Representation renders the gateway configuration.
func (c GatewayConfig) Representation() Representation {
	return Representation{
		AttrLedState: c.LedState,
		AttrLedColor: c.LedColor,
	}
}
