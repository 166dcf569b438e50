// FilePath: internal/devices/devices.kinds.go
package devices

import (
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/resource"
)

// Device kinds.
const (
	KindFan = "fan"
	KindGas = "gas"
	KindPIR = "pir"
	KindLED = "led"
)

// kind describes how one device type maps its pin to its resource.
type kind struct {
	uri    string
	name   string
	schema resource.Schema
	// sample converts a pin reading into the resource representation. Nil for actuators.
	sample func(v int) models.Representation
	// actuate converts an accepted PUT into a pin value. Nil for sensors.
	actuate func(applied models.Representation) (int, bool)
	initial func(v int) models.Representation
}

var kinds = map[string]kind{
	KindFan: {
		uri:    models.URIFan,
		name:   models.SlotFan,
		schema: resource.FanSchema,
		actuate: func(applied models.Representation) (int, bool) {
			state, ok := applied.String(models.AttrFanState)
			if !ok {
				return 0, false
			}
			if state == models.FanOn {
				return 1, true
			}
			return 0, true
		},
		initial: func(v int) models.Representation {
			state := models.FanOff
			if v != 0 {
				state = models.FanOn
			}
			return models.Representation{models.AttrFanState: state}
		},
	},
	KindGas: {
		uri:    models.URIGas,
		name:   models.SlotGas,
		schema: resource.GasSchema,
		sample: func(v int) models.Representation {
			return models.Representation{models.AttrDensity: v}
		},
	},
	KindPIR: {
		uri:    models.URIMotion,
		name:   models.SlotMotion,
		schema: resource.MotionSchema,
		sample: func(v int) models.Representation {
			return models.Representation{models.AttrMotion: v != 0}
		},
	},
	KindLED: {
		uri:    models.URILed,
		name:   models.SlotLed,
		schema: resource.LedSchema,
		actuate: func(applied models.Representation) (int, bool) {
			return applied.Int(models.AttrLedColor)
		},
		initial: func(v int) models.Representation {
			return models.Representation{models.AttrLedColor: v}
		},
	},
}

// Kinds lists the supported device kinds.
func Kinds() []string {
	return []string{KindFan, KindGas, KindPIR, KindLED}
}
