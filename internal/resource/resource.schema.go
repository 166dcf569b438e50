// FilePath: internal/resource/resource.schema.go
package resource

import (
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// Schema is the fixed attribute layout of one resource type.
type Schema struct {
	Type       string
	Interfaces []string
	Fields     map[string]models.Kind
	// Values restricts string fields to a fixed set
	Values map[string][]string
}

// Apply returns the subset of delta that fits the schema, coerced to the declared kinds.
// Unknown, mistyped or out-of-range attributes are skipped.
func (s Schema) Apply(uri string, delta models.Representation) models.Representation {
	applied := models.Representation{}
	for _, key := range delta.Keys() {
		kind, ok := s.Fields[key]
		if !ok {
			nuts.L.Warnf("[Resource] %s: ignoring unknown attribute %q", uri, key)
			continue
		}
		v, ok := models.Coerce(kind, delta[key])
		if !ok {
			nuts.L.Warnf("[Resource] %s: ignoring attribute %q, expected %s got %T", uri, key, kind, delta[key])
			continue
		}
		if allowed, ok := s.Values[key]; ok && !contains(allowed, v) {
			nuts.L.Warnf("[Resource] %s: ignoring attribute %q, %v is not one of %v", uri, key, v, allowed)
			continue
		}
		applied[key] = v
	}
	return applied
}

func contains(allowed []string, v any) bool {
	str, ok := v.(string)
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == str {
			return true
		}
	}
	return false
}

// Schemas of the resource types in the home network.
var (
	FanSchema = Schema{
		Type:   models.TypeFan,
		Fields: map[string]models.Kind{models.AttrFanState: models.KindString},
		Values: map[string][]string{models.AttrFanState: {models.FanOn, models.FanOff}},
	}
	GasSchema = Schema{
		Type:   models.TypeGas,
		Fields: map[string]models.Kind{models.AttrDensity: models.KindInt},
	}
	MotionSchema = Schema{
		Type:   models.TypeMotion,
		Fields: map[string]models.Kind{models.AttrMotion: models.KindBool},
	}
	LedSchema = Schema{
		Type:   models.TypeIntel,
		Fields: map[string]models.Kind{models.AttrLedColor: models.KindInt},
	}
	HeartRateSchema = Schema{
		Type: models.TypeIntel,
		Fields: map[string]models.Kind{
			models.AttrAddress:   models.KindString,
			models.AttrHeartRate: models.KindInt,
		},
	}
	RulesSchema = Schema{
		Type: models.TypeRules,
		Fields: map[string]models.Kind{
			models.AttrDensity:        models.KindInt,
			models.AttrHeartRate:      models.KindInt,
			models.AttrKitchenMonitor: models.KindBool,
			models.AttrCrazyJumping:   models.KindBool,
		},
	}
	ConfigSchema = Schema{
		Type: models.TypeConfig,
		Fields: map[string]models.Kind{
			models.AttrLedState: models.KindBool,
			models.AttrLedColor: models.KindInt,
		},
	}
	SensorsSchema = Schema{
		Type: models.TypeSensors,
		Fields: map[string]models.Kind{
			models.AttrName:    models.KindString,
			models.AttrAddress: models.KindString,
		},
	}
)
