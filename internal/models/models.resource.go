// FilePath: internal/models/models.resource.go
package models

import (
	"math"
	"sort"
	"strings"

	"github.com/segmentio/encoding/json"
)

// Kind is the value kind of a single representation attribute.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindBool   Kind = "bool"
)

// Representation is the attribute map of a resource as exchanged by GET, PUT and notifications.
type Representation map[string]any

// Has reports whether the attribute is present.
func (r Representation) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Int returns an integer attribute. Decoded JSON numbers are accepted when integral.
func (r Representation) Int(key string) (int, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	return toInt(v)
}

// Bool returns a boolean attribute.
func (r Representation) Bool(key string) (bool, bool) {
	v, ok := r[key].(bool)
	return v, ok
}

// String returns a string attribute.
func (r Representation) String(key string) (string, bool) {
	v, ok := r[key].(string)
	return v, ok
}

// Clone returns a shallow copy.
func (r Representation) Clone() Representation {
	out := make(Representation, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge copies every attribute of delta into r.
func (r Representation) Merge(delta Representation) {
	for k, v := range delta {
		r[k] = v
	}
}

// Equal reports whether both representations hold the same attributes and values.
func (r Representation) Equal(other Representation) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		o, ok := other[k]
		if !ok || o != v {
			return false
		}
	}
	return true
}

// Keys returns the attribute names in sorted order.
func (r Representation) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Coerce converts v to the given kind. The second result is false when v does not fit.
func Coerce(kind Kind, v any) (any, bool) {
	switch kind {
	case KindString:
		s, ok := v.(string)
		return s, ok
	case KindBool:
		b, ok := v.(bool)
		return b, ok
	case KindInt:
		return toInt(v)
	}
	return nil, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// ObservationID identifies one observer registration on a resource.
type ObservationID string

// ResourceInfo is the handle of a discovered or hosted resource.
type ResourceInfo struct {
	URI        string   `json:"uri"`
	Types      []string `json:"rt"`
	Interfaces []string `json:"if,omitempty"`
	Host       string   `json:"host"`
}

// HasType reports whether the resource advertises the given resource type.
func (i ResourceInfo) HasType(rt string) bool {
	for _, t := range i.Types {
		if t == rt {
			return true
		}
	}
	return false
}

// Key is the identity used by directories: host plus URI.
func (i ResourceInfo) Key() string {
	return strings.TrimSuffix(i.Host, "/") + i.URI
}
