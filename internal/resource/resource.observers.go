// FilePath: internal/resource/resource.observers.go
package resource

import (
	"sort"

	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

// ObserverSet is the set of observation IDs registered on a resource.
type ObserverSet struct {
	ids map[models.ObservationID]struct{}
}

// NewObserverSet creates an empty set.
func NewObserverSet() *ObserverSet {
	return &ObserverSet{ids: make(map[models.ObservationID]struct{})}
}

// Add inserts id and reports whether it was new.
func (s *ObserverSet) Add(id models.ObservationID) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether it was present.
func (s *ObserverSet) Remove(id models.ObservationID) bool {
	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	return true
}

// Len returns the number of observers.
func (s *ObserverSet) Len() int {
	return len(s.ids)
}

// Contains reports whether id is registered.
func (s *ObserverSet) Contains(id models.ObservationID) bool {
	_, ok := s.ids[id]
	return ok
}

// IDs returns the observers in a stable order.
func (s *ObserverSet) IDs() []models.ObservationID {
	out := make([]models.ObservationID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clear removes every observer.
func (s *ObserverSet) Clear() {
	s.ids = make(map[models.ObservationID]struct{})
}
