// FilePath: internal/devices/devices.pin.go
package devices

import (
	"math/rand"
	"sync"

	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

// Pin is a single hardware channel: an analog input, a digital input or an output.
type Pin interface {
	Read() int
	Write(v int)
}

// SimulatedPin stands in for hardware. An optional next function evolves the
// value on every Read.
type SimulatedPin struct {
	mu    sync.Mutex
	value int
	next  func(int) int
}

// NewSimulatedPin returns a pin holding initial.
func NewSimulatedPin(initial int) *SimulatedPin {
	return &SimulatedPin{value: initial}
}

// NewDriftingPin returns a pin that random-walks between lo and hi by up to step per read.
func NewDriftingPin(initial, lo, hi, step int, rng *rand.Rand) *SimulatedPin {
	p := NewSimulatedPin(initial)
	p.next = func(v int) int {
		v += rng.Intn(2*step+1) - step
		if v < lo {
			v = lo
		}
		if v > hi {
			v = hi
		}
		return v
	}
	return p
}

// NewTogglingPin returns a digital pin that flips with probability p on every read.
func NewTogglingPin(p float64, rng *rand.Rand) *SimulatedPin {
	pin := NewSimulatedPin(0)
	pin.next = func(v int) int {
		if rng.Float64() < p {
			return 1 - v
		}
		return v
	}
	return pin
}

// Read implements Pin.
func (p *SimulatedPin) Read() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.next != nil {
		p.value = p.next(p.value)
	}
	return p.value
}

// Write implements Pin.
func (p *SimulatedPin) Write(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = v
}

// Value returns the current value without evolving it.
func (p *SimulatedPin) Value() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// SimulatedPinFor returns a pin that behaves plausibly for the device kind:
// drifting gas density, occasional motion, idle actuators.
func SimulatedPinFor(kindName string, rng *rand.Rand) *SimulatedPin {
	switch kindName {
	case KindGas:
		return NewDriftingPin(40, 20, 120, 6, rng)
	case KindPIR:
		return NewTogglingPin(0.1, rng)
	case KindLED:
		return NewSimulatedPin(models.ColorBlue)
	default:
		return NewSimulatedPin(0)
	}
}
