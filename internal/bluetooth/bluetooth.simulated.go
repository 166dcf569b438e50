// FilePath: internal/bluetooth/bluetooth.simulated.go
package bluetooth

import (
	"context"
	"time"

	nuts "github.com/vaudience/go-nuts"
)

// SimulatedSource replays a heart rate series as if a strap were connected.
// With Cycle set it keeps repeating the series, otherwise it disconnects at the end.
type SimulatedSource struct {
	Address  string
	Interval time.Duration
	Rates    []int
	Cycle    bool
}

// NewSimulatedSource returns a source that cycles through a calm-to-excited series.
func NewSimulatedSource(address string, interval time.Duration) *SimulatedSource {
	return &SimulatedSource{
		Address:  address,
		Interval: interval,
		Rates:    []int{72, 78, 85, 92, 99, 104, 97, 88, 80},
		Cycle:    true,
	}
}

// Run implements Source.
func (s *SimulatedSource) Run(ctx context.Context, q *Queue) error {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Second
	}
	nuts.L.Infof("[Bluetooth] Simulated heart rate monitor %s connected", s.Address)
	if err := q.Push(ctx, Event{Kind: Connected, Address: s.Address}); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; ; i++ {
		if i == len(s.Rates) {
			if !s.Cycle || len(s.Rates) == 0 {
				break
			}
			i = 0
		}
		select {
		case <-ctx.Done():
			return s.disconnect(q)
		case <-ticker.C:
		}
		if err := q.Push(ctx, Event{Kind: Measurement, Address: s.Address, HeartRate: s.Rates[i]}); err != nil {
			return s.disconnect(q)
		}
	}
	return s.disconnect(q)
}

func (s *SimulatedSource) disconnect(q *Queue) error {
	nuts.L.Infof("[Bluetooth] Simulated heart rate monitor %s disconnected", s.Address)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return q.Push(ctx, Event{Kind: Disconnected, Address: s.Address})
}
