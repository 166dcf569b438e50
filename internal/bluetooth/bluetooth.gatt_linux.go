//go:build linux

// FilePath: internal/bluetooth/bluetooth.gatt_linux.go
package bluetooth

import (
	"context"
	"fmt"
	"sync"

	"github.com/paypal/gatt"
	nuts "github.com/vaudience/go-nuts"
)

var (
	heartRateService     = gatt.UUID16(0x180D)
	heartRateMeasurement = gatt.UUID16(0x2A37)
)

// GattSource connects to the first heart rate monitor it sees and streams its
// measurements. It reconnects by scanning again after a disconnect.
type GattSource struct {
	deviceID int

	mu        sync.Mutex
	ctx       context.Context
	queue     *Queue
	connected string
}

// NewGattSource uses HCI device hciN.
func NewGattSource(deviceID int) (Source, error) {
	return &GattSource{deviceID: deviceID}, nil
}

// Run implements Source.
func (s *GattSource) Run(ctx context.Context, q *Queue) error {
	d, err := gatt.NewDevice(gatt.LnxDeviceID(s.deviceID, false))
	if err != nil {
		return fmt.Errorf("failed to open HCI device %d: %w", s.deviceID, err)
	}
	s.mu.Lock()
	s.ctx = ctx
	s.queue = q
	s.mu.Unlock()

	d.Handle(
		gatt.PeripheralDiscovered(s.onDiscovered),
		gatt.PeripheralConnected(s.onConnected),
		gatt.PeripheralDisconnected(s.onDisconnected),
	)
	if err := d.Init(s.onStateChanged); err != nil {
		return fmt.Errorf("failed to init HCI device %d: %w", s.deviceID, err)
	}
	nuts.L.Infof("[Bluetooth] Scanning for heart rate monitors on hci%d", s.deviceID)

	<-ctx.Done()
	d.StopScanning()
	s.mu.Lock()
	addr := s.connected
	s.mu.Unlock()
	if addr != "" {
		pushCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-q.closed
			cancel()
		}()
		_ = q.Push(pushCtx, Event{Kind: Disconnected, Address: addr})
	}
	return nil
}

func (s *GattSource) onStateChanged(d gatt.Device, state gatt.State) {
	nuts.L.Infof("[Bluetooth] Adapter state: %s", state)
	switch state {
	case gatt.StatePoweredOn:
		d.Scan([]gatt.UUID{heartRateService}, false)
	default:
		d.StopScanning()
	}
}

func (s *GattSource) onDiscovered(p gatt.Peripheral, a *gatt.Advertisement, rssi int) {
	advertised := false
	for _, u := range a.Services {
		if u.Equal(heartRateService) {
			advertised = true
			break
		}
	}
	if !advertised {
		return
	}
	s.mu.Lock()
	busy := s.connected != ""
	s.mu.Unlock()
	if busy {
		return
	}
	nuts.L.Infof("[Bluetooth] Found heart rate monitor %s (%s), rssi %d", p.ID(), p.Name(), rssi)
	p.Device().StopScanning()
	p.Device().Connect(p)
}

func (s *GattSource) onConnected(p gatt.Peripheral, err error) {
	if err != nil {
		nuts.L.Warnf("[Bluetooth] Connect to %s failed: %v", p.ID(), err)
		p.Device().Scan([]gatt.UUID{heartRateService}, false)
		return
	}
	s.mu.Lock()
	s.connected = p.ID()
	s.mu.Unlock()
	s.push(Event{Kind: Connected, Address: p.ID()})

	if err := s.subscribe(p); err != nil {
		nuts.L.Warnf("[Bluetooth] %s: %v", p.ID(), err)
		p.Device().CancelConnection(p)
	}
}

func (s *GattSource) subscribe(p gatt.Peripheral) error {
	services, err := p.DiscoverServices([]gatt.UUID{heartRateService})
	if err != nil {
		return fmt.Errorf("failed to discover services: %w", err)
	}
	for _, svc := range services {
		if !svc.UUID().Equal(heartRateService) {
			continue
		}
		chars, err := p.DiscoverCharacteristics([]gatt.UUID{heartRateMeasurement}, svc)
		if err != nil {
			return fmt.Errorf("failed to discover characteristics: %w", err)
		}
		for _, c := range chars {
			if !c.UUID().Equal(heartRateMeasurement) {
				continue
			}
			// The CCCD has to be known before notifications can be enabled.
			if _, err := p.DiscoverDescriptors(nil, c); err != nil {
				return fmt.Errorf("failed to discover descriptors: %w", err)
			}
			addr := p.ID()
			return p.SetNotifyValue(c, func(_ *gatt.Characteristic, b []byte, err error) {
				if err != nil {
					nuts.L.Warnf("[Bluetooth] %s: notification error: %v", addr, err)
					return
				}
				hr, ok := ParseHeartRate(b)
				if !ok {
					return
				}
				s.push(Event{Kind: Measurement, Address: addr, HeartRate: hr})
			})
		}
	}
	return fmt.Errorf("heart rate measurement characteristic not found")
}

func (s *GattSource) onDisconnected(p gatt.Peripheral, err error) {
	nuts.L.Infof("[Bluetooth] %s disconnected: %v", p.ID(), err)
	s.mu.Lock()
	was := s.connected == p.ID()
	if was {
		s.connected = ""
	}
	s.mu.Unlock()
	if was {
		s.push(Event{Kind: Disconnected, Address: p.ID()})
	}
	p.Device().Scan([]gatt.UUID{heartRateService}, false)
}

func (s *GattSource) push(ev Event) {
	s.mu.Lock()
	ctx, q := s.ctx, s.queue
	s.mu.Unlock()
	if err := q.Push(ctx, ev); err != nil {
		nuts.L.Warnf("[Bluetooth] Dropping %s event: %v", ev.Kind, err)
	}
}
