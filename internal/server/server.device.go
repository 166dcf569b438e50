package server

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/devices"
	"github.com/eval-printer/SmartHome-Demo/internal/transport"
)

// startDevice runs a single simulated device program on the configured host
func (s *Server) startDevice(ctx context.Context, kind string) error {
	return s.startDeviceOn(ctx, kind, s.config.Device.Name, s.host, rand.New(rand.NewSource(time.Now().UnixNano())))
}

func (s *Server) startDeviceOn(ctx context.Context, kind, name string, host transport.Host, rng *rand.Rand) error {
	cfg := s.config
	d, err := devices.New(kind, devices.SimulatedPinFor(kind, rng), s.loop, host, s.client, s.directory, devices.Options{
		Name:             name,
		GatewayAddress:   cfg.Device.GatewayAddress,
		SampleInterval:   cfg.Device.SampleInterval,
		PresenceInterval: cfg.Gateway.PresenceInterval,
		RequestTimeout:   cfg.Gateway.RequestTimeout,
		RegisterAttempts: cfg.Device.RegisterAttempts,
		RegisterDelay:    cfg.Device.RegisterDelay,
	})
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("device %s: %w", kind, err)
	}
	s.devices = append(s.devices, d)
	s.monitoring.RecordEvent("device_started", map[string]string{"kind": kind})
	return nil
}

// startDemo runs the gateway and one device of every kind on the loopback
// network, so the whole home runs in a single process.
func (s *Server) startDemo(ctx context.Context) error {
	gatewayHost := meteredHost{Host: s.network.Host("gateway"), monitoring: s.monitoring}
	if err := s.startGatewayOn(ctx, gatewayHost); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, kind := range devices.Kinds() {
		host := meteredHost{Host: s.network.Host(kind), monitoring: s.monitoring}
		if err := s.startDeviceOn(ctx, kind, "", host, rng); err != nil {
			return err
		}
	}
	nuts.L.Infof("[Server] Demo home running with %d devices", len(s.devices))
	return nil
}
