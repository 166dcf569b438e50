package server

import (
	"context"
	"fmt"
	"time"

	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/bluetooth"
	"github.com/eval-printer/SmartHome-Demo/internal/cleanup"
	"github.com/eval-printer/SmartHome-Demo/internal/config"
	"github.com/eval-printer/SmartHome-Demo/internal/database"
	"github.com/eval-printer/SmartHome-Demo/internal/events"
	"github.com/eval-printer/SmartHome-Demo/internal/gateway"
	"github.com/eval-printer/SmartHome-Demo/internal/hubservice"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/repository/postgres"
	"github.com/eval-printer/SmartHome-Demo/internal/transport"
)

const (
	bluetoothQueueSize = 64
	recordTimeout      = 5 * time.Second
	simulatedStrap     = "00:1A:7D:DA:71:13"
)

// startGateway wires the registry to persistence, the event fan-out, metrics
// and the heart rate strap, then starts it on host.
func (s *Server) startGateway(ctx context.Context) error {
	return s.startGatewayOn(ctx, s.host)
}

func (s *Server) startGatewayOn(ctx context.Context, host transport.Host) error {
	svc, err := s.initializeHubService(ctx)
	if err != nil {
		return err
	}
	s.hubservice = svc

	gw := s.config.Gateway
	opts := gateway.Options{
		StationID:        gw.StationID,
		ResetTimeout:     gw.ResetTimeout,
		ActiveInterval:   gw.ActiveInterval,
		PresenceInterval: gw.PresenceInterval,
		RequestTimeout:   gw.RequestTimeout,
	}
	if svc.Rules != nil {
		opts.Rules = svc.Rules
	}
	s.registry = gateway.New(s.loop, host, s.client, s.directory, opts)
	s.recorder = newRecorder(recordQueueSize, recordTimeout)
	go s.recorder.run(s.ctx)
	s.setupEventHandlers()

	if err := s.registry.Start(ctx); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}
	nuts.L.Infof("[Server] Gateway %s started", gw.StationID)

	s.startBluetooth(ctx)
	s.startCleanup(ctx)
	return nil
}

// initializeHubService connects the optional database and broker. Without a
// database host the gateway keeps everything in memory.
func (s *Server) initializeHubService(ctx context.Context) (*hubservice.HubService, error) {
	publisher, err := events.NewPublisher(s.config.AMQP)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}
	s.closers = append(s.closers, publisher.Close)

	if s.config.Database.Postgres.Host == "" {
		nuts.L.Infof("[Server] No database configured, readings and rules are not persisted")
		svc := hubservice.New(nil, nil, nil, nil, publisher, s.config.Gateway.StationID)
		return svc, svc.Validate()
	}

	db, err := initAppDB(ctx, s.config.Database.Postgres)
	if err != nil {
		return nil, err
	}
	s.db = db
	s.closers = append(s.closers, db.Close)

	svc := hubservice.New(
		postgres.NewReadingRepository(db),
		postgres.NewRuleRepository(db),
		postgres.NewCommandRepository(db),
		postgres.NewSensorRepository(db),
		publisher,
		s.config.Gateway.StationID,
	)
	return svc, svc.Validate()
}

func initAppDB(ctx context.Context, cfg config.PostgresConfig) (database.DB, error) {
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := database.Migrate(pingCtx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// setupEventHandlers maps registry and cleanup events onto logging, metrics
// and the service layer. Registry events arrive on the event loop, so storage
// and broker writes go through the recorder.
func (s *Server) setupEventHandlers() {
	s.registry.OnSensorEvent(gateway.EventSensorAdded, "server_sensor_added", func(ev gateway.SensorEvent) {
		nuts.L.Infof("[Gateway] Sensor %s registered at %s", ev.Name, ev.Address)
		s.monitoring.RecordEvent("sensor_added", map[string]string{"slot": ev.Name})
		s.monitoring.SetSensorActive(ev.Name, true)
		s.recordLiveness(ev, true)
	})

	s.registry.OnSensorEvent(gateway.EventSensorInactive, "server_sensor_inactive", func(ev gateway.SensorEvent) {
		nuts.L.Warnf("[Gateway] Sensor %s went silent", ev.Name)
		s.monitoring.RecordEvent("sensor_inactive", map[string]string{"slot": ev.Name})
		s.monitoring.SetSensorActive(ev.Name, false)
		s.recordLiveness(ev, false)
	})

	s.registry.OnSensorEvent(gateway.EventSensorRemoved, "server_sensor_removed", func(ev gateway.SensorEvent) {
		nuts.L.Infof("[Gateway] Sensor %s removed", ev.Name)
		s.monitoring.RecordEvent("sensor_removed", map[string]string{"slot": ev.Name})
		s.monitoring.SetSensorActive(ev.Name, false)
		s.recordLiveness(ev, false)
	})

	s.registry.OnObservation("server_observation", func(obs gateway.Observation) {
		s.monitoring.RecordObservation(obs.Slot)
		s.recorder.submit("observation", func(ctx context.Context) {
			if err := s.hubservice.RecordObservation(ctx, obs.Slot, obs.URI, obs.State, obs.ObservedAt); err != nil {
				nuts.L.Warnf("[Gateway] Failed to record %s observation: %v", obs.Slot, err)
			}
		})
	})

	s.registry.OnCommand("server_command", func(res gateway.CommandResult) {
		s.monitoring.RecordRuleCommand(res.Command.Rule, res.OK)
		if !res.OK {
			nuts.L.Warnf("[Gateway] %s rule could not reach %s: %v", res.Command.Rule, res.Command.Slot, res.Err)
			return
		}
		cmd := res.Command
		s.recorder.submit("command", func(ctx context.Context) {
			if err := s.hubservice.RecordCommand(ctx, cmd); err != nil {
				nuts.L.Warnf("[Gateway] Failed to log command %s: %v", cmd.RequestID, err)
			}
		})
	})

	s.registry.OnRulesChanged("server_rules", func(cfg models.RuleConfig) {
		nuts.L.Infof("[Gateway] Rules changed: kitchenMonitor=%t density=%d crazyJumping=%t heartRate=%d",
			cfg.KitchenMonitor, cfg.Density, cfg.CrazyJumping, cfg.HeartRate)
		s.monitoring.RecordEvent("rules_changed", nil)
	})

	if s.hubservice.Cleanup == nil {
		return
	}
	s.hubservice.Cleanup.OnCleanup(cleanup.EventReadingsPruned, func(n int64) {
		nuts.L.Infof("[Cleanup] %d readings pruned", n)
		s.monitoring.RecordEvent("readings_pruned", nil)
	})
	s.hubservice.Cleanup.OnCleanup(cleanup.EventCommandsPruned, func(n int64) {
		nuts.L.Infof("[Cleanup] %d commands pruned", n)
		s.monitoring.RecordEvent("commands_pruned", nil)
	})
}

func (s *Server) recordLiveness(ev gateway.SensorEvent, active bool) {
	s.recorder.submit("liveness", func(ctx context.Context) {
		var err error
		if active {
			err = s.hubservice.SensorRegistered(ctx, ev.Name, ev.Address)
		} else {
			err = s.hubservice.SensorLiveness(ctx, ev.Name, false)
		}
		if err != nil {
			nuts.L.Warnf("[Gateway] Failed to store liveness of %s: %v", ev.Name, err)
		}
	})
}

// startBluetooth connects the heart rate strap, real or simulated, to the registry
func (s *Server) startBluetooth(ctx context.Context) {
	cfg := s.config.Bluetooth
	if !cfg.Enabled {
		return
	}

	var src bluetooth.Source
	if cfg.Simulate {
		addr := cfg.Address
		if addr == "" {
			addr = simulatedStrap
		}
		src = bluetooth.NewSimulatedSource(addr, time.Second)
	} else {
		gattSrc, err := bluetooth.NewGattSource(cfg.DeviceID)
		if err != nil {
			nuts.L.Errorf("[Server] Heart rate monitoring disabled: %v", err)
			return
		}
		src = gattSrc
	}

	q := bluetooth.NewQueue(bluetoothQueueSize)
	go bluetooth.Pump(ctx, q, s.loop, s.registry.HandleBluetooth)
	go func() {
		defer q.Close()
		if err := src.Run(ctx, q); err != nil && ctx.Err() == nil {
			nuts.L.Errorf("[Server] Heart rate source stopped: %v", err)
		}
	}()
}

// startCleanup prunes old readings and commands when retention is set
func (s *Server) startCleanup(ctx context.Context) {
	db := s.config.Database
	if s.hubservice.Cleanup == nil || db.Retention <= 0 {
		return
	}
	nuts.L.Infof("[Server] Keeping %s of history, pruning every %s", db.Retention, db.CleanupInterval)
	go s.hubservice.Cleanup.Run(ctx, db.CleanupInterval, db.Retention)
}
