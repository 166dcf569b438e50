package server

import (
	"context"
	"fmt"

	"github.com/eval-printer/SmartHome-Demo/internal/config"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/monitoring"
	redisrepo "github.com/eval-printer/SmartHome-Demo/internal/repository/redis"
	"github.com/eval-printer/SmartHome-Demo/internal/transport"
	"github.com/eval-printer/SmartHome-Demo/internal/transport/loopback"
	"github.com/eval-printer/SmartHome-Demo/internal/transport/rest"
	nuts "github.com/vaudience/go-nuts"
)

// meteredHost counts notifications that reached at least one observer
type meteredHost struct {
	transport.Host
	monitoring *monitoring.Service
}

func (h meteredHost) Notify(uri string, observers []models.ObservationID, rep models.Representation) error {
	err := h.Host.Notify(uri, observers, rep)
	if err == nil {
		h.monitoring.RecordNotification(uri)
	}
	return err
}

// buildTransport sets up host, client and directory for the configured mode.
// Loopback mode keeps the whole home in this process; its host is created per
// component by startDemo.
func (s *Server) buildTransport(ctx context.Context) error {
	cfg := s.config
	if cfg.Transport.Mode == config.TransportLoopback {
		network := loopback.NewNetwork()
		s.client = network
		s.directory = network
		s.network = network
		nuts.L.Infof("[Server] Using the in-process loopback network")
		return nil
	}

	s.restHost = rest.NewHost(cfg.Server.AdvertiseAddress)
	s.host = meteredHost{Host: s.restHost, monitoring: s.monitoring}
	client := rest.NewClient(cfg.Gateway.RequestTimeout)
	s.client = client

	switch cfg.Transport.Directory {
	case config.DirectoryRedis:
		rdb, err := redisrepo.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.closers = append(s.closers, rdb.Close)
		s.directory = redisrepo.NewDirectory(rdb)
		nuts.L.Infof("[Server] Using the redis resource directory at %s:%d", cfg.Redis.Host, cfg.Redis.Port)
	default:
		s.directory = rest.NewPeerDirectory(client, cfg.Transport.Peers)
		nuts.L.Infof("[Server] Discovering resources on %d peers", len(cfg.Transport.Peers))
	}
	return nil
}
