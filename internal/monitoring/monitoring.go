package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	nuts "github.com/vaudience/go-nuts"
)

const namespace = "smarthome"

// Service provides monitoring functionality
type Service struct {
	registry *prometheus.Registry

	events          *prometheus.CounterVec
	observations    *prometheus.CounterVec
	sensorActive    *prometheus.GaugeVec
	ruleCommands    *prometheus.CounterVec
	presenceNotices *prometheus.CounterVec
}

// NewService creates a new monitoring service with its own registry
func NewService() *Service {
	s := &Service{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "events_total",
			Help:      "Registry lifecycle events",
		}, []string{"event"}),
		observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "observations_total",
			Help:      "Notifications received from observed sensors",
		}, []string{"slot"}),
		sensorActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "sensor_active",
			Help:      "1 while a sensor slot is observed and live",
		}, []string{"slot"}),
		ruleCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "commands_total",
			Help:      "Actuator commands issued by automation rules",
		}, []string{"rule", "result"}),
		presenceNotices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resource",
			Name:      "notifications_total",
			Help:      "Notifications pushed to observers of local resources",
		}, []string{"uri"}),
	}
	s.registry.MustRegister(
		s.events,
		s.observations,
		s.sensorActive,
		s.ruleCommands,
		s.presenceNotices,
		collectors.NewGoCollector(),
	)
	return s
}

// RecordEvent records a monitored event with labels
func (s *Service) RecordEvent(eventName string, labels map[string]string) {
	s.events.WithLabelValues(eventName).Inc()
	nuts.L.Debugf("[Monitoring] Event %s recorded with labels: %v", eventName, labels)
}

// RecordObservation counts one notification from the sensor in slot
func (s *Service) RecordObservation(slot string) {
	s.observations.WithLabelValues(slot).Inc()
}

// SetSensorActive publishes the liveness of a slot
func (s *Service) SetSensorActive(slot string, active bool) {
	v := 0.0
	if active {
		v = 1
	}
	s.sensorActive.WithLabelValues(slot).Set(v)
}

// RecordRuleCommand counts an actuator command and whether it was acknowledged
func (s *Service) RecordRuleCommand(rule string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	s.ruleCommands.WithLabelValues(rule, result).Inc()
}

// RecordNotification counts a notification pushed by a local resource
func (s *Service) RecordNotification(uri string) {
	s.presenceNotices.WithLabelValues(uri).Inc()
}

// Registry exposes the underlying registry, mainly for tests
func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
