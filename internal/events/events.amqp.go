// FilePath: internal/events/events.amqp.go
package events

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/segmentio/encoding/json"
	"github.com/streadway/amqp"
	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/config"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

// Publisher fans observations out to other systems.
type Publisher interface {
	Publish(ctx context.Context, update models.ObservationUpdate) error
	Close() error
}

// NopPublisher drops everything. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.ObservationUpdate) error { return nil }
func (NopPublisher) Close() error                                          { return nil }

var nonWord = regexp.MustCompile(`\W+`)

// RoutingKey builds "<station>.<observation type>". The station part is reduced
// to word characters so consumers can split on the first dot.
func RoutingKey(stationID, observationType string) string {
	station := nonWord.ReplaceAllString(stationID, "_")
	if station == "" {
		station = "home"
	}
	return station + "." + observationType
}

// AMQPPublisher publishes observation updates to a topic exchange.
type AMQPPublisher struct {
	config     config.AMQPConfig
	mu         sync.Mutex
	connection *amqp.Connection
	channel    *amqp.Channel
}

// NewPublisher returns an AMQP publisher when a DSN is configured, otherwise a NopPublisher.
func NewPublisher(cfg config.AMQPConfig) (Publisher, error) {
	if cfg.DSN == "" {
		return NopPublisher{}, nil
	}
	p := &AMQPPublisher{config: cfg}
	err := retry.Do(
		p.connect,
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.OnRetry(func(n uint, err error) {
			nuts.L.Warnf("[Publisher] AMQP connect attempt %d failed: %v", n+1, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("Publisher: %w", err)
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	var err error
	if p.config.TLS {
		p.connection, err = amqp.DialTLS(p.config.DSN, nil)
	} else {
		p.connection, err = amqp.Dial(p.config.DSN)
	}
	if err != nil {
		return err
	}

	p.channel, err = p.connection.Channel()
	if err != nil {
		p.connection.Close()
		return fmt.Errorf("failed to get Channel: %w", err)
	}

	err = p.channel.ExchangeDeclare(
		p.config.Exchange, // name
		"topic",           // kind
		true,              // durable
		false,             // autoDelete
		false,             // internal
		false,             // noWait
		nil,               // arguments
	)
	if err != nil {
		p.connection.Close()
		return fmt.Errorf("failed to declare Exchange %s: %w", p.config.Exchange, err)
	}

	nuts.L.Infof("[Publisher] Connected, publishing to exchange %s", p.config.Exchange)
	return nil
}

// Publish implements Publisher.
func (p *AMQPPublisher) Publish(_ context.Context, update models.ObservationUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode observation: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.Publish(
		p.config.Exchange,
		RoutingKey(update.StationID, update.ObservationType),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient,
			Timestamp:    update.MeasuredAt,
			Body:         body,
		},
	)
}

// Close implements Publisher.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connection == nil {
		return nil
	}
	if err := p.connection.Close(); err != nil {
		return fmt.Errorf("AMQP connection close error: %w", err)
	}
	nuts.L.Infof("[Publisher] shutdown OK")
	return nil
}
