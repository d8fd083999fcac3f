package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Odwa2003/Phone-Controller/internal/config"
	"github.com/Odwa2003/Phone-Controller/internal/models"
)

// EventSink receives telemetry events. Publish never blocks the caller on
// network I/O failures; errors are logged.
type EventSink interface {
	Publish(event models.Event)
	Close() error
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Publish(models.Event) {}
func (NopSink) Close() error         { return nil }

type NATSSink struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

// NewEventSink connects to NATS when NATS_URL is set, otherwise returns a NopSink.
func NewEventSink(cfg *config.Config, logger *zap.Logger) (EventSink, error) {
	if cfg.NatsURL == "" {
		return NopSink{}, nil
	}
	return NewNATSSink(cfg, logger)
}

func NewNATSSink(cfg *config.Config, logger *zap.Logger) (*NATSSink, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS server",
		zap.String("url", cfg.NatsURL),
		zap.String("subject", cfg.NatsEventSubject))

	return &NATSSink{
		conn:    conn,
		subject: cfg.NatsEventSubject,
		logger:  logger,
	}, nil
}

func (s *NATSSink) Publish(event models.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal event", zap.Error(err))
		return
	}

	// nats buffers while reconnecting, so this does not wait on the network.
	if err := s.conn.Publish(s.subject, data); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("kind", event.Kind), zap.Error(err))
	}
}

// Close flushes pending events and closes the connection
func (s *NATSSink) Close() error {
	if s.conn != nil {
		if err := s.conn.Drain(); err != nil {
			s.conn.Close()
		}
		s.logger.Info("NATS connection closed")
	}
	return nil
}
