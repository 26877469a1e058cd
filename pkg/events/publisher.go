// Package events publishes retention lifecycle events to NATS.
//
// Publication is best effort: a failed publish is returned to the caller,
// which logs it, and never changes the outcome of the operation that
// produced the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/config"

	"github.com/nats-io/nats.go"
)

// Subjects relative to the configured prefix.
const (
	SubjectCleanup      = "retention.cleanup"
	SubjectPolicyUpdate = "retention.policy"
)

// Publisher sends an event payload to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
	Close() error
}

// New builds the publisher described by cfg: a NATS publisher when events
// are enabled, a no-op publisher otherwise.
func New(cfg *config.EventsConfig, logger *slog.Logger) (Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(cfg, logger)
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() error { return nil }

// NATSPublisher publishes JSON events on core NATS subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// NewNATSPublisher connects to the configured NATS server.
func NewNATSPublisher(cfg *config.EventsConfig, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = config.DefaultEventsConnectTimeout
	}

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("alpr-dashboard"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}

	logger.Info("NATS event publisher connected",
		"url", cfg.NATSURL,
		"subject_prefix", cfg.SubjectPrefix,
	)

	return &NATSPublisher{
		conn:   conn,
		prefix: cfg.SubjectPrefix,
		logger: logger,
	}, nil
}

// Publish marshals v as JSON and publishes it on prefix.subject.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	full := Subject(p.prefix, subject)
	if err := p.conn.Publish(full, data); err != nil {
		return fmt.Errorf("failed to publish event on %s: %w", full, err)
	}
	p.logger.Debug("Published event", "subject", full, "bytes", len(data))
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	err := p.conn.FlushTimeout(2 * time.Second)
	p.conn.Close()
	if err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	return nil
}

// Subject joins a prefix and a relative subject with a dot.
func Subject(prefix, subject string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return subject
	}
	return prefix + "." + subject
}

// Message is an event captured by RecordingPublisher.
type Message struct {
	Subject string
	Payload []byte
}

// RecordingPublisher keeps published events in memory. It is used by tests
// and by the CLI when running without a broker.
type RecordingPublisher struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

// SetFailure makes subsequent publishes fail with err (nil to clear).
func (r *RecordingPublisher) SetFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Publish implements Publisher.
func (r *RecordingPublisher) Publish(_ context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, Message{Subject: subject, Payload: data})
	return nil
}

// Messages returns a copy of the captured events.
func (r *RecordingPublisher) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Close implements Publisher.
func (r *RecordingPublisher) Close() error { return nil }
