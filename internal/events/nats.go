package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// StreamName is the JetStream stream holding run-completed events.
const StreamName = "SIMULATIONS"

// NATSPublisher publishes run-completed events to a JetStream stream.
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
}

// Compile-time interface check.
var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to url and ensures the stream exists.
func NewNATSPublisher(url string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	nc, err := nats.Connect(url, nats.Name("portfolio-sim"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPrefix + "*"},
	}
	if _, err := js.AddStream(cfg); err != nil {
		if !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			nc.Close()
			return nil, fmt.Errorf("add stream %s: %w", StreamName, err)
		}
		if _, err := js.UpdateStream(cfg); err != nil {
			logger.Warn("failed to update stream", zap.String("stream", StreamName), zap.Error(err))
		}
	}

	return &NATSPublisher{nc: nc, js: js, logger: logger}, nil
}

// Publish sends ev as JSON and waits for the stream acknowledgement.
func (p *NATSPublisher) Publish(ctx context.Context, ev RunCompleted) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ack, err := p.js.Publish(ev.Subject(), data, nats.Context(ctx), nats.MsgId(ev.RunID))
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Subject(), err)
	}

	p.logger.Debug("run event published",
		zap.String("subject", ev.Subject()),
		zap.String("run_id", ev.RunID),
		zap.Uint64("seq", ack.Sequence),
		zap.Bool("duplicate", ack.Duplicate),
	)
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
