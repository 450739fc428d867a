package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/princekumarofficial/portfolio-studio/internal/types"
)

var ErrDropped = errors.New("notification dropped: subscriber buffer full")

// Publisher delivers user-facing notifications
type Publisher interface {
	Publish(event *types.Event) error
}

// LogPublisher writes notifications to a structured logger
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher backed by logger, or slog.Default when nil
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(event *types.Event) error {
	level := slog.LevelInfo
	if event.Level == types.LevelError {
		level = slog.LevelError
	}
	p.logger.Log(context.Background(), level, event.Message,
		"type", string(event.Type),
		"level", string(event.Level))
	return nil
}

// ChannelPublisher hands notifications to a consumer without ever blocking the
// publisher.
type ChannelPublisher struct {
	ch chan *types.Event
}

// NewChannelPublisher creates a publisher with the given buffer size
func NewChannelPublisher(buffer int) *ChannelPublisher {
	return &ChannelPublisher{ch: make(chan *types.Event, buffer)}
}

func (p *ChannelPublisher) Publish(event *types.Event) error {
	select {
	case p.ch <- event:
		return nil
	default:
		return ErrDropped
	}
}

// Events returns the receive side for the consumer
func (p *ChannelPublisher) Events() <-chan *types.Event {
	return p.ch
}

// Fanout publishes to every publisher and joins their errors
type Fanout []Publisher

func (f Fanout) Publish(event *types.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every notification
type Discard struct{}

func (Discard) Publish(*types.Event) error { return nil }
