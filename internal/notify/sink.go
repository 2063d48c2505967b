package notify

import (
	"context"
	"log/slog"
)

// Sink — получатель итогового сообщения.
type Sink interface {
	Deliver(ctx context.Context, msg *Message) error
}

// SinkFunc — адаптер функции к интерфейсу Sink.
type SinkFunc func(ctx context.Context, msg *Message) error

// Deliver реализует Sink.
func (f SinkFunc) Deliver(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// LogSink пишет сообщение в structured log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink создаёт LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Deliver реализует Sink.
func (s *LogSink) Deliver(_ context.Context, msg *Message) error {
	s.logger.Info("pipeline notification",
		"run_id", msg.RunID.String(),
		"outcome", string(msg.Outcome),
		"model_version", msg.ModelVersion,
		"duration", msg.Duration,
		"text", msg.Text,
	)
	return nil
}
