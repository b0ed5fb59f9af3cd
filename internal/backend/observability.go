package backend

import (
	"context"
	"log/slog"
)

// CallEvent records metadata about a single backend call.
type CallEvent struct {
	Op        string
	Method    string
	Path      string
	Status    int
	Attempts  int
	LatencyMs int64
	Success   bool
	ErrorCode string
}

// Observer receives events about backend calls for logging and metrics.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver writes call events to a structured logger.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	status := "ok"
	level := slog.LevelInfo
	if !event.Success {
		status = "err:" + event.ErrorCode
		level = slog.LevelWarn
	}
	o.logger.LogAttrs(context.Background(), level, "backend_call",
		slog.String("op", event.Op),
		slog.String("method", event.Method),
		slog.String("path", event.Path),
		slog.Int("http_status", event.Status),
		slog.Int("attempts", event.Attempts),
		slog.Int64("latency_ms", event.LatencyMs),
		slog.String("status", status),
	)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
