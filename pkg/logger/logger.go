package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// Logger: общий интерфейс логирования сервиса.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(err error, format string, args ...any)
	// With возвращает логгер с дополнительными структурированными атрибутами.
	With(args ...any) Logger
	// Ctx возвращает логгер, который добавляет trace_id/span_id из контекста.
	Ctx(ctx context.Context) Logger
}

type slogLogger struct {
	log *slog.Logger
	ctx context.Context
}

// NewSlogLogger создаёт JSON-логгер поверх slog и делает его логгером по умолчанию.
func NewSlogLogger() Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	log := slog.New(NewContextHandler(handler))
	slog.SetDefault(log)

	return &slogLogger{log: log, ctx: context.Background()}
}

// NewNop возвращает логгер, который ничего не пишет.
func NewNop() Logger {
	return &slogLogger{
		log: slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1})),
		ctx: context.Background(),
	}
}

func (l *slogLogger) Debugf(format string, args ...any) {
	l.log.DebugContext(l.ctx, fmt.Sprintf(format, args...))
}

func (l *slogLogger) Infof(format string, args ...any) {
	l.log.InfoContext(l.ctx, fmt.Sprintf(format, args...))
}

func (l *slogLogger) Warnf(format string, args ...any) {
	l.log.WarnContext(l.ctx, fmt.Sprintf(format, args...))
}

func (l *slogLogger) Errorf(err error, format string, args ...any) {
	l.log.ErrorContext(l.ctx, fmt.Sprintf(format, args...), slog.Any("error", err))
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{log: l.log.With(args...), ctx: l.ctx}
}

func (l *slogLogger) Ctx(ctx context.Context) Logger {
	return &slogLogger{log: l.log, ctx: ctx}
}

// ContextHandler добавляет trace_id и span_id из контекста в каждую запись.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	spanContext := trace.SpanContextFromContext(ctx)
	if spanContext.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanContext.TraceID().String()))
	}
	if spanContext.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanContext.SpanID().String()))
	}

	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
