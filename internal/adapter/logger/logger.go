package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger interface {
	Info(action, message, requestID string, details map[string]interface{})
	Debug(action, message, requestID string, details map[string]interface{})
	Error(action, message, requestID string, details map[string]interface{}, err error)
}

type Options struct {
	Level string
	// File enables a rotating log file next to stdout.
	File   string
	Writer io.Writer
}

type slogLogger struct {
	log *slog.Logger
}

func New(service string, opts Options) Logger {
	hostname, _ := os.Hostname()

	var out io.Writer = os.Stdout
	if opts.Writer != nil {
		out = opts.Writer
	}
	if opts.File != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		})
	}

	h := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: parseLevel(opts.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// only top-level keys; error.msg keeps its name
			if len(groups) > 0 {
				return a
			}
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			if a.Key == slog.MessageKey {
				a.Key = "message"
			}
			return a
		},
	})

	return &slogLogger{
		log: slog.New(h).With("service", service, "hostname", hostname),
	}
}

// Nop discards everything. Used by tests.
func Nop() Logger {
	return &slogLogger{log: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *slogLogger) Info(action, message, requestID string, details map[string]interface{}) {
	l.emit(slog.LevelInfo, action, message, requestID, details, nil)
}

func (l *slogLogger) Debug(action, message, requestID string, details map[string]interface{}) {
	l.emit(slog.LevelDebug, action, message, requestID, details, nil)
}

func (l *slogLogger) Error(action, message, requestID string, details map[string]interface{}, err error) {
	l.emit(slog.LevelError, action, message, requestID, details, err)
}

func (l *slogLogger) emit(level slog.Level, action, message, requestID string, details map[string]interface{}, err error) {
	attrs := []slog.Attr{
		slog.String("request_id", requestID),
		slog.String("action", action),
	}
	if len(details) > 0 {
		attrs = append(attrs, slog.Any("details", details))
	}
	if err != nil {
		attrs = append(attrs, slog.Group("error", slog.String("msg", err.Error())))
	}
	l.log.LogAttrs(context.Background(), level, message, attrs...)
}

type ctxKey struct{}

// WithRequestID returns ctx carrying a request id, generating one when id is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}
