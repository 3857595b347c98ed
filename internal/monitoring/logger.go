package monitoring

import (
	"log/slog"
	"os"
	"time"
)

// Logger provides structured logging with request and prediction
// context for the serving layer.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new structured JSON logger.
func NewLogger() *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// RequestLogger logs HTTP request details.
func (l *Logger) RequestLogger(method, path, ip string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// PredictionLogger logs one prediction outcome.
func (l *Logger) PredictionLogger(prediction string, probability float64, duration time.Duration) {
	l.Info("Prediction Completed",
		"prediction", prediction,
		"probability", probability,
		"duration_ms", duration.Milliseconds(),
	)
}

// BatchLogger logs one batch prediction outcome.
func (l *Logger) BatchLogger(total, approved, rejected int, duration time.Duration) {
	l.Info("Batch Prediction Completed",
		"total", total,
		"approved", approved,
		"rejected", rejected,
		"duration_ms", duration.Milliseconds(),
	)
}
