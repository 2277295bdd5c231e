package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// log is the process-wide base logger. Its zero value discards everything,
// so packages can log before Init runs (and in tests).
var log zerolog.Logger

type ctxKey struct{}

// Init configures the base logger. Development environments get a console
// writer; everything else emits JSON lines on stdout.
func Init(env string, logLevel string) {
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	switch strings.ToLower(env) {
	case "", "dev", "development", "local":
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	name := strings.ToLower(strings.TrimSpace(logLevel))
	if name == "warning" {
		name = "warn"
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log = zerolog.New(output).With().Timestamp().Caller().Logger()
}

func Get() *zerolog.Logger {
	return &log
}

// WithContext returns the request-scoped logger stored by NewContext, or the
// base logger.
func WithContext(ctx context.Context) *zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
		return l
	}
	return &log
}

func NewContext(ctx context.Context, l *zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func WithRequestID(requestID string) zerolog.Logger {
	return log.With().Str("request_id", requestID).Logger()
}

func WithUserID(l zerolog.Logger, userID string) zerolog.Logger {
	return l.With().Str("user_id", userID).Logger()
}

// WithOrderID returns the context logger annotated with an order id.
func WithOrderID(ctx context.Context, orderID string) zerolog.Logger {
	return WithContext(ctx).With().Str("order_id", orderID).Logger()
}

// WithCarrier annotates l with the carrier kind and courier id of a call.
func WithCarrier(l zerolog.Logger, carrier string, courierID int) zerolog.Logger {
	return l.With().Str("carrier", carrier).Int("courier_id", courierID).Logger()
}

// WithComponent tags the base logger for a background worker.
func WithComponent(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func Debug() *zerolog.Event { return log.Debug() }
func Info() *zerolog.Event  { return log.Info() }
func Warn() *zerolog.Event  { return log.Warn() }
func Error() *zerolog.Event { return log.Error() }

// Fatal logs and exits the process.
func Fatal() *zerolog.Event { return log.Fatal() }

func ServiceStart(name, version, port string) {
	log.Info().Str("service", name).Str("version", version).Str("port", port).Msg("Service started")
}

func ServiceStop(name string) {
	log.Info().Str("service", name).Msg("Service stopped")
}
