package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	actorIDKey   ctxKey = "actor_id"
)

// Config mirrors config.LoggerConfig but avoids importing the config package here.
type Config struct {
	Level    string
	Encoding string
}

// New builds a zap.Logger using the provided configuration.
func New(cfg Config) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	switch cfg.Encoding {
	case "console":
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.AddSync(zapcore.Lock(os.Stdout)),
		level,
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// ContextWithRequestID attaches a request ID to the provided context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithActorID attaches the signed-in actor to the provided context.
func ContextWithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// ActorID returns the actor stored by ContextWithActorID, if any.
func ActorID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(actorIDKey).(string)
	return id
}

// WithRequestID enriches the logger with the request and actor IDs stored in the context.
func WithRequestID(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}
	logger := base
	if reqID, ok := ctx.Value(requestIDKey).(string); ok && reqID != "" {
		logger = logger.With(zap.String("request_id", reqID))
	}
	if actorID := ActorID(ctx); actorID != "" {
		logger = logger.With(zap.String("actor_id", actorID))
	}
	return logger
}
