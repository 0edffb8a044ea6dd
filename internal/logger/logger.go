package logger

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvVar selects the logger flavour: "dev" gives a human readable console
// logger, anything else the JSON production logger.
const EnvVar = "PNLRISK_ENV"

type ctxKey struct{}

func New() *zap.SugaredLogger {
	var (
		logger *zap.Logger
		err    error
	)
	opts := []zap.Option{
		zap.AddStacktrace(zap.ErrorLevel),
	}

	if strings.EqualFold(os.Getenv(EnvVar), "dev") {
		logger, err = zap.NewDevelopment(opts...)
	} else {
		opts = append(opts, zap.Fields(zap.String(EnvVar, os.Getenv(EnvVar))))
		logger, err = zap.NewProduction(opts...)
	}

	if err != nil {
		panic(fmt.Errorf("failed to initialize logger: %w", err))
	}

	return logger.Sugar()
}

// NewWithLevel is New with the minimum level overridden, e.g. from a
// --log-level flag.
func NewWithLevel(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	base := New().Desugar()
	return base.WithOptions(zap.IncreaseLevel(lvl)).Sugar(), nil
}

// OrNop returns l, or a no-op logger when l is nil. Engines call it so a
// zero-value struct is usable in tests.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}

func WithContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func FromContext(ctx context.Context) *zap.SugaredLogger {
	l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger)
	if !ok || l == nil {
		l = New()
		l.Warn("no logger found in ctx - creating new one")
	}
	return l
}
