package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/AgentOS/windowserver/internal/infrastructure/config"
)

const service = "windowserver"

// Logger is the root logger of one server. Components do not build their
// own loggers; they take the child for their area from here.
type Logger struct {
	*zap.Logger
}

// New builds the root logger from the logging section of the configuration.
func New(cfg config.LogConfig) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	zapCfg := baseConfig(cfg.Development)
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.InitialFields = map[string]interface{}{"service": service}
	if !cfg.Sampling {
		zapCfg.Sampling = nil
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{Logger: logger}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Tree is the logger of the window tree. Connection loggers derive from it
// with a "connection" field.
func (l *Logger) Tree() *zap.Logger { return l.Named("tree") }

// Trace is the logger finished request spans are written to.
func (l *Logger) Trace() *zap.Logger { return l.Named("trace") }

// Peer returns a child logger for one transport connection.
func (l *Logger) Peer(peerID string) *zap.Logger {
	return l.Named("ws").With(zap.String("peer", peerID))
}

// baseConfig starts from zap's presets. Development logs colored console
// lines and panics on DPanic; production logs sampled JSON to stdout.
func baseConfig(development bool) zap.Config {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
