// Package logger provides the structured logger used across the deployer.
package logger

import (
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// Logger is the sugared logging interface injected into every component.
//
// Levels
//   - Fatal: Logs and then calls os.Exit(1). Only the process entrypoint may use it.
//   - Error: A deployment step or a manifest write failed.
//   - Warn: Something unexpected that did not stop the run, e.g. verification was skipped.
//   - Info: Step progress. Deploying, deployed, persisted.
//   - Debug: Command lines, raw explorer responses, journal lookups.
type Logger interface {
	// Name returns the fully qualified name of the logger.
	Name() string

	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Fatal(args ...any)

	Debugf(format string, values ...any)
	Infof(format string, values ...any)
	Warnf(format string, values ...any)
	Errorf(format string, values ...any)
	Fatalf(format string, values ...any)

	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
	Fatalw(msg string, keysAndValues ...any)

	// Sync flushes any buffered log entries.
	Sync() error
}

type Config struct {
	Level zapcore.Level
}

var defaultConfig Config

// New returns a new production Logger with the default configuration.
func New() (Logger, error) { return defaultConfig.New() }

// New returns a new production Logger for Config.
func (c *Config) New() (Logger, error) {
	return NewWith(func(cfg *zap.Config) {
		cfg.Level.SetLevel(c.Level)
	})
}

// NewWith returns a new Logger from a modified [zap.Config].
func NewWith(cfgFn func(*zap.Config)) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfgFn(&cfg)
	core, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &logger{core.Sugar()}, nil
}

// LogFormatEnvVar selects the CLI log encoding: "json" for the production JSON encoder, anything
// else for the console encoder.
const LogFormatEnvVar = "LOG_FORMAT"

// NewCLI returns a Logger for operators running the deployer from a terminal. Output is human
// readable unless LOG_FORMAT=json is set, in which case the production JSON encoder is used.
func NewCLI(level zapcore.Level) (Logger, error) {
	return NewWith(func(cfg *zap.Config) {
		*cfg = cliConfig(level, os.Getenv(LogFormatEnvVar))
	})
}

func cliConfig(level zapcore.Level, format string) zap.Config {
	if format == "json" {
		cfg := zap.NewProductionConfig()
		cfg.Level.SetLevel(level)

		return cfg
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level.SetLevel(level)
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	return cfg
}

// Test returns a new test Logger for tb.
func Test(tb testing.TB) Logger {
	tb.Helper()
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	lggr := zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(cfg),
			zaptest.NewTestingWriter(tb),
			zapcore.DebugLevel,
		),
	)

	return &logger{lggr.Sugar()}
}

// TestObserved returns a new test Logger for tb and ObservedLogs at the given Level.
func TestObserved(tb testing.TB, lvl zapcore.Level) (Logger, *observer.ObservedLogs) {
	tb.Helper()
	oCore, logs := observer.New(lvl)
	observe := zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, oCore)
	})

	return &logger{zaptest.NewLogger(tb, zaptest.WrapOptions(observe)).Sugar()}, logs
}

// Nop returns a no-op Logger.
func Nop() Logger {
	return &logger{zap.New(zapcore.NewNopCore()).Sugar()}
}

type logger struct {
	*zap.SugaredLogger
}

func (l *logger) Name() string {
	return l.Desugar().Name()
}
