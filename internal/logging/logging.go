// Package logging builds the process-wide zap logger.
package logging

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names shared by every component.
const (
	FieldComponent  = "component"
	FieldDocumentID = "document_id"
	FieldAnalysisID = "analysis_id"
	FieldURL        = "url"
	FieldDurationMS = "duration_ms"
	FieldCount      = "count"
	FieldError      = "error"
)

// LevelEnv overrides the configured level when set.
const LevelEnv = "HISTLINE_LOG_LEVEL"

// Options selects the logger's level and encoding.
type Options struct {
	Level string
	JSON  bool
}

// New builds a sugared logger writing to stderr. Stdout is left to command
// output and the MCP stdio transport.
func New(opts Options) (*zap.SugaredLogger, error) {
	return newWithSink(opts, zapcore.Lock(os.Stderr))
}

func newWithSink(opts Options, sink zapcore.WriteSyncer) (*zap.SugaredLogger, error) {
	levelName := opts.Level
	if env := os.Getenv(LevelEnv); env != "" {
		levelName = env
	}
	level, err := ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	return zap.New(zapcore.NewCore(encoder, sink, level)).Sugar(), nil
}

// ParseLevel accepts zap level names in any case. WARNING is read as warn
// and an empty name as info.
func ParseLevel(name string) (zapcore.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		return zapcore.InfoLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return level, errors.WithHint(errors.Wrapf(err, "log level %q", name), "use debug, info, warn or error")
	}
	return level, nil
}

// Component returns a child logger tagged with the component name.
func Component(logger *zap.SugaredLogger, name string) *zap.SugaredLogger {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return logger.Named(name).With(FieldComponent, name)
}
