package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	File  string
	Level string
	// Console mirrors records to stdout. Subcommands that print their own
	// output turn this off.
	Console bool
}

// New builds the application logger: a rotating file truncated at ~1MB plus
// an optional stdout mirror. The returned func flushes and closes the file.
func New(opt Options) (*zap.SugaredLogger, func(), error) {
	level, err := ParseLevel(opt.Level)
	if err != nil {
		return nil, nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.StacktraceKey = "stacktrace"
	encCfg.CallerKey = "caller"

	var cores []zapcore.Core
	var rotation *lumberjack.Logger

	if opt.File != "" {
		rotation = &lumberjack.Logger{
			Filename:   opt.File,
			MaxSize:    1, // megabytes
			MaxBackups: 1,
			MaxAge:     7, // days
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotation), level))
	}

	if opt.Console {
		consoleEnc := zapcore.NewJSONEncoder(encCfg)
		if term.IsTerminal(int(os.Stdout.Fd())) {
			colored := encCfg
			colored.EncodeLevel = zapcore.CapitalColorLevelEncoder
			consoleEnc = zapcore.NewConsoleEncoder(colored)
		}
		cores = append(cores, zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stdout), level))
	}

	if len(cores) == 0 {
		return zap.NewNop().Sugar(), func() {}, nil
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	).Named("ticker")

	closer := func() {
		_ = logger.Sync()
		if rotation != nil {
			_ = rotation.Close()
		}
	}
	return logger.Sugar(), closer, nil
}

// ParseLevel accepts zap level names; empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}
