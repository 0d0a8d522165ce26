package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yukikurage/project-management-api/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a zap logger from the log section of the configuration and
// installs it as the global logger.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var writeSyncer zapcore.WriteSyncer

	switch cfg.Output {
	case "", "stdout":
		writeSyncer = zapcore.AddSync(os.Stdout)
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("log path is required when output is 'file'")
		}
		writeSyncer = fileWriter(cfg)
	default:
		return nil, fmt.Errorf("unsupported log output %q", cfg.Output)
	}

	core := zapcore.NewCore(encoder(), writeSyncer, ParseLevel(cfg.Level))
	log := zap.New(core, zap.AddCaller())
	zap.ReplaceGlobals(log)

	log.Debug("logger initialized",
		zap.String("output", cfg.Output),
		zap.String("level", cfg.Level),
	)
	return log, nil
}

func fileWriter(cfg config.LogConfig) zapcore.WriteSyncer {
	filename := cfg.Filename
	if filename == "" {
		filename = "project-api.log"
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(cfg.Path, filename),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	})
}

func encoder() zapcore.Encoder {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = "caller"
	encoderConfig.MessageKey = "msg"
	encoderConfig.StacktraceKey = "stacktrace"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05"))
	}
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	return zapcore.NewConsoleEncoder(encoderConfig)
}

// ParseLevel converts a case-insensitive level name to a zapcore.Level,
// falling back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "FATAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
