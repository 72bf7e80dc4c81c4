package logging

import (
	"os"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/logging/zapconsole"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger *zap.Logger

func init() {
	Logger = newConsoleLogger(zapcore.InfoLevel)
}

// Init replaces the bootstrap console logger with one that also writes JSON lines to filePath.
func Init(logLevel, filePath string) error {
	logger, err := getDoubleLogger(logLevel, filePath)
	if err != nil {
		return err
	}

	Logger = logger

	return nil
}

func newConsoleLogger(level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(newConsoleEncoder(), zapcore.AddSync(os.Stdout), level)

	return zap.New(core, zap.AddCaller())
}

func newConsoleEncoder() zapcore.Encoder {
	developmentEncoderConfig := zap.NewDevelopmentEncoderConfig()
	developmentEncoderConfig.ConsoleSeparator = "  "
	developmentEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapconsole.NewConsoleEncoder(&developmentEncoderConfig)
}

func getDoubleLogger(logLevel, filePath string) (*zap.Logger, error) {
	productionEncoderConfig := zap.NewProductionEncoderConfig()
	productionEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		Logger.Info("Invalid log level, using info level", zap.String("log_level", logLevel))

		level = zapcore.InfoLevel
	}

	zapConfig := &zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       false,
		DisableCaller:     false,
		DisableStacktrace: false,
		Encoding:          "json",
		EncoderConfig:     productionEncoderConfig,
		OutputPaths:       []string{filePath},
	}

	fileLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	core := zapcore.NewTee(
		fileLogger.Core(),
		zapcore.NewCore(newConsoleEncoder(), zapcore.AddSync(os.Stdout), level),
	)

	return zap.New(core, zap.AddCaller()), nil
}
