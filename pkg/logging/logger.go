package logging

import (
	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/bramble/config"
)

// New builds the service logger. Structured output goes through zap; the
// ectologger interface is what the rest of the codebase depends on.
func New(cfg *config.Config) (ectologger.Logger, func()) {
	var zapCfg zap.Config
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	zlog, err := zapCfg.Build()
	if err != nil {
		zlog = zap.NewNop()
	}
	zlog = zlog.With(zap.String("app", cfg.AppName))

	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		zlog.Info("log", zap.Any("entry", msg))
	})

	return logger, func() { _ = zlog.Sync() }
}
