package logger

import (
	"bugie/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 根据运行模式构建 zap 日志
// debug 模式使用开发配置（彩色、可读），其余模式输出 JSON
func New(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Server.Mode == "debug" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
	}
	if cfg.Log.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}
