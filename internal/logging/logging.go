// Package logging builds the process-wide structured logger. The service
// passes the resulting *zap.Logger down explicitly instead of reaching for a
// package-level global.
package logging

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style JSON logger at stdout, or a human-readable
// console logger when dev is true.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		zap.InfoLevel,
	)
	return zap.New(core, zap.AddCaller()), nil
}

// NewFileLogger additionally tees to a timestamped log file under dir.
// There is no stability contract on the file's name or rotation.
func NewFileLogger(dev bool, dir string) (*zap.Logger, func() error, error) {
	if dir == "" {
		l, err := New(dev)
		return l, func() error { return nil }, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}

	name := "urlscreen_" + time.Now().Format("20060102_150405") + ".log"
	f, err := os.OpenFile(dir+"/"+name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(os.Stdout), zap.InfoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(f), zap.DebugLevel),
	}
	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return logger, f.Close, nil
}
