package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogDir is where NewLog writes rotated files.
var LogDir = "log"

// NewLog returns a JSON logger that tees to a rotated file named n under
// LogDir and to stdout.
func NewLog(n string) *zap.Logger {
	_ = os.MkdirAll(LogDir, 0o755)

	cfg := zap.NewProductionEncoderConfig()
	cfg.MessageKey = zapcore.OmitKey

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(LogDir, n),
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, zap.InfoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.Lock(os.Stdout), zap.InfoLevel),
	)
	return zap.New(core)
}

var (
	accessOnce sync.Once
	accessLog  *zap.Logger
)

// defaultAccessLogger opens http-access.log on first use.
func defaultAccessLogger() *zap.Logger {
	accessOnce.Do(func() {
		if accessLog == nil {
			accessLog = NewLog("http-access.log")
		}
	})
	return accessLog
}
