package logx

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Levels 是 log.level 允许的取值。
var Levels = []string{"debug", "info", "warn", "error"}

// ParseLevel 把配置里的级别名映射为 zapcore.Level；未知值返回 false。
func ParseLevel(level string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "", "warn":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.WarnLevel, false
	}
}

// New 构造 console 编码的 logger。
//
// logFile 非空时追加写入该文件，否则写到 console（通常是 stderr，stdout 留给 report JSON）。
// 返回的 close 负责 Sync 并关闭日志文件。
func New(level, logFile string, console io.Writer) (*zap.Logger, func(), error) {
	lvl, _ := ParseLevel(level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.ConsoleSeparator = " | "

	if console == nil {
		console = os.Stderr
	}
	sink := zapcore.AddSync(console)
	closeFile := func() {}
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		sink = zapcore.AddSync(f)
		closeFile = func() { _ = f.Close() }
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), sink, lvl)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, func() {
		_ = logger.Sync()
		closeFile()
	}, nil
}

// OrNop 把 nil logger 替换为 zap.NewNop()。
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
