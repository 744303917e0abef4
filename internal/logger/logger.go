// Package logger 提供 yulc 的日志记录器
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvDebug 控制调试日志的环境变量
const EnvDebug = "YULC_DEBUG"

// Logger 日志记录器
type Logger struct {
	enabled bool     // 是否启用调试日志（通过环境变量 YULC_DEBUG 控制）
	file    *os.File // 日志文件句柄
	sugar   *zap.SugaredLogger
}

// New 创建日志记录器
// logPath: 日志文件路径，为空时调试日志输出到 stderr
func New(logPath string) *Logger {
	return NewWithDebug(DebugFromEnv(), logPath)
}

// DebugFromEnv 读取 YULC_DEBUG
func DebugFromEnv() bool {
	switch os.Getenv(EnvDebug) {
	case "1", "true", "on":
		return true
	}
	return false
}

// NewWithDebug 创建日志记录器，enabled 显式指定是否输出调试日志
func NewWithDebug(enabled bool, logPath string) *Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	l := &Logger{enabled: enabled}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), stderrLevel(enabled, logPath)),
	}

	if enabled && logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			// 打开失败时仍然可以继续，只是不输出到文件
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", logPath, err)
		} else {
			l.file = f
			cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(f), zapcore.DebugLevel))
		}
	}

	l.sugar = zap.New(zapcore.NewTee(cores...)).Sugar()
	return l
}

// stderrLevel 警告和错误始终输出到 stderr，调试日志没有写入文件时也输出到 stderr
func stderrLevel(enabled bool, logPath string) zapcore.Level {
	if enabled && logPath == "" {
		return zapcore.DebugLevel
	}
	return zapcore.WarnLevel
}

// NewWithCore 使用指定的 zap core 创建日志记录器（测试用）
func NewWithCore(core zapcore.Core, enabled bool) *Logger {
	return &Logger{enabled: enabled, sugar: zap.New(core).Sugar()}
}

// Nop 不输出任何内容的日志记录器
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// With 返回附加了键值对的子记录器
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{enabled: l.enabled, sugar: l.sugar.With(keysAndValues...)}
}

// Close 刷新并关闭日志记录器
func (l *Logger) Close() {
	_ = l.sugar.Sync()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

// Debug 记录调试信息（可被关闭）
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.enabled {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info 记录一般信息（可被关闭）
func (l *Logger) Info(format string, args ...interface{}) {
	if !l.enabled {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn 记录警告（始终输出）
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error 记录错误信息（始终输出）
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// IsEnabled 返回调试日志是否启用
func (l *Logger) IsEnabled() bool {
	return l.enabled
}
