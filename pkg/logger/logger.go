// Package logger 基于zap构建结构化日志
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options 日志配置
// 与config.LogConfig字段一一对应，pkg层不依赖internal包
type Options struct {
	Level        string // debug | info | warn | error
	Format       string // console | json
	Output       string // stdout | stderr | 文件路径
	EnableCaller bool
}

// New 根据配置创建zap.Logger
//
// 示例：
//
//	log, err := logger.New(logger.Options{Level: "info", Format: "json"})
//	if err != nil {
//	    panic(err)
//	}
//	defer log.Sync()
func New(opts Options) (*zap.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("不支持的日志格式: %s", opts.Format)
	}

	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableCaller = !opts.EnableCaller
	// 开发配置默认在Warn级别打印堆栈，账本的业务错误很多，只在Error级别保留
	cfg.DisableStacktrace = level > zapcore.DebugLevel

	output := opts.Output
	if output == "" {
		output = "stdout"
	}
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// MustNew 创建失败时退回zap.NewNop
// 用于测试和命令行工具
func MustNew(opts Options) *zap.Logger {
	log, err := New(opts)
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("不支持的日志级别: %s", s)
	}
}
