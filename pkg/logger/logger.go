package logger

import (
	"context"

	"artfolio/pkg/trace"

	"go.uber.org/zap"
)

var Log *zap.Logger

// NewLogger 创建生产环境 logger，并设置为全局 Log
func NewLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}

// NewDevelopment 用于 CLI 工具的可读输出
func NewDevelopment() *zap.Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}

// WithTrace 从 context 中提取 trace_id 并添加到 logger
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	traceID := trace.FromContext(ctx)
	if traceID != "" {
		return logger.With(zap.String("trace_id", traceID))
	}
	return logger
}

// WithUser 为 logger 绑定用户 uid
func WithUser(logger *zap.Logger, uid string) *zap.Logger {
	return logger.With(zap.String("uid", uid))
}
