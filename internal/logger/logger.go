// 包 logger：统一初始化与获取日志器，避免各模块重复配置；通过环境变量控制日志级别、格式与输出文件
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// 默认日志器：在进程级复用，避免多处初始化导致输出不一致
var defaultLogger *slog.Logger

// Setup：初始化默认日志器
// 背景：商户开闭决策与上游失败需要留存审计线索；LOG_FILE 非空时追加写入该文件，否则输出到标准错误
// 约束：文件打开失败时回退到标准错误，不中断进程；文件句柄随进程生命周期存在
func Setup() *slog.Logger {
	lvl := parseLevel(os.Getenv("LOG_LEVEL"))
	var w io.Writer = os.Stderr
	if p := os.Getenv("LOG_FILE"); p != "" {
		if f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			w = f
		}
	}
	defaultLogger = New(w, lvl, os.Getenv("LOG_FORMAT"))
	return defaultLogger
}

// New：按指定输出、级别与格式构建日志器，供测试注入缓冲区
func New(w io.Writer, lvl slog.Level, format string) *slog.Logger {
	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h)
}

// Use：替换默认日志器（测试捕获输出时使用）
func Use(l *slog.Logger) { defaultLogger = l }

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// L：获取默认日志器
// 背景：为业务代码提供快捷访问；若未初始化则回退到 Setup
func L() *slog.Logger {
	if defaultLogger == nil {
		return Setup()
	}
	return defaultLogger
}
