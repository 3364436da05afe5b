package log

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/motemen/go-loghttp"
)

// Logger is the global logger instance
var Logger *slog.Logger

var level = new(slog.LevelVar)

// InitLogger initializes the global logger.
// Logs always go to stderr: stdout carries the MCP stdio protocol.
// The level is Debug if LEVELS_DEBUG is set
func InitLogger() {
	level.Set(slog.LevelInfo)
	if os.Getenv("LEVELS_DEBUG") != "" {
		level.Set(slog.LevelDebug)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
	})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// init initializes the logger when the package is imported
func init() {
	InitLogger()
}

// SetDebug switches the global logger to debug level
func SetDebug(enabled bool) {
	if enabled {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// Transport wraps base with request/response debug logging.
// A nil base means http.DefaultTransport.
func Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loghttp.Transport{
		Transport: base,
		LogRequest: func(req *http.Request) {
			Debug("HTTP request",
				"method", req.Method,
				"url", req.URL.String(),
				"headers", redact(req.Header),
			)
		},
		LogResponse: func(resp *http.Response) {
			Debug("HTTP response",
				"method", resp.Request.Method,
				"url", resp.Request.URL.String(),
				"status", resp.Status,
				"status_code", resp.StatusCode,
			)
		},
	}
}

func redact(h http.Header) http.Header {
	if h.Get("Authorization") == "" {
		return h
	}
	c := h.Clone()
	c.Set("Authorization", "REDACTED")
	return c
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
