package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/closetbyera/giftledger/internal/config"
	"github.com/closetbyera/giftledger/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Setup configures the global logrus logger from the log section.
func Setup(cfg config.LogConfig) error {
	level, errLevel := log.ParseLevel(strings.TrimSpace(cfg.Level))
	if errLevel != nil {
		return fmt.Errorf("logging: %w", errLevel)
	}
	log.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	log.SetOutput(newOutput(cfg))
	return nil
}

// newOutput returns stdout, or stdout plus a rotated file when a log file is configured.
func newOutput(cfg config.LogConfig) io.Writer {
	file := strings.TrimSpace(cfg.File)
	if file == "" {
		return os.Stdout
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	rotator := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, rotator)
}

// RequestLogger tags each request with an id and logs its outcome.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		})
		if raw := c.Request.URL.RawQuery; raw != "" {
			entry = entry.WithField("query", util.MaskSensitiveQuery(raw))
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}
