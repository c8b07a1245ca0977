package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/closetbyera/giftledger/internal/config"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if err := Setup(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestSetupAppliesLevelAndFormat(t *testing.T) {
	if err := Setup(config.LogConfig{Level: "warn", Format: "json"}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer log.SetLevel(log.InfoLevel)

	if log.GetLevel() != log.WarnLevel {
		t.Fatalf("expected warn level, got %s", log.GetLevel())
	}
	if _, ok := log.StandardLogger().Formatter.(*log.JSONFormatter); !ok {
		t.Fatalf("expected json formatter")
	}
}

func TestRequestLoggerEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "req-1" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestRequestLoggerMasksGiftCardCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hook := test.NewGlobal()
	defer hook.Reset()

	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/lookup", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/lookup?code=ABCD-EFGH-JKLM", nil))

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected a log entry")
	}
	if entry.Level != log.WarnLevel {
		t.Fatalf("expected warn entry, got %s", entry.Level)
	}
	if got := entry.Data["query"]; got != "code=ABCD-%2A%2A%2A%2A-JKLM" {
		t.Fatalf("unexpected query field %v", got)
	}
}
