package logger_test

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/authgate/core/logger"
)

func TestNew_ProductionIsJSON(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	log := logger.New(logger.WithProduction("testapp"), logger.WithWriter(&buf))

	log.Info("hello")

	out := buf.String()
	assert.Contains(t, out, `"app":"testapp"`)
	assert.Contains(t, out, `"msg":"hello"`)
}

func TestNew_DevelopmentLogsDebug(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	log := logger.New(logger.WithDevelopment("testapp"), logger.WithWriter(&buf))

	log.Debug("verbose detail")
	assert.Contains(t, buf.String(), "verbose detail")
}

func TestAttrs_NilSafety(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, slog.Attr{}, logger.RequestID(""))

	attr := logger.Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
}
