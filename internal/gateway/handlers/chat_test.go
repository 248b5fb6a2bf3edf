package handlers

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogWriteReportsFailure(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	logWrite(log, "optimization_log", func() error {
		return errors.New("pq: connection refused")
	})

	assert.Contains(t, buf.String(), "background write failed")
	assert.Contains(t, buf.String(), "optimization_log")
	assert.Contains(t, buf.String(), "connection refused")
}

func TestLogWriteSilentOnSuccess(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	logWrite(log, "api_key_last_used", func() error { return nil })

	assert.Empty(t, buf.String())
}
