package server

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clarkhq/clark/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddleware_RecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := LoggingMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/spaces", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	logged := buf.String()
	assert.Contains(t, logged, "request completed")
	assert.Contains(t, logged, "status=418")
	assert.Contains(t, logged, "request_id=")
}

func TestLoggingMiddleware_ServerErrorLogsAtError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := LoggingMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", nil))

	assert.Contains(t, buf.String(), "request failed")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is too long", 10, "this is..."},
		{"ab", 1, "a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.maxLen))
	}
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("thread 9: %w", db.ErrNotFound), http.StatusNotFound},
		{"data integrity", fmt.Errorf("append: %w", db.ErrDataIntegrity), http.StatusConflict},
		{"other", errors.New("backend exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)
			require.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestChatRequest_UseHistoryDefaultsTrue(t *testing.T) {
	input := chatRequest{Message: "hi"}.toInput()
	assert.True(t, input.UseHistory)

	off := false
	input = chatRequest{Message: "hi", UseHistory: &off}.toInput()
	assert.False(t, input.UseHistory)
}
