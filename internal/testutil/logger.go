// Package testutil provides shared helpers for package tests.
package testutil

import (
	"log/slog"
	"testing"
	"time"
)

// NewTestLogger returns a logger that writes to t.Log().
// Output only shows for failing tests or with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// FixedNow returns a clock that always reports the same instant, for
// byte-comparable generated output.
func FixedNow() func() time.Time {
	return func() time.Time {
		return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	}
}
