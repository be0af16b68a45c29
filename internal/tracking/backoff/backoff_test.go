package backoff

import (
	"testing"
	"time"
)

func TestWindow(t *testing.T) {
	tests := []struct {
		name       string
		errorCount int
		expected   time.Duration
	}{
		{name: "no errors", errorCount: 0, expected: time.Second},
		{name: "one error", errorCount: 1, expected: 2 * time.Second},
		{name: "five errors", errorCount: 5, expected: 32 * time.Second},
		{name: "ten errors", errorCount: 10, expected: 1024 * time.Second},
		{name: "eleven errors caps at 30min", errorCount: 11, expected: 30 * time.Minute},
		{name: "large count caps at 30min", errorCount: 100, expected: 30 * time.Minute},
		{name: "negative count treated as zero", errorCount: -3, expected: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Window(tt.errorCount); got != tt.expected {
				t.Errorf("Window(%d) = %v, want %v", tt.errorCount, got, tt.expected)
			}
		})
	}
}

func TestReady(t *testing.T) {
	now := time.Unix(10_000, 0)

	tests := []struct {
		name        string
		lastErrorAt int64
		errorCount  int
		expected    bool
	}{
		{name: "never errored", lastErrorAt: 0, errorCount: 0, expected: true},
		{name: "error count reset", lastErrorAt: 9_999, errorCount: 0, expected: true},
		{name: "inside window", lastErrorAt: 9_999, errorCount: 3, expected: false},
		{name: "exactly at window edge", lastErrorAt: 10_000 - 8, errorCount: 3, expected: true},
		{name: "past window", lastErrorAt: 9_000, errorCount: 3, expected: true},
		{name: "deep backoff still inside cap", lastErrorAt: 10_000 - 60, errorCount: 20, expected: false},
		{name: "deep backoff past cap", lastErrorAt: 10_000 - 1801, errorCount: 20, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ready(tt.lastErrorAt, tt.errorCount, now); got != tt.expected {
				t.Errorf("Ready(%d, %d) = %v, want %v", tt.lastErrorAt, tt.errorCount, got, tt.expected)
			}
		})
	}
}
