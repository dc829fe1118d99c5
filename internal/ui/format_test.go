package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{500 * time.Millisecond, "500ms"},
		{2500 * time.Millisecond, "2.5s"},
		{90 * time.Second, "1m30s"},
		{90 * time.Minute, "1h30m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatDuration(tt.duration))
	}
}

func TestGetSuggestion(t *testing.T) {
	tests := []struct {
		message  string
		contains string
	}{
		{"Authentication failed for user", "username and password"},
		{"SQL compilation error: Object 'X' does not exist", "database objects exist"},
		{"Insufficient privileges to operate on table", "graphdrop provision"},
		{"compute pool CPU_X_S is suspended", "compute pool"},
		{"something unrelated", ""},
	}

	for _, tt := range tests {
		suggestion := getSuggestion(tt.message)
		if tt.contains == "" {
			assert.Empty(t, suggestion)
		} else {
			assert.Contains(t, suggestion, tt.contains)
		}
	}
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "42", FormatCount(42))
	assert.NotEmpty(t, FormatCount(0))
}

func TestSpinnerStop(t *testing.T) {
	s := NewSpinner("working")
	s.Start()
	s.UpdateMessage("still working")
	s.Stop(true, "done")
	assert.True(t, s.stopped)
}
