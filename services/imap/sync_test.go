package imap

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIncludeInBackfill(t *testing.T) {
	cutoff := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		sentAt time.Time
		want   bool
	}{
		{"well inside the window", cutoff.Add(24 * time.Hour), true},
		{"one second after cutoff", cutoff.Add(time.Second), true},
		{"exactly at cutoff is inclusive", cutoff, true},
		{"one second before cutoff", cutoff.Add(-time.Second), false},
		{"one day before cutoff", cutoff.Add(-24 * time.Hour), false},
		{"missing timestamp is kept", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, includeInBackfill(tt.sentAt, cutoff))
		})
	}
}

func TestIncludeInBackfill_ThirtyDayWindow(t *testing.T) {
	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	cutoff := now.Add(-30 * 24 * time.Hour)

	assert.True(t, includeInBackfill(now.Add(-29*24*time.Hour), cutoff))
	assert.True(t, includeInBackfill(now.Add(-30*24*time.Hour), cutoff))
	assert.False(t, includeInBackfill(now.Add(-31*24*time.Hour), cutoff))
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, isConnectionError(nil))
	assert.False(t, isConnectionError(errors.New("mailbox does not exist")))
	assert.True(t, isConnectionError(errors.New("read tcp: connection reset by peer")))
	assert.True(t, isConnectionError(errors.New("unexpected EOF")))
	assert.True(t, isConnectionError(errors.New("read: i/o timeout")))
	assert.True(t, isConnectionError(errors.New("imap: connection closed")))
}
