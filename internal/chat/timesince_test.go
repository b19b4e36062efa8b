package chat

import (
	"testing"
	"time"
)

func TestTimeSince(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		elapsed time.Duration
		want    string
	}{
		{0, "0 minutes"},
		{30 * time.Second, "0 minutes"},
		{time.Minute, "1 minute"},
		{2 * time.Minute, "2 minutes"},
		{59 * time.Minute, "59 minutes"},
		{time.Hour, "1 hour"},
		{2 * time.Hour, "2 hours"},
		{2*time.Hour + 20*time.Minute, "2 hours, 20 minutes"},
		{27 * time.Hour, "1 day, 3 hours"},
		{7 * 24 * time.Hour, "1 week"},
		{30 * 24 * time.Hour, "1 month"},
		{400 * 24 * time.Hour, "1 year, 1 month"},
	}

	for _, tt := range tests {
		if got := TimeSince(now.Add(-tt.elapsed), now); got != tt.want {
			t.Errorf("TimeSince(-%v) = %q, want %q", tt.elapsed, got, tt.want)
		}
	}
}

func TestTimeSinceFutureTimestamp(t *testing.T) {
	now := time.Now()
	if got := TimeSince(now.Add(time.Hour), now); got != "0 minutes" {
		t.Errorf("future timestamp should clamp to %q, got %q", "0 minutes", got)
	}
}
