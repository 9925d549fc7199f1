package ranking

import "testing"

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0 day 00:00:00"},
		{59, "0 day 00:00:59"},
		{3661, "0 day 01:01:01"},
		{86400, "1 day 00:00:00"},
		{90061.7, "1 day 01:01:01"},
		{-5, "0 day 00:00:00"},
		{2*86400 + 3*3600 + 4*60 + 5, "2 day 03:04:05"},
	}

	for _, tt := range tests {
		if got := FormatElapsed(tt.seconds); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestRound3(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.12345, 0.123},
		{0.9996, 1},
		{-0.12345, -0.123},
		{2, 2},
	}

	for _, tt := range tests {
		if got := Round3(tt.in); got != tt.want {
			t.Errorf("Round3(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
