package scheduler

import (
	"testing"
	"time"
)

func TestValidateCronExpression(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"yearly", "@yearly", false},
		{"annually", "@annually", false},
		{"monthly", "@monthly", false},
		{"weekly", "@weekly", false},
		{"daily", "@daily", false},
		{"hourly", "@hourly", false},
		{"every 1h", "@every 1h", false},
		{"every 30m", "@every 30m", false},
		{"every 7d", "@every 7d", false},
		{"every garbage", "@every soon", true},
		{"five field cron", "0 3 * * *", true},
		{"unknown named", "@invalid", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCronExpression(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCronExpression(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestParseCronExpression(t *testing.T) {
	// Monday Jan 15 2024, 10:30 UTC
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{"hourly", "@hourly", time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)},
		{"daily", "@daily", time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)},
		{"weekly", "@weekly", time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)},
		{"monthly", "@monthly", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"yearly", "@yearly", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"every 1h", "@every 1h", base.Add(time.Hour)},
		{"every 30m", "@every 30m", base.Add(30 * time.Minute)},
		{"every 7d", "@every 7d", base.Add(7 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := ParseCronExpression(tt.expr, base)
			if err != nil {
				t.Fatalf("ParseCronExpression(%q) error = %v", tt.expr, err)
			}
			if !next.Equal(tt.want) {
				t.Errorf("next = %v, want %v", next, tt.want)
			}
		})
	}
}

func TestParseCronExpression_MonthlyYearRollover(t *testing.T) {
	base := time.Date(2024, 12, 20, 8, 0, 0, 0, time.UTC)
	next, err := ParseCronExpression("@monthly", base)
	if err != nil {
		t.Fatalf("ParseCronExpression error = %v", err)
	}
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestParseCronExpression_WeeklyFromSunday(t *testing.T) {
	// Sunday should roll to the following Sunday, not today.
	base := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	next, err := ParseCronExpression("@weekly", base)
	if err != nil {
		t.Fatalf("ParseCronExpression error = %v", err)
	}
	want := time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestParseDurationWithDays(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"1 hour", "1h", time.Hour, false},
		{"30 minutes", "30m", 30 * time.Minute, false},
		{"1 day", "1d", 24 * time.Hour, false},
		{"7 days", "7d", 7 * 24 * time.Hour, false},
		{"bad day count", "xd", 0, true},
		{"bad unit", "5 fortnights", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationWithDays(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDurationWithDays(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("duration = %v, want %v", got, tt.want)
			}
		})
	}
}
