package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/adpilot-ai/adpilot/internal/tools"
)

func withFixedNow(t *testing.T, fixed time.Time) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return fixed }
	t.Cleanup(func() { nowFunc = prev })
}

func runDatetime(t *testing.T, params map[string]any) map[string]any {
	t.Helper()
	out, err := datetimeHandler(context.Background(), params, tools.Context{})
	if err != nil {
		t.Fatalf("datetimeHandler(%v) error = %v", params, err)
	}
	return out.(map[string]any)
}

func TestDatetimeToday(t *testing.T) {
	withFixedNow(t, time.Date(2025, time.January, 24, 14, 30, 0, 0, time.UTC))

	m := runDatetime(t, map[string]any{"operation": "today", "timezone": "UTC"})
	if m["date"] != "2025-01-24" {
		t.Errorf("date = %v, want 2025-01-24", m["date"])
	}
	if m["weekday"] != "Friday" {
		t.Errorf("weekday = %v, want Friday", m["weekday"])
	}
	if m["human"] != "Friday, January 24th, 2025 - 14:30" {
		t.Errorf("human = %v", m["human"])
	}
}

func TestDatetimeAdd(t *testing.T) {
	m := runDatetime(t, map[string]any{
		"operation": "add",
		"timezone":  "UTC",
		"date":      "2025-01-24",
		"days":      7,
	})
	if m["date"] != "2025-01-31" {
		t.Errorf("date = %v, want 2025-01-31", m["date"])
	}

	m = runDatetime(t, map[string]any{
		"operation": "add",
		"timezone":  "UTC",
		"date":      "2025-01-01",
		"days":      -1,
	})
	if m["date"] != "2024-12-31" {
		t.Errorf("date = %v, want 2024-12-31", m["date"])
	}
}

func TestDatetimeDiff(t *testing.T) {
	m := runDatetime(t, map[string]any{
		"operation":  "diff",
		"timezone":   "UTC",
		"date":       "2025-01-01",
		"other_date": "2025-02-01",
	})
	if m["days"] != 31 {
		t.Errorf("days = %v, want 31", m["days"])
	}
}

func TestDatetimeWeekday(t *testing.T) {
	m := runDatetime(t, map[string]any{
		"operation": "weekday",
		"timezone":  "UTC",
		"date":      "2025-12-25",
	})
	if m["weekday"] != "Thursday" {
		t.Errorf("weekday = %v, want Thursday", m["weekday"])
	}
}

func TestDatetimeErrors(t *testing.T) {
	tests := []map[string]any{
		{"timezone": "Mars/Olympus"},
		{"operation": "subtract", "timezone": "UTC"},
		{"operation": "weekday", "timezone": "UTC", "date": "25/12/2025"},
		{"operation": "diff", "timezone": "UTC", "date": "2025-01-01"},
	}
	for _, params := range tests {
		if _, err := datetimeHandler(context.Background(), params, tools.Context{}); err == nil {
			t.Errorf("datetimeHandler(%v) should fail", params)
		}
	}
}

func TestOrdinalSuffix(t *testing.T) {
	tests := []struct {
		day  int
		want string
	}{
		{1, "st"}, {2, "nd"}, {3, "rd"}, {4, "th"},
		{11, "th"}, {12, "th"}, {13, "th"},
		{21, "st"}, {22, "nd"}, {23, "rd"}, {31, "st"},
	}
	for _, tt := range tests {
		if got := ordinalSuffix(tt.day); got != tt.want {
			t.Errorf("ordinalSuffix(%d) = %q, want %q", tt.day, got, tt.want)
		}
	}
}
