package builtin

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// nowFunc is swapped in tests.
var nowFunc = time.Now

const dateOnly = "2006-01-02"

func datetimeDescriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "datetime",
		Description: "Date and time utilities: current time, date arithmetic, date difference, weekday lookup.",
		Category:    models.CategoryBuiltin,
		Parameters: []models.ParamSpec{
			{Name: "operation", Type: models.ParamString, Default: "today",
				Enum:        []string{"today", "add", "diff", "weekday"},
				Description: "What to compute."},
			{Name: "timezone", Type: models.ParamString, Default: "UTC",
				Description: "IANA timezone name, e.g. America/New_York."},
			{Name: "date", Type: models.ParamString,
				Description: "Base date (YYYY-MM-DD). Defaults to today."},
			{Name: "other_date", Type: models.ParamString,
				Description: "Second date for diff (YYYY-MM-DD)."},
			{Name: "days", Type: models.ParamInteger, Default: 0,
				Description: "Days to add (may be negative) for add."},
		},
		Returns: "The requested date value.",
	}
}

func datetimeHandler(_ context.Context, params map[string]any, _ tools.Context) (any, error) {
	tz, _ := params["timezone"].(string)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fault.Newf(fault.CodeValidation, "unknown timezone %q", tz)
	}

	op, _ := params["operation"].(string)
	switch op {
	case "", "today":
		now := nowFunc().In(loc)
		return map[string]any{
			"date":     now.Format(dateOnly),
			"time":     now.Format("15:04"),
			"iso":      now.Format(time.RFC3339),
			"human":    formatHuman(now),
			"weekday":  now.Weekday().String(),
			"timezone": loc.String(),
		}, nil

	case "add":
		base, err := baseDate(params, loc)
		if err != nil {
			return nil, err
		}
		days := intParam(params, "days")
		result := base.AddDate(0, 0, days)
		return map[string]any{
			"date":    result.Format(dateOnly),
			"weekday": result.Weekday().String(),
		}, nil

	case "diff":
		base, err := baseDate(params, loc)
		if err != nil {
			return nil, err
		}
		otherStr, _ := params["other_date"].(string)
		other, err := parseDate(otherStr, loc)
		if err != nil {
			return nil, err
		}
		days := int(math.Round(other.Sub(base).Hours() / 24))
		return map[string]any{"days": days}, nil

	case "weekday":
		base, err := baseDate(params, loc)
		if err != nil {
			return nil, err
		}
		return map[string]any{"weekday": base.Weekday().String()}, nil

	default:
		return nil, fault.Newf(fault.CodeValidation, "unknown operation %q", op)
	}
}

// baseDate resolves the "date" parameter, defaulting to today in loc.
func baseDate(params map[string]any, loc *time.Location) (time.Time, error) {
	s, _ := params["date"].(string)
	if s == "" {
		now := nowFunc().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	return parseDate(s, loc)
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, fault.New(fault.CodeValidation, "missing date")
	}
	t, err := time.ParseInLocation(dateOnly, s, loc)
	if err != nil {
		return time.Time{}, fault.Newf(fault.CodeValidation, "bad date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func intParam(params map[string]any, name string) int {
	switch n := params[name].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// formatHuman renders a time like "Friday, January 24th, 2025 - 14:30".
func formatHuman(t time.Time) string {
	return fmt.Sprintf("%s, %s %d%s, %d - %s",
		t.Weekday(), t.Month(), t.Day(), ordinalSuffix(t.Day()), t.Year(), t.Format("15:04"))
}

// ordinalSuffix returns the English ordinal suffix for a day number.
// 11-13 always take "th".
func ordinalSuffix(day int) string {
	if d := day % 100; d >= 11 && d <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
