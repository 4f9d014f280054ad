package service

import (
	"math"
	"strconv"
	"strings"

	"QuantDesk/internal/domain/models"
	"QuantDesk/pkg/util"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCoverage is the coverage percentage applied on every strategy load.
const DefaultCoverage = 10

const defaultParameterName = "Parameter"

// Editable fields of a parameter row.
const (
	FieldStartValue      = "startValue"
	FieldEndValue        = "endValue"
	FieldIncrement       = "increment"
	FieldParameterName   = "parameterName"
	FieldNotes           = "notes"
	FieldOptimizedTarget = "optimizedTarget"
)

var countPrinter = message.NewPrinter(language.English)

// IsNumericField reports whether field drives TotalSteps.
func IsNumericField(field string) bool {
	switch field {
	case FieldStartValue, FieldEndValue, FieldIncrement:
		return true
	}
	return false
}

// IsEditableField reports whether field may be edited on a row.
func IsEditableField(field string) bool {
	switch field {
	case FieldParameterName, FieldNotes, FieldOptimizedTarget:
		return true
	}
	return IsNumericField(field)
}

// TotalSteps counts the values visited by a start..end sweep with the given increment.
func TotalSteps(start, end, increment int64) int64 {
	if increment <= 0 || end < start {
		return 0
	}
	return (end-start)/increment + 1
}

// NormalizeRange coerces a stored sweep into a validated row.
func NormalizeRange(raw models.ParameterRangeRaw) models.ParameterRange {
	start := clampedInt(raw.StartValue, 0, 0)
	end := clampedInt(raw.EndValue, 0, 0)
	inc := clampedInt(raw.Increment, 1, 1)

	name := defaultParameterName
	switch {
	case raw.ParameterName != nil:
		name = *raw.ParameterName
	case raw.Parameter != nil:
		name = *raw.Parameter
	}

	return models.ParameterRange{
		ParameterName:   name,
		OptimizedTarget: deref(raw.OptimizedTarget),
		Notes:           deref(raw.Notes),
		StartValue:      start,
		EndValue:        end,
		Increment:       inc,
		TotalSteps:      TotalSteps(start, end, inc),
	}
}

// NormalizeGrid normalizes every sweep of a strategy grid.
func NormalizeGrid(grid []models.ParameterRangeRaw) []models.ParameterRange {
	rows := make([]models.ParameterRange, 0, len(grid))
	for _, raw := range grid {
		rows = append(rows, NormalizeRange(raw))
	}
	return rows
}

// SanitizeNumericInput turns user input for a numeric field into its stored value.
// Unparseable input reads as 0 before clamping, so increment never drops below 1.
func SanitizeNumericInput(field, input string) int64 {
	v, ok := util.ParseFloatPrefix(input)
	if !ok {
		v = 0
	}
	floor := int64(0)
	if field == FieldIncrement {
		floor = 1
	}
	return clamp(util.RoundHalfUp(v), floor)
}

// TotalCombinations multiplies the step counts of all rows. No rows yields 0.
func TotalCombinations(rows []models.ParameterRange) int64 {
	if len(rows) == 0 {
		return 0
	}
	total := int64(1)
	for _, r := range rows {
		steps := r.TotalSteps
		if steps <= 0 {
			return 0
		}
		if total > math.MaxInt64/steps {
			return math.MaxInt64
		}
		total *= steps
	}
	return total
}

// EstimatedRuns applies a coverage percentage to a combination count.
func EstimatedRuns(totalCombinations int64, coveragePercent float64) int64 {
	if totalCombinations <= 0 {
		return 0
	}
	runs := util.RoundHalfUp(float64(totalCombinations) * coveragePercent / 100)
	if runs <= 0 || math.IsNaN(runs) {
		return 0
	}
	if runs >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(runs)
}

// CombinationBreakdown renders the factors of TotalCombinations, e.g. "3 × 4".
func CombinationBreakdown(rows []models.ParameterRange) string {
	if len(rows) == 0 {
		return "—"
	}
	parts := make([]string, len(rows))
	for i, r := range rows {
		steps := r.TotalSteps
		if steps < 0 {
			steps = 0
		}
		parts[i] = strconv.FormatInt(steps, 10)
	}
	return strings.Join(parts, " × ")
}

// FormatCount renders a derived count with thousands separators. Missing or
// non-numeric values render as "0".
func FormatCount(v any) string {
	switch t := v.(type) {
	case *int64:
		if t == nil {
			return "0"
		}
		return countPrinter.Sprintf("%d", *t)
	case *float64:
		if t == nil {
			return "0"
		}
		return FormatCount(*t)
	case int:
		return countPrinter.Sprintf("%d", t)
	case int64:
		return countPrinter.Sprintf("%d", t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "0"
		}
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return countPrinter.Sprintf("%d", int64(t))
		}
		return countPrinter.Sprintf("%.3f", t)
	default:
		return "0"
	}
}

func clampedInt(v any, fallback, floor int64) int64 {
	f, ok := util.ToNumber(v)
	if !ok || f == 0 {
		f = float64(fallback)
	}
	return clamp(util.RoundHalfUp(f), floor)
}

func clamp(f float64, floor int64) int64 {
	if f < float64(floor) {
		return floor
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
