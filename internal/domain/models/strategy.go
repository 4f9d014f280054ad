package models

import "strings"

// ParameterRangeRaw is a parameter sweep as stored. The numeric fields may be
// missing, numeric strings, or arbitrary JSON, so they are kept untyped.
type ParameterRangeRaw struct {
	ParameterName   *string `json:"parameterName,omitempty"`
	Parameter       *string `json:"parameter,omitempty"` // legacy alias of parameterName
	StartValue      any     `json:"startValue,omitempty"`
	EndValue        any     `json:"endValue,omitempty"`
	Increment       any     `json:"increment,omitempty"`
	TotalSteps      *int64  `json:"totalSteps,omitempty"`
	OptimizedTarget *string `json:"optimizedTarget,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// Clone returns a copy that shares no pointers with r.
func (r ParameterRangeRaw) Clone() ParameterRangeRaw {
	out := r
	out.ParameterName = cloneString(r.ParameterName)
	out.Parameter = cloneString(r.Parameter)
	out.OptimizedTarget = cloneString(r.OptimizedTarget)
	out.Notes = cloneString(r.Notes)
	if r.TotalSteps != nil {
		v := *r.TotalSteps
		out.TotalSteps = &v
	}
	out.StartValue = cloneValue(r.StartValue)
	out.EndValue = cloneValue(r.EndValue)
	out.Increment = cloneValue(r.Increment)
	return out
}

// ParameterRange is a normalized sweep held in the edit workspace.
// TotalSteps is derived from the three driving fields and never set directly.
type ParameterRange struct {
	ParameterName   string `json:"parameterName"`
	OptimizedTarget string `json:"optimizedTarget"`
	Notes           string `json:"notes"`
	StartValue      int64  `json:"startValue"`
	EndValue        int64  `json:"endValue"`
	Increment       int64  `json:"increment"`
	TotalSteps      int64  `json:"totalSteps"`
}

// Raw converts a normalized row back into its stored form.
func (p ParameterRange) Raw() ParameterRangeRaw {
	name, target, notes := p.ParameterName, p.OptimizedTarget, p.Notes
	steps := p.TotalSteps
	return ParameterRangeRaw{
		ParameterName:   &name,
		StartValue:      p.StartValue,
		EndValue:        p.EndValue,
		Increment:       p.Increment,
		TotalSteps:      &steps,
		OptimizedTarget: &target,
		Notes:           &notes,
	}
}

type Strategy struct {
	ID            int                 `json:"id"`
	Name          string              `json:"name"`
	StrategyType  string              `json:"strategyType"`
	RiskLevel     string              `json:"riskLevel"`
	Performance   string              `json:"performance"`
	DateAdded     string              `json:"dateAdded"`
	Details       string              `json:"details"`
	ParameterGrid []ParameterRangeRaw `json:"parameterGrid"`
}

// Clone deep-copies the strategy including its parameter grid.
func (s Strategy) Clone() Strategy {
	out := s
	if s.ParameterGrid != nil {
		out.ParameterGrid = make([]ParameterRangeRaw, len(s.ParameterGrid))
		for i, p := range s.ParameterGrid {
			out.ParameterGrid[i] = p.Clone()
		}
	}
	return out
}

// Catalog is the full strategy list. It is replaced wholesale on save.
type Catalog struct {
	Strategies []Strategy `json:"strategies"`
}

// Clone deep-copies the catalog.
func (c Catalog) Clone() Catalog {
	out := Catalog{Strategies: make([]Strategy, len(c.Strategies))}
	for i, s := range c.Strategies {
		out.Strategies[i] = s.Clone()
	}
	return out
}

// FindByName matches name case-insensitively and exactly.
func (c Catalog) FindByName(name string) (Strategy, bool) {
	for _, s := range c.Strategies {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Strategy{}, false
}

// IndexOf returns the position of the strategy with the given id, or -1.
func (c Catalog) IndexOf(id int) int {
	for i, s := range c.Strategies {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// StrategySummary is the catalog listing entry.
type StrategySummary struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	StrategyType string `json:"strategyType"`
	RiskLevel    string `json:"riskLevel"`
	Performance  string `json:"performance"`
	DateAdded    string `json:"dateAdded"`
	Parameters   int    `json:"parameters"`
}

// Summary drops the parameter grid, keeping its length.
func (s Strategy) Summary() StrategySummary {
	return StrategySummary{
		ID:           s.ID,
		Name:         s.Name,
		StrategyType: s.StrategyType,
		RiskLevel:    s.RiskLevel,
		Performance:  s.Performance,
		DateAdded:    s.DateAdded,
		Parameters:   len(s.ParameterGrid),
	}
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// cloneValue copies decoded JSON values; scalars are immutable so only
// composite values need a fresh copy.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}
