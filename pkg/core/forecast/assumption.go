package forecast

import (
	"encoding/json"
	"fmt"
)

// ShapeMismatchError reports a sequence-valued assumption whose length
// disagrees with the forecast horizon. This is a configuration bug: the
// engine never truncates or repeats values to paper over it.
type ShapeMismatchError struct {
	Field   string
	Len     int
	Horizon int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("assumption %q has %d values, horizon is %d", e.Field, e.Len, e.Horizon)
}

// Assumption is a scenario input that is either one number applied to every
// forecast period or an explicit per-period sequence. It is normalized to a
// fixed-length sequence exactly once, at assumption-set construction, so the
// forecast engine always consumes horizon-length slices.
type Assumption struct {
	scalar    *float64
	perPeriod []float64
}

// Scalar builds an assumption broadcast to every period.
func Scalar(v float64) Assumption {
	return Assumption{scalar: &v}
}

// PerPeriod builds an assumption with one value per forecast period.
func PerPeriod(vs ...float64) Assumption {
	out := make([]float64, len(vs))
	copy(out, vs)
	return Assumption{perPeriod: out}
}

// IsZero reports whether the assumption was never set.
func (a Assumption) IsZero() bool {
	return a.scalar == nil && a.perPeriod == nil
}

// Broadcast normalizes the assumption to exactly horizon values. An unset
// assumption broadcasts zeros; a sequence of the wrong length fails with
// *ShapeMismatchError naming the field.
func (a Assumption) Broadcast(field string, horizon int) ([]float64, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	out := make([]float64, horizon)
	switch {
	case a.perPeriod != nil:
		if len(a.perPeriod) != horizon {
			return nil, &ShapeMismatchError{Field: field, Len: len(a.perPeriod), Horizon: horizon}
		}
		copy(out, a.perPeriod)
	case a.scalar != nil:
		for i := range out {
			out[i] = *a.scalar
		}
	}
	return out, nil
}

// Values exposes the raw per-period sequence, or nil for scalar/unset.
func (a Assumption) Values() []float64 {
	if a.perPeriod == nil {
		return nil
	}
	out := make([]float64, len(a.perPeriod))
	copy(out, a.perPeriod)
	return out
}

// UnmarshalYAML accepts either a number or a list of numbers.
func (a *Assumption) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var seq []float64
	if err := unmarshal(&seq); err == nil {
		a.scalar = nil
		a.perPeriod = seq
		return nil
	}
	var v float64
	if err := unmarshal(&v); err != nil {
		return fmt.Errorf("assumption must be a number or a list of numbers: %w", err)
	}
	a.scalar = &v
	a.perPeriod = nil
	return nil
}

// UnmarshalJSON accepts either a number or a list of numbers.
func (a *Assumption) UnmarshalJSON(data []byte) error {
	var seq []float64
	if err := json.Unmarshal(data, &seq); err == nil {
		a.scalar = nil
		a.perPeriod = seq
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("assumption must be a number or a list of numbers: %w", err)
	}
	a.scalar = &v
	a.perPeriod = nil
	return nil
}

// MarshalJSON emits the scalar or the sequence as-is.
func (a Assumption) MarshalJSON() ([]byte, error) {
	if a.perPeriod != nil {
		return json.Marshal(a.perPeriod)
	}
	if a.scalar != nil {
		return json.Marshal(*a.scalar)
	}
	return []byte("null"), nil
}
