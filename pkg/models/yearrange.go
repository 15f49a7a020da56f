package models

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON renders the range as the [min, max] array form the language
// model prompts use.
func (r YearRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Min, r.Max})
}

// UnmarshalJSON accepts both the [min, max] array form produced by the
// language model and the {"min":..,"max":..} object form.
func (r *YearRange) UnmarshalJSON(data []byte) error {
	var arr []int
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) != 2 {
			return fmt.Errorf("year range must have exactly 2 elements, got %d", len(arr))
		}
		r.Min, r.Max = arr[0], arr[1]
		return nil
	}
	var obj struct {
		Min int `json:"min"`
		Max int `json:"max"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid year range: %w", err)
	}
	r.Min, r.Max = obj.Min, obj.Max
	return nil
}

// Clamp restricts the range to the supported [min, max] window.
func (r YearRange) Clamp(min, max int) YearRange {
	out := r
	if out.Min < min {
		out.Min = min
	}
	if out.Max > max {
		out.Max = max
	}
	return out
}
