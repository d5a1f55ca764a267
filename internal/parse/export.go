package parse

import (
	"fmt"
	"time"
)

// FromExport rebuilds an Entry from its Export form, accepting both the maps
// Export returns directly and the looser types produced by a JSON round-trip
// (float64 numbers, []any slices).
func FromExport(m map[string]any) (Entry, error) {
	kind, _ := m["type"].(string)

	ts, err := exportTime(m["timestamp"])
	if err != nil {
		return nil, err
	}
	tags, err := importTags(m["tags"])
	if err != nil {
		return nil, err
	}

	switch Kind(kind) {
	case KindExercise:
		name, _ := m["name"].(string)
		reps, err := importInts(m["reps"])
		if err != nil {
			return nil, fmt.Errorf("reps: %w", err)
		}
		weight, err := importOptFloat(m["weight_kg"])
		if err != nil {
			return nil, fmt.Errorf("weight_kg: %w", err)
		}
		rpe, err := importOptFloat(m["rpe"])
		if err != nil {
			return nil, fmt.Errorf("rpe: %w", err)
		}
		return &Exercise{Name: name, WeightKg: weight, Reps: reps, RPE: rpe, Timestamp: ts, Tags: tags}, nil

	case KindHeartRate:
		bpm, err := importFloat(m["bpm"])
		if err != nil {
			return nil, fmt.Errorf("bpm: %w", err)
		}
		return &HeartRate{BPM: int(bpm), Conditions: importString(m["conditions"]), Timestamp: ts, Tags: tags}, nil

	case KindHRV:
		ms, err := importFloat(m["ms"])
		if err != nil {
			return nil, fmt.Errorf("ms: %w", err)
		}
		metric, _ := m["metric"].(string)
		return &HRV{Ms: ms, Metric: metric, Conditions: importString(m["conditions"]), Timestamp: ts, Tags: tags}, nil

	case KindTemperature:
		celsius, err := importFloat(m["celsius"])
		if err != nil {
			return nil, fmt.Errorf("celsius: %w", err)
		}
		return &Temperature{Celsius: celsius, Conditions: importString(m["conditions"]), Timestamp: ts, Tags: tags}, nil

	case KindBodyweight:
		kg, err := importFloat(m["kg"])
		if err != nil {
			return nil, fmt.Errorf("kg: %w", err)
		}
		bodyfat, err := importOptFloat(m["bodyfat_pct"])
		if err != nil {
			return nil, fmt.Errorf("bodyfat_pct: %w", err)
		}
		return &Bodyweight{Kg: kg, BodyfatPct: bodyfat, Timestamp: ts, Tags: tags}, nil

	case KindControlPause:
		seconds, err := importFloat(m["seconds"])
		if err != nil {
			return nil, fmt.Errorf("seconds: %w", err)
		}
		return &ControlPause{Seconds: int(seconds), Conditions: importString(m["conditions"]), Timestamp: ts, Tags: tags}, nil

	default:
		return nil, fmt.Errorf("unknown entry type %q", kind)
	}
}

func exportTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return ts, nil
}

func importFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

func importOptFloat(v any) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	n, err := importFloat(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func importString(v any) string {
	s, _ := v.(string)
	return s
}

func importInts(v any) ([]int, error) {
	switch s := v.(type) {
	case []int:
		out := make([]int, len(s))
		copy(out, s)
		return out, nil
	case []any:
		out := make([]int, len(s))
		for i, item := range s {
			n, err := importFloat(item)
			if err != nil {
				return nil, err
			}
			out[i] = int(n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("not an integer list: %v", v)
	}
}

func importTags(v any) ([]string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case []string:
		out := make([]string, len(s))
		copy(out, s)
		return out, nil
	case []any:
		out := make([]string, len(s))
		for i, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("not a tag: %v", item)
			}
			out[i] = str
		}
		return out, nil
	default:
		return nil, fmt.Errorf("not a tag list: %v", v)
	}
}
