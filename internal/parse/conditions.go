package parse

import (
	"sort"
	"strings"
)

// Dimension is a named axis of mutually exclusive condition values.
// Lower priority sorts earlier in the canonical condition string.
type Dimension struct {
	Name      string
	Priority  int
	Values    []string
	AppliesTo []Kind
}

func (d Dimension) appliesTo(kind Kind) bool {
	for _, k := range d.AppliesTo {
		if k == kind {
			return true
		}
	}
	return false
}

// conditionKinds are the entry kinds that support conditions at all.
var conditionKinds = []Kind{KindHeartRate, KindHRV, KindTemperature, KindControlPause}

// dimensions is the full catalog, declared in ascending priority order.
// Every dimension applies to every condition-bearing kind except technique,
// which is a temperature-only measurement qualifier.
var dimensions = []Dimension{
	{
		Name:      "activity",
		Priority:  1,
		Values:    []string{"waking", "resting", "active", "post-workout"},
		AppliesTo: conditionKinds,
	},
	{
		Name:      "time_of_day",
		Priority:  2,
		Values:    []string{"morning", "evening"},
		AppliesTo: conditionKinds,
	},
	{
		Name:      "metabolic",
		Priority:  3,
		Values:    []string{"postprandial", "fasted"},
		AppliesTo: conditionKinds,
	},
	{
		Name:      "emotional",
		Priority:  4,
		Values:    []string{"stressed", "relaxed"},
		AppliesTo: conditionKinds,
	},
	{
		Name:      "technique",
		Priority:  5,
		Values:    []string{"oral", "underarm", "forehead_ir", "ear"},
		AppliesTo: []Kind{KindTemperature},
	},
}

var valueDimension = func() map[string]Dimension {
	m := make(map[string]Dimension)
	for _, d := range dimensions {
		for _, v := range d.Values {
			m[v] = d
		}
	}
	return m
}()

// Dimensions returns the full dimension catalog in ascending priority order.
func Dimensions() []Dimension {
	out := make([]Dimension, len(dimensions))
	copy(out, dimensions)
	return out
}

// ApplicableDimensions returns the dimensions valid for an entry kind,
// in ascending priority order.
func ApplicableDimensions(kind Kind) []Dimension {
	var out []Dimension
	for _, d := range dimensions {
		if d.appliesTo(kind) {
			out = append(out, d)
		}
	}
	return out
}

// ApplicableValues returns every condition value valid for an entry kind.
func ApplicableValues(kind Kind) map[string]bool {
	values := make(map[string]bool)
	for _, d := range ApplicableDimensions(kind) {
		for _, v := range d.Values {
			values[v] = true
		}
	}
	return values
}

// ResolveConditions turns raw tokens into a canonical condition string for an
// entry kind: tokens are alias-resolved, unrecognized tokens are silently
// skipped (they may belong to another sub-parser), recognized values are
// checked for kind applicability and one-per-dimension, and the surviving
// values are emitted comma-joined in ascending dimension priority. The result
// is "" when no condition token was found. The output is deterministic for
// any permutation of the same token set.
func ResolveConditions(tokens []string, kind Kind, aliases *Aliases) (string, error) {
	found := make(map[string]string) // dimension name -> value

	for _, token := range tokens {
		resolved := aliases.Resolve(CategoryConditions, token)

		dim, ok := valueDimension[resolved]
		if !ok {
			continue
		}
		if !dim.appliesTo(kind) {
			return "", &InapplicableConditionError{Value: resolved, Kind: kind, Dimension: dim.Name}
		}
		if prev, dup := found[dim.Name]; dup {
			return "", &ConditionConflictError{Dimension: dim.Name, First: prev, Second: resolved}
		}
		found[dim.Name] = resolved
	}

	if len(found) == 0 {
		return "", nil
	}

	values := make([]string, 0, len(found))
	for _, v := range found {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		return valueDimension[values[i]].Priority < valueDimension[values[j]].Priority
	})
	return strings.Join(values, ","), nil
}

// ValidateConditions re-checks a stored condition string against the same
// applicability and one-per-dimension rules as ResolveConditions. Unlike the
// resolver, an unknown value here is an error: stored strings are supposed to
// be canonical already. An empty string is valid (no conditions).
func ValidateConditions(conditions string, kind Kind) error {
	if conditions == "" {
		return nil
	}

	seen := make(map[string]string)
	for _, value := range strings.Split(conditions, ",") {
		dim, ok := valueDimension[value]
		if !ok {
			return &InapplicableConditionError{Value: value, Kind: kind}
		}
		if !dim.appliesTo(kind) {
			return &InapplicableConditionError{Value: value, Kind: kind, Dimension: dim.Name}
		}
		if prev, dup := seen[dim.Name]; dup {
			return &ConditionConflictError{Dimension: dim.Name, First: prev, Second: value}
		}
		seen[dim.Name] = value
	}
	return nil
}

// FormatConditions renders a condition string for display, e.g.
// "resting,postprandial" -> "(resting, postprandial)". Empty input renders
// as the empty string.
func FormatConditions(conditions string) string {
	if conditions == "" {
		return ""
	}
	return "(" + strings.ReplaceAll(conditions, ",", ", ") + ")"
}
