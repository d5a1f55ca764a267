package parse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the closed category of a logged observation. The values double as
// the storage discriminators, so exports stay compatible with previously
// written data.
type Kind string

// Entry kinds.
const (
	KindExercise     Kind = "exercise"
	KindHeartRate    Kind = "hr"
	KindHRV          Kind = "hrv"
	KindTemperature  Kind = "temp"
	KindBodyweight   Kind = "weight"
	KindControlPause Kind = "cp"
)

// Entry is the typed result of a parse call. Entries are immutable: changing
// an interpretation means re-parsing replacement text, never mutating a
// parsed value.
type Entry interface {
	// Kind returns the entry's kind tag.
	Kind() Kind
	// When returns the entry timestamp.
	When() time.Time
	// TagList returns the normalized tags, nil when none were given.
	TagList() []string
	// Display returns the canonical single-line rendering.
	Display() string
	// Export returns the structured form storage round-trips on. Every
	// kind-specific field is present; absent tags export as an explicit nil.
	Export() map[string]any
}

// Exercise is a strength-training entry: name, optional weight, one reps
// count per set, optional RPE.
type Exercise struct {
	Name      string
	WeightKg  *float64
	Reps      []int
	RPE       *float64
	Timestamp time.Time
	Tags      []string
}

func (e *Exercise) Kind() Kind        { return KindExercise }
func (e *Exercise) When() time.Time   { return e.Timestamp }
func (e *Exercise) TagList() []string { return e.Tags }

func (e *Exercise) Display() string {
	weight := "(BW)"
	if e.WeightKg != nil {
		weight = formatNum(*e.WeightKg) + "kg"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s [%s]", e.Name, weight, joinInts(e.Reps))
	if e.RPE != nil {
		b.WriteString(" RPE " + formatNum(*e.RPE))
	}
	b.WriteString(tagSuffix(e.Tags))
	return b.String()
}

func (e *Exercise) Export() map[string]any {
	return map[string]any{
		"type":      string(KindExercise),
		"name":      e.Name,
		"weight_kg": optFloat(e.WeightKg),
		"reps":      e.Reps,
		"rpe":       optFloat(e.RPE),
		"timestamp": e.Timestamp.Format(time.RFC3339),
		"tags":      exportTags(e.Tags),
	}
}

// HeartRate is a bpm reading with optional conditions.
type HeartRate struct {
	BPM        int
	Conditions string
	Timestamp  time.Time
	Tags       []string
}

func (e *HeartRate) Kind() Kind        { return KindHeartRate }
func (e *HeartRate) When() time.Time   { return e.Timestamp }
func (e *HeartRate) TagList() []string { return e.Tags }

func (e *HeartRate) Display() string {
	return fmt.Sprintf("HR %d bpm", e.BPM) + condSuffix(e.Conditions) + tagSuffix(e.Tags)
}

func (e *HeartRate) Export() map[string]any {
	return map[string]any{
		"type":       string(KindHeartRate),
		"bpm":        e.BPM,
		"conditions": optString(e.Conditions),
		"timestamp":  e.Timestamp.Format(time.RFC3339),
		"tags":       exportTags(e.Tags),
	}
}

// HRV is a heart-rate-variability reading with a metric subtype.
type HRV struct {
	Ms         float64
	Metric     string
	Conditions string
	Timestamp  time.Time
	Tags       []string
}

func (e *HRV) Kind() Kind        { return KindHRV }
func (e *HRV) When() time.Time   { return e.Timestamp }
func (e *HRV) TagList() []string { return e.Tags }

func (e *HRV) Display() string {
	return fmt.Sprintf("HRV %sms (%s)", formatNum(e.Ms), e.Metric) +
		condSuffix(e.Conditions) + tagSuffix(e.Tags)
}

func (e *HRV) Export() map[string]any {
	return map[string]any{
		"type":       string(KindHRV),
		"ms":         e.Ms,
		"metric":     e.Metric,
		"conditions": optString(e.Conditions),
		"timestamp":  e.Timestamp.Format(time.RFC3339),
		"tags":       exportTags(e.Tags),
	}
}

// Temperature is a body-temperature reading. Its conditions may include the
// measurement technique, which no other kind carries.
type Temperature struct {
	Celsius    float64
	Conditions string
	Timestamp  time.Time
	Tags       []string
}

func (e *Temperature) Kind() Kind        { return KindTemperature }
func (e *Temperature) When() time.Time   { return e.Timestamp }
func (e *Temperature) TagList() []string { return e.Tags }

func (e *Temperature) Display() string {
	return fmt.Sprintf("Temp %s°C", formatNum(e.Celsius)) +
		condSuffix(e.Conditions) + tagSuffix(e.Tags)
}

func (e *Temperature) Export() map[string]any {
	return map[string]any{
		"type":       string(KindTemperature),
		"celsius":    e.Celsius,
		"conditions": optString(e.Conditions),
		"timestamp":  e.Timestamp.Format(time.RFC3339),
		"tags":       exportTags(e.Tags),
	}
}

// Bodyweight is a scale reading with optional body-fat percentage.
type Bodyweight struct {
	Kg         float64
	BodyfatPct *float64
	Timestamp  time.Time
	Tags       []string
}

func (e *Bodyweight) Kind() Kind        { return KindBodyweight }
func (e *Bodyweight) When() time.Time   { return e.Timestamp }
func (e *Bodyweight) TagList() []string { return e.Tags }

func (e *Bodyweight) Display() string {
	s := fmt.Sprintf("Weight %skg", formatNum(e.Kg))
	if e.BodyfatPct != nil {
		s += fmt.Sprintf(" (%s%% BF)", formatNum(*e.BodyfatPct))
	}
	return s + tagSuffix(e.Tags)
}

func (e *Bodyweight) Export() map[string]any {
	return map[string]any{
		"type":        string(KindBodyweight),
		"kg":          e.Kg,
		"bodyfat_pct": optFloat(e.BodyfatPct),
		"timestamp":   e.Timestamp.Format(time.RFC3339),
		"tags":        exportTags(e.Tags),
	}
}

// ControlPause is a breath-hold measurement in seconds.
type ControlPause struct {
	Seconds    int
	Conditions string
	Timestamp  time.Time
	Tags       []string
}

func (e *ControlPause) Kind() Kind        { return KindControlPause }
func (e *ControlPause) When() time.Time   { return e.Timestamp }
func (e *ControlPause) TagList() []string { return e.Tags }

func (e *ControlPause) Display() string {
	return fmt.Sprintf("CP %ds", e.Seconds) + condSuffix(e.Conditions) + tagSuffix(e.Tags)
}

func (e *ControlPause) Export() map[string]any {
	return map[string]any{
		"type":       string(KindControlPause),
		"seconds":    e.Seconds,
		"conditions": optString(e.Conditions),
		"timestamp":  e.Timestamp.Format(time.RFC3339),
		"tags":       exportTags(e.Tags),
	}
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func condSuffix(conditions string) string {
	if conditions == "" {
		return ""
	}
	return " " + FormatConditions(conditions)
}

func tagSuffix(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	var b strings.Builder
	for _, tag := range tags {
		b.WriteString(" @")
		b.WriteString(tag)
	}
	return b.String()
}

func optFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func exportTags(tags []string) any {
	if tags == nil {
		return nil
	}
	return tags
}
