package parse

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func testParser() *Parser {
	return New(NewAliases(AliasTable{
		CategoryExercises: {
			"sq": "squat",
			"bp": "bench press",
			"dl": "deadlift",
		},
		CategoryHRVMetrics: {
			"r": "rmssd",
			"s": "sdnn",
		},
		CategoryConditions: {
			"rest":    "resting",
			"post":    "post-workout",
			"workout": "post-workout",
			"stress":  "stressed",
			"pp":      "postprandial",
			"fed":     "postprandial",
			"arm":     "underarm",
			"ir":      "forehead_ir",
			"mouth":   "oral",
		},
		CategoryTags: {
			"gr": "grease-the-groove",
		},
	}))
}

func TestParse_Exercise(t *testing.T) {
	p := testParser()

	tests := []struct {
		name   string
		input  string
		want   Exercise
	}{
		{
			name:  "weight and sets-by-reps",
			input: "squat 100 3x5",
			want:  Exercise{Name: "squat", WeightKg: f(100), Reps: []int{5, 5, 5}},
		},
		{
			name:  "weight with kg suffix and comma reps",
			input: "bp 80kg 5,5,4",
			want:  Exercise{Name: "bench press", WeightKg: f(80), Reps: []int{5, 5, 4}},
		},
		{
			name:  "bodyweight reps only",
			input: "pushups 20",
			want:  Exercise{Name: "pushups", Reps: []int{20}},
		},
		{
			name:  "lone trailing number is reps not weight",
			input: "squat 100",
			want:  Exercise{Name: "squat", Reps: []int{100}},
		},
		{
			name:  "decimal weight",
			input: "squat 102.5 5",
			want:  Exercise{Name: "squat", WeightKg: f(102.5), Reps: []int{5}},
		},
		{
			name:  "rpe with prefix",
			input: "squat 100 3x5 rpe8",
			want:  Exercise{Name: "squat", WeightKg: f(100), Reps: []int{5, 5, 5}, RPE: f(8)},
		},
		{
			name:  "decimal rpe without prefix",
			input: "squat 100 5,5,5 8.5",
			want:  Exercise{Name: "squat", WeightKg: f(100), Reps: []int{5, 5, 5}, RPE: f(8.5)},
		},
		{
			name:  "out of range rpe ignored",
			input: "squat 100 3x5 rpe11",
			want:  Exercise{Name: "squat", WeightKg: f(100), Reps: []int{5, 5, 5}},
		},
		{
			name:  "alias resolves name",
			input: "sq 100 3x5",
			want:  Exercise{Name: "squat", WeightKg: f(100), Reps: []int{5, 5, 5}},
		},
		{
			name:  "case and whitespace normalized",
			input: "  SQUAT   100   3x5  ",
			want:  Exercise{Name: "squat", WeightKg: f(100), Reps: []int{5, 5, 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := p.Parse(tt.input, testNow)
			require.NoError(t, err)
			ex, ok := entry.(*Exercise)
			require.True(t, ok, "expected *Exercise, got %T", entry)

			assert.Equal(t, tt.want.Name, ex.Name)
			assert.Equal(t, tt.want.WeightKg, ex.WeightKg)
			assert.Equal(t, tt.want.Reps, ex.Reps)
			assert.Equal(t, tt.want.RPE, ex.RPE)
			assert.Equal(t, testNow, ex.Timestamp)
			assert.Nil(t, ex.Tags)
		})
	}
}

func TestParse_ExerciseErrors(t *testing.T) {
	p := testParser()

	_, err := p.Parse("squat", testNow)
	assert.ErrorIs(t, err, ErrNoReps)

	_, err = p.Parse("bp rpe8", testNow)
	assert.ErrorIs(t, err, ErrNoReps)

	_, err = p.Parse("", testNow)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = p.Parse("   ", testNow)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestParse_HeartRate(t *testing.T) {
	p := testParser()

	entry, err := p.Parse("hr 60 resting", testNow)
	require.NoError(t, err)
	hr := entry.(*HeartRate)
	assert.Equal(t, 60, hr.BPM)
	assert.Equal(t, "resting", hr.Conditions)

	entry, err = p.Parse("hr 55", testNow)
	require.NoError(t, err)
	assert.Equal(t, "", entry.(*HeartRate).Conditions)

	entry, err = p.Parse("hr 62 rest fed", testNow)
	require.NoError(t, err)
	assert.Equal(t, "resting,postprandial", entry.(*HeartRate).Conditions)

	_, err = p.Parse("hr", testNow)
	assert.ErrorIs(t, err, ErrMissingValue)

	_, err = p.Parse("hr abc", testNow)
	assert.Error(t, err)
}

func TestParse_HRV(t *testing.T) {
	p := testParser()

	entry, err := p.Parse("hrv 45", testNow)
	require.NoError(t, err)
	h := entry.(*HRV)
	assert.Equal(t, 45.0, h.Ms)
	assert.Equal(t, "rmssd", h.Metric, "metric defaults to rmssd")

	entry, err = p.Parse("hrv 52.5 sdnn morning", testNow)
	require.NoError(t, err)
	h = entry.(*HRV)
	assert.Equal(t, 52.5, h.Ms)
	assert.Equal(t, "sdnn", h.Metric)
	assert.Equal(t, "morning", h.Conditions)

	// metric alias intercepted before condition resolution
	entry, err = p.Parse("hrv 45 s waking", testNow)
	require.NoError(t, err)
	h = entry.(*HRV)
	assert.Equal(t, "sdnn", h.Metric)
	assert.Equal(t, "waking", h.Conditions)

	_, err = p.Parse("hrv", testNow)
	assert.ErrorIs(t, err, ErrMissingValue)
}

func TestParse_Temperature(t *testing.T) {
	p := testParser()

	entry, err := p.Parse("temp 36.6", testNow)
	require.NoError(t, err)
	assert.Equal(t, 36.6, entry.(*Temperature).Celsius)

	entry, err = p.Parse("temp 36.8 mouth morning", testNow)
	require.NoError(t, err)
	assert.Equal(t, "morning,oral", entry.(*Temperature).Conditions)

	_, err = p.Parse("temp", testNow)
	assert.ErrorIs(t, err, ErrMissingValue)
}

func TestParse_Bodyweight(t *testing.T) {
	p := testParser()

	entry, err := p.Parse("weight 80", testNow)
	require.NoError(t, err)
	bw := entry.(*Bodyweight)
	assert.Equal(t, 80.0, bw.Kg)
	assert.Nil(t, bw.BodyfatPct)

	entry, err = p.Parse("bw 79.5 15%", testNow)
	require.NoError(t, err)
	bw = entry.(*Bodyweight)
	assert.Equal(t, 79.5, bw.Kg)
	require.NotNil(t, bw.BodyfatPct)
	assert.Equal(t, 15.0, *bw.BodyfatPct)

	_, err = p.Parse("weight", testNow)
	assert.ErrorIs(t, err, ErrMissingValue)
}

func TestParse_ControlPause(t *testing.T) {
	p := testParser()

	entry, err := p.Parse("cp 45", testNow)
	require.NoError(t, err)
	assert.Equal(t, 45, entry.(*ControlPause).Seconds)

	entry, err = p.Parse("pause 30s waking", testNow)
	require.NoError(t, err)
	cp := entry.(*ControlPause)
	assert.Equal(t, 30, cp.Seconds)
	assert.Equal(t, "waking", cp.Conditions)

	_, err = p.Parse("cp", testNow)
	assert.ErrorIs(t, err, ErrMissingValue)

	_, err = p.Parse("cp 600", testNow)
	assert.Error(t, err, "seconds out of range")

	_, err = p.Parse("cp 0", testNow)
	assert.Error(t, err)
}

func TestParse_ConditionErrors(t *testing.T) {
	p := testParser()

	_, err := p.Parse("hr 60 resting active", testNow)
	var conflict *ConditionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "activity", conflict.Dimension)

	_, err = p.Parse("hr 60 mouth", testNow)
	var inapplicable *InapplicableConditionError
	require.ErrorAs(t, err, &inapplicable)
	assert.Equal(t, "oral", inapplicable.Value)
}

func TestParse_TimestampDirectives(t *testing.T) {
	p := testParser()

	entry, err := p.Parse("hr 60 @07:15", testNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 7, 15, 0, 0, time.UTC), entry.When())
	assert.Nil(t, entry.TagList(), "clock directive is not a tag")

	entry, err = p.Parse("hr 60 @yesterday", testNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC), entry.When())

	entry, err = p.Parse("hr 60 @2026-03-01", testNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), entry.When())

	// clock beats date when both are present
	entry, err = p.Parse("hr 60 @07:15 @2026-03-01", testNow)
	require.NoError(t, err)
	assert.Equal(t, 7, entry.When().Hour())

	_, err = p.Parse("hr 60 @99:99", testNow)
	assert.Error(t, err)
}

func TestParse_Tags(t *testing.T) {
	p := testParser()

	entry, err := p.Parse("squat 100 3x5 @gym @morning-session", testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"gym", "morning-session"}, entry.TagList())

	// alias resolution and dedup, first occurrence wins
	entry, err = p.Parse("pushups 20 @gr @grease-the-groove", testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"grease-the-groove"}, entry.TagList())

	entry, err = p.Parse("squat 100 3x5", testNow)
	require.NoError(t, err)
	assert.Nil(t, entry.TagList(), "no tags must export as nil, not empty slice")
}

func TestParse_NilAliases(t *testing.T) {
	p := New(nil)

	entry, err := p.Parse("sq 100 3x5", testNow)
	require.NoError(t, err)
	assert.Equal(t, "sq", entry.(*Exercise).Name, "nil resolver passes tokens through")
}

func TestParseReps(t *testing.T) {
	tests := []struct {
		token string
		want  []int
	}{
		{"3x5", []int{5, 5, 5}},
		{"1x12", []int{12}},
		{"5,5,8", []int{5, 5, 8}},
		{"10", []int{10}},
	}
	for _, tt := range tests {
		got, err := parseReps(tt.token)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "token %q", tt.token)
	}
}

func TestParse_UnknownTokensIgnoredForMetrics(t *testing.T) {
	p := testParser()

	// tokens that resolve to nothing are skipped, not errors
	entry, err := p.Parse("hr 60 whatever resting", testNow)
	require.NoError(t, err)
	assert.Equal(t, "resting", entry.(*HeartRate).Conditions)
}

func TestParse_MissingValueMessages(t *testing.T) {
	p := testParser()

	for _, tt := range []struct {
		input string
		msg   string
	}{
		{"hr", "heart rate needs bpm value"},
		{"hrv", "hrv needs milliseconds value"},
		{"temp", "temperature needs celsius value"},
		{"weight", "bodyweight needs kg value"},
		{"cp", "control pause needs seconds value"},
	} {
		_, err := p.Parse(tt.input, testNow)
		require.Error(t, err, tt.input)
		assert.True(t, errors.Is(err, ErrMissingValue), tt.input)
		assert.Contains(t, err.Error(), tt.msg)
	}
}

func f(v float64) *float64 { return &v }
