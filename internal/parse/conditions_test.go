package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimensions_PrioritiesUniqueAndOrdered(t *testing.T) {
	seen := make(map[int]string)
	prev := 0
	for _, d := range Dimensions() {
		if name, dup := seen[d.Priority]; dup {
			t.Fatalf("priority %d shared by %s and %s", d.Priority, name, d.Name)
		}
		seen[d.Priority] = d.Name
		assert.Greater(t, d.Priority, prev, "catalog must be declared in ascending priority")
		prev = d.Priority
	}
}

func TestApplicableDimensions(t *testing.T) {
	for _, kind := range []Kind{KindHeartRate, KindHRV, KindControlPause} {
		for _, d := range ApplicableDimensions(kind) {
			assert.NotEqual(t, "technique", d.Name, "technique is temperature-only")
		}
	}

	var names []string
	for _, d := range ApplicableDimensions(KindTemperature) {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "technique")
}

func TestResolveConditions_CanonicalOrder(t *testing.T) {
	aliases := NewAliases(AliasTable{
		CategoryConditions: {"rest": "resting", "fed": "postprandial"},
	})

	tests := []struct {
		name   string
		tokens []string
		kind   Kind
		want   string
	}{
		{"empty", nil, KindHeartRate, ""},
		{"single", []string{"resting"}, KindHeartRate, "resting"},
		{"alias resolved", []string{"rest"}, KindHeartRate, "resting"},
		{"unknown skipped", []string{"banana", "resting"}, KindHeartRate, "resting"},
		{"sorted by dimension priority", []string{"fed", "morning", "resting"}, KindHeartRate, "resting,morning,postprandial"},
		{"technique last for temperature", []string{"oral", "morning", "fasted"}, KindTemperature, "morning,fasted,oral"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveConditions(tt.tokens, tt.kind, aliases)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveConditions_PermutationDeterminism(t *testing.T) {
	tokens := []string{"stressed", "postprandial", "evening", "resting"}
	want := "resting,evening,postprandial,stressed"

	// every rotation of the same token set yields the same canonical string
	for i := range tokens {
		rotated := append(append([]string{}, tokens[i:]...), tokens[:i]...)
		got, err := ResolveConditions(rotated, KindHeartRate, nil)
		require.NoError(t, err)
		assert.Equal(t, want, got, "rotation %d", i)
	}
}

func TestResolveConditions_Conflict(t *testing.T) {
	_, err := ResolveConditions([]string{"morning", "evening"}, KindHRV, nil)
	var conflict *ConditionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "time_of_day", conflict.Dimension)
	assert.Equal(t, "morning", conflict.First)
	assert.Equal(t, "evening", conflict.Second)
	assert.Contains(t, err.Error(), "time_of_day")
}

func TestResolveConditions_Inapplicable(t *testing.T) {
	_, err := ResolveConditions([]string{"underarm"}, KindControlPause, nil)
	var inapplicable *InapplicableConditionError
	require.ErrorAs(t, err, &inapplicable)
	assert.Equal(t, "underarm", inapplicable.Value)
	assert.Equal(t, KindControlPause, inapplicable.Kind)
	assert.Contains(t, err.Error(), "does not apply")
}

func TestValidateConditions(t *testing.T) {
	tests := []struct {
		name       string
		conditions string
		kind       Kind
		wantErr    bool
	}{
		{"empty is valid", "", KindHeartRate, false},
		{"canonical single", "resting", KindHeartRate, false},
		{"canonical pair", "resting,morning", KindHRV, false},
		{"technique on temperature", "morning,oral", KindTemperature, false},
		{"unknown value rejected", "resting,banana", KindHeartRate, true},
		{"inapplicable dimension", "oral", KindHeartRate, true},
		{"duplicate dimension", "morning,evening", KindHRV, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConditions(tt.conditions, tt.kind)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFormatConditions(t *testing.T) {
	assert.Equal(t, "", FormatConditions(""))
	assert.Equal(t, "(resting)", FormatConditions("resting"))
	assert.Equal(t, "(resting, postprandial)", FormatConditions("resting,postprandial"))
}

func TestApplicableValues(t *testing.T) {
	hr := ApplicableValues(KindHeartRate)
	assert.True(t, hr["resting"])
	assert.False(t, hr["oral"])

	temp := ApplicableValues(KindTemperature)
	assert.True(t, temp["oral"])
	assert.True(t, temp["resting"])

	// no value string contains the join separator
	for v := range temp {
		assert.False(t, strings.Contains(v, ","), "value %q", v)
	}
}
