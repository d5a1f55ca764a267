// Package parse turns free-text health log lines ("squat 120 3x5",
// "hr 58 resting @oura") into typed, validated entries.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	weightToken  = regexp.MustCompile(`^(\d+(?:\.\d+)?)(kg)?$`)
	repsToken    = regexp.MustCompile(`^(\d+x\d+|\d+(,\d+)*)$`)
	setsByReps   = regexp.MustCompile(`^(\d+)x(\d+)$`)
	rpeToken     = regexp.MustCompile(`^(?:rpe)?(\d+(?:\.\d+)?)$`)
	bodyfatToken = regexp.MustCompile(`^(\d+(?:\.\d+)?)%?$`)
	secondsToken = regexp.MustCompile(`^(\d+)s?$`)
)

// Parser converts one line of raw text into an Entry. It is safe for
// concurrent use; the alias table it holds may be reloaded at any time.
type Parser struct {
	aliases *Aliases
}

// New creates a Parser over an alias resolver. A nil resolver disables
// aliasing (every token resolves to itself).
func New(aliases *Aliases) *Parser {
	return &Parser{aliases: aliases}
}

// Aliases returns the parser's alias resolver.
func (p *Parser) Aliases() *Aliases { return p.aliases }

// Parse parses a raw entry line. The reference time seeds the entry
// timestamp and anchors relative timestamp directives; pass time.Now()
// outside tests.
func (p *Parser) Parse(text string, now time.Time) (Entry, error) {
	text = strings.ToLower(strings.TrimSpace(text))

	timestamp, text, err := extractTimestamp(text, now)
	if err != nil {
		return nil, err
	}
	tags, text := extractTags(text, p.aliases)

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, ErrEmptyInput
	}

	switch tokens[0] {
	case "hr":
		return p.parseHeartRate(tokens[1:], timestamp, tags)
	case "hrv":
		return p.parseHRV(tokens[1:], timestamp, tags)
	case "temp":
		return p.parseTemperature(tokens[1:], timestamp, tags)
	case "weight", "bw":
		return p.parseBodyweight(tokens[1:], timestamp, tags)
	case "cp", "pause":
		return p.parseControlPause(tokens[1:], timestamp, tags)
	default:
		return p.parseExercise(tokens, timestamp, tags)
	}
}

// parseExercise handles "name [weight] reps [rpe]". Weight and reps share the
// same surface syntax for bare numbers, so the scan uses one token of
// lookahead: a number is weight only when the next token is a reps pattern
// (or when it cannot itself be reps). A lone trailing number with nothing
// after it therefore parses as reps, not weight.
func (p *Parser) parseExercise(tokens []string, timestamp time.Time, tags []string) (Entry, error) {
	name := p.aliases.Resolve(CategoryExercises, tokens[0])
	rest := tokens[1:]

	var weight, rpe *float64
	var reps []int

	for i := 0; i < len(rest); i++ {
		token := rest[i]

		if weight == nil && reps == nil {
			if m := weightToken.FindStringSubmatch(token); m != nil {
				if i+1 < len(rest) && repsToken.MatchString(rest[i+1]) {
					w, err := strconv.ParseFloat(m[1], 64)
					if err != nil {
						return nil, fmt.Errorf("invalid weight %q: %w", token, err)
					}
					weight = &w
					continue
				}
				if repsToken.MatchString(token) {
					r, err := parseReps(token)
					if err != nil {
						return nil, err
					}
					reps = r
					continue
				}
				w, err := strconv.ParseFloat(m[1], 64)
				if err != nil {
					return nil, fmt.Errorf("invalid weight %q: %w", token, err)
				}
				weight = &w
				continue
			}
		}

		if reps == nil && repsToken.MatchString(token) {
			r, err := parseReps(token)
			if err != nil {
				return nil, err
			}
			reps = r
			continue
		}

		if rpe == nil {
			if m := rpeToken.FindStringSubmatch(token); m != nil {
				v, err := strconv.ParseFloat(m[1], 64)
				if err == nil && v >= 1 && v <= 10 {
					rpe = &v
					continue
				}
				// out of range: not an RPE, leave unconsumed
			}
		}
	}

	if reps == nil {
		return nil, ErrNoReps
	}

	return &Exercise{
		Name:      name,
		WeightKg:  weight,
		Reps:      reps,
		RPE:       rpe,
		Timestamp: timestamp,
		Tags:      tags,
	}, nil
}

// parseReps expands a reps token: "3x5" -> [5 5 5] (3 sets of 5),
// "5,5,8" -> [5 5 8] verbatim, "10" -> [10].
func parseReps(token string) ([]int, error) {
	if m := setsByReps.FindStringSubmatch(token); m != nil {
		sets, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid reps %q: %w", token, err)
		}
		count, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("invalid reps %q: %w", token, err)
		}
		reps := make([]int, sets)
		for i := range reps {
			reps[i] = count
		}
		return reps, nil
	}

	parts := strings.Split(token, ",")
	reps := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid reps %q: %w", token, err)
		}
		reps[i] = n
	}
	return reps, nil
}

func (p *Parser) parseHeartRate(tokens []string, timestamp time.Time, tags []string) (Entry, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: heart rate needs bpm value", ErrMissingValue)
	}
	bpm, err := strconv.Atoi(tokens[0])
	if err != nil {
		return nil, fmt.Errorf("invalid bpm %q: %w", tokens[0], err)
	}

	conditions, err := ResolveConditions(tokens[1:], KindHeartRate, p.aliases)
	if err != nil {
		return nil, err
	}

	return &HeartRate{BPM: bpm, Conditions: conditions, Timestamp: timestamp, Tags: tags}, nil
}

func (p *Parser) parseHRV(tokens []string, timestamp time.Time, tags []string) (Entry, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: hrv needs milliseconds value", ErrMissingValue)
	}
	ms, err := strconv.ParseFloat(tokens[0], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid hrv value %q: %w", tokens[0], err)
	}

	// A metric subtype token is intercepted before condition resolution.
	metric := "rmssd"
	var condTokens []string
	for _, token := range tokens[1:] {
		if m := p.aliases.Resolve(CategoryHRVMetrics, token); m == "rmssd" || m == "sdnn" {
			metric = m
			continue
		}
		condTokens = append(condTokens, token)
	}

	conditions, err := ResolveConditions(condTokens, KindHRV, p.aliases)
	if err != nil {
		return nil, err
	}

	return &HRV{Ms: ms, Metric: metric, Conditions: conditions, Timestamp: timestamp, Tags: tags}, nil
}

func (p *Parser) parseTemperature(tokens []string, timestamp time.Time, tags []string) (Entry, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: temperature needs celsius value", ErrMissingValue)
	}
	celsius, err := strconv.ParseFloat(tokens[0], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid temperature %q: %w", tokens[0], err)
	}

	conditions, err := ResolveConditions(tokens[1:], KindTemperature, p.aliases)
	if err != nil {
		return nil, err
	}

	return &Temperature{Celsius: celsius, Conditions: conditions, Timestamp: timestamp, Tags: tags}, nil
}

func (p *Parser) parseBodyweight(tokens []string, timestamp time.Time, tags []string) (Entry, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: bodyweight needs kg value", ErrMissingValue)
	}
	kg, err := strconv.ParseFloat(tokens[0], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid weight %q: %w", tokens[0], err)
	}

	var bodyfat *float64
	if len(tokens) > 1 {
		if m := bodyfatToken.FindStringSubmatch(tokens[1]); m != nil {
			bf, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid bodyfat %q: %w", tokens[1], err)
			}
			bodyfat = &bf
		}
	}

	return &Bodyweight{Kg: kg, BodyfatPct: bodyfat, Timestamp: timestamp, Tags: tags}, nil
}

func (p *Parser) parseControlPause(tokens []string, timestamp time.Time, tags []string) (Entry, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: control pause needs seconds value", ErrMissingValue)
	}
	m := secondsToken.FindStringSubmatch(tokens[0])
	if m == nil {
		return nil, fmt.Errorf("invalid seconds value %q", tokens[0])
	}
	seconds, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("invalid seconds value %q: %w", tokens[0], err)
	}
	if seconds <= 0 || seconds >= 600 {
		return nil, fmt.Errorf("seconds must be between 1 and 599, got %d", seconds)
	}

	conditions, err := ResolveConditions(tokens[1:], KindControlPause, p.aliases)
	if err != nil {
		return nil, err
	}

	return &ControlPause{Seconds: seconds, Conditions: conditions, Timestamp: timestamp, Tags: tags}, nil
}
