package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	timeDirective      = regexp.MustCompile(`@(\d{1,2}):(\d{2})`)
	yesterdayDirective = regexp.MustCompile(`@yesterday`)
	dateDirective      = regexp.MustCompile(`@(\d{4}-\d{2}-\d{2})`)
	tagDirective       = regexp.MustCompile(`@([a-z][a-z0-9_-]*)`)
)

// extractTimestamp finds one timestamp directive in text and removes it,
// returning the resolved time and the remaining text. Directive forms are
// tried in priority order: @HH:MM (clock time on the reference date),
// @yesterday (midnight of the previous day), @YYYY-MM-DD (exact date at
// midnight). Only the first match is consumed. Without a directive the
// reference time is returned unchanged.
func extractTimestamp(text string, now time.Time) (time.Time, string, error) {
	if loc := timeDirective.FindStringSubmatchIndex(text); loc != nil {
		hour, _ := strconv.Atoi(text[loc[2]:loc[3]])
		minute, _ := strconv.Atoi(text[loc[4]:loc[5]])
		if hour > 23 || minute > 59 {
			return time.Time{}, "", fmt.Errorf("invalid time %q", text[loc[0]:loc[1]])
		}
		ts := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		return ts, cutSpan(text, loc[0], loc[1]), nil
	}

	if loc := yesterdayDirective.FindStringIndex(text); loc != nil {
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return midnight.AddDate(0, 0, -1), cutSpan(text, loc[0], loc[1]), nil
	}

	if loc := dateDirective.FindStringSubmatchIndex(text); loc != nil {
		ts, err := time.ParseInLocation("2006-01-02", text[loc[2]:loc[3]], now.Location())
		if err != nil {
			return time.Time{}, "", fmt.Errorf("invalid date %q: %w", text[loc[2]:loc[3]], err)
		}
		return ts, cutSpan(text, loc[0], loc[1]), nil
	}

	return now, text, nil
}

// extractTags removes every @word directive from text and returns the
// normalized tag list. Tags are alias-resolved through the tags category and
// deduplicated, keeping first-occurrence order. Returns nil (not an empty
// slice) when no tag was present, so "tags absent" stays distinguishable
// downstream. Must run on timestamp-stripped text: a leftover @14:30 would
// not match the tag pattern, but @yesterday would.
func extractTags(text string, aliases *Aliases) ([]string, string) {
	matches := tagDirective.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return nil, text
	}

	var tags []string
	seen := make(map[string]bool)
	for _, loc := range matches {
		tag := aliases.Resolve(CategoryTags, text[loc[2]:loc[3]])
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	remaining := tagDirective.ReplaceAllString(text, " ")
	remaining = strings.Join(strings.Fields(remaining), " ")
	return tags, remaining
}

func cutSpan(text string, start, end int) string {
	return strings.TrimSpace(text[:start] + text[end:])
}
