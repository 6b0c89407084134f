package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

type FilterMode int

const (
	FilterModeNone FilterMode = iota
	FilterModeExact
	FilterModeContains
	FilterModeRegex
	FilterModeFuzzy
)

type StringFilter struct {
	Pattern string
	Mode    FilterMode
	regex   *regexp.Regexp
}

func NewStringFilter(pattern string, mode FilterMode) (*StringFilter, error) {
	f := &StringFilter{
		Pattern: pattern,
		Mode:    mode,
	}

	if mode == FilterModeRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern '%s': %w", pattern, err)
		}
		f.regex = re
	}

	return f, nil
}

// MatchAny reports whether any of the fields matches the filter.
func (f *StringFilter) MatchAny(fields ...string) bool {
	if f == nil || f.Mode == FilterModeNone {
		return true
	}
	for _, s := range fields {
		if f.Match(s) {
			return true
		}
	}
	return false
}

func (f *StringFilter) Match(s string) bool {
	switch f.Mode {
	case FilterModeNone:
		return true
	case FilterModeExact:
		return strings.EqualFold(s, f.Pattern)
	case FilterModeContains:
		return strings.Contains(strings.ToLower(s), strings.ToLower(f.Pattern))
	case FilterModeRegex:
		return f.regex != nil && f.regex.MatchString(s)
	case FilterModeFuzzy:
		return FuzzyMatch(f.Pattern, s)
	default:
		return true
	}
}

// FuzzyMatch reports whether every character of pattern appears in text in
// order, ignoring case.
func FuzzyMatch(pattern, text string) bool {
	if pattern == "" {
		return true
	}
	if text == "" {
		return false
	}

	p := []rune(strings.ToLower(pattern))
	pIdx := 0
	for _, r := range strings.ToLower(text) {
		if r == p[pIdx] {
			pIdx++
			if pIdx == len(p) {
				return true
			}
		}
	}
	return false
}

func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	previousRow := make([]int, len(r2)+1)
	currentRow := make([]int, len(r2)+1)

	for i := 0; i <= len(r2); i++ {
		previousRow[i] = i
	}

	for i := 0; i < len(r1); i++ {
		currentRow[0] = i + 1

		for j := 0; j < len(r2); j++ {
			cost := 1
			if unicode.ToLower(r1[i]) == unicode.ToLower(r2[j]) {
				cost = 0
			}

			deletion := currentRow[j] + 1
			insertion := previousRow[j+1] + 1
			substitution := previousRow[j] + cost

			currentRow[j+1] = min(deletion, insertion, substitution)
		}

		previousRow, currentRow = currentRow, previousRow
	}

	return previousRow[len(r2)]
}

// Similarity is 1 minus the edit distance normalised by the longer input.
func Similarity(s1, s2 string) float64 {
	maxLen := max(len([]rune(s1)), len([]rune(s2)))
	if maxLen == 0 {
		return 1
	}
	return 1.0 - float64(LevenshteinDistance(s1, s2))/float64(maxLen)
}

// Closest returns up to limit candidates that either fuzzy-match pattern or
// reach the similarity threshold, best first.
func Closest(pattern string, candidates []string, threshold float64, limit int) []string {
	if strings.TrimSpace(pattern) == "" || limit <= 0 {
		return nil
	}

	type scored struct {
		name  string
		score float64
	}

	var matches []scored
	for _, c := range candidates {
		score := Similarity(pattern, c)
		if FuzzyMatch(pattern, c) {
			score += 1
		}
		if score >= threshold {
			matches = append(matches, scored{name: c, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.name)
	}
	return names
}
