package ai

import (
	"math"
	"strings"
)

// DefaultRubric lists the sections every score reports, with their default weights.
var DefaultRubric = []Section{
	{Name: "skills", Weight: 0.35},
	{Name: "experience", Weight: 0.30},
	{Name: "education", Weight: 0.15},
	{Name: "keywords", Weight: 0.10},
	{Name: "formatting", Weight: 0.10},
}

// MergeRubric reconciles the sections returned by a model with the default
// rubric. Default sections are always present and score 0 when the model
// skipped them. A positive model weight replaces the default one. Unknown
// sections are kept only when they carry a positive weight. Weights are
// normalized to sum to 1 and scores are clamped to 0..100.
func MergeRubric(sections []Section) []Section {
	merged := make([]Section, len(DefaultRubric))
	copy(merged, DefaultRubric)

	index := make(map[string]int, len(merged))
	for i, s := range merged {
		index[s.Name] = i
	}

	for _, s := range sections {
		name := normalizeName(s.Name)
		if name == "" {
			continue
		}
		s.Name = name
		s.Score = clampScore(s.Score)
		s.Feedback = strings.TrimSpace(s.Feedback)

		if i, ok := index[name]; ok {
			if !usableWeight(s.Weight) {
				s.Weight = merged[i].Weight
			}
			merged[i] = s
			continue
		}

		if usableWeight(s.Weight) {
			index[name] = len(merged)
			merged = append(merged, s)
		}
	}

	var total float64
	for _, s := range merged {
		total += s.Weight
	}
	if total > 0 {
		for i := range merged {
			merged[i].Weight /= total
		}
	}

	return merged
}

// Overall returns the weighted score rounded to one decimal.
func Overall(sections []Section) float64 {
	var sum float64
	for _, s := range sections {
		sum += s.Score * s.Weight
	}
	return math.Round(sum*10) / 10
}

func usableWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0)
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

func clampScore(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
