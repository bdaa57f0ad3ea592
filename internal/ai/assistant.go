package ai

import "context"

// Section is one scored part of the rubric.
type Section struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Feedback string  `json:"feedback,omitempty"`
}

// ResumeScore is the reconciled result of a resume review.
type ResumeScore struct {
	Overall         float64   `json:"overall"`
	Sections        []Section `json:"sections"`
	Summary         string    `json:"summary,omitempty"`
	Strengths       []string  `json:"strengths,omitempty"`
	Improvements    []string  `json:"improvements,omitempty"`
	MissingKeywords []string  `json:"missing_keywords,omitempty"`
	Raw             string    `json:"-"`
}

type Scorer interface {
	Score(ctx context.Context, resumeText, jobDescription string) (*ResumeScore, error)
}
