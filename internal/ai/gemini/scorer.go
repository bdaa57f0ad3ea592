package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/goal-tracker/internal/ai"
	"github.com/spigell/goal-tracker/internal/logger"
	"github.com/spigell/goal-tracker/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Scorer rates a resume against a job description with a generative model.
type Scorer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var systemPrompt string

const defaultMaxLogLength = 200

// ErrNoJSON is returned when the model response holds no complete JSON object.
var ErrNoJSON = errors.New("no json object in model response")

type modelResponse struct {
	Summary         string       `mapstructure:"summary"`
	Sections        []ai.Section `mapstructure:"sections"`
	Strengths       []string     `mapstructure:"strengths"`
	Improvements    []string     `mapstructure:"improvements"`
	MissingKeywords []string     `mapstructure:"missing_keywords"`
}

func NewScorer(generator contentGenerator, maxLogLength int, log *zap.Logger) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Scorer{
		generator: generator,
		logger:    logger.WithCommonFields(log, ProviderName, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (s *Scorer) Score(ctx context.Context, resumeText, jobDescription string) (*ai.ResumeScore, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return nil, errors.New("resume text is required")
	}
	jobDescription = strings.TrimSpace(jobDescription)
	if jobDescription == "" {
		return nil, errors.New("job description is required")
	}

	message := buildMessage(resumeText, jobDescription)

	s.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", utils.TruncateForLog(message, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	score, err := parseResponse(raw)
	if err != nil {
		s.logger.Warn("unparseable gemini response", zap.Error(err))
		return nil, err
	}

	score.Raw = raw
	return score, nil
}

func buildMessage(resumeText, jobDescription string) string {
	var b strings.Builder
	b.WriteString("Resume:\n")
	b.WriteString(resumeText)
	b.WriteString("\n\nJob description:\n")
	b.WriteString(jobDescription)
	b.WriteString("\n\nJSON Response:")
	return b.String()
}

func parseResponse(raw string) (*ai.ResumeScore, error) {
	object, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(object), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	var resp modelResponse
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("build response decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}

	sections := ai.MergeRubric(resp.Sections)

	return &ai.ResumeScore{
		Overall:         ai.Overall(sections),
		Sections:        sections,
		Summary:         strings.TrimSpace(resp.Summary),
		Strengths:       compact(resp.Strengths),
		Improvements:    compact(resp.Improvements),
		MissingKeywords: compact(resp.MissingKeywords),
	}, nil
}

// extractJSON returns the first balanced {...} substring of raw. Braces
// inside JSON strings are ignored.
func extractJSON(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start == -1 {
		return "", ErrNoJSON
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}

	return "", ErrNoJSON
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
