package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubGenerator struct {
	response    string
	err         error
	calls       int
	lastSystem  string
	lastMessage string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.calls++
	s.lastSystem = system
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func TestScorerScore(t *testing.T) {
	stub := &stubGenerator{response: "Here is the review:\n```json\n" + `{
		"summary": " Solid backend engineer. ",
		"sections": [
			{"name": "Skills", "score": "90", "weight": 0.35, "feedback": "Go and SQL {listed}"},
			{"name": "experience", "score": 80},
			{"name": "education", "score": 60},
			{"name": "keywords", "score": 50},
			{"name": "formatting", "score": 70}
		],
		"strengths": ["Go", " "],
		"improvements": ["Add metrics"],
		"missing_keywords": []
	}` + "\n```"}
	scorer := NewScorer(stub, 0, zap.NewNop())

	score, err := scorer.Score(context.Background(), "Go developer, 6 years", "Senior Go engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// .35*90 + .30*80 + .15*60 + .10*50 + .10*70
	if score.Overall != 76.5 {
		t.Fatalf("expected overall 76.5, got %v", score.Overall)
	}
	if len(score.Sections) != 5 {
		t.Fatalf("expected 5 sections, got %+v", score.Sections)
	}
	if score.Sections[0].Name != "skills" || score.Sections[0].Feedback != "Go and SQL {listed}" {
		t.Fatalf("unexpected skills section %+v", score.Sections[0])
	}
	if score.Summary != "Solid backend engineer." {
		t.Fatalf("unexpected summary %q", score.Summary)
	}
	if len(score.Strengths) != 1 || score.MissingKeywords != nil {
		t.Fatalf("expected compacted lists, got %+v", score)
	}
	if score.Raw != stub.response {
		t.Fatalf("expected raw response to be kept")
	}

	if stub.lastSystem != systemPrompt || !strings.Contains(stub.lastSystem, "skills (weight 0.35)") {
		t.Fatalf("expected embedded system prompt")
	}
	if !strings.Contains(stub.lastMessage, "Resume:\nGo developer, 6 years") ||
		!strings.Contains(stub.lastMessage, "Job description:\nSenior Go engineer") {
		t.Fatalf("unexpected message: %s", stub.lastMessage)
	}
}

func TestScorerRequiresInputs(t *testing.T) {
	stub := &stubGenerator{}
	scorer := NewScorer(stub, 0, nil)

	if _, err := scorer.Score(context.Background(), " ", "job"); err == nil {
		t.Fatal("expected error for empty resume")
	}
	if _, err := scorer.Score(context.Background(), "resume", ""); err == nil {
		t.Fatal("expected error for empty job description")
	}
	if stub.calls != 0 {
		t.Fatalf("expected no model calls, got %d", stub.calls)
	}
}

func TestScorerDoesNotRetryMalformedOutput(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	stub := &stubGenerator{response: `{"sections": [{"name": "skills", "score": 80}`}
	scorer := NewScorer(stub, 0, zap.New(core))

	_, err := scorer.Score(context.Background(), "resume", "job")
	if !errors.Is(err, ErrNoJSON) {
		t.Fatalf("expected ErrNoJSON, got %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected a single model call, got %d", stub.calls)
	}

	entries := logs.FilterMessage("unparseable gemini response").All()
	if len(entries) != 1 || entries[0].ContextMap()["ai_model"] != "stub-model" {
		t.Fatalf("expected warning with model field, got %+v", entries)
	}
}

func TestScorerPropagatesGeneratorErrors(t *testing.T) {
	boom := errors.New("boom")
	scorer := NewScorer(&stubGenerator{err: boom}, 0, nil)

	if _, err := scorer.Score(context.Background(), "resume", "job"); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: `{"a":1}`, want: `{"a":1}`},
		{name: "surrounding text", raw: "sure! {\"a\":{\"b\":2}} thanks {\"c\":3}", want: `{"a":{"b":2}}`},
		{name: "braces in strings", raw: `{"a":"}{","b":"\"}"}`, want: `{"a":"}{","b":"\"}"}`},
		{name: "escaped backslash before quote", raw: `{"a":"x\\"} tail`, want: `{"a":"x\\"}`},
		{name: "no object", raw: "no json here", wantErr: true},
		{name: "unbalanced", raw: `{"a":{"b":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseResponseRejectsInvalidJSON(t *testing.T) {
	if _, err := parseResponse(`{"sections": [1,]}`); err == nil || errors.Is(err, ErrNoJSON) {
		t.Fatalf("expected json parse error, got %v", err)
	}
	if _, err := parseResponse(`{"sections": "not a list"}`); err == nil {
		t.Fatal("expected decode error")
	}
}
