package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"github.com/scioarena/scioarena/config"
	"google.golang.org/api/option"
)

// RubricRequest is one free-response grading request sent to the provider.
type RubricRequest struct {
	QuestionPrompt  string
	Rubric          string
	StudentResponse string
	MaxPoints       float64
}

// RubricSuggestion is the parsed provider output. Raw preserves the full
// response text for auditing and re-parsing.
type RubricSuggestion struct {
	Score           float64
	Summary         string
	Strengths       string
	Gaps            string
	RubricAlignment string
	Raw             string
}

// GeminiLLMService wraps the Gemini API for advisory grading suggestions.
// It is treated as slow and unreliable: callers must never let a failure
// here corrupt or block a grading transaction.
type GeminiLLMService interface {
	SuggestGrade(ctx context.Context, req RubricRequest) (*RubricSuggestion, error)
}

type geminiLLMService struct {
	client *genai.GenerativeModel
	cfg    *config.Config
}

func NewGeminiLLMService(cfg *config.Config) (GeminiLLMService, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. GeminiLLMService will be non-functional.")
		return &geminiLLMService{cfg: cfg, client: nil}, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	model := client.GenerativeModel("gemini-1.5-flash")
	return &geminiLLMService{client: model, cfg: cfg}, nil
}

func (s *geminiLLMService) SuggestGrade(ctx context.Context, req RubricRequest) (*RubricSuggestion, error) {
	if s.client == nil {
		return nil, fmt.Errorf("gemini client not initialized")
	}

	var b strings.Builder
	b.WriteString("You are an experienced Science Olympiad grader scoring a free-response answer.\n\n")
	b.WriteString("Question:\n---\n")
	b.WriteString(req.QuestionPrompt)
	b.WriteString("\n---\n\n")
	if req.Rubric != "" {
		b.WriteString("Rubric:\n---\n")
		b.WriteString(req.Rubric)
		b.WriteString("\n---\n\n")
	}
	b.WriteString("Student Answer:\n---\n")
	b.WriteString(req.StudentResponse)
	b.WriteString("\n---\n\n")
	b.WriteString(fmt.Sprintf(`Score the answer from 0.0 to %.1f. Format your response strictly as:
Score: [numerical score]
Summary: [one-paragraph overall assessment]
Strengths: [what the answer got right]
Gaps: [what is missing or wrong]
RubricAlignment: [how the answer maps to the rubric criteria]
`, req.MaxPoints))

	resp, err := s.client.GenerateContent(ctx, genai.Text(b.String()))
	if err != nil {
		log.Error().Err(err).Msg("Gemini API error during grading suggestion")
		return nil, err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no content")
	}

	fullText := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			fullText += string(txt)
		}
	}
	if fullText == "" {
		return nil, fmt.Errorf("gemini returned no text content")
	}

	suggestion, err := parseRubricSuggestion(fullText, req.MaxPoints)
	if err != nil {
		log.Warn().Err(err).Str("rawResponse", fullText).Msg("Failed to parse Gemini grading response")
		return nil, err
	}
	return suggestion, nil
}

var rubricSections = []string{"Score:", "Summary:", "Strengths:", "Gaps:", "RubricAlignment:"}

// parseRubricSuggestion splits the labeled sections out of the raw response
// and clamps the score into [0, maxPoints].
func parseRubricSuggestion(raw string, maxPoints float64) (*RubricSuggestion, error) {
	fields := make(map[string]string, len(rubricSections))
	for i, label := range rubricSections {
		start := strings.Index(raw, label)
		if start < 0 {
			continue
		}
		start += len(label)
		end := len(raw)
		for _, next := range rubricSections[i+1:] {
			if idx := strings.Index(raw[start:], next); idx >= 0 && start+idx < end {
				end = start + idx
			}
		}
		fields[label] = strings.TrimSpace(raw[start:end])
	}

	scoreStr, ok := fields["Score:"]
	if !ok {
		return nil, fmt.Errorf("response does not contain 'Score:' prefix")
	}
	if parts := strings.Fields(scoreStr); len(parts) > 0 {
		scoreStr = parts[0]
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(scoreStr), 64)
	if err != nil {
		return nil, fmt.Errorf("could not parse score value %q from AI response", scoreStr)
	}
	if score > maxPoints {
		score = maxPoints
	}
	if score < 0 {
		score = 0
	}

	return &RubricSuggestion{
		Score:           score,
		Summary:         fields["Summary:"],
		Strengths:       fields["Strengths:"],
		Gaps:            fields["Gaps:"],
		RubricAlignment: fields["RubricAlignment:"],
		Raw:             raw,
	}, nil
}
