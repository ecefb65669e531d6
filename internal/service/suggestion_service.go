package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/scioarena/scioarena/internal/apperr"
	"github.com/scioarena/scioarena/internal/dto"
	"github.com/scioarena/scioarena/internal/model"
	"github.com/scioarena/scioarena/internal/repository"
)

// SuggestionService produces advisory AI grading suggestions for answers
// that need manual grading. Provider calls run outside any transaction
// holding attempt or answer rows, and a provider failure never corrupts
// the underlying attempt.
type SuggestionService interface {
	RequestSuggestions(ctx context.Context, userID, attemptID uint, req dto.SuggestionRequestDTO) ([]dto.SuggestionDTO, error)
}

type suggestionService struct {
	testRepo       repository.TestRepository
	attemptRepo    repository.AttemptRepository
	answerRepo     repository.AnswerRepository
	suggestionRepo repository.SuggestionRepository
	authz          AuthzService
	audit          AuditService
	gemini         GeminiLLMService
}

func NewSuggestionService(
	testRepo repository.TestRepository,
	attemptRepo repository.AttemptRepository,
	answerRepo repository.AnswerRepository,
	suggestionRepo repository.SuggestionRepository,
	authz AuthzService,
	audit AuditService,
	gemini GeminiLLMService,
) SuggestionService {
	return &suggestionService{
		testRepo:       testRepo,
		attemptRepo:    attemptRepo,
		answerRepo:     answerRepo,
		suggestionRepo: suggestionRepo,
		authz:          authz,
		audit:          audit,
		gemini:         gemini,
	}
}

// RequestSuggestions grades one answer (req.AnswerID set) or every answer of
// the attempt flagged as needing manual grading. For multi-part questions a
// part_index restricts the provider call to that part; previously graded
// parts keep their scores (merge, don't overwrite).
func (s *suggestionService) RequestSuggestions(ctx context.Context, userID, attemptID uint, req dto.SuggestionRequestDTO) ([]dto.SuggestionDTO, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, apperr.NotFound("attempt not found")
	}
	test, err := s.testRepo.FindByIDWithQuestions(attempt.TestID)
	if err != nil {
		return nil, apperr.Dependency("could not load test", err)
	}
	actor, err := s.authz.ResolveActor(userID, test)
	if err != nil {
		return nil, apperr.Dependency("could not resolve membership", err)
	}
	if actor.Membership == nil {
		return nil, apperr.NotFound("attempt not found")
	}
	if !s.authz.Can(actor, ActionRequestSuggestion, test) {
		return nil, apperr.Forbidden("staff access required")
	}
	if !attempt.Status.IsTerminal() {
		return nil, apperr.InvalidState("ATTEMPT_NOT_SUBMITTED", "attempt has not been submitted yet")
	}

	var answers []model.Answer
	if req.AnswerID != nil {
		answer, err := s.answerRepo.FindByID(*req.AnswerID)
		if err != nil || answer.AttemptID != attemptID {
			return nil, apperr.NotFound("answer not found")
		}
		answers = []model.Answer{*answer}
	} else {
		all, err := s.answerRepo.FindByAttemptID(attemptID)
		if err != nil {
			return nil, apperr.Dependency("could not load answers", err)
		}
		for _, a := range all {
			if a.NeedsManualGrade {
				answers = append(answers, a)
			}
		}
	}
	if len(answers) == 0 {
		return nil, apperr.InvalidInput("no answers need grading suggestions")
	}

	s.audit.Record(AuditSuggestionRequest, userID, &attempt.TestID, &attemptID,
		fmt.Sprintf("answers=%d", len(answers)))

	out := make([]dto.SuggestionDTO, 0, len(answers))
	for i := range answers {
		suggestion := s.suggestForAnswer(ctx, attemptID, &answers[i], req.PartIndex)
		out = append(out, suggestionToDTO(suggestion))
	}
	return out, nil
}

// suggestForAnswer runs the provider for one answer and upserts the single
// suggestion row for it (superseded in place, never duplicated). Failures
// are recorded on the suggestion itself.
func (s *suggestionService) suggestForAnswer(ctx context.Context, attemptID uint, answer *model.Answer, partIndex *int) *model.AiGradingSuggestion {
	question := &answer.Question

	suggestion, err := s.suggestionRepo.FindByAnswerID(answer.ID)
	if err != nil {
		log.Error().Err(err).Uint("answerID", answer.ID).Msg("Failed to look up existing suggestion")
	}
	if suggestion == nil {
		suggestion = &model.AiGradingSuggestion{
			AttemptID: attemptID,
			AnswerID:  answer.ID,
			MaxPoints: question.Points,
		}
	}

	parts := ParseFRQParts(question.PromptMd)
	if len(parts) > 0 {
		s.suggestMultiPart(ctx, suggestion, question, answer, parts, partIndex)
	} else {
		s.suggestSinglePart(ctx, suggestion, question, answer)
	}

	if err := s.suggestionRepo.Save(suggestion); err != nil {
		log.Error().Err(err).Uint("answerID", answer.ID).Msg("Failed to save grading suggestion")
	}
	return suggestion
}

func (s *suggestionService) suggestSinglePart(ctx context.Context, suggestion *model.AiGradingSuggestion, question *model.Question, answer *model.Answer) {
	rubric := ""
	if question.CorrectText != nil {
		rubric = *question.CorrectText
	}
	result, err := s.gemini.SuggestGrade(ctx, RubricRequest{
		QuestionPrompt:  question.PromptMd,
		Rubric:          rubric,
		StudentResponse: answer.AnswerText,
		MaxPoints:       question.Points,
	})
	if err != nil {
		log.Warn().Err(err).Uint("answerID", answer.ID).Msg("Grading suggestion failed")
		suggestion.Status = model.SuggestionFailed
		return
	}
	score := result.Score
	suggestion.SuggestedPoints = &score
	suggestion.Summary = result.Summary
	suggestion.Strengths = result.Strengths
	suggestion.Gaps = result.Gaps
	suggestion.RubricAlignment = result.RubricAlignment
	suggestion.RawResponse = marshalJSON(map[string]string{"raw": result.Raw})
	suggestion.Status = model.SuggestionCompleted
}

// suggestMultiPart grades the requested parts of a multi-part free response
// and merges the fresh scores into the stored per-part breakdown.
func (s *suggestionService) suggestMultiPart(ctx context.Context, suggestion *model.AiGradingSuggestion, question *model.Question, answer *model.Answer, parts []FRQPart, partIndex *int) {
	if partIndex != nil && (*partIndex < 0 || *partIndex >= len(parts)) {
		suggestion.Status = model.SuggestionFailed
		suggestion.Summary = fmt.Sprintf("part index %d out of range (question has %d parts)", *partIndex, len(parts))
		return
	}

	existing := existingPartBreakdown(suggestion, parts)
	segments := SplitPartAnswers(answer.AnswerText, len(parts))

	update := NewPartPlaceholders(parts)
	anyFailed := false
	for i, part := range parts {
		if partIndex != nil && i != *partIndex {
			continue
		}
		result, err := s.gemini.SuggestGrade(ctx, RubricRequest{
			QuestionPrompt:  fmt.Sprintf("%s\n\nPart %s: %s", question.PromptMd, part.Label, part.Prompt),
			StudentResponse: segments[i],
			MaxPoints:       part.Points,
		})
		if err != nil {
			log.Warn().Err(err).Uint("answerID", answer.ID).Int("part", i).Msg("Part grading suggestion failed")
			anyFailed = true
			continue
		}
		score := result.Score
		update[i] = PartSuggestion{
			Label:     part.Label,
			MaxPoints: part.Points,
			Points:    &score,
			Rationale: result.Summary,
			Graded:    true,
		}
	}

	merged := MergePartSuggestions(existing, update)
	total, graded := TotalSuggestedPoints(merged)
	if graded {
		suggestion.SuggestedPoints = &total
	}
	suggestion.RawResponse = marshalJSON(map[string]interface{}{"partSuggestions": merged})
	if anyFailed && !graded {
		suggestion.Status = model.SuggestionFailed
	} else {
		suggestion.Status = model.SuggestionCompleted
	}
}

// existingPartBreakdown recovers the stored per-part scores, falling back to
// unscored placeholders when there is no usable prior breakdown.
func existingPartBreakdown(suggestion *model.AiGradingSuggestion, parts []FRQPart) []PartSuggestion {
	if len(suggestion.RawResponse) == 0 {
		return NewPartPlaceholders(parts)
	}
	var payload struct {
		PartSuggestions []PartSuggestion `json:"partSuggestions"`
	}
	if err := json.Unmarshal(suggestion.RawResponse, &payload); err != nil || len(payload.PartSuggestions) != len(parts) {
		return NewPartPlaceholders(parts)
	}
	return payload.PartSuggestions
}

func suggestionToDTO(s *model.AiGradingSuggestion) dto.SuggestionDTO {
	return dto.SuggestionDTO{
		ID:              s.ID,
		AttemptID:       s.AttemptID,
		AnswerID:        s.AnswerID,
		SuggestedPoints: s.SuggestedPoints,
		MaxPoints:       s.MaxPoints,
		Summary:         s.Summary,
		Strengths:       s.Strengths,
		Gaps:            s.Gaps,
		RubricAlignment: s.RubricAlignment,
		RawResponse:     json.RawMessage(s.RawResponse),
		Status:          s.Status,
	}
}
