package service

import (
	"time"

	"github.com/scioarena/scioarena/internal/dto"
	"github.com/scioarena/scioarena/internal/model"
)

// FilterForRelease applies the test's score-release policy to a graded
// attempt and returns the student-visible view. Before the release time
// (unless the explicit ScoresReleased override is set) it returns a bare
// "not released" marker; callers render that, they do not error.
//
// IsCorrect flags and explanations are only ever present under FULL_TEST;
// every lower mode strips them even when answers are retained.
func FilterForRelease(test *model.Test, attempt *model.Attempt, now time.Time) *dto.AttemptResultDTO {
	if !scoresReleased(test, now) {
		return &dto.AttemptResultDTO{Released: false}
	}

	out := &dto.AttemptResultDTO{
		Released:    true,
		ReleaseMode: test.ScoreReleaseMode,
		AttemptID:   attempt.ID,
		Status:      attempt.Status,
	}

	if test.ScoreReleaseMode == model.ReleaseNone {
		return out
	}

	out.GradeEarned = attempt.GradeEarned
	out.ProctoringScore = attempt.ProctoringScore
	maxPoints := 0.0
	for _, q := range test.Questions {
		maxPoints += q.Points
	}
	out.MaxPoints = &maxPoints

	switch test.ScoreReleaseMode {
	case model.ReleaseScoreOnly:
		return out
	case model.ReleaseScoreWithWrong:
		out.Answers = releaseAnswers(attempt.Answers, false, true)
	case model.ReleaseFullTest:
		out.Answers = releaseAnswers(attempt.Answers, true, false)
	}
	return out
}

func scoresReleased(test *model.Test, now time.Time) bool {
	if test.ScoresReleased {
		return true
	}
	return test.ReleaseScoresAt != nil && !now.Before(*test.ReleaseScoresAt)
}

// releaseAnswers shapes answer DTOs for a released attempt. With
// imperfectOnly set, only answers that earned less than full points survive
// (the "review your mistakes" mode). Unless withKeys is set, option
// correctness flags and question explanations are stripped.
func releaseAnswers(answers []model.Answer, withKeys, imperfectOnly bool) []dto.AnswerResponseDTO {
	var out []dto.AnswerResponseDTO
	for _, a := range answers {
		if imperfectOnly {
			if a.PointsAwarded == nil || *a.PointsAwarded >= a.Question.Points {
				continue
			}
		}
		out = append(out, answerToDTO(&a, withKeys))
	}
	return out
}

func answerToDTO(a *model.Answer, withKeys bool) dto.AnswerResponseDTO {
	return dto.AnswerResponseDTO{
		ID:                a.ID,
		QuestionID:        a.QuestionID,
		Question:          questionToDTO(&a.Question, withKeys),
		SelectedOptionIDs: a.SelectedOptionIDs,
		NumericAnswer:     a.NumericAnswer,
		AnswerText:        a.AnswerText,
		PointsAwarded:     a.PointsAwarded,
		NeedsManualGrade:  a.NeedsManualGrade,
		GradedAt:          a.GradedAt,
		GraderNote:        a.GraderNote,
	}
}

// questionToDTO shapes a question for responses. withKeys controls whether
// option IsCorrect flags and the explanation are included.
func questionToDTO(q *model.Question, withKeys bool) dto.QuestionResponseDTO {
	out := dto.QuestionResponseDTO{
		ID:               q.ID,
		TestID:           q.TestID,
		Type:             q.Type,
		PromptMd:         q.PromptMd,
		Points:           q.Points,
		OrderInTest:      q.OrderInTest,
		NumericTolerance: q.NumericTolerance,
	}
	if withKeys {
		out.CorrectText = q.CorrectText
		out.NumericAnswer = q.NumericAnswer
		out.Explanation = q.Explanation
	}
	for _, o := range q.Options {
		optDTO := dto.OptionResponseDTO{
			ID:              o.ID,
			Label:           o.Label,
			OrderInQuestion: o.OrderInQuestion,
		}
		if withKeys {
			isCorrect := o.IsCorrect
			optDTO.IsCorrect = &isCorrect
		}
		out.Options = append(out.Options, optDTO)
	}
	return out
}
