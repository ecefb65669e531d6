package service

import (
	"math"
	"strings"

	"github.com/scioarena/scioarena/internal/model"
)

// GradeOptions carries the configurable matching knobs for text answers.
type GradeOptions struct {
	CaseSensitive  bool
	KeepWhitespace bool
}

// GradeResult is the auto-grader verdict for one (question, answer) pair.
type GradeResult struct {
	PointsAwarded    float64
	NeedsManualGrade bool
}

// GradeAnswer scores one answer against its question. A nil answer means the
// student skipped the question: zero points, nothing to grade manually.
//
// Policy notes:
//   - MCQ_MULTI is all-or-nothing: the selected set must exactly equal the
//     correct set. Per-option partial credit is a possible future policy,
//     not the baseline.
//   - NUMERIC tolerance defaults to 0 (exact match) when unset.
//   - SHORT_TEXT with [blank] markers is auto-graded per blank with
//     proportional credit; other SHORT_TEXT and all LONG_TEXT go to manual
//     (or AI-assisted) grading.
func GradeAnswer(question *model.Question, answer *model.Answer, opts GradeOptions) GradeResult {
	if answer == nil {
		return GradeResult{}
	}

	switch question.Type {
	case model.QuestionMCQSingle, model.QuestionMCQMulti:
		return gradeChoice(question, answer)
	case model.QuestionNumeric:
		return gradeNumeric(question, answer)
	case model.QuestionShortText:
		if CountBlanks(question.PromptMd) > 0 && question.CorrectText != nil {
			return gradeBlanks(question, answer, opts)
		}
		return manualIfAnswered(answer.AnswerText)
	case model.QuestionLongText:
		return manualIfAnswered(answer.AnswerText)
	}
	return GradeResult{}
}

func manualIfAnswered(answerText string) GradeResult {
	if strings.TrimSpace(answerText) == "" {
		return GradeResult{}
	}
	return GradeResult{NeedsManualGrade: true}
}

// gradeChoice awards full points iff the selected option id set exactly
// equals the set of options flagged correct. Selections come straight from
// client JSON, so duplicates are collapsed before comparing.
func gradeChoice(question *model.Question, answer *model.Answer) GradeResult {
	correct := question.CorrectOptionIDs()
	if len(correct) == 0 {
		return GradeResult{}
	}
	selected := make(map[uint]bool, len(answer.SelectedOptionIDs))
	for _, id := range answer.SelectedOptionIDs {
		selected[id] = true
	}
	if len(selected) != len(correct) {
		return GradeResult{}
	}
	for id := range selected {
		if !correct[id] {
			return GradeResult{}
		}
	}
	return GradeResult{PointsAwarded: question.Points}
}

func gradeNumeric(question *model.Question, answer *model.Answer) GradeResult {
	if answer.NumericAnswer == nil || question.NumericAnswer == nil {
		return GradeResult{}
	}
	tolerance := 0.0
	if question.NumericTolerance != nil {
		tolerance = *question.NumericTolerance
	}
	if math.Abs(*answer.NumericAnswer-*question.NumericAnswer) <= tolerance {
		return GradeResult{PointsAwarded: question.Points}
	}
	return GradeResult{}
}

// gradeBlanks grades each [blank] independently against the stored key
// (segments joined by " | ") and awards the proportional share of points.
func gradeBlanks(question *model.Question, answer *model.Answer, opts GradeOptions) GradeResult {
	blanks := CountBlanks(question.PromptMd)
	keys := strings.Split(*question.CorrectText, blankAnswerDelimiter)
	given := strings.Split(answer.AnswerText, blankAnswerDelimiter)

	correct := 0
	for i := 0; i < blanks && i < len(keys); i++ {
		var student string
		if i < len(given) {
			student = given[i]
		}
		if matchText(keys[i], student, opts) {
			correct++
		}
	}
	if blanks == 0 {
		return GradeResult{}
	}
	return GradeResult{PointsAwarded: question.Points * float64(correct) / float64(blanks)}
}

func matchText(key, student string, opts GradeOptions) bool {
	if !opts.KeepWhitespace {
		key = strings.TrimSpace(key)
		student = strings.TrimSpace(student)
	}
	if !opts.CaseSensitive {
		return strings.EqualFold(key, student)
	}
	return key == student
}
