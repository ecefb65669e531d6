package service

import (
	"testing"

	"github.com/scioarena/scioarena/internal/model"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func mcqQuestion(qType model.QuestionType, points float64, correctIDs ...uint) *model.Question {
	correct := make(map[uint]bool)
	for _, id := range correctIDs {
		correct[id] = true
	}
	q := &model.Question{Type: qType, Points: points}
	for id := uint(1); id <= 4; id++ {
		q.Options = append(q.Options, model.Option{ID: id, IsCorrect: correct[id]})
	}
	return q
}

func selected(ids ...uint) datatypes.JSONSlice[uint] {
	return datatypes.NewJSONSlice(ids)
}

func TestGradeAnswer_SkippedQuestion(t *testing.T) {
	q := mcqQuestion(model.QuestionMCQSingle, 5, 2)
	got := GradeAnswer(q, nil, GradeOptions{})
	assert.Zero(t, got.PointsAwarded)
	assert.False(t, got.NeedsManualGrade)
}

func TestGradeAnswer_MCQSingle(t *testing.T) {
	q := mcqQuestion(model.QuestionMCQSingle, 5, 2)

	tests := []struct {
		name   string
		picked []uint
		want   float64
	}{
		{"correct option", []uint{2}, 5},
		{"wrong option", []uint{3}, 0},
		{"no selection", nil, 0},
		{"extra selection", []uint{2, 3}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := &model.Answer{SelectedOptionIDs: selected(tc.picked...)}
			got := GradeAnswer(q, a, GradeOptions{})
			assert.Equal(t, tc.want, got.PointsAwarded)
			assert.False(t, got.NeedsManualGrade)
		})
	}
}

func TestGradeAnswer_MCQMultiAllOrNothing(t *testing.T) {
	q := mcqQuestion(model.QuestionMCQMulti, 4, 1, 3)

	tests := []struct {
		name   string
		picked []uint
		want   float64
	}{
		{"exact set", []uint{1, 3}, 4},
		{"exact set in other order", []uint{3, 1}, 4},
		{"subset earns nothing", []uint{1}, 0},
		{"superset earns nothing", []uint{1, 3, 4}, 0},
		{"disjoint set", []uint{2, 4}, 0},
		{"duplicated single pick is still a subset", []uint{1, 1}, 0},
		{"duplicates of the full set still match", []uint{1, 1, 3, 3}, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := &model.Answer{SelectedOptionIDs: selected(tc.picked...)}
			got := GradeAnswer(q, a, GradeOptions{})
			assert.Equal(t, tc.want, got.PointsAwarded)
		})
	}
}

func TestGradeAnswer_MCQWithNoCorrectOptionsAwardsNothing(t *testing.T) {
	q := mcqQuestion(model.QuestionMCQMulti, 4)
	a := &model.Answer{SelectedOptionIDs: selected()}
	got := GradeAnswer(q, a, GradeOptions{})
	assert.Zero(t, got.PointsAwarded)
}

func TestGradeAnswer_NumericTolerance(t *testing.T) {
	q := &model.Question{
		Type:             model.QuestionNumeric,
		Points:           3,
		NumericAnswer:    floatPtr(10),
		NumericTolerance: floatPtr(0.5),
	}

	tests := []struct {
		name  string
		given float64
		want  float64
	}{
		{"exact", 10, 3},
		{"lower bound inclusive", 9.5, 3},
		{"upper bound inclusive", 10.5, 3},
		{"just below lower bound", 9.49, 0},
		{"just above upper bound", 10.51, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := &model.Answer{NumericAnswer: floatPtr(tc.given)}
			got := GradeAnswer(q, a, GradeOptions{})
			assert.Equal(t, tc.want, got.PointsAwarded)
		})
	}
}

func TestGradeAnswer_NumericDefaultsToExactMatch(t *testing.T) {
	q := &model.Question{Type: model.QuestionNumeric, Points: 2, NumericAnswer: floatPtr(7)}

	assert.Equal(t, 2.0, GradeAnswer(q, &model.Answer{NumericAnswer: floatPtr(7)}, GradeOptions{}).PointsAwarded)
	assert.Zero(t, GradeAnswer(q, &model.Answer{NumericAnswer: floatPtr(7.001)}, GradeOptions{}).PointsAwarded)
	assert.Zero(t, GradeAnswer(q, &model.Answer{}, GradeOptions{}).PointsAwarded)
}

func TestGradeAnswer_BlanksProportionalCredit(t *testing.T) {
	q := &model.Question{
		Type:        model.QuestionShortText,
		Points:      6,
		PromptMd:    "The powerhouse of the cell is the [blank1] and photosynthesis happens in the [blank2].",
		CorrectText: strPtr("mitochondria | chloroplast"),
	}

	tests := []struct {
		name  string
		given string
		want  float64
	}{
		{"both correct", "mitochondria | chloroplast", 6},
		{"one correct", "mitochondria | vacuole", 3},
		{"none correct", "nucleus | vacuole", 0},
		{"case insensitive by default", "MITOCHONDRIA | Chloroplast", 6},
		{"whitespace trimmed by default", "  mitochondria   |  chloroplast ", 6},
		{"missing second blank", "mitochondria", 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := &model.Answer{AnswerText: tc.given}
			got := GradeAnswer(q, a, GradeOptions{})
			assert.Equal(t, tc.want, got.PointsAwarded)
			assert.False(t, got.NeedsManualGrade)
		})
	}
}

func TestGradeAnswer_BlankMatchingKnobs(t *testing.T) {
	q := &model.Question{
		Type:        model.QuestionShortText,
		Points:      2,
		PromptMd:    "Symbol for iron: [blank]",
		CorrectText: strPtr("Fe"),
	}

	strict := GradeOptions{CaseSensitive: true}
	assert.Zero(t, GradeAnswer(q, &model.Answer{AnswerText: "fe"}, strict).PointsAwarded)
	assert.Equal(t, 2.0, GradeAnswer(q, &model.Answer{AnswerText: "Fe"}, strict).PointsAwarded)
}

func TestGradeAnswer_FreeTextGoesToManualGrading(t *testing.T) {
	short := &model.Question{Type: model.QuestionShortText, Points: 5, PromptMd: "Explain osmosis."}
	long := &model.Question{Type: model.QuestionLongText, Points: 10, PromptMd: "Describe the nitrogen cycle."}

	for _, q := range []*model.Question{short, long} {
		got := GradeAnswer(q, &model.Answer{AnswerText: "Water moves across a membrane."}, GradeOptions{})
		assert.True(t, got.NeedsManualGrade)
		assert.Zero(t, got.PointsAwarded)

		// A blank free-text answer needs no grader attention.
		got = GradeAnswer(q, &model.Answer{AnswerText: "   "}, GradeOptions{})
		assert.False(t, got.NeedsManualGrade)
	}
}
