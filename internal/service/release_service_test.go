package service

import (
	"testing"
	"time"

	"github.com/scioarena/scioarena/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func releasedTest(mode model.ScoreReleaseMode) *model.Test {
	return &model.Test{
		Status:           model.TestStatusClosed,
		ScoreReleaseMode: mode,
		ScoresReleased:   true,
		Questions: []model.Question{
			{ID: 1, Points: 5},
			{ID: 2, Points: 5},
		},
	}
}

func gradedAttempt() *model.Attempt {
	return &model.Attempt{
		ID:              42,
		Status:          model.AttemptGraded,
		GradeEarned:     floatPtr(5),
		ProctoringScore: floatPtr(97),
		Answers: []model.Answer{
			{
				ID: 1, QuestionID: 1, PointsAwarded: floatPtr(5),
				Question: model.Question{ID: 1, Points: 5, Explanation: strPtr("key fact"), Options: []model.Option{
					{ID: 10, Label: "A", IsCorrect: true},
					{ID: 11, Label: "B"},
				}},
			},
			{
				ID: 2, QuestionID: 2, PointsAwarded: floatPtr(0),
				Question: model.Question{ID: 2, Points: 5, Explanation: strPtr("another fact")},
			},
		},
	}
}

func TestFilterForRelease_NotReleasedYet(t *testing.T) {
	releaseAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	test := releasedTest(model.ReleaseFullTest)
	test.ScoresReleased = false
	test.ReleaseScoresAt = &releaseAt

	before := FilterForRelease(test, gradedAttempt(), releaseAt.Add(-time.Minute))
	assert.False(t, before.Released)
	assert.Nil(t, before.GradeEarned)
	assert.Nil(t, before.Answers)

	atRelease := FilterForRelease(test, gradedAttempt(), releaseAt)
	assert.True(t, atRelease.Released)
}

func TestFilterForRelease_ExplicitOverrideBeatsTimer(t *testing.T) {
	test := releasedTest(model.ReleaseScoreOnly)
	test.ReleaseScoresAt = nil

	got := FilterForRelease(test, gradedAttempt(), time.Now())
	assert.True(t, got.Released)
}

func TestFilterForRelease_ModeNone(t *testing.T) {
	got := FilterForRelease(releasedTest(model.ReleaseNone), gradedAttempt(), time.Now())
	assert.True(t, got.Released)
	assert.Nil(t, got.GradeEarned)
	assert.Nil(t, got.MaxPoints)
	assert.Nil(t, got.Answers)
}

func TestFilterForRelease_ScoreOnly(t *testing.T) {
	got := FilterForRelease(releasedTest(model.ReleaseScoreOnly), gradedAttempt(), time.Now())
	assert.True(t, got.Released)
	require.NotNil(t, got.GradeEarned)
	assert.Equal(t, 5.0, *got.GradeEarned)
	require.NotNil(t, got.MaxPoints)
	assert.Equal(t, 10.0, *got.MaxPoints)
	assert.Nil(t, got.Answers)
}

func TestFilterForRelease_ScoreWithWrongShowsOnlyImperfectAnswers(t *testing.T) {
	got := FilterForRelease(releasedTest(model.ReleaseScoreWithWrong), gradedAttempt(), time.Now())
	require.Len(t, got.Answers, 1)
	assert.Equal(t, uint(2), got.Answers[0].QuestionID)

	// Keys stay hidden below FULL_TEST.
	assert.Nil(t, got.Answers[0].Question.Explanation)
	for _, o := range got.Answers[0].Question.Options {
		assert.Nil(t, o.IsCorrect)
	}
}

func TestQuestionToDTO_TextAndNumericKeys(t *testing.T) {
	short := &model.Question{
		ID: 1, Type: model.QuestionShortText, Points: 4,
		CorrectText: strPtr("mitochondria"),
	}
	numeric := &model.Question{
		ID: 2, Type: model.QuestionNumeric, Points: 3,
		NumericAnswer: floatPtr(9.81), NumericTolerance: floatPtr(0.01),
	}

	withKeys := questionToDTO(short, true)
	require.NotNil(t, withKeys.CorrectText)
	assert.Equal(t, "mitochondria", *withKeys.CorrectText)

	withKeys = questionToDTO(numeric, true)
	require.NotNil(t, withKeys.NumericAnswer)
	assert.Equal(t, 9.81, *withKeys.NumericAnswer)
	require.NotNil(t, withKeys.NumericTolerance)

	// Student-facing views never carry the keys, tolerance is fine to show.
	hidden := questionToDTO(short, false)
	assert.Nil(t, hidden.CorrectText)
	hidden = questionToDTO(numeric, false)
	assert.Nil(t, hidden.NumericAnswer)
	assert.NotNil(t, hidden.NumericTolerance)
}

func TestFilterForRelease_FullTestIncludesKeys(t *testing.T) {
	got := FilterForRelease(releasedTest(model.ReleaseFullTest), gradedAttempt(), time.Now())
	require.Len(t, got.Answers, 2)

	first := got.Answers[0]
	require.NotNil(t, first.Question.Explanation)
	require.Len(t, first.Question.Options, 2)
	require.NotNil(t, first.Question.Options[0].IsCorrect)
	assert.True(t, *first.Question.Options[0].IsCorrect)
	require.NotNil(t, first.Question.Options[1].IsCorrect)
	assert.False(t, *first.Question.Options[1].IsCorrect)
}
