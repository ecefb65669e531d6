package service

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/scioarena/scioarena/config"
	"github.com/scioarena/scioarena/internal/apperr"
	"github.com/scioarena/scioarena/internal/dto"
	"github.com/scioarena/scioarena/internal/model"
	"github.com/scioarena/scioarena/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	memberUserID = 1
	staffUserID  = 2
	clubID       = uint(10)
)

type lifecycleEnv struct {
	db        *gorm.DB
	lifecycle AttemptLifecycleService
	member    model.Membership
	staff     model.Membership
}

func newLifecycleEnv(t *testing.T) *lifecycleEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A second pool connection would see a different in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Membership{},
		&model.Test{},
		&model.Question{},
		&model.Option{},
		&model.Attempt{},
		&model.Answer{},
		&model.ProctorEvent{},
		&model.AiGradingSuggestion{},
		&model.AuditLog{},
	))

	cid := clubID
	env := &lifecycleEnv{
		db:     db,
		member: model.Membership{UserID: memberUserID, ScopeKind: model.ScopeClub, ClubID: &cid, Role: model.RoleMember},
		staff:  model.Membership{UserID: staffUserID, ScopeKind: model.ScopeClub, ClubID: &cid, Role: model.RoleStaff},
	}
	require.NoError(t, db.Create(&env.member).Error)
	require.NoError(t, db.Create(&env.staff).Error)

	membershipRepo := repository.NewMembershipRepository(db)
	authz := NewAuthzService(membershipRepo)
	audit := NewAuditService(repository.NewAuditRepository(db))
	env.lifecycle = NewAttemptLifecycleService(
		repository.NewTestRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewAttemptRepository(db),
		repository.NewAnswerRepository(db),
		repository.NewProctorEventRepository(db),
		membershipRepo,
		authz,
		audit,
		&config.Config{},
		db,
	)
	return env
}

// seedPublishedTest creates a published auto-gradable test: one MCQ_SINGLE
// worth 5 and one NUMERIC worth 5.
func (e *lifecycleEnv) seedPublishedTest(t *testing.T, mutate func(*model.Test)) *model.Test {
	t.Helper()
	cid := clubID
	test := &model.Test{
		Title:     "Anatomy Regionals",
		ScopeKind: model.ScopeClub,
		ClubID:    &cid,
		Status:    model.TestStatusPublished,
		Questions: []model.Question{
			{
				Type: model.QuestionMCQSingle, PromptMd: "Largest organ?", Points: 5, OrderInTest: 1,
				Options: []model.Option{
					{Label: "Skin", IsCorrect: true, OrderInQuestion: 1},
					{Label: "Liver", OrderInQuestion: 2},
				},
			},
			{
				Type: model.QuestionNumeric, PromptMd: "Bones in the adult body?", Points: 5, OrderInTest: 2,
				NumericAnswer: floatPtr(206),
			},
		},
	}
	if mutate != nil {
		mutate(test)
	}
	require.NoError(t, e.db.Create(test).Error)
	return test
}

func (e *lifecycleEnv) correctOptionID(test *model.Test) uint {
	for _, o := range test.Questions[0].Options {
		if o.IsCorrect {
			return o.ID
		}
	}
	return 0
}

func clientInfo() ClientInfo {
	return ClientInfo{Fingerprint: "fp-1", IP: "203.0.113.9", UserAgent: "go-test"}
}

func TestStartOrResume_IsIdempotent(t *testing.T) {
	env := newLifecycleEnv(t)
	test := env.seedPublishedTest(t, nil)

	first, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, first.Status)

	second, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	env.db.Model(&model.Attempt{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestStartOrResume_OutOfScopeTestReadsAsNotFound(t *testing.T) {
	env := newLifecycleEnv(t)
	otherClub := uint(99)
	test := env.seedPublishedTest(t, func(tst *model.Test) { tst.ClubID = &otherClub })

	_, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestStartOrResume_SchedulingGate(t *testing.T) {
	env := newLifecycleEnv(t)
	opensAt := time.Now().Add(time.Hour)
	test := env.seedPublishedTest(t, func(tst *model.Test) { tst.StartAt = &opensAt })

	_, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.KindPolicy, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeTestNotAvailable, apperr.CodeOf(err))
}

func TestStartOrResume_PasswordPolicy(t *testing.T) {
	env := newLifecycleEnv(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("hydrogen"), bcrypt.MinCost)
	require.NoError(t, err)
	test := env.seedPublishedTest(t, func(tst *model.Test) {
		h := string(hash)
		tst.PasswordHash = &h
	})

	_, err = env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	assert.Equal(t, apperr.CodeNeedTestPassword, apperr.CodeOf(err))

	_, err = env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{Password: strPtr("helium")}, clientInfo(), time.Now())
	assert.Equal(t, apperr.CodeWrongTestPassword, apperr.CodeOf(err))

	_, err = env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{Password: strPtr("hydrogen")}, clientInfo(), time.Now())
	assert.NoError(t, err)

	// Staff never need the password.
	_, err = env.lifecycle.StartOrResume(staffUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	assert.NoError(t, err)
}

func TestStartOrResume_MaxAttempts(t *testing.T) {
	env := newLifecycleEnv(t)
	one := 1
	test := env.seedPublishedTest(t, func(tst *model.Test) { tst.MaxAttempts = &one })

	started, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)
	_, err = env.lifecycle.Submit(memberUserID, started.ID, dto.SubmitAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)

	_, err = env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeMaxAttemptsReached, apperr.CodeOf(err))

	// An unfinished attempt does not count against the limit: the staff user
	// also bypasses it entirely.
	_, err = env.lifecycle.StartOrResume(staffUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	assert.NoError(t, err)
}

func TestSubmit_GradesAndReleasesActiveSlot(t *testing.T) {
	env := newLifecycleEnv(t)
	test := env.seedPublishedTest(t, nil)

	started, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)

	_, err = env.lifecycle.SaveAnswer(memberUserID, started.ID, dto.AnswerUpsertDTO{
		QuestionID:        test.Questions[0].ID,
		SelectedOptionIDs: []uint{env.correctOptionID(test)},
	})
	require.NoError(t, err)

	result, err := env.lifecycle.Submit(memberUserID, started.ID, dto.SubmitAttemptDTO{
		Answers: []dto.AnswerUpsertDTO{
			{QuestionID: test.Questions[1].ID, NumericAnswer: floatPtr(206)},
		},
		ProctorEvents: []dto.ProctorEventDTO{
			{Kind: string(model.ProctorTabSwitch), OccurredAt: time.Now()},
		},
	}, clientInfo(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, model.AttemptGraded, result.Attempt.Status)
	assert.False(t, result.NeedsManualGrading)
	require.NotNil(t, result.Attempt.GradeEarned)
	assert.Equal(t, 10.0, *result.Attempt.GradeEarned)
	assert.Equal(t, 97.0, result.ProctoringScore)
	assert.Equal(t, 1, result.Attempt.TabSwitchCount)

	// The active slot is free again, so a new start creates a new attempt.
	next, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, started.ID, next.ID)
}

func TestSubmit_MissingAnswersScoreZero(t *testing.T) {
	env := newLifecycleEnv(t)
	test := env.seedPublishedTest(t, nil)

	started, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)

	result, err := env.lifecycle.Submit(memberUserID, started.ID, dto.SubmitAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.AttemptGraded, result.Attempt.Status)
	require.NotNil(t, result.Attempt.GradeEarned)
	assert.Zero(t, *result.Attempt.GradeEarned)
}

func TestSubmit_FreeResponseNeedsManualGrading(t *testing.T) {
	env := newLifecycleEnv(t)
	test := env.seedPublishedTest(t, func(tst *model.Test) {
		tst.Questions = append(tst.Questions, model.Question{
			Type: model.QuestionLongText, PromptMd: "Describe the cardiac cycle.", Points: 10, OrderInTest: 3,
		})
	})

	started, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)

	result, err := env.lifecycle.Submit(memberUserID, started.ID, dto.SubmitAttemptDTO{
		Answers: []dto.AnswerUpsertDTO{
			{QuestionID: test.Questions[2].ID, AnswerText: "Systole then diastole."},
		},
	}, clientInfo(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.AttemptSubmitted, result.Attempt.Status)
	assert.True(t, result.NeedsManualGrading)
}

func TestSubmit_SecondSubmitConflicts(t *testing.T) {
	env := newLifecycleEnv(t)
	test := env.seedPublishedTest(t, nil)

	started, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)
	_, err = env.lifecycle.Submit(memberUserID, started.ID, dto.SubmitAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)

	_, err = env.lifecycle.Submit(memberUserID, started.ID, dto.SubmitAttemptDTO{}, clientInfo(), time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeAlreadySubmitted, apperr.CodeOf(err))
}

func TestSubmit_RollsBackAsOneTransaction(t *testing.T) {
	env := newLifecycleEnv(t)
	test := env.seedPublishedTest(t, nil)

	started, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)
	_, err = env.lifecycle.SaveAnswer(memberUserID, started.ID, dto.AnswerUpsertDTO{
		QuestionID:        test.Questions[0].ID,
		SelectedOptionIDs: []uint{env.correctOptionID(test)},
	})
	require.NoError(t, err)

	// Block the attempt transition so the transaction fails after the answer
	// grades have already been written inside it.
	require.NoError(t, env.db.Exec(
		`CREATE TRIGGER block_attempt_update BEFORE UPDATE ON attempts BEGIN SELECT RAISE(ABORT, 'blocked'); END`,
	).Error)

	_, err = env.lifecycle.Submit(memberUserID, started.ID, dto.SubmitAttemptDTO{}, clientInfo(), time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.KindDependency, apperr.KindOf(err))

	var attempt model.Attempt
	require.NoError(t, env.db.First(&attempt, started.ID).Error)
	assert.Equal(t, model.AttemptInProgress, attempt.Status)
	require.NotNil(t, attempt.ActiveKey)

	var answers []model.Answer
	require.NoError(t, env.db.Where("attempt_id = ?", started.ID).Find(&answers).Error)
	require.Len(t, answers, 1)
	assert.Nil(t, answers[0].PointsAwarded, "rolled-back submit must not leave graded answers behind")

	// With the trigger gone the same submit succeeds.
	require.NoError(t, env.db.Exec(`DROP TRIGGER block_attempt_update`).Error)
	result, err := env.lifecycle.Submit(memberUserID, started.ID, dto.SubmitAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.AttemptGraded, result.Attempt.Status)
}

func TestSaveAnswer_UpsertsSingleRowPerQuestion(t *testing.T) {
	env := newLifecycleEnv(t)
	test := env.seedPublishedTest(t, nil)

	started, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)

	q := test.Questions[1].ID
	_, err = env.lifecycle.SaveAnswer(memberUserID, started.ID, dto.AnswerUpsertDTO{QuestionID: q, NumericAnswer: floatPtr(205)})
	require.NoError(t, err)
	_, err = env.lifecycle.SaveAnswer(memberUserID, started.ID, dto.AnswerUpsertDTO{QuestionID: q, NumericAnswer: floatPtr(206)})
	require.NoError(t, err)

	var answers []model.Answer
	require.NoError(t, env.db.Where("attempt_id = ?", started.ID).Find(&answers).Error)
	require.Len(t, answers, 1)
	require.NotNil(t, answers[0].NumericAnswer)
	assert.Equal(t, 206.0, *answers[0].NumericAnswer)
}

func TestSaveAnswer_OtherUsersAttemptReadsAsNotFound(t *testing.T) {
	env := newLifecycleEnv(t)
	test := env.seedPublishedTest(t, nil)

	started, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)

	_, err = env.lifecycle.SaveAnswer(staffUserID, started.ID, dto.AnswerUpsertDTO{QuestionID: test.Questions[0].ID})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestGetResults_AppliesReleasePolicy(t *testing.T) {
	env := newLifecycleEnv(t)
	test := env.seedPublishedTest(t, func(tst *model.Test) {
		tst.ScoreReleaseMode = model.ReleaseScoreOnly
	})

	started, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)
	_, err = env.lifecycle.Submit(memberUserID, started.ID, dto.SubmitAttemptDTO{
		Answers: []dto.AnswerUpsertDTO{
			{QuestionID: test.Questions[1].ID, NumericAnswer: floatPtr(206)},
		},
	}, clientInfo(), time.Now())
	require.NoError(t, err)

	// Not released yet: a marker, not an error.
	result, err := env.lifecycle.GetResults(memberUserID, test.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, result.Released)
	assert.Nil(t, result.GradeEarned)

	require.NoError(t, env.db.Model(&model.Test{}).Where("id = ?", test.ID).Update("scores_released", true).Error)

	result, err = env.lifecycle.GetResults(memberUserID, test.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, result.Released)
	require.NotNil(t, result.GradeEarned)
	assert.Equal(t, 5.0, *result.GradeEarned)
	assert.Nil(t, result.Answers)
}

func TestGetResults_NoTerminalAttempt(t *testing.T) {
	env := newLifecycleEnv(t)
	test := env.seedPublishedTest(t, nil)

	_, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)

	_, err = env.lifecycle.GetResults(memberUserID, test.ID, time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestGetAttemptsForTest_StaffOnly(t *testing.T) {
	env := newLifecycleEnv(t)
	test := env.seedPublishedTest(t, nil)

	started, err := env.lifecycle.StartOrResume(memberUserID, test.ID, dto.StartAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)
	_, err = env.lifecycle.Submit(memberUserID, started.ID, dto.SubmitAttemptDTO{}, clientInfo(), time.Now())
	require.NoError(t, err)

	_, err = env.lifecycle.GetAttemptsForTest(memberUserID, test.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	attempts, err := env.lifecycle.GetAttemptsForTest(staffUserID, test.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, started.ID, attempts[0].ID)
}
