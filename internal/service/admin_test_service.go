package service

import (
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/scioarena/scioarena/internal/apperr"
	"github.com/scioarena/scioarena/internal/dto"
	"github.com/scioarena/scioarena/internal/model"
	"github.com/scioarena/scioarena/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// AdminTestService covers test authoring. Tests are created as DRAFT and are
// read-only for authoring purposes once PUBLISHED.
type AdminTestService interface {
	CreateTest(userID uint, req dto.TestCreateDTO) (*dto.TestResponseDTO, error)
	PublishTest(userID, testID uint) (*dto.TestResponseDTO, error)
	CloseTest(userID, testID uint) (*dto.TestResponseDTO, error)
}

type adminTestService struct {
	testRepo repository.TestRepository
	authz    AuthzService
	audit    AuditService
}

func NewAdminTestService(testRepo repository.TestRepository, authz AuthzService, audit AuditService) AdminTestService {
	return &adminTestService{testRepo: testRepo, authz: authz, audit: audit}
}

func (s *adminTestService) CreateTest(userID uint, req dto.TestCreateDTO) (*dto.TestResponseDTO, error) {
	test := &model.Test{}
	copier.Copy(test, &req) // base fields copy by name; enums convert from their string forms
	test.Status = model.TestStatusDraft
	test.Questions = nil
	if req.ScoreReleaseMode == "" {
		test.ScoreReleaseMode = model.ReleaseNone
	}

	switch test.ScopeKind {
	case model.ScopeClub:
		if test.ClubID == nil {
			return nil, apperr.InvalidInput("club-scoped test requires club_id")
		}
	case model.ScopeTournamentEvent:
		if test.TournamentID == nil {
			return nil, apperr.InvalidInput("tournament-scoped test requires tournament_id")
		}
	}

	actor, err := s.authz.ResolveActor(userID, test)
	if err != nil {
		return nil, apperr.Dependency("could not resolve membership", err)
	}
	if actor.Membership == nil || !s.authz.Can(actor, ActionManageTest, test) {
		return nil, apperr.Forbidden("staff access required to create tests")
	}

	if req.Password != nil && *req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Dependency("could not hash test password", err)
		}
		h := string(hash)
		test.PasswordHash = &h
	}

	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}
	test.Questions = questions

	if err := s.testRepo.Create(test); err != nil {
		log.Error().Err(err).Msg("Failed to create test in database")
		return nil, apperr.Dependency("could not create test", err)
	}

	s.audit.Record(AuditTestCreated, userID, &test.ID, nil, test.Title)

	created, err := s.testRepo.FindByIDWithQuestions(test.ID)
	if err != nil {
		log.Error().Err(err).Uint("testID", test.ID).Msg("Failed to reload created test")
		resp := testToDTO(test, true)
		return &resp, nil
	}
	resp := testToDTO(created, true)
	return &resp, nil
}

func (s *adminTestService) PublishTest(userID, testID uint) (*dto.TestResponseDTO, error) {
	return s.transition(userID, testID, model.TestStatusDraft, model.TestStatusPublished, AuditTestPublished)
}

func (s *adminTestService) CloseTest(userID, testID uint) (*dto.TestResponseDTO, error) {
	return s.transition(userID, testID, model.TestStatusPublished, model.TestStatusClosed, AuditTestClosed)
}

func (s *adminTestService) transition(userID, testID uint, from, to model.TestStatus, auditAction string) (*dto.TestResponseDTO, error) {
	test, err := s.testRepo.FindByIDWithQuestions(testID)
	if err != nil {
		return nil, apperr.NotFound("test not found")
	}
	actor, err := s.authz.ResolveActor(userID, test)
	if err != nil {
		return nil, apperr.Dependency("could not resolve membership", err)
	}
	if actor.Membership == nil {
		return nil, apperr.NotFound("test not found")
	}
	if !s.authz.Can(actor, ActionManageTest, test) {
		return nil, apperr.Forbidden("staff access required")
	}
	if test.Status != from {
		return nil, apperr.InvalidState(apperr.CodeTestNotEditable,
			fmt.Sprintf("test is %s, expected %s", test.Status, from))
	}

	test.Status = to
	if err := s.testRepo.Save(test); err != nil {
		return nil, apperr.Dependency("could not update test", err)
	}
	s.audit.Record(auditAction, userID, &test.ID, nil, "")
	resp := testToDTO(test, true)
	return &resp, nil
}

// buildQuestions validates and converts the authoring payload. Order must be
// unique, points positive, and each type must carry the fields its grading
// path depends on.
func buildQuestions(reqs []dto.QuestionCreateDTO) ([]model.Question, error) {
	orderSeen := make(map[int]bool, len(reqs))
	questions := make([]model.Question, 0, len(reqs))

	for _, q := range reqs {
		if orderSeen[q.OrderInTest] {
			return nil, apperr.InvalidInput(fmt.Sprintf("duplicate order_in_test %d", q.OrderInTest))
		}
		orderSeen[q.OrderInTest] = true

		qType := model.QuestionType(q.Type)
		question := model.Question{
			Type:             qType,
			PromptMd:         q.PromptMd,
			Points:           q.Points,
			OrderInTest:      q.OrderInTest,
			CorrectText:      q.CorrectText,
			NumericAnswer:    q.NumericAnswer,
			NumericTolerance: q.NumericTolerance,
			Explanation:      q.Explanation,
		}

		switch qType {
		case model.QuestionMCQSingle, model.QuestionMCQMulti:
			correct := 0
			for _, o := range q.Options {
				if o.IsCorrect {
					correct++
				}
				question.Options = append(question.Options, model.Option{
					Label:           o.Label,
					IsCorrect:       o.IsCorrect,
					OrderInQuestion: o.OrderInQuestion,
				})
			}
			if len(q.Options) < 2 {
				return nil, apperr.InvalidInput(fmt.Sprintf("question %d needs at least two options", q.OrderInTest))
			}
			if qType == model.QuestionMCQSingle && correct != 1 {
				return nil, apperr.InvalidInput(fmt.Sprintf("question %d must have exactly one correct option", q.OrderInTest))
			}
			if qType == model.QuestionMCQMulti && correct == 0 {
				return nil, apperr.InvalidInput(fmt.Sprintf("question %d must have at least one correct option", q.OrderInTest))
			}
		case model.QuestionNumeric:
			if q.NumericAnswer == nil {
				return nil, apperr.InvalidInput(fmt.Sprintf("question %d requires numeric_answer", q.OrderInTest))
			}
		case model.QuestionShortText:
			if CountBlanks(q.PromptMd) > 0 && (q.CorrectText == nil || *q.CorrectText == "") {
				return nil, apperr.InvalidInput(fmt.Sprintf("question %d has blanks but no correct_text key", q.OrderInTest))
			}
		}
		questions = append(questions, question)
	}
	return questions, nil
}

// testToDTO shapes a test for responses; withKeys controls whether option
// correctness and explanations are included.
func testToDTO(t *model.Test, withKeys bool) dto.TestResponseDTO {
	out := dto.TestResponseDTO{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		ScopeKind:        t.ScopeKind,
		ClubID:           t.ClubID,
		TournamentID:     t.TournamentID,
		EventID:          t.EventID,
		Status:           t.Status,
		StartAt:          t.StartAt,
		EndAt:            t.EndAt,
		AllowLateUntil:   t.AllowLateUntil,
		DurationMinutes:  t.DurationMinutes,
		MaxAttempts:      t.MaxAttempts,
		ScoreReleaseMode: t.ScoreReleaseMode,
		ReleaseScoresAt:  t.ReleaseScoresAt,
		HasPassword:      t.HasPassword(),
		CreatedAt:        t.CreatedAt,
	}
	for i := range t.Questions {
		out.Questions = append(out.Questions, questionToDTO(&t.Questions[i], withKeys))
	}
	return out
}
