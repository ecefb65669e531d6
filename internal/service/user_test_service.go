package service

import (
	"github.com/rs/zerolog/log"
	"github.com/scioarena/scioarena/internal/apperr"
	"github.com/scioarena/scioarena/internal/dto"
	"github.com/scioarena/scioarena/internal/model"
	"github.com/scioarena/scioarena/internal/repository"
)

type UserTestService interface {
	GetAllTests(userID uint) ([]dto.TestSummaryDTO, error)
	GetTestDetails(userID, testID uint) (*dto.TestResponseDTO, error)
}

type userTestService struct {
	testRepo repository.TestRepository
	authz    AuthzService
}

func NewUserTestService(testRepo repository.TestRepository, authz AuthzService) UserTestService {
	return &userTestService{testRepo: testRepo, authz: authz}
}

// GetAllTests lists the tests visible to the user: published tests in scopes
// where they hold a membership, plus drafts for staff. Memberships are
// loaded once and matched in memory, not queried per test.
func (s *userTestService) GetAllTests(userID uint) ([]dto.TestSummaryDTO, error) {
	testsWithCount, err := s.testRepo.FindAllWithQuestionCount()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list tests")
		return nil, apperr.Dependency("could not list tests", err)
	}
	actors, err := s.authz.ResolveActorSet(userID)
	if err != nil {
		return nil, apperr.Dependency("could not resolve memberships", err)
	}

	out := make([]dto.TestSummaryDTO, 0, len(testsWithCount))
	for _, twc := range testsWithCount {
		test := twc.Test
		actor := actors.For(&test)
		if actor.Membership == nil {
			continue
		}
		if test.Status != model.TestStatusPublished && !actor.IsPrivileged() {
			continue
		}
		out = append(out, dto.TestSummaryDTO{
			ID:            test.ID,
			Title:         test.Title,
			Description:   test.Description,
			ScopeKind:     test.ScopeKind,
			Status:        test.Status,
			StartAt:       test.StartAt,
			EndAt:         test.EndAt,
			QuestionCount: twc.QuestionCount,
			CreatedAt:     test.CreatedAt,
		})
	}
	return out, nil
}

// GetTestDetails returns the full question list. Answer keys (correct
// options, explanations) are only included for staff of the owning scope.
func (s *userTestService) GetTestDetails(userID, testID uint) (*dto.TestResponseDTO, error) {
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
	if test.Status != model.TestStatusPublished && !actor.IsPrivileged() {
		return nil, apperr.NotFound("test not found")
	}

	resp := testToDTO(test, actor.IsPrivileged())
	return &resp, nil
}
