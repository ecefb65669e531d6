package service

import (
	"github.com/rs/zerolog/log"
	"github.com/scioarena/scioarena/internal/model"
	"github.com/scioarena/scioarena/internal/repository"
)

// Audit actions recorded by the engine.
const (
	AuditAttemptStarted    = "attempt.started"
	AuditAttemptResumed    = "attempt.resumed"
	AuditAttemptSubmitted  = "attempt.submitted"
	AuditSuggestionRequest = "suggestion.requested"
	AuditTestCreated       = "test.created"
	AuditTestPublished     = "test.published"
	AuditTestClosed        = "test.closed"
)

// AuditService records state transitions fire-and-forget: a failed write is
// logged and never rolls back the operation it describes.
type AuditService interface {
	Record(action string, actorUserID uint, testID, attemptID *uint, detail string)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) Record(action string, actorUserID uint, testID, attemptID *uint, detail string) {
	entry := &model.AuditLog{
		Action:      action,
		ActorUserID: actorUserID,
		TestID:      testID,
		AttemptID:   attemptID,
		Detail:      detail,
	}
	go func() {
		if err := s.auditRepo.Create(entry); err != nil {
			log.Warn().Err(err).Str("action", action).Msg("Audit write failed; continuing")
		}
	}()
}
