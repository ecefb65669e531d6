package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/scioarena/scioarena/config"
	"github.com/scioarena/scioarena/internal/apperr"
	"github.com/scioarena/scioarena/internal/dto"
	"github.com/scioarena/scioarena/internal/model"
	"github.com/scioarena/scioarena/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClientInfo is the forensic metadata captured from the request at start and
// submit. It is recorded, never used as identity.
type ClientInfo struct {
	Fingerprint string
	IP          string
	UserAgent   string
}

// AttemptLifecycleService governs the attempt state machine:
// NOT_STARTED -> IN_PROGRESS -> {SUBMITTED | GRADED}.
type AttemptLifecycleService interface {
	StartOrResume(userID, testID uint, req dto.StartAttemptDTO, client ClientInfo, now time.Time) (*dto.AttemptDetailDTO, error)
	SaveAnswer(userID, attemptID uint, req dto.AnswerUpsertDTO) (*dto.AnswerResponseDTO, error)
	AppendProctorEvents(userID, attemptID uint, events []dto.ProctorEventDTO) error
	Submit(userID, attemptID uint, req dto.SubmitAttemptDTO, client ClientInfo, now time.Time) (*dto.SubmitResultDTO, error)
	GetMyAttempts(userID, testID uint) ([]dto.AttemptSummaryDTO, error)
	GetAttemptsForTest(userID, testID uint) ([]dto.AttemptDetailDTO, error)
	GetResults(userID, testID uint, now time.Time) (*dto.AttemptResultDTO, error)
}

type attemptLifecycleService struct {
	testRepo       repository.TestRepository
	questionRepo   repository.QuestionRepository
	attemptRepo    repository.AttemptRepository
	answerRepo     repository.AnswerRepository
	eventRepo      repository.ProctorEventRepository
	membershipRepo repository.MembershipRepository
	authz          AuthzService
	audit          AuditService
	gradeOpts      GradeOptions
	db             *gorm.DB
}

func NewAttemptLifecycleService(
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	attemptRepo repository.AttemptRepository,
	answerRepo repository.AnswerRepository,
	eventRepo repository.ProctorEventRepository,
	membershipRepo repository.MembershipRepository,
	authz AuthzService,
	audit AuditService,
	cfg *config.Config,
	db *gorm.DB,
) AttemptLifecycleService {
	return &attemptLifecycleService{
		testRepo:       testRepo,
		questionRepo:   questionRepo,
		attemptRepo:    attemptRepo,
		answerRepo:     answerRepo,
		eventRepo:      eventRepo,
		membershipRepo: membershipRepo,
		authz:          authz,
		audit:          audit,
		gradeOpts: GradeOptions{
			CaseSensitive:  cfg.Grading.BlankCaseSensitive,
			KeepWhitespace: cfg.Grading.BlankKeepWhitespace,
		},
		db: db,
	}
}

// StartOrResume returns the existing non-terminal attempt unchanged when one
// exists (idempotent resume) and otherwise creates a fresh IN_PROGRESS
// attempt. Two concurrent starts can both miss the existing-attempt read;
// the unique ActiveKey index makes the loser's insert fail, and the loser
// then resumes the winner's row instead of surfacing an error.
func (s *attemptLifecycleService) StartOrResume(userID, testID uint, req dto.StartAttemptDTO, client ClientInfo, now time.Time) (*dto.AttemptDetailDTO, error) {
	test, err := s.testRepo.FindByIDWithQuestions(testID)
	if err != nil {
		return nil, apperr.NotFound("test not found")
	}

	actor, err := s.authz.ResolveActor(userID, test)
	if err != nil {
		return nil, apperr.Dependency("could not resolve membership", err)
	}
	if actor.Membership == nil || !s.authz.Can(actor, ActionTakeTest, test) {
		// Out-of-scope tests read as not-found to avoid leaking existence.
		return nil, apperr.NotFound("test not found")
	}
	membership := actor.Membership

	if test.HasPassword() && !actor.IsPrivileged() {
		if req.Password == nil || *req.Password == "" {
			return nil, apperr.Policy(apperr.CodeNeedTestPassword, "this test requires a password")
		}
		if bcrypt.CompareHashAndPassword([]byte(*test.PasswordHash), []byte(*req.Password)) != nil {
			return nil, apperr.Policy(apperr.CodeWrongTestPassword, "incorrect test password")
		}
	}

	// Scheduling applies to everyone, privileged actors included.
	if avail := EvaluateAvailability(test, now); !avail.Available {
		return nil, apperr.Policy(apperr.CodeTestNotAvailable, fmt.Sprintf("test is not available: %s", avail.Reason))
	}

	if existing, err := s.attemptRepo.FindActive(membership.ID, testID); err != nil {
		return nil, apperr.Dependency("could not look up attempts", err)
	} else if existing != nil {
		s.audit.Record(AuditAttemptResumed, userID, &testID, &existing.ID, "")
		return s.attemptDetail(existing.ID, test)
	}

	if test.MaxAttempts != nil && !actor.IsPrivileged() {
		count, err := s.attemptRepo.CountTerminal(membership.ID, testID)
		if err != nil {
			return nil, apperr.Dependency("could not count attempts", err)
		}
		if count >= int64(*test.MaxAttempts) {
			return nil, apperr.Policy(apperr.CodeMaxAttemptsReached, "maximum attempts reached")
		}
	}

	activeKey := model.ActiveKeyFor(membership.ID, testID)
	attempt := &model.Attempt{
		TestID:           testID,
		MembershipID:     membership.ID,
		Status:           model.AttemptInProgress,
		ActiveKey:        &activeKey,
		StartedAt:        now,
		StartFingerprint: client.Fingerprint,
		StartIP:          client.IP,
		StartUserAgent:   client.UserAgent,
	}
	if err := s.attemptRepo.Create(attempt); err != nil {
		// Likely lost the race on the ActiveKey unique index; resume the
		// attempt the winner created.
		if existing, ferr := s.attemptRepo.FindActive(membership.ID, testID); ferr == nil && existing != nil {
			log.Info().Uint("attemptID", existing.ID).Msg("Concurrent start detected; resuming existing attempt")
			return s.attemptDetail(existing.ID, test)
		}
		return nil, apperr.Dependency("could not create attempt", err)
	}

	s.audit.Record(AuditAttemptStarted, userID, &testID, &attempt.ID, "")
	return s.attemptDetail(attempt.ID, test)
}

// SaveAnswer upserts the single answer row for (attempt, question); answers
// are never duplicated. Only legal while the attempt is IN_PROGRESS.
func (s *attemptLifecycleService) SaveAnswer(userID, attemptID uint, req dto.AnswerUpsertDTO) (*dto.AnswerResponseDTO, error) {
	attempt, _, err := s.ownedAttempt(userID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, apperr.InvalidState(apperr.CodeAlreadySubmitted, "attempt is no longer in progress")
	}

	question, err := s.questionRepo.FindByID(req.QuestionID)
	if err != nil || question.TestID != attempt.TestID {
		return nil, apperr.InvalidInput("question does not belong to this test")
	}

	answer, err := s.answerRepo.FindByAttemptAndQuestion(attemptID, req.QuestionID)
	if err != nil {
		return nil, apperr.Dependency("could not look up answer", err)
	}
	if answer == nil {
		answer = &model.Answer{AttemptID: attemptID, QuestionID: req.QuestionID}
	}
	applyAnswerUpdate(answer, req)

	if err := s.answerRepo.Save(answer); err != nil {
		return nil, apperr.Dependency("could not save answer", err)
	}
	out := answerToDTO(answer, false)
	return &out, nil
}

// AppendProctorEvents stores a batch of behavioral signals. The log is
// append-only; events arriving after submission are still recorded for
// forensics but no longer change the proctoring score.
func (s *attemptLifecycleService) AppendProctorEvents(userID, attemptID uint, events []dto.ProctorEventDTO) error {
	if _, _, err := s.ownedAttempt(userID, attemptID); err != nil {
		return err
	}
	if err := s.eventRepo.CreateBatch(proctorEventModels(attemptID, events)); err != nil {
		return apperr.Dependency("could not record proctor events", err)
	}
	return nil
}

// Submit grades the whole attempt inside one transaction. Only legal from
// IN_PROGRESS. Every question is graded against its matching answer (a
// missing answer scores zero, it is not an error); the attempt transitions
// to GRADED when nothing needs manual grading, otherwise SUBMITTED. The
// answer updates and the attempt transition commit or roll back together.
func (s *attemptLifecycleService) Submit(userID, attemptID uint, req dto.SubmitAttemptDTO, client ClientInfo, now time.Time) (*dto.SubmitResultDTO, error) {
	attempt, _, err := s.ownedAttempt(userID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, apperr.InvalidState(apperr.CodeAlreadySubmitted, "attempt already submitted")
	}

	test, err := s.testRepo.FindByIDWithQuestions(attempt.TestID)
	if err != nil {
		return nil, apperr.Dependency("could not load test", err)
	}

	// Persist the trailing event batch first; the log is append-only and
	// independent of the grading transaction.
	if err := s.eventRepo.CreateBatch(proctorEventModels(attemptID, req.ProctorEvents)); err != nil {
		return nil, apperr.Dependency("could not record proctor events", err)
	}
	events, err := s.eventRepo.FindByAttemptID(attemptID)
	if err != nil {
		return nil, apperr.Dependency("could not load proctor events", err)
	}
	proctor := ScoreProctorEvents(events)

	answers, err := s.answerRepo.FindByAttemptID(attemptID)
	if err != nil {
		return nil, apperr.Dependency("could not load answers", err)
	}
	answerByQuestion := make(map[uint]*model.Answer, len(answers))
	for i := range answers {
		answerByQuestion[answers[i].QuestionID] = &answers[i]
	}
	// Fold in answers sent with the submit request itself.
	for _, in := range req.Answers {
		a, ok := answerByQuestion[in.QuestionID]
		if !ok {
			a = &model.Answer{AttemptID: attemptID, QuestionID: in.QuestionID}
			answerByQuestion[in.QuestionID] = a
		}
		applyAnswerUpdate(a, in)
	}

	totalAuto := 0.0
	needsManual := false
	var toPersist []*model.Answer
	for i := range test.Questions {
		q := &test.Questions[i]
		a := answerByQuestion[q.ID] // nil means unanswered: zero points
		result := GradeAnswer(q, a, s.gradeOpts)
		totalAuto += result.PointsAwarded
		if result.NeedsManualGrade {
			needsManual = true
		}
		if a != nil {
			points := result.PointsAwarded
			a.PointsAwarded = &points
			a.NeedsManualGrade = result.NeedsManualGrade
			if !result.NeedsManualGrade {
				gradedAt := now
				a.GradedAt = &gradedAt
			}
			toPersist = append(toPersist, a)
		}
	}

	attempt.Status = model.AttemptSubmitted
	if !needsManual {
		attempt.Status = model.AttemptGraded
	}
	if !model.AttemptInProgress.CanTransitionTo(attempt.Status) {
		return nil, apperr.InvalidState(apperr.CodeAlreadySubmitted, "illegal attempt transition")
	}
	submittedAt := now
	attempt.SubmittedAt = &submittedAt
	attempt.GradeEarned = &totalAuto
	attempt.ProctoringScore = &proctor.Score
	attempt.TabSwitchCount = proctor.TabSwitchCount
	attempt.TimeOffPageSeconds = proctor.TimeOffPageSeconds
	attempt.SubmitFingerprint = client.Fingerprint
	attempt.SubmitIP = client.IP
	attempt.SubmitUserAgent = client.UserAgent
	attempt.ActiveKey = nil // release the one-active-attempt slot

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, a := range toPersist {
			a.Question = model.Question{} // avoid cascading question writes
			if err := tx.Save(a).Error; err != nil {
				return fmt.Errorf("failed to save answer for question %d: %w", a.QuestionID, err)
			}
		}
		if err := tx.Model(&model.Attempt{}).Where("id = ?", attempt.ID).Updates(map[string]interface{}{
			"status":                attempt.Status,
			"active_key":            nil,
			"submitted_at":          attempt.SubmittedAt,
			"grade_earned":          attempt.GradeEarned,
			"proctoring_score":      attempt.ProctoringScore,
			"tab_switch_count":      attempt.TabSwitchCount,
			"time_off_page_seconds": attempt.TimeOffPageSeconds,
			"submit_fingerprint":    attempt.SubmitFingerprint,
			"submit_ip":             attempt.SubmitIP,
			"submit_user_agent":     attempt.SubmitUserAgent,
		}).Error; err != nil {
			return fmt.Errorf("failed to transition attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Submit transaction failed; attempt left IN_PROGRESS")
		return nil, apperr.Dependency("could not submit attempt", err)
	}

	s.audit.Record(AuditAttemptSubmitted, userID, &attempt.TestID, &attempt.ID,
		fmt.Sprintf("status=%s grade=%.2f proctoring=%.1f", attempt.Status, totalAuto, proctor.Score))

	detail, err := s.attemptDetail(attempt.ID, test)
	if err != nil {
		return nil, err
	}
	return &dto.SubmitResultDTO{
		Attempt:            *detail,
		NeedsManualGrading: needsManual,
		ProctoringScore:    proctor.Score,
	}, nil
}

func (s *attemptLifecycleService) GetMyAttempts(userID, testID uint) ([]dto.AttemptSummaryDTO, error) {
	test, err := s.testRepo.FindByID(testID)
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

	attempts, err := s.attemptRepo.FindAllByTestAndMembership(testID, actor.Membership.ID)
	if err != nil {
		return nil, apperr.Dependency("could not load attempts", err)
	}
	out := make([]dto.AttemptSummaryDTO, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, attemptSummaryDTO(&a))
	}
	return out, nil
}

// GetAttemptsForTest is the staff view: every student's attempt with answers
// sorted by question order, answer keys included.
func (s *attemptLifecycleService) GetAttemptsForTest(userID, testID uint) ([]dto.AttemptDetailDTO, error) {
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
	if !s.authz.Can(actor, ActionViewAllAttempts, test) {
		return nil, apperr.Forbidden("staff access required")
	}

	attempts, err := s.attemptRepo.FindAllByTest(testID)
	if err != nil {
		return nil, apperr.Dependency("could not load attempts", err)
	}
	out := make([]dto.AttemptDetailDTO, 0, len(attempts))
	for i := range attempts {
		out = append(out, attemptDetailDTO(&attempts[i], test, true))
	}
	return out, nil
}

// GetResults applies the score-release policy to the caller's most recent
// terminal attempt. Before release it returns the "not released" marker.
func (s *attemptLifecycleService) GetResults(userID, testID uint, now time.Time) (*dto.AttemptResultDTO, error) {
	test, err := s.testRepo.FindByIDWithQuestions(testID)
	if err != nil {
		return nil, apperr.NotFound("test not found")
	}
	actor, err := s.authz.ResolveActor(userID, test)
	if err != nil {
		return nil, apperr.Dependency("could not resolve membership", err)
	}
	if actor.Membership == nil || !s.authz.Can(actor, ActionViewResults, test) {
		return nil, apperr.NotFound("test not found")
	}

	attempts, err := s.attemptRepo.FindAllByTestAndMembership(testID, actor.Membership.ID)
	if err != nil {
		return nil, apperr.Dependency("could not load attempts", err)
	}
	var latest *model.Attempt
	for i := range attempts {
		if attempts[i].Status.IsTerminal() {
			latest = &attempts[i]
			break // FindAllByTestAndMembership orders by started_at DESC
		}
	}
	if latest == nil {
		return nil, apperr.NotFound("no submitted attempt for this test")
	}

	full, err := s.attemptRepo.FindByIDWithDetails(latest.ID)
	if err != nil {
		return nil, apperr.Dependency("could not load attempt", err)
	}
	sortAnswersByQuestionOrder(full.Answers, test)
	return FilterForRelease(test, full, now), nil
}

// ownedAttempt loads an attempt and verifies the caller owns it through the
// attempt's membership.
func (s *attemptLifecycleService) ownedAttempt(userID, attemptID uint) (*model.Attempt, *model.Membership, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, nil, apperr.NotFound("attempt not found")
	}
	membership, err := s.membershipRepo.FindByID(attempt.MembershipID)
	if err != nil {
		return nil, nil, apperr.Dependency("could not load membership", err)
	}
	if membership.UserID != userID {
		return nil, nil, apperr.NotFound("attempt not found")
	}
	return attempt, membership, nil
}

func (s *attemptLifecycleService) attemptDetail(attemptID uint, test *model.Test) (*dto.AttemptDetailDTO, error) {
	full, err := s.attemptRepo.FindByIDWithDetails(attemptID)
	if err != nil {
		return nil, apperr.Dependency("could not load attempt", err)
	}
	detail := attemptDetailDTO(full, test, false)
	return &detail, nil
}

func applyAnswerUpdate(answer *model.Answer, in dto.AnswerUpsertDTO) {
	answer.SelectedOptionIDs = in.SelectedOptionIDs
	answer.NumericAnswer = in.NumericAnswer
	answer.AnswerText = in.AnswerText
}

func proctorEventModels(attemptID uint, events []dto.ProctorEventDTO) []model.ProctorEvent {
	out := make([]model.ProctorEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, model.ProctorEvent{
			AttemptID:  attemptID,
			Kind:       model.ProctorEventKind(ev.Kind),
			OccurredAt: ev.OccurredAt,
			Metadata:   datatypes.JSON(ev.Metadata),
		})
	}
	return out
}

func attemptSummaryDTO(a *model.Attempt) dto.AttemptSummaryDTO {
	return dto.AttemptSummaryDTO{
		ID:              a.ID,
		TestID:          a.TestID,
		MembershipID:    a.MembershipID,
		Status:          a.Status,
		StartedAt:       a.StartedAt,
		SubmittedAt:     a.SubmittedAt,
		GradeEarned:     a.GradeEarned,
		ProctoringScore: a.ProctoringScore,
	}
}

func attemptDetailDTO(a *model.Attempt, test *model.Test, withKeys bool) dto.AttemptDetailDTO {
	sortAnswersByQuestionOrder(a.Answers, test)
	detail := dto.AttemptDetailDTO{
		ID:                 a.ID,
		TestID:             a.TestID,
		TestTitle:          test.Title,
		MembershipID:       a.MembershipID,
		Status:             a.Status,
		StartedAt:          a.StartedAt,
		SubmittedAt:        a.SubmittedAt,
		GradeEarned:        a.GradeEarned,
		ProctoringScore:    a.ProctoringScore,
		TabSwitchCount:     a.TabSwitchCount,
		TimeOffPageSeconds: a.TimeOffPageSeconds,
	}
	for i := range a.Answers {
		detail.Answers = append(detail.Answers, answerToDTO(&a.Answers[i], withKeys))
	}
	return detail
}

func sortAnswersByQuestionOrder(answers []model.Answer, test *model.Test) {
	orderByQuestion := make(map[uint]int, len(test.Questions))
	for _, q := range test.Questions {
		orderByQuestion[q.ID] = q.OrderInTest
	}
	sort.SliceStable(answers, func(i, j int) bool {
		return orderByQuestion[answers[i].QuestionID] < orderByQuestion[answers[j].QuestionID]
	})
}

// marshalJSON is a small helper for audit details and raw payloads.
func marshalJSON(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
