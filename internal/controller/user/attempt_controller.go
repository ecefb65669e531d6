package user

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/scioarena/scioarena/internal/controller"
	"github.com/scioarena/scioarena/internal/dto"
	"github.com/scioarena/scioarena/internal/service"
)

type AttemptController struct {
	lifecycle   service.AttemptLifecycleService
	suggestions service.SuggestionService
}

func NewAttemptController(lifecycle service.AttemptLifecycleService, suggestions service.SuggestionService) *AttemptController {
	return &AttemptController{lifecycle: lifecycle, suggestions: suggestions}
}

// StartAttempt godoc
// @Summary Start or resume a test attempt
// @Description Returns the existing in-progress attempt when one exists; otherwise creates a new one, enforcing availability, password and max-attempt policy.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param test_id path int true "Test ID"
// @Param body body dto.StartAttemptDTO false "Fingerprint and optional test password"
// @Success 200 {object} dto.AttemptDetailDTO
// @Failure 403 {object} dto.ErrorResponse "Policy violation (NEED_TEST_PASSWORD, WRONG_TEST_PASSWORD, MAX_ATTEMPTS_REACHED, TEST_NOT_AVAILABLE)"
// @Failure 404 {object} dto.ErrorResponse
// @Router /tests/{test_id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	var req dto.StartAttemptDTO
	if err := ctx.ShouldBindJSON(&req); err != nil && ctx.Request.ContentLength > 0 {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	attempt, err := c.lifecycle.StartOrResume(
		controller.ActorUserID(ctx), testID, req,
		controller.ClientInfo(ctx, req.Fingerprint), time.Now())
	if err != nil {
		log.Warn().Err(err).Uint("testID", testID).Msg("StartAttempt failed")
		controller.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}

// SaveAnswer godoc
// @Summary Save one answer of an in-progress attempt
// @Description Upserts the answer for a question; an attempt holds at most one answer per question.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.AnswerUpsertDTO true "Answer payload for one question"
// @Success 200 {object} dto.AnswerResponseDTO
// @Failure 409 {object} dto.ErrorResponse "Attempt is no longer in progress"
// @Router /attempts/{attempt_id}/answers [put]
func (c *AttemptController) SaveAnswer(ctx *gin.Context) {
	attemptID, ok := controller.UintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.AnswerUpsertDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	answer, err := c.lifecycle.SaveAnswer(controller.ActorUserID(ctx), attemptID, req)
	if err != nil {
		controller.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, answer)
}

// AppendProctorEvents godoc
// @Summary Record a batch of proctoring events
// @Tags Attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body []dto.ProctorEventDTO true "Events observed by the client"
// @Success 204
// @Router /attempts/{attempt_id}/events [post]
func (c *AttemptController) AppendProctorEvents(ctx *gin.Context) {
	attemptID, ok := controller.UintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	var events []dto.ProctorEventDTO
	if err := ctx.ShouldBindJSON(&events); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	if err := c.lifecycle.AppendProctorEvents(controller.ActorUserID(ctx), attemptID, events); err != nil {
		controller.WriteError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// SubmitAttempt godoc
// @Summary Submit an in-progress attempt
// @Description Grades every question, aggregates the proctoring score, and transitions the attempt in a single transaction.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.SubmitAttemptDTO false "Final answers and trailing proctor events"
// @Success 200 {object} dto.SubmitResultDTO
// @Failure 409 {object} dto.ErrorResponse "Already submitted"
// @Router /attempts/{attempt_id}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	attemptID, ok := controller.UintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.SubmitAttemptDTO
	if err := ctx.ShouldBindJSON(&req); err != nil && ctx.Request.ContentLength > 0 {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	result, err := c.lifecycle.Submit(
		controller.ActorUserID(ctx), attemptID, req,
		controller.ClientInfo(ctx, req.Fingerprint), time.Now())
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("SubmitAttempt failed")
		controller.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// RequestSuggestions godoc
// @Summary Request AI grading suggestions
// @Description Staff asks the AI provider for advisory scores on one answer or every answer needing manual grading. Per-part regrades merge into the stored breakdown.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.SuggestionRequestDTO false "Answer selection and optional part index"
// @Success 200 {array} dto.SuggestionDTO
// @Failure 403 {object} dto.ErrorResponse
// @Router /attempts/{attempt_id}/suggestions [post]
func (c *AttemptController) RequestSuggestions(ctx *gin.Context) {
	attemptID, ok := controller.UintParam(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.SuggestionRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil && ctx.Request.ContentLength > 0 {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	suggestions, err := c.suggestions.RequestSuggestions(ctx.Request.Context(), controller.ActorUserID(ctx), attemptID, req)
	if err != nil {
		controller.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, suggestions)
}

// GetMyAttempts godoc
// @Summary List the caller's attempts for a test
// @Tags Attempts
// @Produce json
// @Param test_id path int true "Test ID"
// @Success 200 {array} dto.AttemptSummaryDTO
// @Router /tests/{test_id}/my-attempts [get]
func (c *AttemptController) GetMyAttempts(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	attempts, err := c.lifecycle.GetMyAttempts(controller.ActorUserID(ctx), testID)
	if err != nil {
		controller.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempts)
}

// GetResults godoc
// @Summary Get the caller's released results for a test
// @Description Applies the test's score-release policy. Before release the body is {"released": false}, not an error.
// @Tags Attempts
// @Produce json
// @Param test_id path int true "Test ID"
// @Success 200 {object} dto.AttemptResultDTO
// @Failure 404 {object} dto.ErrorResponse "No submitted attempt"
// @Router /tests/{test_id}/results [get]
func (c *AttemptController) GetResults(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	result, err := c.lifecycle.GetResults(controller.ActorUserID(ctx), testID, time.Now())
	if err != nil {
		controller.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}
