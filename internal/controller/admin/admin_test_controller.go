package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/scioarena/scioarena/internal/controller"
	"github.com/scioarena/scioarena/internal/dto"
	"github.com/scioarena/scioarena/internal/service"
)

type AdminTestController struct {
	adminTestService service.AdminTestService
	lifecycle        service.AttemptLifecycleService
}

func NewAdminTestController(adminTestService service.AdminTestService, lifecycle service.AttemptLifecycleService) *AdminTestController {
	return &AdminTestController{adminTestService: adminTestService, lifecycle: lifecycle}
}

// CreateTest godoc
// @Summary (Admin) Create a new draft test
// @Description Staff creates a draft test with its questions and options. The test stays editable until published.
// @Tags Admin - Tests
// @Accept json
// @Produce json
// @Param test_data body dto.TestCreateDTO true "Test definition including questions"
// @Success 201 {object} dto.TestResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /admin/tests [post]
func (c *AdminTestController) CreateTest(ctx *gin.Context) {
	var req dto.TestCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Admin CreateTest: Failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	resp, err := c.adminTestService.CreateTest(controller.ActorUserID(ctx), req)
	if err != nil {
		log.Warn().Err(err).Msg("Admin CreateTest: Service error")
		controller.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// PublishTest godoc
// @Summary (Admin) Publish a draft test
// @Tags Admin - Tests
// @Produce json
// @Param test_id path int true "Test ID"
// @Success 200 {object} dto.TestResponseDTO
// @Failure 409 {object} dto.ErrorResponse "Test is not a draft"
// @Router /admin/tests/{test_id}/publish [post]
func (c *AdminTestController) PublishTest(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	resp, err := c.adminTestService.PublishTest(controller.ActorUserID(ctx), testID)
	if err != nil {
		controller.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// CloseTest godoc
// @Summary (Admin) Close a published test
// @Tags Admin - Tests
// @Produce json
// @Param test_id path int true "Test ID"
// @Success 200 {object} dto.TestResponseDTO
// @Failure 409 {object} dto.ErrorResponse "Test is not published"
// @Router /admin/tests/{test_id}/close [post]
func (c *AdminTestController) CloseTest(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	resp, err := c.adminTestService.CloseTest(controller.ActorUserID(ctx), testID)
	if err != nil {
		controller.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetAttemptsForTest godoc
// @Summary (Admin) List every attempt for a test
// @Description Staff view of all students' attempts with answers sorted by question order.
// @Tags Admin - Tests
// @Produce json
// @Param test_id path int true "Test ID"
// @Success 200 {array} dto.AttemptDetailDTO
// @Failure 403 {object} dto.ErrorResponse
// @Router /admin/tests/{test_id}/attempts [get]
func (c *AdminTestController) GetAttemptsForTest(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	attempts, err := c.lifecycle.GetAttemptsForTest(controller.ActorUserID(ctx), testID)
	if err != nil {
		controller.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempts)
}
