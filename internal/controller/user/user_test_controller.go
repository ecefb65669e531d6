package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scioarena/scioarena/internal/controller"
	"github.com/scioarena/scioarena/internal/service"
)

type UserTestController struct {
	userTestService service.UserTestService
}

func NewUserTestController(userTestService service.UserTestService) *UserTestController {
	return &UserTestController{userTestService: userTestService}
}

// GetAllTests godoc
// @Summary List tests visible to the caller
// @Description Published tests in scopes where the caller holds a membership; staff also see drafts.
// @Tags Tests
// @Produce json
// @Success 200 {array} dto.TestSummaryDTO
// @Router /tests [get]
func (c *UserTestController) GetAllTests(ctx *gin.Context) {
	tests, err := c.userTestService.GetAllTests(controller.ActorUserID(ctx))
	if err != nil {
		controller.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, tests)
}

// GetTestDetails godoc
// @Summary Get a test with its questions
// @Description Answer keys (correct options, explanations) are stripped for non-staff callers.
// @Tags Tests
// @Produce json
// @Param test_id path int true "Test ID"
// @Success 200 {object} dto.TestResponseDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /tests/{test_id} [get]
func (c *UserTestController) GetTestDetails(ctx *gin.Context) {
	testID, ok := controller.UintParam(ctx, "test_id")
	if !ok {
		return
	}
	test, err := c.userTestService.GetTestDetails(controller.ActorUserID(ctx), testID)
	if err != nil {
		controller.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, test)
}
