package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"factoryms/internal/database"
	"factoryms/internal/middleware"
	"factoryms/internal/service"
	"factoryms/pkg/pagination"
	"factoryms/pkg/response"
)

type ActivityHandler struct {
	activityService service.ActivityService
}

func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *ActivityHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/activity", middleware.RequirePermission(database.PermActivityRead), h.ListActivity)
}

// ListActivity handles GET /activity
// @Summary      List activity logs
// @Description  Returns the activity trail newest first
// @Tags         activity
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /activity [get]
func (h *ActivityHandler) ListActivity(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.activityService.GetActivityLogs(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, params.Envelope("logs", logs, total)))
}
