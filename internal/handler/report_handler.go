package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"factoryms/internal/database"
	"factoryms/internal/middleware"
	"factoryms/internal/repository"
	"factoryms/internal/service"
	"factoryms/pkg/response"
)

type ReportHandler struct {
	reportService   service.ReportService
	activityService service.ActivityService
}

func NewReportHandler(reportService service.ReportService, activityService service.ActivityService) *ReportHandler {
	return &ReportHandler{reportService: reportService, activityService: activityService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/reports")
	{
		reports.GET("/user-stats", middleware.RequirePermission(database.PermReportsRead), h.UserStatistics)
		reports.GET("/activity", middleware.RequirePermission(database.PermReportsRead), h.RecentActivity)
		reports.GET("/requisitions/export", middleware.RequirePermission(database.PermReportsRead), h.ExportRequisitions)
	}
}

// UserStatistics handles GET /reports/user-stats
// @Summary      User statistics report
// @Description  Aggregates user counts by role and department plus recent login activity
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        days  query     int  false  "Recent-login window in days (default 30)"
// @Success      200   {object}  response.Response{data=repository.UserStats}
// @Failure      500   {object}  response.Response
// @Router       /reports/user-stats [get]
func (h *ReportHandler) UserStatistics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	stats, err := h.reportService.UserStatistics(c.Request.Context(), days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// RecentActivity handles GET /reports/activity
// @Summary      Recent activity report
// @Description  Returns the activity trail within a day window, optionally narrowed to one action type
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        days     query     int     false  "Window in days (default 7)"
// @Param        action   query     string  false  "Filter by action (login, create, update...)"
// @Param        user_id  query     string  false  "Filter by user ID"
// @Param        limit    query     int     false  "Maximum rows (default 1000)"
// @Success      200      {object}  response.Response{data=[]service.ActivityLogResponse}
// @Failure      500      {object}  response.Response
// @Router       /reports/activity [get]
func (h *ReportHandler) RecentActivity(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	filter := repository.ActivityFilter{
		Days:   days,
		Action: c.Query("action"),
		Limit:  limit,
	}
	if raw := c.Query("user_id"); raw != "" {
		if parsed, err := uuid.Parse(raw); err == nil {
			filter.UserID = &parsed
		}
	}

	logs, err := h.activityService.GetRecentActivity(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, logs))
}

// ExportRequisitions handles GET /reports/requisitions/export
// @Summary      Export requisitions as xlsx
// @Description  Streams the filtered requisition list as a spreadsheet download
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        status      query  string  false  "Filter by status"
// @Param        department  query  string  false  "Filter by department"
// @Param        priority    query  string  false  "Filter by priority"
// @Success      200  {file}  file
// @Failure      500  {object}  response.Response
// @Router       /reports/requisitions/export [get]
func (h *ReportHandler) ExportRequisitions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	filter := service.ListRequisitionsFilter{
		Status:     c.Query("status"),
		Department: c.Query("department"),
		Priority:   c.Query("priority"),
	}

	buffer, filename, err := h.reportService.ExportRequisitions(c.Request.Context(), actor, filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Length", strconv.Itoa(buffer.Len()))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buffer.Bytes())
}
