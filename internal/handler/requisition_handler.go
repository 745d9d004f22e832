package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"factoryms/internal/database"
	"factoryms/internal/middleware"
	"factoryms/internal/service"
	"factoryms/pkg/response"
)

type RequisitionHandler struct {
	requisitionService service.RequisitionService
}

// NewRequisitionHandler sets up the routing dependencies for requisition endpoints
func NewRequisitionHandler(requisitionService service.RequisitionService) *RequisitionHandler {
	return &RequisitionHandler{requisitionService: requisitionService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *RequisitionHandler) RegisterRoutes(router *gin.RouterGroup) {
	requisitions := router.Group("/requisitions")
	{
		requisitions.GET("", middleware.RequirePermission(database.PermRequisitionsRead), h.ListRequisitions)
		requisitions.GET("/stats/dashboard", middleware.RequirePermission(database.PermRequisitionsRead), h.Dashboard)
		requisitions.GET("/:id", middleware.RequirePermission(database.PermRequisitionsRead), h.GetRequisition)
		requisitions.POST("", middleware.RequirePermission(database.PermRequisitionsWrite), h.CreateRequisition)
		requisitions.PUT("/:id", middleware.RequirePermission(database.PermRequisitionsWrite), h.UpdateRequisition)
		requisitions.POST("/:id/submit", middleware.RequirePermission(database.PermRequisitionsWrite), h.SubmitRequisition)
		requisitions.POST("/:id/approve", middleware.RequirePermission(database.PermRequisitionsApprove), h.DecideRequisition)
		requisitions.DELETE("/:id", middleware.RequirePermission(database.PermRequisitionsWrite), h.DeleteRequisition)
	}
}

// CreateRequisition handles POST /requisitions
// @Summary      Create a requisition
// @Description  Creates a draft requisition with its line items; total cost is computed server-side
// @Tags         requisitions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequisitionRequest  true  "Create Requisition Payload"
// @Success      200      {object}  response.Response{data=service.CreateRequisitionResult}
// @Failure      400      {object}  response.Response
// @Router       /requisitions [post]
func (h *RequisitionHandler) CreateRequisition(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req service.CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requisitionService.Create(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListRequisitions handles GET /requisitions with optional filters
// @Summary      List requisitions
// @Description  Lists requisitions with requester/approver names and item aggregates. Non-privileged users only see their own.
// @Tags         requisitions
// @Produce      json
// @Security     BearerAuth
// @Param        status      query     string  false  "Filter by status"
// @Param        department  query     string  false  "Filter by department"
// @Param        priority    query     string  false  "Filter by priority"
// @Success      200         {object}  response.Response{data=[]repository.RequisitionSummary}
// @Failure      500         {object}  response.Response
// @Router       /requisitions [get]
func (h *RequisitionHandler) ListRequisitions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	filter := service.ListRequisitionsFilter{
		Status:     c.Query("status"),
		Department: c.Query("department"),
		Priority:   c.Query("priority"),
	}

	rows, err := h.requisitionService.List(c.Request.Context(), actor, filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// GetRequisition handles GET /requisitions/:id
// @Summary      Get requisition detail
// @Description  Fetches a requisition with items, approval history and related names
// @Tags         requisitions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Requisition ID"
// @Success      200  {object}  response.Response{data=service.RequisitionResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /requisitions/{id} [get]
func (h *RequisitionHandler) GetRequisition(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	requisition, err := h.requisitionService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requisition))
}

// UpdateRequisition handles PUT /requisitions/:id
// @Summary      Update requisition
// @Description  Updates descriptive fields only. Status changes go through submit and approve.
// @Tags         requisitions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true  "Requisition ID"
// @Param        payload  body      service.UpdateRequisitionRequest  true  "Update Payload"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /requisitions/{id} [put]
func (h *RequisitionHandler) UpdateRequisition(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req service.UpdateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if err := h.requisitionService.Update(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Requisition updated successfully"))
}

// SubmitRequisition handles POST /requisitions/:id/submit
// @Summary      Submit requisition
// @Description  Moves a draft requisition into the approval queue. Only the requester may submit.
// @Tags         requisitions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Requisition ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /requisitions/{id}/submit [post]
func (h *RequisitionHandler) SubmitRequisition(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.requisitionService.Submit(c.Request.Context(), actor, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Requisition submitted successfully"))
}

// DecideRequisition handles POST /requisitions/:id/approve
// @Summary      Approve or reject requisition
// @Description  Records an approve/reject decision on a submitted requisition. Managers and admins only.
// @Tags         requisitions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Requisition ID"
// @Param        payload  body      service.DecisionRequest  true  "Decision Payload"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /requisitions/{id}/approve [post]
func (h *RequisitionHandler) DecideRequisition(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req service.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if err := h.requisitionService.Decide(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Decision recorded successfully"))
}

// DeleteRequisition handles DELETE /requisitions/:id
// @Summary      Delete requisition
// @Description  Deletes a requisition with its items and approval history. Owners may delete drafts; admins may delete any.
// @Tags         requisitions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Requisition ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /requisitions/{id} [delete]
func (h *RequisitionHandler) DeleteRequisition(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.requisitionService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Requisition deleted successfully"))
}

// Dashboard handles GET /requisitions/stats/dashboard
// @Summary      Requisition dashboard stats
// @Description  Returns total, pending, approved, rejected and own-requisition counts
// @Tags         requisitions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=repository.DashboardStats}
// @Failure      500  {object}  response.Response
// @Router       /requisitions/stats/dashboard [get]
func (h *RequisitionHandler) Dashboard(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	stats, err := h.requisitionService.Dashboard(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
