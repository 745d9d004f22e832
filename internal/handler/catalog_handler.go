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

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/inventory-items")
	{
		inventory.GET("", middleware.RequirePermission(database.PermCatalogRead), h.ListInventoryItems)
		inventory.GET("/:id", middleware.RequirePermission(database.PermCatalogRead), h.GetInventoryItem)
	}
	router.GET("/units", middleware.RequirePermission(database.PermCatalogRead), h.ListUnits)
}

// ListInventoryItems handles GET /inventory-items
// @Summary      List inventory items
// @Description  Lists catalog items requisition lines may reference, with optional name/SKU search
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Search name or SKU"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /inventory-items [get]
func (h *CatalogHandler) ListInventoryItems(c *gin.Context) {
	params := pagination.Parse(c)

	items, total, err := h.catalogService.ListInventoryItems(c.Request.Context(), c.Query("search"), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, params.Envelope("items", items, total)))
}

// GetInventoryItem handles GET /inventory-items/:id
// @Summary      Get inventory item by ID
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Inventory Item ID"
// @Success      200  {object}  response.Response{data=model.InventoryItem}
// @Failure      404  {object}  response.Response
// @Router       /inventory-items/{id} [get]
func (h *CatalogHandler) GetInventoryItem(c *gin.Context) {
	item, err := h.catalogService.GetInventoryItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// ListUnits handles GET /units
// @Summary      List measurement units
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Unit}
// @Failure      500  {object}  response.Response
// @Router       /units [get]
func (h *CatalogHandler) ListUnits(c *gin.Context) {
	units, err := h.catalogService.ListUnits(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, units))
}
