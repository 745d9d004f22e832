package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"factoryms/internal/service"
	"factoryms/pkg/apperror"
	"factoryms/pkg/response"
)

// currentActor resolves the authenticated user from the gin context as set by
// the auth middleware.
func currentActor(c *gin.Context) (service.Actor, bool) {
	rawID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return service.Actor{}, false
	}
	idStr, ok := rawID.(string)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid User ID format"))
		return service.Actor{}, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid User ID format"))
		return service.Actor{}, false
	}

	role, _ := c.Get("userRole")
	roleStr, _ := role.(string)
	return service.Actor{ID: id, Role: roleStr}, true
}

// writeError maps a service error to the response envelope. Persistence
// causes are logged server-side and never serialized.
func writeError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	if appErr.Err != nil {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, appErr.Err)
	}
	c.JSON(appErr.Status, response.ErrorWithCode(appErr.Status, appErr.Code, appErr.Message))
}
