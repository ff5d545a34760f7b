package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DashboardHandler expone la ruta protegida de ejemplo.
type DashboardHandler struct{}

func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// Dashboard maneja GET /api/dashboard.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to dashboard",
		"user": gin.H{
			"id":    claims.UserID,
			"email": claims.Email,
			"name":  claims.DisplayName,
		},
	})
}
