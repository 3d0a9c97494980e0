package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yigit/substitutions/internal/app/controllers"
	"github.com/yigit/substitutions/internal/app/models/dto"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	substitutionController *controllers.SubstitutionController,
) {
	// HTML view
	router.GET("/", substitutionController.Index)

	// API version group
	v1 := router.Group("/api/v1")

	substitutions := v1.Group("/substitutions")
	{
		substitutions.GET("", substitutionController.GetAllSubstitutions)
		substitutions.GET("/:id", substitutionController.GetSubstitutionByID)
		substitutions.POST("/refresh", substitutionController.RefreshSubstitutions)
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.APIResponse{
			Success:   true,
			Data:      gin.H{"status": "ok"},
			Timestamp: time.Now(),
		})
	})
}
