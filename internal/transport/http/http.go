// Package http exposes Marcus's operational surface: liveness/readiness
// a project status rollup, and a board health probe, outside the MCP tool
// surface in transport/mcp.
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marcusai/marcus/internal/service/coordinator"
)

// Register mounts /healthz, /readyz, /projects/:id/status, and
// /projects/:id/board-health on rg.
func Register(rg *gin.RouterGroup, coord *coordinator.Coordinator, pingDB func(ctx context.Context) error) {
	rg.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rg.GET("/readyz", func(c *gin.Context) {
		if pingDB == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		if err := pingDB(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	rg.GET("/projects/:id/status", func(c *gin.Context) {
		status, err := coord.GetProjectStatus(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, status)
	})

	rg.GET("/projects/:id/board-health", func(c *gin.Context) {
		health, err := coord.CheckBoardHealth(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, health)
	})
}
