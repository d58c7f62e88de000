package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/gopunch/internal/attendance"
	"github.com/jonesrussell/gopunch/internal/domain"
)

const defaultHistoryLimit = 20

// Mutating endpoints always answer 200; the outcome lives in the success
// flag so a caller scripting against the API reads one shape everywhere.

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleStatus(c *gin.Context) {
	enabled := s.state.Enabled()
	message := "Automatic attendance is disabled"
	if enabled {
		message = "Automatic attendance is enabled"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   gin.H{"enabled": enabled},
		"message": message,
	})
}

func (s *Server) handleEnable(c *gin.Context) {
	s.state.Enable()
	s.logger.Info("automation enabled")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   gin.H{"enabled": s.state.Enabled()},
		"message": "Automatic attendance enabled",
	})
}

func (s *Server) handleDisable(c *gin.Context) {
	s.state.Disable()
	s.logger.Info("automation disabled")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   gin.H{"enabled": s.state.Enabled()},
		"message": "Automatic attendance disabled",
	})
}

// triggerHandler runs an on-demand attempt for the given action. Manual
// triggers ignore the automation toggle and the weekday schedule.
func (s *Server) triggerHandler(action domain.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), triggerTimeout)
		defer cancel()

		result, err := s.executor.Execute(ctx, action, domain.TriggerManual)
		if err != nil {
			message := fmt.Sprintf("%s failed", action.Label())
			if errors.Is(err, attendance.ErrAttemptInProgress) {
				message = fmt.Sprintf("%s rejected", action.Label())
			}
			c.JSON(http.StatusOK, gin.H{
				"success": false,
				"error":   err.Error(),
				"message": message,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": result.Message,
			"result":  result,
		})
	}
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"error":   "attempt history is not configured",
		})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   fmt.Sprintf("invalid limit %q", raw),
			})
			return
		}
		limit = parsed
	}

	attempts, err := s.history.Recent(limit)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"attempts": attempts,
		"count":    len(attempts),
	})
}
