package api

import (
	"context"
	"net/http"
	"time"

	"capital-returns-engine/internal/auth"

	"github.com/gin-gonic/gin"
)

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// parseDateQuery parses a YYYY-MM-DD query parameter, returning fallback when
// the parameter is absent. The ok result is false only on a malformed value.
func parseDateQuery(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid "+name+" (use YYYY-MM-DD)")
		return time.Time{}, false
	}
	return parsed, true
}

// parseMonthParam parses a YYYY-MM path parameter into a first-of-month date
func parseMonthParam(c *gin.Context) (time.Time, bool) {
	raw := c.Param("month")
	parsed, err := time.Parse("2006-01", raw)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid month (use YYYY-MM)")
		return time.Time{}, false
	}
	return parsed, true
}

// actor returns the acting operator for audit fields. Falls back to "admin"
// when auth is disabled.
func (s *Server) actor(c *gin.Context) string {
	if !s.authEnabled {
		return "admin"
	}
	if email := auth.GetUserEmail(c); email != "" {
		return email
	}
	return auth.GetUserID(c)
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.repo.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "healthy",
		"time":     time.Now().Format(time.RFC3339),
	})
}

// handleLogin authenticates the admin operator
// POST /api/auth/login
func (s *Server) handleLogin(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "email and password are required")
		return
	}

	resp, err := s.authService.Login(req.Email, req.Password)
	if err != nil {
		authErr, ok := err.(auth.AuthError)
		if !ok {
			authErr = auth.ErrInvalidCredentials
		}
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   authErr.Code,
			"message": authErr.Message,
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
