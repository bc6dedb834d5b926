package api

import (
	"net/http"
	"time"

	"capital-returns-engine/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createClientRequest struct {
	Name  string `json:"name" binding:"required,min=2"`
	Email string `json:"email" binding:"required,email"`
}

// handleCreateClient registers a new investor
// POST /api/clients
func (s *Server) handleCreateClient(c *gin.Context) {
	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "name and email are required")
		return
	}

	client := &database.Client{
		ID:     uuid.New().String(),
		Name:   req.Name,
		Email:  req.Email,
		Status: database.ClientStatusActive,
	}

	if err := s.repo.CreateClient(c.Request.Context(), client); err != nil {
		s.logger.Error().Err(err).Msg("failed to create client")
		errorResponse(c, http.StatusInternalServerError, "failed to create client")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": client})
}

// handleListClients returns all registered investors
// GET /api/clients
func (s *Server) handleListClients(c *gin.Context) {
	clients, err := s.repo.ListClients(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list clients")
		errorResponse(c, http.StatusInternalServerError, "failed to list clients")
		return
	}

	successResponse(c, clients)
}

// handleGetClient returns one investor by ID
// GET /api/clients/:id
func (s *Server) handleGetClient(c *gin.Context) {
	client, err := s.repo.GetClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get client")
		errorResponse(c, http.StatusInternalServerError, "failed to get client")
		return
	}
	if client == nil {
		errorResponse(c, http.StatusNotFound, "client not found")
		return
	}

	successResponse(c, client)
}

// handleGetPreviousBalance returns the client's closing balance from the
// month preceding the given date
// GET /api/clients/:id/previous-balance?date=YYYY-MM-DD
func (s *Server) handleGetPreviousBalance(c *gin.Context) {
	date, ok := parseDateQuery(c, "date", time.Now().UTC())
	if !ok {
		return
	}

	clientID := c.Param("id")
	balance, err := s.engine.PreviousClosingBalance(c.Request.Context(), clientID, date)
	if err != nil {
		s.logger.Error().Err(err).Str("client_id", clientID).Msg("failed to get previous balance")
		errorResponse(c, http.StatusInternalServerError, "failed to get previous balance")
		return
	}

	successResponse(c, gin.H{
		"client_id":       clientID,
		"date":            date.Format("2006-01-02"),
		"closing_balance": balance,
	})
}
