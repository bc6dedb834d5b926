package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"capital-returns-engine/internal/database"
	"capital-returns-engine/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type createTransactionRequest struct {
	ClientID        string          `json:"client_id" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Kind            string          `json:"kind" binding:"required,oneof=deposit withdrawal"`
	TransactionDate string          `json:"transaction_date" binding:"required"`
}

type editTransactionRequest struct {
	NewAmount decimal.Decimal `json:"new_amount" binding:"required"`
	Reason    string          `json:"reason"`
}

// triggerRecalc kicks off a forward recalculation from fromDate without
// blocking the caller. Uses a background context so the cascade survives the
// HTTP request; a cascade failure is logged and broadcast but never fails the
// mutation that caused it.
func (s *Server) triggerRecalc(fromDate time.Time, reason string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		result, err := s.engine.RecalculateFromDate(ctx, fromDate)
		if err != nil {
			s.logger.Error().Err(err).
				Str("from_date", fromDate.Format("2006-01-02")).
				Str("reason", reason).
				Int("months_completed", result.MonthsRecalculated).
				Msg("background recalculation failed")
			return
		}

		s.cache.InvalidateAll(ctx)
	}()
}

// handleCreateTransaction records a deposit or withdrawal and triggers a
// recalculation from the transaction's month
// POST /api/transactions
func (s *Server) handleCreateTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "client_id, amount, kind and transaction_date are required")
		return
	}

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		errorResponse(c, http.StatusBadRequest, "amount must be positive")
		return
	}

	txDate, err := time.Parse("2006-01-02", req.TransactionDate)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid transaction_date (use YYYY-MM-DD)")
		return
	}

	client, err := s.repo.GetClient(c.Request.Context(), req.ClientID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to look up client")
		errorResponse(c, http.StatusInternalServerError, "failed to look up client")
		return
	}
	if client == nil {
		errorResponse(c, http.StatusNotFound, "client not found")
		return
	}

	tx := &database.InvestmentTransaction{
		ID:              uuid.New().String(),
		ClientID:        req.ClientID,
		Amount:          req.Amount,
		Kind:            req.Kind,
		TransactionDate: txDate,
		Status:          database.TransactionStatusActive,
	}

	if err := s.repo.CreateTransaction(c.Request.Context(), tx); err != nil {
		s.logger.Error().Err(err).Msg("failed to create transaction")
		errorResponse(c, http.StatusInternalServerError, "failed to create transaction")
		return
	}

	s.eventBus.Publish(events.Event{
		Type: events.EventTransactionRecorded,
		Data: map[string]interface{}{
			"transaction_id": tx.ID,
			"client_id":      tx.ClientID,
			"kind":           tx.Kind,
			"amount":         tx.Amount.String(),
		},
	})
	s.triggerRecalc(txDate, "transaction recorded")

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": tx})
}

// handleListTransactions returns the ledger, optionally with cancelled rows
// GET /api/transactions?include_cancelled=true
func (s *Server) handleListTransactions(c *gin.Context) {
	includeCancelled := c.Query("include_cancelled") == "true"

	txs, err := s.repo.ListTransactions(c.Request.Context(), includeCancelled)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list transactions")
		errorResponse(c, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	successResponse(c, txs)
}

// handleGetTransaction returns one ledger entry with its edit history
// GET /api/transactions/:id
func (s *Server) handleGetTransaction(c *gin.Context) {
	tx, err := s.repo.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get transaction")
		errorResponse(c, http.StatusInternalServerError, "failed to get transaction")
		return
	}
	if tx == nil {
		errorResponse(c, http.StatusNotFound, "transaction not found")
		return
	}

	successResponse(c, tx)
}

// handleEditTransactionAmount changes a transaction's amount, records the
// edit, and triggers a recalculation from the transaction's month
// PUT /api/transactions/:id/amount
func (s *Server) handleEditTransactionAmount(c *gin.Context) {
	var req editTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "new_amount is required")
		return
	}

	if req.NewAmount.LessThanOrEqual(decimal.Zero) {
		errorResponse(c, http.StatusBadRequest, "new_amount must be positive")
		return
	}

	tx, err := s.repo.EditTransactionAmount(c.Request.Context(), c.Param("id"), req.NewAmount, s.actor(c), req.Reason)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			errorResponse(c, http.StatusNotFound, "transaction not found")
			return
		}
		s.logger.Error().Err(err).Msg("failed to edit transaction")
		errorResponse(c, http.StatusInternalServerError, "failed to edit transaction")
		return
	}

	s.eventBus.Publish(events.Event{
		Type: events.EventTransactionEdited,
		Data: map[string]interface{}{
			"transaction_id": tx.ID,
			"new_amount":     tx.Amount.String(),
		},
	})
	s.triggerRecalc(tx.TransactionDate, "transaction edited")

	successResponse(c, tx)
}

// handleCancelTransaction soft-deletes a transaction and triggers a
// recalculation from its month
// DELETE /api/transactions/:id
func (s *Server) handleCancelTransaction(c *gin.Context) {
	tx, err := s.repo.CancelTransaction(c.Request.Context(), c.Param("id"), s.actor(c))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			errorResponse(c, http.StatusNotFound, "active transaction not found")
			return
		}
		s.logger.Error().Err(err).Msg("failed to cancel transaction")
		errorResponse(c, http.StatusInternalServerError, "failed to cancel transaction")
		return
	}

	s.eventBus.Publish(events.Event{
		Type: events.EventTransactionCancelled,
		Data: map[string]interface{}{
			"transaction_id": tx.ID,
		},
	})
	s.triggerRecalc(tx.TransactionDate, "transaction cancelled")

	successResponse(c, tx)
}
