package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type calculateMonthRequest struct {
	ReturnPct *decimal.Decimal `json:"return_pct"`
}

type recalculateRequest struct {
	FromDate string `json:"from_date" binding:"required"`
}

// handleGetCorpus resolves the pooled corpus and client shares as of a date
// GET /api/corpus?date=YYYY-MM-DD
func (s *Server) handleGetCorpus(c *gin.Context) {
	asOf, ok := parseDateQuery(c, "date", time.Now().UTC())
	if !ok {
		return
	}

	if payload, hit := s.cache.GetCorpus(c.Request.Context(), asOf); hit {
		c.Data(http.StatusOK, "application/json", payload)
		return
	}

	corpus, err := s.engine.ResolveCorpus(c.Request.Context(), asOf)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to resolve corpus")
		errorResponse(c, http.StatusInternalServerError, "failed to resolve corpus")
		return
	}

	response := gin.H{"success": true, "data": corpus}
	if payload, err := json.Marshal(response); err == nil {
		s.cache.SetCorpus(c.Request.Context(), asOf, payload)
	}

	c.JSON(http.StatusOK, response)
}

// handleGetOverview returns the dashboard summary: current corpus, platform
// aggregate and the current month's snapshot if calculated
// GET /api/overview
func (s *Server) handleGetOverview(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now().UTC()

	corpus, err := s.engine.ResolveCorpus(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to resolve corpus for overview")
		errorResponse(c, http.StatusInternalServerError, "failed to build overview")
		return
	}

	platforms, err := s.engine.AggregateReturns(ctx, time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), now)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to aggregate platforms for overview")
		errorResponse(c, http.StatusInternalServerError, "failed to build overview")
		return
	}

	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	snapshot, err := s.cache.GetMonthlyReturn(ctx, currentMonth)
	if err != nil || snapshot == nil {
		snapshot, err = s.repo.MonthlyReturnByMonth(ctx, currentMonth)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to load current month snapshot for overview")
			errorResponse(c, http.StatusInternalServerError, "failed to build overview")
			return
		}
		if snapshot != nil {
			s.cache.SetMonthlyReturn(ctx, snapshot)
		}
	}

	successResponse(c, gin.H{
		"corpus":        corpus,
		"platforms":     platforms,
		"current_month": snapshot,
	})
}

// handleListMonthlyReturns returns stored monthly snapshots in a range
// GET /api/months?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *Server) handleListMonthlyReturns(c *gin.Context) {
	now := time.Now().UTC()
	from, ok := parseDateQuery(c, "from", now.AddDate(-1, 0, 0))
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to", now)
	if !ok {
		return
	}

	months, err := s.repo.ListMonthlyReturns(c.Request.Context(), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list monthly returns")
		errorResponse(c, http.StatusInternalServerError, "failed to list monthly returns")
		return
	}

	successResponse(c, months)
}

// handleGetMonthlyReturn returns one month's snapshot
// GET /api/months/:month (YYYY-MM)
func (s *Server) handleGetMonthlyReturn(c *gin.Context) {
	month, ok := parseMonthParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	snapshot, err := s.cache.GetMonthlyReturn(ctx, month)
	if err != nil || snapshot == nil {
		snapshot, err = s.repo.MonthlyReturnByMonth(ctx, month)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to get monthly return")
			errorResponse(c, http.StatusInternalServerError, "failed to get monthly return")
			return
		}
		if snapshot != nil {
			s.cache.SetMonthlyReturn(ctx, snapshot)
		}
	}
	if snapshot == nil {
		errorResponse(c, http.StatusNotFound, "no snapshot for this month")
		return
	}

	successResponse(c, snapshot)
}

// handleCalculateMonth calculates (or recalculates) one month's snapshot,
// optionally with a manual return percentage
// POST /api/months/:month/calculate
func (s *Server) handleCalculateMonth(c *gin.Context) {
	month, ok := parseMonthParam(c)
	if !ok {
		return
	}

	var req calculateMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	var snapshot interface{}
	var err error
	if req.ReturnPct != nil {
		snapshot, err = s.engine.CalculateMonthWithRate(ctx, month, *req.ReturnPct)
	} else {
		snapshot, err = s.engine.CalculateMonth(ctx, month)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("month", month.Format("2006-01")).Msg("month calculation failed")
		errorResponse(c, http.StatusInternalServerError, "month calculation failed")
		return
	}

	s.cache.InvalidateAll(ctx)

	successResponse(c, snapshot)
}

// handleRecalculate runs the forward cascade from a date, synchronously
// POST /api/recalculate
func (s *Server) handleRecalculate(c *gin.Context) {
	var req recalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "from_date is required")
		return
	}

	fromDate, err := time.Parse("2006-01-02", req.FromDate)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid from_date (use YYYY-MM-DD)")
		return
	}

	result, err := s.engine.RecalculateFromDate(c.Request.Context(), fromDate)
	if err != nil {
		s.logger.Error().Err(err).Msg("recalculation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":               true,
			"message":             "recalculation failed",
			"months_recalculated": result.MonthsRecalculated,
		})
		return
	}

	s.cache.InvalidateAll(c.Request.Context())

	successResponse(c, result)
}
