package api

import (
	"net/http"
	"strings"
	"time"

	"capital-returns-engine/internal/database"
	"capital-returns-engine/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createAllocationRequest struct {
	PlatformName     string          `json:"platform_name" binding:"required,min=2"`
	PrincipalAmount  decimal.Decimal `json:"principal_amount" binding:"required"`
	AllocationDate   string          `json:"allocation_date" binding:"required"`
	ReturnPercentage decimal.Decimal `json:"return_percentage"`
}

type updateAllocationValueRequest struct {
	CurrentValue     decimal.Decimal `json:"current_value" binding:"required"`
	ReturnPercentage decimal.Decimal `json:"return_percentage"`
}

type createWeeklySnapshotRequest struct {
	WeekStartDate string          `json:"week_start_date" binding:"required"`
	OpeningValue  decimal.Decimal `json:"opening_value" binding:"required"`
	ClosingValue  decimal.Decimal `json:"closing_value" binding:"required"`
}

type interpolateRequest struct {
	RangeStart string `json:"range_start" binding:"required"`
	RangeEnd   string `json:"range_end" binding:"required"`
}

// handleCreateAllocation records capital placed with an external platform
// POST /api/platforms
func (s *Server) handleCreateAllocation(c *gin.Context) {
	var req createAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "platform_name, principal_amount and allocation_date are required")
		return
	}

	if req.PrincipalAmount.LessThanOrEqual(decimal.Zero) {
		errorResponse(c, http.StatusBadRequest, "principal_amount must be positive")
		return
	}

	allocDate, err := time.Parse("2006-01-02", req.AllocationDate)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid allocation_date (use YYYY-MM-DD)")
		return
	}

	alloc := &database.PlatformAllocation{
		PlatformName:     req.PlatformName,
		PrincipalAmount:  req.PrincipalAmount,
		AllocationDate:   allocDate,
		ReturnPercentage: req.ReturnPercentage,
		Status:           database.PlatformStatusActive,
	}

	if err := s.repo.CreateAllocation(c.Request.Context(), alloc); err != nil {
		s.logger.Error().Err(err).Msg("failed to create platform allocation")
		errorResponse(c, http.StatusInternalServerError, "failed to create platform allocation")
		return
	}

	s.triggerRecalc(allocDate, "platform allocation created")

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": alloc})
}

// handleListAllocations returns all platform allocations
// GET /api/platforms
func (s *Server) handleListAllocations(c *gin.Context) {
	allocs, err := s.repo.ListAllocations(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list platform allocations")
		errorResponse(c, http.StatusInternalServerError, "failed to list platform allocations")
		return
	}

	successResponse(c, allocs)
}

// handleGetAllocation returns one platform allocation by ID
// GET /api/platforms/:id
func (s *Server) handleGetAllocation(c *gin.Context) {
	alloc, err := s.repo.GetAllocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get platform allocation")
		errorResponse(c, http.StatusInternalServerError, "failed to get platform allocation")
		return
	}
	if alloc == nil {
		errorResponse(c, http.StatusNotFound, "platform allocation not found")
		return
	}

	successResponse(c, alloc)
}

// handleUpdateAllocationValue overwrites a platform's current value and
// return percentage, then triggers a recalculation from the current month
// PUT /api/platforms/:id/value
func (s *Server) handleUpdateAllocationValue(c *gin.Context) {
	var req updateAllocationValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "current_value is required")
		return
	}

	alloc, err := s.repo.UpdateAllocationValue(c.Request.Context(), c.Param("id"), req.CurrentValue, req.ReturnPercentage)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			errorResponse(c, http.StatusNotFound, "platform allocation not found")
			return
		}
		s.logger.Error().Err(err).Msg("failed to update platform value")
		errorResponse(c, http.StatusInternalServerError, "failed to update platform value")
		return
	}

	s.eventBus.Publish(events.Event{
		Type: events.EventPlatformUpdated,
		Data: map[string]interface{}{
			"platform_id":   alloc.ID,
			"current_value": alloc.CurrentValue.String(),
			"return_pct":    alloc.ReturnPercentage.String(),
		},
	})
	s.triggerRecalc(time.Now().UTC(), "platform value updated")

	successResponse(c, alloc)
}

// handleCloseAllocation marks a platform allocation as closed
// POST /api/platforms/:id/close
func (s *Server) handleCloseAllocation(c *gin.Context) {
	if err := s.repo.CloseAllocation(c.Request.Context(), c.Param("id")); err != nil {
		if strings.Contains(err.Error(), "not found") {
			errorResponse(c, http.StatusNotFound, "active platform allocation not found")
			return
		}
		s.logger.Error().Err(err).Msg("failed to close platform allocation")
		errorResponse(c, http.StatusInternalServerError, "failed to close platform allocation")
		return
	}

	s.triggerRecalc(time.Now().UTC(), "platform allocation closed")

	successResponse(c, gin.H{"closed": true})
}

// handleCreateWeeklySnapshot records one week of platform value data
// POST /api/platforms/:id/weekly-snapshots
func (s *Server) handleCreateWeeklySnapshot(c *gin.Context) {
	var req createWeeklySnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "week_start_date, opening_value and closing_value are required")
		return
	}

	weekStart, err := time.Parse("2006-01-02", req.WeekStartDate)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid week_start_date (use YYYY-MM-DD)")
		return
	}

	platformID := c.Param("id")
	alloc, err := s.repo.GetAllocation(c.Request.Context(), platformID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to look up platform allocation")
		errorResponse(c, http.StatusInternalServerError, "failed to look up platform allocation")
		return
	}
	if alloc == nil {
		errorResponse(c, http.StatusNotFound, "platform allocation not found")
		return
	}

	returnPct := decimal.Zero
	if !req.OpeningValue.IsZero() {
		returnPct = req.ClosingValue.Sub(req.OpeningValue).Div(req.OpeningValue).Mul(decimal.NewFromInt(100)).Round(2)
	}

	enteredBy := s.actor(c)
	year, weekNumber := weekStart.ISOWeek()
	snapshot := &database.WeeklySnapshot{
		PlatformID:      platformID,
		WeekStartDate:   weekStart,
		WeekEndDate:     weekStart.AddDate(0, 0, 7),
		WeekNumber:      weekNumber,
		Year:            year,
		OpeningValue:    req.OpeningValue,
		ClosingValue:    req.ClosingValue,
		WeeklyReturnPct: returnPct,
		ProfitAmount:    req.ClosingValue.Sub(req.OpeningValue),
		IsInterpolated:  false,
		EnteredBy:       &enteredBy,
	}

	if err := s.repo.InsertSnapshot(c.Request.Context(), snapshot); err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			errorResponse(c, http.StatusConflict, "snapshot already exists for this week")
			return
		}
		s.logger.Error().Err(err).Msg("failed to insert weekly snapshot")
		errorResponse(c, http.StatusInternalServerError, "failed to insert weekly snapshot")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": snapshot})
}

// handleListWeeklySnapshots returns a platform's weekly snapshots in a range
// GET /api/platforms/:id/weekly-snapshots?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *Server) handleListWeeklySnapshots(c *gin.Context) {
	now := time.Now().UTC()
	from, ok := parseDateQuery(c, "from", now.AddDate(0, -3, 0))
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to", now)
	if !ok {
		return
	}

	snapshots, err := s.repo.SnapshotsForPlatform(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list weekly snapshots")
		errorResponse(c, http.StatusInternalServerError, "failed to list weekly snapshots")
		return
	}

	successResponse(c, snapshots)
}

// handleInterpolateGaps fills missing weekly snapshots for a platform across
// a date range
// POST /api/platforms/:id/interpolate
func (s *Server) handleInterpolateGaps(c *gin.Context) {
	var req interpolateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "range_start and range_end are required")
		return
	}

	rangeStart, err := time.Parse("2006-01-02", req.RangeStart)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid range_start (use YYYY-MM-DD)")
		return
	}
	rangeEnd, err := time.Parse("2006-01-02", req.RangeEnd)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid range_end (use YYYY-MM-DD)")
		return
	}
	if !rangeStart.Before(rangeEnd) {
		errorResponse(c, http.StatusBadRequest, "range_start must be before range_end")
		return
	}

	platformID := c.Param("id")
	inserted, err := s.engine.InterpolateGaps(c.Request.Context(), platformID, rangeStart, rangeEnd)
	if err != nil {
		s.logger.Error().Err(err).Str("platform_id", platformID).Msg("interpolation failed")
		errorResponse(c, http.StatusInternalServerError, "interpolation failed")
		return
	}

	if inserted > 0 {
		s.eventBus.Publish(events.Event{
			Type: events.EventWeeksInterpolated,
			Data: map[string]interface{}{
				"platform_id":    platformID,
				"weeks_inserted": inserted,
			},
		})
	}

	successResponse(c, gin.H{
		"platform_id":    platformID,
		"weeks_inserted": inserted,
	})
}
