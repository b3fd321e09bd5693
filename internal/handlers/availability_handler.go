package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/models"
	"github.com/staynest/rental-backend/internal/services"
)

// AvailabilityService is the availability ledger as used by the HTTP layer
type AvailabilityService interface {
	Calendar(ctx context.Context, propertyID int64, start, end time.Time) ([]models.CalendarDay, error)
	RefreshPropertyHorizon(ctx context.Context, propertyID int64, actor services.Actor) (*models.HorizonResult, error)
}

// AvailabilityHandler serves the property calendar
type AvailabilityHandler struct {
	availability AvailabilityService
	logger       *logrus.Logger
}

// NewAvailabilityHandler creates a new AvailabilityHandler
func NewAvailabilityHandler(availability AvailabilityService, logger *logrus.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		availability: availability,
		logger:       logger,
	}
}

// Calendar returns the nightly availability and price of a property
// GET /api/v1/properties/:id/availability?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *AvailabilityHandler) Calendar(c *gin.Context) {
	propertyID, ok := idParam(c, "id")
	if !ok {
		return
	}

	today := models.DateOnly(time.Now())
	start, end := today, today.AddDate(0, 0, 30)
	if v := c.Query("start"); v != "" {
		if start, ok = parseDate(c, "start", v); !ok {
			return
		}
	}
	if v := c.Query("end"); v != "" {
		if end, ok = parseDate(c, "end", v); !ok {
			return
		}
	}

	days, err := h.availability.Calendar(c.Request.Context(), propertyID, start, end)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"property_id": propertyID,
		"days":        days,
	})
}

// Horizon regenerates the bookable window of a property after the catalog
// creates it or changes its price or maximum stay
// POST /api/v1/properties/:id/availability/horizon
func (h *AvailabilityHandler) Horizon(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}
	propertyID, ok := idParam(c, "id")
	if !ok {
		return
	}

	result, err := h.availability.RefreshPropertyHorizon(c.Request.Context(), propertyID, actorOf(userCtx))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
