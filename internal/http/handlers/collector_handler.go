// README: Collector dashboard handlers: job board, claims, progress, earnings, availability.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kurs/internal/apperr"
	"kurs/internal/modules/collector"
	"kurs/internal/modules/pickup"
	"kurs/internal/types"
)

type JobService interface {
	ListAvailable(ctx context.Context, origin *types.Point, limit int) ([]pickup.Listing, error)
	ListActiveByCollector(ctx context.Context, collectorID types.ID) ([]pickup.Pickup, error)
	ListHistoryByCollector(ctx context.Context, collectorID types.ID, limit int) ([]pickup.Pickup, error)
	Accept(ctx context.Context, cmd pickup.AcceptCommand) (*pickup.Pickup, error)
	Advance(ctx context.Context, cmd pickup.AdvanceCommand) (*pickup.Pickup, error)
	Earnings(ctx context.Context, collectorID types.ID) (*pickup.Earnings, error)
}

type CollectorService interface {
	Get(ctx context.Context, userID types.ID) (*collector.Collector, error)
	SetAvailability(ctx context.Context, userID types.ID, available bool) (*collector.Collector, error)
	UpdateLocation(ctx context.Context, userID types.ID, p types.Point) (*collector.Collector, error)
}

type CollectorHandler struct {
	jobs       JobService
	collectors CollectorService
}

func NewCollectorHandler(jobs JobService, collectors CollectorService) *CollectorHandler {
	return &CollectorHandler{jobs: jobs, collectors: collectors}
}

// ListJobs returns requested pickups, nearest first when a position is known.
// The position comes from ?lat=&lng= or else from the last reported location.
func (h *CollectorHandler) ListJobs(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	origin, ok := queryPoint(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	if origin == nil {
		me, err := h.collectors.Get(c.Request.Context(), sess.PrincipalID)
		switch {
		case err == nil:
			origin = me.Location
		case !errors.Is(err, apperr.ErrNotFound):
			writeServiceError(c, err)
			return
		}
	}
	items, err := h.jobs.ListAvailable(c.Request.Context(), origin, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if items == nil {
		items = []pickup.Listing{}
	}
	writeJSON(c, http.StatusOK, gin.H{"jobs": items})
}

func (h *CollectorHandler) ListActive(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	items, err := h.jobs.ListActiveByCollector(c.Request.Context(), sess.PrincipalID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if items == nil {
		items = []pickup.Pickup{}
	}
	writeJSON(c, http.StatusOK, gin.H{"jobs": items})
}

// History lists the collector's completed pickups.
func (h *CollectorHandler) History(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	items, err := h.jobs.ListHistoryByCollector(c.Request.Context(), sess.PrincipalID, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if items == nil {
		items = []pickup.Pickup{}
	}
	writeJSON(c, http.StatusOK, gin.H{"jobs": items})
}

func (h *CollectorHandler) Accept(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.jobs.Accept(c.Request.Context(), pickup.AcceptCommand{PickupID: id, CollectorID: sess.PrincipalID})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, viewOf(p))
}

type advanceReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *CollectorHandler) Advance(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req advanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.jobs.Advance(c.Request.Context(), pickup.AdvanceCommand{
		PickupID:    id,
		CollectorID: sess.PrincipalID,
		Target:      pickup.Status(req.Status),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, viewOf(p))
}

func (h *CollectorHandler) Earnings(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	e, err := h.jobs.Earnings(c.Request.Context(), sess.PrincipalID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, e)
}

type availabilityReq struct {
	Available *bool `json:"available" binding:"required"`
}

func (h *CollectorHandler) SetAvailability(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	col, err := h.collectors.SetAvailability(c.Request.Context(), sess.PrincipalID, *req.Available)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, col)
}

type locationReq struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

func (h *CollectorHandler) UpdateLocation(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	col, err := h.collectors.UpdateLocation(c.Request.Context(), sess.PrincipalID, types.Point{Lat: *req.Lat, Lng: *req.Lng})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, col)
}
