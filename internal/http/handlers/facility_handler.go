// README: Facility directory handlers for the map and facility detail screens.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kurs/internal/modules/facility"
	"kurs/internal/types"
)

type FacilityService interface {
	List(ctx context.Context, q facility.Query) ([]facility.Listing, error)
	Get(ctx context.Context, id types.ID) (*facility.Facility, error)
}

type FacilityHandler struct {
	facilities FacilityService
}

func NewFacilityHandler(facilities FacilityService) *FacilityHandler {
	return &FacilityHandler{facilities: facilities}
}

// List accepts ?type=, ?lat=&lng= and ?radius_km= (only with a position).
func (h *FacilityHandler) List(c *gin.Context) {
	origin, ok := queryPoint(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	var radius float64
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || origin == nil {
			writeError(c, http.StatusBadRequest, "invalid radius_km")
			return
		}
		radius = r
	}
	items, err := h.facilities.List(c.Request.Context(), facility.Query{
		Type:     facility.Type(c.Query("type")),
		Origin:   origin,
		RadiusKm: radius,
		Limit:    limit,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if items == nil {
		items = []facility.Listing{}
	}
	writeJSON(c, http.StatusOK, gin.H{"facilities": items})
}

func (h *FacilityHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	f, err := h.facilities.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, f)
}
