// README: Requester-facing pickup handlers: create, history, detail, cancel and live events.
package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kurs/internal/events"
	"kurs/internal/modules/pickup"
	"kurs/internal/modules/role"
	"kurs/internal/types"
)

type PickupService interface {
	Create(ctx context.Context, cmd pickup.CreateCommand) (*pickup.Pickup, error)
	Get(ctx context.Context, id types.ID) (*pickup.Pickup, error)
	Cancel(ctx context.Context, cmd pickup.CancelCommand) (*pickup.Pickup, error)
	ListByRequester(ctx context.Context, requesterID types.ID, limit int) ([]pickup.Pickup, error)
}

type EventSubscriber interface {
	Subscribe(id types.ID) (<-chan events.Event, func())
}

type PickupHandler struct {
	pickups   PickupService
	events    EventSubscriber
	keepAlive time.Duration
}

func NewPickupHandler(pickups PickupService, sub EventSubscriber) *PickupHandler {
	return &PickupHandler{pickups: pickups, events: sub, keepAlive: 25 * time.Second}
}

type createPickupReq struct {
	Address        string     `json:"address"`
	Lat            *float64   `json:"lat" binding:"required"`
	Lng            *float64   `json:"lng" binding:"required"`
	WasteTypes     []string   `json:"waste_types" binding:"required"`
	Photos         []string   `json:"photos"`
	Notes          string     `json:"notes"`
	VolumeEstimate string     `json:"volume_estimate"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
}

// pickupView adds the tracker progress index to a pickup.
type pickupView struct {
	*pickup.Pickup
	Progress int `json:"progress"`
}

func viewOf(p *pickup.Pickup) pickupView {
	return pickupView{Pickup: p, Progress: pickup.StatusIndex(p.Status)}
}

func (h *PickupHandler) Create(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req createPickupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	wasteTypes := make([]pickup.WasteType, len(req.WasteTypes))
	for i, w := range req.WasteTypes {
		wasteTypes[i] = pickup.WasteType(w)
	}
	p, err := h.pickups.Create(c.Request.Context(), pickup.CreateCommand{
		RequesterID:    sess.PrincipalID,
		Address:        req.Address,
		Location:       types.Point{Lat: *req.Lat, Lng: *req.Lng},
		WasteTypes:     wasteTypes,
		Photos:         req.Photos,
		Notes:          req.Notes,
		VolumeEstimate: req.VolumeEstimate,
		ScheduledAt:    req.ScheduledAt,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, viewOf(p))
}

func (h *PickupHandler) List(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	items, err := h.pickups.ListByRequester(c.Request.Context(), sess.PrincipalID, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if items == nil {
		items = []pickup.Pickup{}
	}
	writeJSON(c, http.StatusOK, gin.H{"pickups": items})
}

func (h *PickupHandler) Get(c *gin.Context) {
	p, ok := h.visible(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, viewOf(p))
}

func (h *PickupHandler) Cancel(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.pickups.Cancel(c.Request.Context(), pickup.CancelCommand{PickupID: id, ActorID: sess.PrincipalID})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, viewOf(p))
}

// Events streams change events of one pickup as server-sent events. The
// current state is sent first so a reconnecting tracker never misses a transition.
func (h *PickupHandler) Events(c *gin.Context) {
	p, ok := h.visible(c)
	if !ok {
		return
	}
	ch, cancel := h.events.Subscribe(p.ID)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("snapshot", viewOf(p))
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent(string(e.Kind), e)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}

// visible loads the pickup at :id when the caller may see it: its requester,
// its collector, or any acting collector while it is still open for claiming.
func (h *PickupHandler) visible(c *gin.Context) (*pickup.Pickup, bool) {
	sess, ok := session(c)
	if !ok {
		return nil, false
	}
	id, ok := pathID(c, "id")
	if !ok {
		return nil, false
	}
	p, err := h.pickups.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return nil, false
	}
	switch {
	case p.RequesterID == sess.PrincipalID:
	case p.CollectorID != nil && *p.CollectorID == sess.PrincipalID:
	case p.Status == pickup.StatusRequested && sess.IsActing(role.Collector):
	default:
		writeServiceError(c, pickup.ErrNotParticipant)
		return nil, false
	}
	return p, true
}
