// README: Waste bank deposit handlers.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kurs/internal/modules/deposit"
	"kurs/internal/modules/role"
	"kurs/internal/types"
)

type DepositService interface {
	Record(ctx context.Context, sess role.Session, cmd deposit.RecordCommand) (*deposit.Deposit, error)
	ListByDepositor(ctx context.Context, depositorID types.ID, limit int) ([]deposit.Deposit, error)
	ListByStaff(ctx context.Context, sess role.Session, limit int) ([]deposit.Deposit, error)
	Export(ctx context.Context, sess role.Session) ([]byte, error)
}

type DepositHandler struct {
	deposits DepositService
}

func NewDepositHandler(svc DepositService) *DepositHandler {
	return &DepositHandler{deposits: svc}
}

type recordDepositReq struct {
	DepositorID string   `json:"depositor_id" binding:"required"`
	WasteType   string   `json:"waste_type" binding:"required"`
	WeightKg    float64  `json:"weight_kg"`
	Photos      []string `json:"photos"`
	Notes       string   `json:"notes"`
	FacilityID  string   `json:"facility_id"`
}

func (h *DepositHandler) Record(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req recordDepositReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.deposits.Record(c.Request.Context(), sess, deposit.RecordCommand{
		DepositorID: types.ID(req.DepositorID),
		WasteType:   req.WasteType,
		WeightKg:    req.WeightKg,
		Photos:      req.Photos,
		Notes:       req.Notes,
		FacilityID:  req.FacilityID,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, d)
}

func (h *DepositHandler) ListMine(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	items, err := h.deposits.ListByDepositor(c.Request.Context(), sess.PrincipalID, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"deposits": nonNil(items)})
}

func (h *DepositHandler) ListVerified(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	items, err := h.deposits.ListByStaff(c.Request.Context(), sess, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"deposits": nonNil(items)})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *DepositHandler) ExportVerified(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	raw, err := h.deposits.Export(c.Request.Context(), sess)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="deposits-`+time.Now().UTC().Format("20060102")+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, raw)
}

func nonNil(items []deposit.Deposit) []deposit.Deposit {
	if items == nil {
		return []deposit.Deposit{}
	}
	return items
}
