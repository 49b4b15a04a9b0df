// README: Payment handlers: open a QR intent, poll the latest intent, sandbox simulate, provider webhook.
package handlers

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"kurs/internal/modules/payment"
	"kurs/internal/types"
)

type PaymentService interface {
	CreateIntent(ctx context.Context, cmd payment.CreateIntentCommand) (*payment.Intent, error)
	Latest(ctx context.Context, pickupID, viewerID types.ID) (*payment.Intent, error)
	Simulate(ctx context.Context, pickupID, requesterID types.ID) (*payment.Intent, error)
	Reconcile(ctx context.Context, externalID, reported string) (payment.Outcome, error)
}

type PaymentHandler struct {
	payments      PaymentService
	callbackToken string
	log           zerolog.Logger
}

// NewPaymentHandler builds the handler. When callbackToken is empty the webhook
// accepts callbacks without checking x-callback-token.
func NewPaymentHandler(payments PaymentService, callbackToken string, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments:      payments,
		callbackToken: callbackToken,
		log:           log.With().Str("module", "payment_webhook").Logger(),
	}
}

const maxWebhookBody = 64 << 10

type createIntentReq struct {
	Amount int64 `json:"amount" binding:"required"`
}

func (h *PaymentHandler) Create(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createIntentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	in, err := h.payments.CreateIntent(c.Request.Context(), payment.CreateIntentCommand{
		PickupID:    id,
		RequesterID: sess.PrincipalID,
		Amount:      req.Amount,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, in)
}

func (h *PaymentHandler) Latest(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	in, err := h.payments.Latest(c.Request.Context(), id, sess.PrincipalID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, in)
}

func (h *PaymentHandler) Simulate(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	in, err := h.payments.Simulate(c.Request.Context(), id, sess.PrincipalID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, in)
}

// Webhook receives provider payment callbacks. Only an unverifiable caller or
// an unusable payload is rejected; every other outcome is acknowledged so the
// provider stops retrying.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	if h.callbackToken != "" {
		got := c.GetHeader("x-callback-token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.callbackToken)) != 1 {
			writeError(c, http.StatusUnauthorized, "invalid callback token")
			return
		}
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable body")
		return
	}
	n, err := payment.ParseNotification(body)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	outcome, err := h.payments.Reconcile(c.Request.Context(), n.ReferenceID, n.Status)
	if err != nil {
		h.log.Error().Err(err).Str("reference_id", n.ReferenceID).Msg("reconcile failed; acknowledging")
	} else {
		h.log.Info().Str("reference_id", n.ReferenceID).Str("outcome", string(outcome)).Msg("payment callback handled")
	}
	writeJSON(c, http.StatusOK, gin.H{"received": true})
}
