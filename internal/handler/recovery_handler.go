package handler

import (
	"errors"
	"net/http"

	"gepe/internal/domain"
	"gepe/internal/service"

	"github.com/gin-gonic/gin"
)

type RecoveryHandler struct {
	svc *service.RecoveryService
}

func NewRecoveryHandler(svc *service.RecoveryService) *RecoveryHandler {
	return &RecoveryHandler{svc: svc}
}

// ResyncOrders handles POST /orders/sync-payment-status: sweeps PENDING
// orders against stored approved payments.
func (h *RecoveryHandler) ResyncOrders(c *gin.Context) {
	result, err := h.svc.ResyncPendingOrders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resync failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// SyncPayments handles POST /payments/sync: backfills payment records for
// orders whose payment was never stored.
func (h *RecoveryHandler) SyncPayments(c *gin.Context) {
	result, err := h.svc.SyncPaymentsFromOrders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment sync failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// RecoverOrder handles POST /payments/:gateway_payment_id/recover-order:
// rebuilds the missing order for an orphaned approved payment.
func (h *RecoveryHandler) RecoverOrder(c *gin.Context) {
	result, err := h.svc.RecoverOrderFromPayment(c.Request.Context(), c.Param("gateway_payment_id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrPaymentNotApproved),
			errors.Is(err, domain.ErrNoRawPaymentData),
			errors.Is(err, domain.ErrNoPayerEmail),
			errors.Is(err, domain.ErrNoLineItems):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "recovery failed"})
		}
		return
	}
	if result.AlreadyLinked {
		c.JSON(http.StatusOK, gin.H{"already_linked": true, "order_id": result.OrderID, "order_number": result.OrderNumber})
		return
	}
	c.JSON(http.StatusCreated, result)
}
