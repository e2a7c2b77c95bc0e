package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"gepe/internal/domain"
	"gepe/internal/models"
	"gepe/internal/repository"
	"gepe/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	svc      *service.PaymentService
	payments *repository.PaymentRepository
}

func NewPaymentHandler(svc *service.PaymentService, payments *repository.PaymentRepository) *PaymentHandler {
	return &PaymentHandler{svc: svc, payments: payments}
}

// List handles GET /payments (admin), optionally filtered by status.
func (h *PaymentHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	payments, err := h.payments.List(c.Query("status"), offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list payments"})
		return
	}

	out := make([]gin.H, 0, len(payments))
	for i := range payments {
		out = append(out, paymentView(&payments[i]))
	}
	c.JSON(http.StatusOK, gin.H{"payments": out, "count": len(out)})
}

// Detail handles GET /payments/:id (admin).
func (h *PaymentHandler) Detail(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}
	payment, err := h.payments.GetByID(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load payment"})
		return
	}
	if payment == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}

	view := paymentView(payment)
	if payment.Order != nil {
		view["order"] = gin.H{
			"id":             payment.Order.ID,
			"order_number":   payment.Order.OrderNumber,
			"status":         payment.Order.Status,
			"customer_email": payment.Order.CustomerEmail,
		}
	}
	c.JSON(http.StatusOK, view)
}

// Refund handles POST /payments/:id/refund?amount=. Without an amount the
// remaining balance is refunded in full.
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	var amount *float64
	if raw := c.Query("amount"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}
		amount = &v
	}

	summary, err := h.svc.Refund(c.Request.Context(), uint(id), amount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrPaymentNotApproved),
			errors.Is(err, domain.ErrFullyRefunded):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrRefundAmountInvalid),
			errors.Is(err, domain.ErrRefundExceedsTotal):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "refund failed"})
		}
		return
	}
	c.JSON(http.StatusOK, summary)
}

// CreatePreference handles POST /payments/create-preference: registers the
// checkout with the gateway and returns the redirect URL.
func (h *PaymentHandler) CreatePreference(c *gin.Context) {
	var req service.CreatePreferenceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pref, err := h.svc.CreateCheckoutPreference(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not create checkout preference"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"preference_id":      pref.ID,
		"init_point":         pref.InitPoint,
		"sandbox_init_point": pref.SandboxInitPoint,
		"external_reference": req.ExternalReference,
	})
}

func paymentView(p *models.Payment) gin.H {
	return gin.H{
		"id":                 p.ID,
		"gateway_payment_id": p.GatewayPaymentID,
		"order_id":           p.OrderID,
		"status":             p.Status,
		"status_detail":      p.StatusDetail,
		"transaction_amount": p.TransactionAmount,
		"currency_id":        p.CurrencyID,
		"method":             methodLabel(p),
		"refunded_amount":    p.RefundedAmount,
		"refunded_count":     p.RefundedCount,
		"has_chargeback":     p.HasChargeback,
		"date_created":       p.DateCreated,
		"date_approved":      p.DateApproved,
	}
}

var methodNames = map[string]string{
	"visa":           "Visa",
	"master":         "Mastercard",
	"amex":           "American Express",
	"naranja":        "Naranja",
	"cabal":          "Cabal",
	"maestro":        "Maestro",
	"debvisa":        "Visa Debito",
	"debmaster":      "Mastercard Debito",
	"account_money":  "Dinero en cuenta",
	"rapipago":       "Rapipago",
	"pagofacil":      "Pago Facil",
	"bank_transfer":  "Transferencia",
	"debin_transfer": "Transferencia DEBIN",
}

// methodLabel renders a human-readable payment method for the admin panel,
// e.g. "Visa **** 1234".
func methodLabel(p *models.Payment) string {
	name := ""
	if p.PaymentMethodID != nil {
		name = methodNames[strings.ToLower(*p.PaymentMethodID)]
		if name == "" {
			name = *p.PaymentMethodID
		}
	}
	if name == "" && p.PaymentTypeID != nil {
		name = *p.PaymentTypeID
	}
	if name == "" {
		name = "desconocido"
	}
	if p.CardLastFourDigits != nil && *p.CardLastFourDigits != "" {
		return fmt.Sprintf("%s **** %s", name, *p.CardLastFourDigits)
	}
	return name
}
