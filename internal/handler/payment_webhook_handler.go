package handler

import (
	"net/http"

	"gepe/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentWebhookHandler struct {
	reconcile *service.ReconcileService
}

func NewPaymentWebhookHandler(reconcile *service.ReconcileService) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{reconcile: reconcile}
}

// webhookBody is the JSON notification shape. Query parameters take
// precedence because the gateway sends both forms depending on the
// notification channel.
type webhookBody struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Handle processes POST /payments/webhook. It always answers 200: the
// gateway treats anything else as a delivery failure and keeps retrying.
// Failures land in the ack body and the logs instead.
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	topic := c.Query("topic")
	if topic == "" {
		topic = c.Query("type")
	}
	resourceID := c.Query("id")
	if resourceID == "" {
		resourceID = c.Query("data.id")
	}

	if topic == "" || resourceID == "" {
		var body webhookBody
		if err := c.ShouldBindJSON(&body); err == nil {
			if topic == "" {
				topic = body.Type
			}
			if resourceID == "" {
				resourceID = body.Data.ID
			}
		}
	}

	ack := h.reconcile.HandleWebhookEvent(c.Request.Context(), topic, resourceID)
	c.JSON(http.StatusOK, ack)
}
