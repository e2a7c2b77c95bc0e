package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"gepe/internal/domain"
	"gepe/internal/models"
	"gepe/pkg/mercadopago"
)

// WebhookAck is the body returned to the gateway. The webhook endpoint
// always answers 200 so the gateway stops retrying; Status tells a human
// reading the logs what actually happened.
type WebhookAck struct {
	Status string `json:"status"` // processed | ignored | error
	Reason string `json:"reason,omitempty"`
}

// ReconcileService drives order state from gateway payments. Webhooks are
// unauthenticated hints: the only trusted input is what GetPayment returns
// for the resource ID, fetched server to server.
type ReconcileService struct {
	gateway  mercadopago.Client
	orders   OrderStore
	payments PaymentStore
	mailer   Mailer
}

func NewReconcileService(gateway mercadopago.Client, orders OrderStore, payments PaymentStore, mailer Mailer) *ReconcileService {
	return &ReconcileService{gateway: gateway, orders: orders, payments: payments, mailer: mailer}
}

// HandleWebhookEvent processes one webhook delivery. It never returns an
// error: whatever goes wrong is folded into the ack so the handler can
// respond 200 unconditionally.
func (s *ReconcileService) HandleWebhookEvent(ctx context.Context, topic, resourceID string) WebhookAck {
	if topic != "payment" {
		log.Printf("[WEBHOOK] ignoring topic %q", topic)
		return WebhookAck{Status: "ignored", Reason: fmt.Sprintf("topic %q not processed", topic)}
	}
	if resourceID == "" {
		log.Printf("[WEBHOOK] payment event without resource id")
		return WebhookAck{Status: "error", Reason: "missing resource id"}
	}

	details, err := s.gateway.GetPayment(ctx, resourceID)
	if err != nil {
		log.Printf("[WEBHOOK] payment %s: gateway fetch failed: %v", resourceID, err)
		return WebhookAck{Status: "error", Reason: "could not fetch payment from gateway"}
	}

	if err := s.applyPayment(ctx, resourceID, details); err != nil {
		log.Printf("[WEBHOOK] payment %s: %v", resourceID, err)
		return WebhookAck{Status: "error", Reason: err.Error()}
	}
	return WebhookAck{Status: "processed"}
}

// applyPayment persists the payment record and, when an order matches its
// external reference, transitions the order. Safe to re-run for the same
// payment any number of times.
func (s *ReconcileService) applyPayment(ctx context.Context, resourceID string, details *mercadopago.PaymentDetails) error {
	payment, err := s.paymentRecord(resourceID, details)
	if err != nil {
		return fmt.Errorf("load payment record: %w", err)
	}

	var order *models.Order
	if details.ExternalReference != "" {
		order, err = s.orders.GetByExternalReference(details.ExternalReference)
		if err != nil {
			return fmt.Errorf("find order by external reference: %w", err)
		}
	}

	var changed, notifyPaid bool
	if order != nil {
		if payment.OrderID == nil {
			payment.OrderID = &order.ID
		}
		changed, notifyPaid = reconcileOrder(order, details, payment.GatewayPaymentID)
	} else if details.ExternalReference != "" {
		log.Printf("[WEBHOOK] payment %s: no order for external reference %q, stored as orphan",
			payment.GatewayPaymentID, details.ExternalReference)
	} else {
		log.Printf("[WEBHOOK] payment %s carries no external reference, stored as orphan", payment.GatewayPaymentID)
	}

	if changed {
		err = s.payments.UpsertWithOrder(payment, order)
	} else {
		err = s.payments.Upsert(payment)
	}
	if err != nil {
		return fmt.Errorf("persist payment: %w", err)
	}

	if notifyPaid {
		sendConfirmationOnce(ctx, s.mailer, s.orders, order, "WEBHOOK")
	}
	return nil
}

// paymentRecord builds the row to upsert, merging over any existing record
// so the primary key, created_at and an established order link survive the
// column refresh.
func (s *ReconcileService) paymentRecord(resourceID string, details *mercadopago.PaymentDetails) (*models.Payment, error) {
	gatewayID := details.ID
	if gatewayID == "" {
		gatewayID = resourceID
	}
	p := paymentFromDetails(gatewayID, details)

	existing, err := s.payments.GetByGatewayID(gatewayID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		p.OrderID = existing.OrderID
	}
	return p, nil
}

// reconcileOrder maps a gateway payment status onto the order state
// machine. It reports whether the order changed and whether the change is
// a fresh PENDING to PAID transition that should trigger the confirmation
// email.
func reconcileOrder(order *models.Order, details *mercadopago.PaymentDetails, gatewayID string) (changed, notifyPaid bool) {
	if domain.IsTerminalStatus(order.Status) {
		log.Printf("[RECONCILE] order %s is %s, ignoring payment %s (%s)",
			order.OrderNumber, order.Status, gatewayID, details.Status)
		return false, false
	}

	switch details.Status {
	case domain.PaymentApproved:
		if order.Status == domain.StatusPending {
			markOrderPaid(order, gatewayID)
			return true, true
		}
		// Already PAID or further along; an approved redelivery only fills
		// in a missing payment link.
		if order.PaymentID == nil || *order.PaymentID == "" {
			order.PaymentID = &gatewayID
			return true, false
		}
		return false, false

	case domain.PaymentPending:
		if order.Status != domain.StatusPending {
			// A stale pending event must never walk back a paid order.
			log.Printf("[RECONCILE] order %s is %s, ignoring stale pending payment %s",
				order.OrderNumber, order.Status, gatewayID)
			return false, false
		}
		if order.PaymentID == nil || *order.PaymentID != gatewayID {
			order.PaymentID = &gatewayID
			return true, false
		}
		return false, false

	case domain.PaymentRejected, domain.PaymentCancelled:
		// Only an unpaid order cancels on a failed attempt. If the order
		// was already paid, the failed event belongs to another attempt.
		if order.Status != domain.StatusPending {
			log.Printf("[RECONCILE] order %s is %s, ignoring %s payment %s",
				order.OrderNumber, order.Status, details.Status, gatewayID)
			return false, false
		}
		order.Status = domain.StatusCancelled
		order.PaymentID = &gatewayID
		return true, false

	case domain.PaymentRefunded, domain.PaymentChargedBack:
		if !domain.CanTransition(order.Status, domain.StatusRefunded) {
			return false, false
		}
		if order.Status == domain.StatusRefunded {
			return false, false
		}
		order.Status = domain.StatusRefunded
		return true, false

	default:
		log.Printf("[RECONCILE] order %s: unhandled payment status %q for payment %s",
			order.OrderNumber, details.Status, gatewayID)
		return false, false
	}
}

// markOrderPaid applies the canonical PENDING to PAID transition: the
// payment link is recorded and the garment enters the workshop queue.
func markOrderPaid(order *models.Order, gatewayID string) {
	order.Status = domain.StatusPaid
	order.PaymentID = &gatewayID
	if order.ProductionStatus == nil || *order.ProductionStatus == "" {
		ps := domain.ProductionWaitingFabric
		order.ProductionStatus = &ps
	}
}

// sendConfirmationOnce mails the purchase confirmation at most once per
// order. The flag flips only after a successful send, so a mail outage
// retries on the next reconciliation pass.
func sendConfirmationOnce(ctx context.Context, mailer Mailer, orders OrderStore, order *models.Order, tag string) {
	if order.ConfirmationEmailSent {
		return
	}
	if err := mailer.SendOrderConfirmation(ctx, order); err != nil {
		log.Printf("[%s] order %s: confirmation email failed: %v", tag, order.OrderNumber, err)
		return
	}
	order.ConfirmationEmailSent = true
	if err := orders.Update(order); err != nil {
		log.Printf("[%s] order %s: could not persist confirmation flag: %v", tag, order.OrderNumber, err)
	}
}

// paymentFromDetails maps the normalized gateway payment onto the storage
// model.
func paymentFromDetails(gatewayID string, d *mercadopago.PaymentDetails) *models.Payment {
	p := &models.Payment{
		GatewayPaymentID:   gatewayID,
		TransactionAmount:  d.TransactionAmount,
		Status:             d.Status,
		StatusDetail:       strPtr(d.StatusDetail),
		PaymentMethodID:    strPtr(d.PaymentMethodID),
		PaymentTypeID:      strPtr(d.PaymentTypeID),
		CardLastFourDigits: strPtr(d.CardLastFourDigits),
		CardHolderName:     strPtr(d.CardHolderName),
		RefundedAmount:     d.RefundedAmount,
		RefundedCount:      d.RefundedCount,
		HasChargeback:      d.HasChargeback,
		DateApproved:       d.DateApproved,
		DateLastUpdated:    d.DateLastUpdated,
		RawData:            string(d.Raw),
	}
	if d.CurrencyID != "" {
		p.CurrencyID = d.CurrencyID
	}
	if d.DateCreated != nil {
		p.DateCreated = *d.DateCreated
	} else {
		p.DateCreated = time.Now().UTC()
	}
	return p
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
