package service

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"gepe/internal/domain"
	"gepe/internal/models"
	"gepe/pkg/mercadopago"
)

// RecoveryService repairs the gaps reconciliation can leave behind: orders
// stuck in PENDING whose payment actually went through, payments that
// arrived before (or without) their order, and orders whose payment record
// was never stored.
type RecoveryService struct {
	gateway   mercadopago.Client
	orders    OrderStore
	payments  PaymentStore
	customers CustomerStore
	mailer    Mailer
	orderNums *OrderService
}

func NewRecoveryService(gateway mercadopago.Client, orders OrderStore, payments PaymentStore, customers CustomerStore, mailer Mailer, orderSvc *OrderService) *RecoveryService {
	return &RecoveryService{
		gateway:   gateway,
		orders:    orders,
		payments:  payments,
		customers: customers,
		mailer:    mailer,
		orderNums: orderSvc,
	}
}

type ResyncEntry struct {
	OrderNumber      string `json:"order_number"`
	CustomerEmail    string `json:"customer_email"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	MatchedBy        string `json:"matched_by"`
}

type ResyncResult struct {
	Checked int           `json:"checked"`
	Updated []ResyncEntry `json:"updated"`
}

// ResyncPendingOrders sweeps PENDING orders against stored approved
// payments, catching orders whose paid webhook was lost. A payment matches
// by the order's recorded payment_id or by the external reference retained
// in its raw gateway payload.
func (s *RecoveryService) ResyncPendingOrders(ctx context.Context) (*ResyncResult, error) {
	pending, err := s.orders.ListByStatus(domain.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	result := &ResyncResult{Checked: len(pending), Updated: []ResyncEntry{}}
	if len(pending) == 0 {
		return result, nil
	}

	approved, err := s.payments.ListApproved()
	if err != nil {
		return nil, fmt.Errorf("list approved payments: %w", err)
	}

	for i := range pending {
		order := &pending[i]
		payment, matchedBy := matchApprovedPayment(order, approved)
		if payment == nil {
			continue
		}

		markOrderPaid(order, payment.GatewayPaymentID)
		if payment.OrderID == nil {
			payment.OrderID = &order.ID
		}
		if err := s.payments.UpsertWithOrder(payment, order); err != nil {
			log.Printf("[RESYNC] order %s: persist failed: %v", order.OrderNumber, err)
			continue
		}

		sendConfirmationOnce(ctx, s.mailer, s.orders, order, "RESYNC")
		result.Updated = append(result.Updated, ResyncEntry{
			OrderNumber:      order.OrderNumber,
			CustomerEmail:    order.CustomerEmail,
			GatewayPaymentID: payment.GatewayPaymentID,
			MatchedBy:        matchedBy,
		})
	}
	return result, nil
}

func matchApprovedPayment(order *models.Order, approved []models.Payment) (*models.Payment, string) {
	for i := range approved {
		p := &approved[i]
		if order.PaymentID != nil && *order.PaymentID == p.GatewayPaymentID {
			return p, "payment_id"
		}
	}
	if order.ExternalReference == nil || *order.ExternalReference == "" {
		return nil, ""
	}
	for i := range approved {
		p := &approved[i]
		if p.RawData == "" {
			continue
		}
		details, err := mercadopago.ParsePayment([]byte(p.RawData))
		if err != nil {
			continue
		}
		if details.ExternalReference == *order.ExternalReference {
			return p, "external_reference"
		}
	}
	return nil, ""
}

type RecoverResult struct {
	AlreadyLinked bool   `json:"already_linked"`
	OrderID       uint   `json:"order_id,omitempty"`
	OrderNumber   string `json:"order_number,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	ItemCount     int    `json:"item_count,omitempty"`
	EmailSent     bool   `json:"email_sent"`
}

// RecoverOrderFromPayment rebuilds the missing order for an orphaned
// approved payment out of its retained raw gateway payload. Calling it for
// an already linked payment is a no-op.
func (s *RecoveryService) RecoverOrderFromPayment(ctx context.Context, gatewayPaymentID string) (*RecoverResult, error) {
	payment, err := s.payments.GetByGatewayID(gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	if payment.OrderID != nil {
		res := &RecoverResult{AlreadyLinked: true, OrderID: *payment.OrderID}
		if order, err := s.orders.GetByID(*payment.OrderID); err == nil && order != nil {
			res.OrderNumber = order.OrderNumber
			res.CustomerEmail = order.CustomerEmail
		}
		return res, nil
	}
	if payment.Status != domain.PaymentApproved {
		return nil, domain.ErrPaymentNotApproved
	}
	if payment.RawData == "" {
		return nil, domain.ErrNoRawPaymentData
	}

	details, err := mercadopago.ParsePayment([]byte(payment.RawData))
	if err != nil {
		return nil, fmt.Errorf("parse retained payload: %w", err)
	}
	if details.PayerEmail == "" {
		return nil, domain.ErrNoPayerEmail
	}
	if len(details.Items) == 0 {
		return nil, domain.ErrNoLineItems
	}

	var userID *uint
	if user, err := s.resolveCustomer(details); err != nil {
		log.Printf("[RECOVER] payment %s: could not resolve customer %s: %v",
			gatewayPaymentID, details.PayerEmail, err)
	} else if user != nil {
		userID = &user.ID
	}

	number, err := s.orderNums.uniqueOrderNumber()
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderNumber:      number,
		UserID:           userID,
		Status:           domain.StatusPaid,
		TotalAmount:      payment.TransactionAmount,
		PaymentID:        &payment.GatewayPaymentID,
		CustomerEmail:    details.PayerEmail,
		CustomerName:     strPtr(details.PayerName()),
		CustomerDNI:      strPtr(details.PayerIdentification),
		ProductionStatus: strPtr(domain.ProductionWaitingFabric),
	}
	if details.ExternalReference != "" {
		ref := details.ExternalReference
		order.ExternalReference = &ref
	}
	for _, it := range details.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   parseProductID(it.ID),
			ProductName: it.Title,
			ProductSize: strPtr(it.Size()),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}

	if err := s.payments.CreateOrderForPayment(order, payment); err != nil {
		return nil, fmt.Errorf("persist recovered order: %w", err)
	}
	log.Printf("[RECOVER] payment %s: created order %s for %s with %d items",
		gatewayPaymentID, order.OrderNumber, order.CustomerEmail, len(order.Items))

	sendConfirmationOnce(ctx, s.mailer, s.orders, order, "RECOVER")
	return &RecoverResult{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.CustomerEmail,
		ItemCount:     len(order.Items),
		EmailSent:     order.ConfirmationEmailSent,
	}, nil
}

func (s *RecoveryService) resolveCustomer(details *mercadopago.PaymentDetails) (*models.User, error) {
	u, err := s.customers.GetByEmail(details.PayerEmail)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}
	u = &models.User{
		Email:    details.PayerEmail,
		FullName: strPtr(details.PayerName()),
		Role:     domain.RoleCustomer,
	}
	if err := s.customers.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}

func parseProductID(s string) *uint {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return nil
	}
	id := uint(n)
	return &id
}

type PaymentSyncResult struct {
	Checked int      `json:"checked"`
	Synced  int      `json:"synced"`
	Errors  []string `json:"errors,omitempty"`
}

// SyncPaymentsFromOrders backfills payment records for orders that carry a
// gateway payment reference with no stored payment row, re-fetching each
// payment from the gateway.
func (s *RecoveryService) SyncPaymentsFromOrders(ctx context.Context) (*PaymentSyncResult, error) {
	orders, err := s.orders.ListWithPaymentID()
	if err != nil {
		return nil, fmt.Errorf("list orders with payment id: %w", err)
	}
	result := &PaymentSyncResult{Checked: len(orders)}

	for i := range orders {
		order := &orders[i]
		gatewayID := *order.PaymentID

		existing, err := s.payments.GetByGatewayID(gatewayID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("order %s: %v", order.OrderNumber, err))
			continue
		}
		if existing != nil {
			continue
		}

		details, err := s.gateway.GetPayment(ctx, gatewayID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("order %s: gateway fetch %s: %v", order.OrderNumber, gatewayID, err))
			continue
		}

		payment := paymentFromDetails(gatewayID, details)
		payment.OrderID = &order.ID
		if err := s.payments.Upsert(payment); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("order %s: persist payment: %v", order.OrderNumber, err))
			continue
		}
		result.Synced++
	}
	return result, nil
}
