package service

import (
	"context"
	"fmt"
	"log"

	"gepe/config"
	"gepe/internal/domain"
	"gepe/pkg/mercadopago"
)

type PaymentService struct {
	gateway  mercadopago.Client
	payments PaymentStore
	cfg      config.MercadoPagoConfig
}

func NewPaymentService(gateway mercadopago.Client, payments PaymentStore, cfg config.MercadoPagoConfig) *PaymentService {
	return &PaymentService{gateway: gateway, payments: payments, cfg: cfg}
}

type RefundSummary struct {
	GatewayPaymentID string  `json:"gateway_payment_id"`
	RefundID         int64   `json:"refund_id"`
	RefundedAmount   float64 `json:"refunded_amount"`
	RefundedTotal    float64 `json:"refunded_total"`
	FullyRefunded    bool    `json:"fully_refunded"`
}

// Refund refunds a payment, fully when amount is nil. Bounds are checked
// against the local record before touching the gateway so an obviously
// invalid request never leaves the building.
func (s *PaymentService) Refund(ctx context.Context, paymentID uint, amount *float64) (*RefundSummary, error) {
	payment, err := s.payments.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	if payment.Status != domain.PaymentApproved {
		return nil, domain.ErrPaymentNotApproved
	}

	available := payment.TransactionAmount - payment.RefundedAmount
	if available <= 0 {
		return nil, domain.ErrFullyRefunded
	}
	if amount != nil {
		if *amount <= 0 {
			return nil, domain.ErrRefundAmountInvalid
		}
		if *amount > available {
			return nil, domain.ErrRefundExceedsTotal
		}
	}

	refund, err := s.gateway.CreateRefund(ctx, payment.GatewayPaymentID, amount)
	if err != nil {
		return nil, fmt.Errorf("gateway refund: %w", err)
	}

	// Re-fetch so the local totals reflect what the gateway actually did,
	// not what we asked for.
	details, err := s.gateway.GetPayment(ctx, payment.GatewayPaymentID)
	if err != nil {
		log.Printf("[REFUND] payment %s: refresh after refund failed: %v", payment.GatewayPaymentID, err)
		refunded := available
		if amount != nil {
			refunded = *amount
		}
		payment.RefundedAmount += refunded
		payment.RefundedCount++
	} else {
		payment.Status = details.Status
		payment.StatusDetail = strPtr(details.StatusDetail)
		payment.RefundedAmount = details.RefundedAmount
		payment.RefundedCount = details.RefundedCount
		payment.DateLastUpdated = details.DateLastUpdated
		payment.RawData = string(details.Raw)
	}
	if payment.RefundedAmount >= payment.TransactionAmount {
		payment.Status = domain.PaymentRefunded
	}
	if err := s.payments.Update(payment); err != nil {
		return nil, fmt.Errorf("persist refund: %w", err)
	}

	return &RefundSummary{
		GatewayPaymentID: payment.GatewayPaymentID,
		RefundID:         refund.ID,
		RefundedAmount:   refund.Amount,
		RefundedTotal:    payment.RefundedAmount,
		FullyRefunded:    payment.RefundedAmount >= payment.TransactionAmount,
	}, nil
}

type PreferenceItemInput struct {
	ID          string  `json:"id"`
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	PictureURL  string  `json:"picture_url"`
	Quantity    int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" binding:"required,gt=0"`
}

type CreatePreferenceInput struct {
	Items             []PreferenceItemInput `json:"items" binding:"required,dive"`
	PayerEmail        string                `json:"payer_email" binding:"required,email"`
	PayerName         string                `json:"payer_name"`
	PayerSurname      string                `json:"payer_surname"`
	PayerDNI          string                `json:"payer_dni"`
	ExternalReference string                `json:"external_reference" binding:"required"`
}

// CreateCheckoutPreference registers a checkout with the gateway and
// returns the redirect URL. The external reference ties the eventual
// payment back to the order.
func (s *PaymentService) CreateCheckoutPreference(ctx context.Context, in CreatePreferenceInput) (*mercadopago.Preference, error) {
	req := mercadopago.PreferenceRequest{
		ExternalReference:   in.ExternalReference,
		NotificationURL:     s.cfg.WebhookURL,
		StatementDescriptor: s.cfg.StatementDescriptor,
		AutoReturn:          "approved",
		BackURLs: mercadopago.PreferenceBackURLs{
			Success: s.cfg.FrontBaseURL + "/checkout/success",
			Failure: s.cfg.FrontBaseURL + "/checkout/failure",
			Pending: s.cfg.FrontBaseURL + "/checkout/pending",
		},
		Payer: mercadopago.PreferencePayer{
			Email:   in.PayerEmail,
			Name:    in.PayerName,
			Surname: in.PayerSurname,
		},
	}
	if in.PayerDNI != "" {
		req.Payer.Identification = &mercadopago.PreferenceIdentification{Type: "DNI", Number: in.PayerDNI}
	}
	for _, it := range in.Items {
		req.Items = append(req.Items, mercadopago.PreferenceItem{
			ID:          it.ID,
			Title:       it.Title,
			Description: it.Description,
			PictureURL:  it.PictureURL,
			Quantity:    it.Quantity,
			CurrencyID:  "ARS",
			UnitPrice:   it.UnitPrice,
		})
	}
	return s.gateway.CreatePreference(ctx, req)
}
