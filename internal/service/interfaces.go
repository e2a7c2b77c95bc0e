package service

import (
	"context"

	"gepe/internal/models"
)

// Storage interfaces consumed by the services. The gorm repositories in
// internal/repository satisfy them; internal/mocks provides test doubles.

type OrderStore interface {
	GetByID(id uint) (*models.Order, error)
	GetByExternalReference(ref string) (*models.Order, error)
	GetByPaymentID(paymentID string) (*models.Order, error)
	OrderNumberExists(number string) (bool, error)
	Create(o *models.Order) error
	Update(o *models.Order) error
	ListByStatus(status string) ([]models.Order, error)
	ListWithPaymentID() ([]models.Order, error)
}

type PaymentStore interface {
	GetByID(id uint) (*models.Payment, error)
	GetByGatewayID(gatewayID string) (*models.Payment, error)
	Upsert(p *models.Payment) error
	UpsertWithOrder(p *models.Payment, order *models.Order) error
	CreateOrderForPayment(order *models.Order, p *models.Payment) error
	Update(p *models.Payment) error
	ListApproved() ([]models.Payment, error)
}

type CustomerStore interface {
	GetByEmail(email string) (*models.User, error)
	Create(u *models.User) error
}

type StaffEmailStore interface {
	ListVerified() ([]string, error)
}

// Mailer sends transactional email. All sends are best-effort: a failure
// is logged by the caller and never rolls back a committed state change.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
	SendProductionComplete(ctx context.Context, order *models.Order) error
	SendSaleNotification(ctx context.Context, order *models.Order, recipients []string) error
}
