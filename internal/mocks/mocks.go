package mocks

import (
	"context"

	"gepe/internal/models"
	"gepe/pkg/mercadopago"

	"github.com/stretchr/testify/mock"
)

type OrderStore struct {
	mock.Mock
}

func (m *OrderStore) GetByID(id uint) (*models.Order, error) {
	args := m.Called(id)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *OrderStore) GetByExternalReference(ref string) (*models.Order, error) {
	args := m.Called(ref)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *OrderStore) GetByPaymentID(paymentID string) (*models.Order, error) {
	args := m.Called(paymentID)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *OrderStore) OrderNumberExists(number string) (bool, error) {
	args := m.Called(number)
	return args.Bool(0), args.Error(1)
}

func (m *OrderStore) Create(o *models.Order) error {
	return m.Called(o).Error(0)
}

func (m *OrderStore) Update(o *models.Order) error {
	return m.Called(o).Error(0)
}

func (m *OrderStore) ListByStatus(status string) ([]models.Order, error) {
	args := m.Called(status)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

func (m *OrderStore) ListWithPaymentID() ([]models.Order, error) {
	args := m.Called()
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

type PaymentStore struct {
	mock.Mock
}

func (m *PaymentStore) GetByID(id uint) (*models.Payment, error) {
	args := m.Called(id)
	p, _ := args.Get(0).(*models.Payment)
	return p, args.Error(1)
}

func (m *PaymentStore) GetByGatewayID(gatewayID string) (*models.Payment, error) {
	args := m.Called(gatewayID)
	p, _ := args.Get(0).(*models.Payment)
	return p, args.Error(1)
}

func (m *PaymentStore) Upsert(p *models.Payment) error {
	return m.Called(p).Error(0)
}

func (m *PaymentStore) UpsertWithOrder(p *models.Payment, order *models.Order) error {
	return m.Called(p, order).Error(0)
}

func (m *PaymentStore) CreateOrderForPayment(order *models.Order, p *models.Payment) error {
	args := m.Called(order, p)
	if args.Error(0) == nil {
		if order.ID == 0 {
			order.ID = 1
		}
		p.OrderID = &order.ID
	}
	return args.Error(0)
}

func (m *PaymentStore) Update(p *models.Payment) error {
	return m.Called(p).Error(0)
}

func (m *PaymentStore) ListApproved() ([]models.Payment, error) {
	args := m.Called()
	payments, _ := args.Get(0).([]models.Payment)
	return payments, args.Error(1)
}

type CustomerStore struct {
	mock.Mock
}

func (m *CustomerStore) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *CustomerStore) Create(u *models.User) error {
	args := m.Called(u)
	if args.Error(0) == nil && u.ID == 0 {
		u.ID = 1
	}
	return args.Error(0)
}

type StaffEmailStore struct {
	mock.Mock
}

func (m *StaffEmailStore) ListVerified() ([]string, error) {
	args := m.Called()
	emails, _ := args.Get(0).([]string)
	return emails, args.Error(1)
}

type Mailer struct {
	mock.Mock
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *Mailer) SendProductionComplete(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *Mailer) SendSaleNotification(ctx context.Context, order *models.Order, recipients []string) error {
	return m.Called(ctx, order, recipients).Error(0)
}

type Gateway struct {
	mock.Mock
}

func (m *Gateway) GetPayment(ctx context.Context, id string) (*mercadopago.PaymentDetails, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*mercadopago.PaymentDetails)
	return d, args.Error(1)
}

func (m *Gateway) CreateRefund(ctx context.Context, paymentID string, amount *float64) (*mercadopago.RefundResult, error) {
	args := m.Called(ctx, paymentID, amount)
	r, _ := args.Get(0).(*mercadopago.RefundResult)
	return r, args.Error(1)
}

func (m *Gateway) CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*mercadopago.Preference)
	return p, args.Error(1)
}
