package service

import (
	"context"
	"strings"
	"testing"

	"gepe/config"
	"gepe/internal/domain"
	"gepe/internal/mocks"
	"gepe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newOrderFixture(ordersCfg config.OrdersConfig) (*OrderService, *mocks.OrderStore, *mocks.CustomerStore, *mocks.StaffEmailStore, *mocks.Mailer) {
	orders := new(mocks.OrderStore)
	customers := new(mocks.CustomerStore)
	staff := new(mocks.StaffEmailStore)
	mailer := new(mocks.Mailer)
	if ordersCfg.NumberPrefix == "" {
		ordersCfg.NumberPrefix = "GEPE"
	}
	svc := NewOrderService(orders, customers, staff, mailer, ordersCfg)
	return svc, orders, customers, staff, mailer
}

func sampleCreateInput() CreateOrderInput {
	return CreateOrderInput{
		CustomerEmail:     "ana@example.com",
		ExternalReference: "ref-9",
		Items: []CreateOrderItemInput{
			{ProductName: "Camiseta Titular", Quantity: 2, UnitPrice: 7500},
			{ProductName: "Short", Quantity: 1, UnitPrice: 3500},
		},
	}
}

func TestCreateOrderComputesTotalAndNumber(t *testing.T) {
	svc, orders, customers, staff, mailer := newOrderFixture(config.OrdersConfig{})

	orders.On("GetByExternalReference", "ref-9").Return(nil, nil)
	customers.On("GetByEmail", "ana@example.com").Return(&models.User{ID: 3}, nil)
	orders.On("OrderNumberExists", mock.Anything).Return(false, nil)
	orders.On("Create", mock.Anything).Return(nil)
	staff.On("ListVerified").Return([]string{"ventas@gepesports.com"}, nil)
	mailer.On("SendSaleNotification", mock.Anything, mock.Anything, []string{"ventas@gepesports.com"}).Return(nil)

	order, created, err := svc.CreateOrder(context.Background(), sampleCreateInput())

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, 18500.0, order.TotalAmount)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "GEPE-"))
	assert.Len(t, order.OrderNumber, 11)
	require.NotNil(t, order.ExternalReference)
	assert.Equal(t, "ref-9", *order.ExternalReference)
	mailer.AssertExpectations(t)
}

func TestCreateOrderIdempotentByExternalReference(t *testing.T) {
	svc, orders, _, _, mailer := newOrderFixture(config.OrdersConfig{})
	existing := &models.Order{ID: 7, OrderNumber: "GEPE-AAAAAA", Status: domain.StatusPaid}

	orders.On("GetByExternalReference", "ref-9").Return(existing, nil)

	order, created, err := svc.CreateOrder(context.Background(), sampleCreateInput())

	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, existing, order)
	orders.AssertNotCalled(t, "Create", mock.Anything)
	mailer.AssertNotCalled(t, "SendSaleNotification", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrderIdempotentByPaymentID(t *testing.T) {
	svc, orders, _, _, _ := newOrderFixture(config.OrdersConfig{})
	existing := &models.Order{ID: 7, OrderNumber: "GEPE-AAAAAA"}

	in := sampleCreateInput()
	in.ExternalReference = ""
	in.PaymentID = "55"
	orders.On("GetByPaymentID", "55").Return(existing, nil)

	order, created, err := svc.CreateOrder(context.Background(), in)

	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, existing, order)
}

func TestCreateOrderGeneratesExternalReferenceWhenMissing(t *testing.T) {
	svc, orders, customers, staff, mailer := newOrderFixture(config.OrdersConfig{})

	in := sampleCreateInput()
	in.ExternalReference = ""
	customers.On("GetByEmail", "ana@example.com").Return(&models.User{ID: 3}, nil)
	orders.On("OrderNumberExists", mock.Anything).Return(false, nil)
	orders.On("Create", mock.Anything).Return(nil)
	staff.On("ListVerified").Return([]string{}, nil)
	mailer.On("SendSaleNotification", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	order, _, err := svc.CreateOrder(context.Background(), in)

	require.NoError(t, err)
	require.NotNil(t, order.ExternalReference)
	assert.True(t, strings.HasPrefix(*order.ExternalReference, "gepe-"))
}

func TestCreateOrderDuplicateKeyReturnsConcurrentWinner(t *testing.T) {
	svc, orders, customers, _, _ := newOrderFixture(config.OrdersConfig{})
	winner := &models.Order{ID: 12, OrderNumber: "GEPE-BBBBBB"}

	// First lookup misses, the insert trips the unique index, the second
	// lookup finds the row the concurrent request inserted.
	orders.On("GetByExternalReference", "ref-9").Return(nil, nil).Once()
	customers.On("GetByEmail", "ana@example.com").Return(&models.User{ID: 3}, nil)
	orders.On("OrderNumberExists", mock.Anything).Return(false, nil)
	orders.On("Create", mock.Anything).Return(gorm.ErrDuplicatedKey)
	orders.On("GetByExternalReference", "ref-9").Return(winner, nil)

	order, created, err := svc.CreateOrder(context.Background(), sampleCreateInput())

	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, winner, order)
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	svc, _, _, _, _ := newOrderFixture(config.OrdersConfig{})

	in := sampleCreateInput()
	in.Items = nil
	_, _, err := svc.CreateOrder(context.Background(), in)

	assert.ErrorIs(t, err, domain.ErrEmptyOrder)
}

func TestCreateOrderRetriesOnNumberCollision(t *testing.T) {
	svc, orders, customers, staff, mailer := newOrderFixture(config.OrdersConfig{})

	orders.On("GetByExternalReference", "ref-9").Return(nil, nil)
	customers.On("GetByEmail", "ana@example.com").Return(&models.User{ID: 3}, nil)
	orders.On("OrderNumberExists", mock.Anything).Return(true, nil).Once()
	orders.On("OrderNumberExists", mock.Anything).Return(false, nil)
	orders.On("Create", mock.Anything).Return(nil)
	staff.On("ListVerified").Return([]string{}, nil)
	mailer.On("SendSaleNotification", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, _, err := svc.CreateOrder(context.Background(), sampleCreateInput())

	require.NoError(t, err)
	orders.AssertNumberOfCalls(t, "OrderNumberExists", 2)
}

func TestUpdateOrderValidTransition(t *testing.T) {
	svc, orders, _, _, _ := newOrderFixture(config.OrdersConfig{})
	order := &models.Order{ID: 1, Status: domain.StatusReadyForShipment}

	orders.On("GetByID", uint(1)).Return(order, nil)
	orders.On("Update", order).Return(nil)

	shipped := domain.StatusShipped
	code := "AR123"
	got, err := svc.UpdateOrder(context.Background(), 1, UpdateOrderInput{Status: &shipped, TrackingCode: &code})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, got.Status)
	require.NotNil(t, got.TrackingCode)
	assert.Equal(t, "AR123", *got.TrackingCode)
}

func TestUpdateOrderRejectsIllegalTransition(t *testing.T) {
	svc, orders, _, _, _ := newOrderFixture(config.OrdersConfig{})
	order := &models.Order{ID: 1, Status: domain.StatusCancelled}

	orders.On("GetByID", uint(1)).Return(order, nil)

	paid := domain.StatusPaid
	_, err := svc.UpdateOrder(context.Background(), 1, UpdateOrderInput{Status: &paid})

	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
	orders.AssertNotCalled(t, "Update", mock.Anything)
}

func TestUpdateProductionStatusRequiresPaid(t *testing.T) {
	svc, orders, _, _, _ := newOrderFixture(config.OrdersConfig{})
	order := &models.Order{ID: 1, Status: domain.StatusPending}

	orders.On("GetByID", uint(1)).Return(order, nil)

	_, err := svc.UpdateProductionStatus(context.Background(), 1, domain.ProductionCutting)

	assert.ErrorIs(t, err, domain.ErrOrderNotPaid)
}

func TestUpdateProductionStatusRejectsUnknownValue(t *testing.T) {
	svc, orders, _, _, _ := newOrderFixture(config.OrdersConfig{})
	order := &models.Order{ID: 1, Status: domain.StatusPaid}

	orders.On("GetByID", uint(1)).Return(order, nil)

	_, err := svc.UpdateProductionStatus(context.Background(), 1, "IRONING")

	assert.ErrorIs(t, err, domain.ErrInvalidProductionStatus)
}

func TestUpdateProductionStatusBackwardMoveAllowedByDefault(t *testing.T) {
	svc, orders, _, _, _ := newOrderFixture(config.OrdersConfig{})
	ps := domain.ProductionPrinting
	order := &models.Order{ID: 1, Status: domain.StatusPaid, ProductionStatus: &ps}

	orders.On("GetByID", uint(1)).Return(order, nil)
	orders.On("Update", order).Return(nil)

	got, err := svc.UpdateProductionStatus(context.Background(), 1, domain.ProductionCutting)

	require.NoError(t, err)
	assert.Equal(t, domain.ProductionCutting, *got.ProductionStatus)
}

func TestUpdateProductionStatusBackwardMoveRejectedWhenEnforced(t *testing.T) {
	svc, orders, _, _, _ := newOrderFixture(config.OrdersConfig{EnforceProductionFlow: true})
	ps := domain.ProductionPrinting
	order := &models.Order{ID: 1, Status: domain.StatusPaid, ProductionStatus: &ps}

	orders.On("GetByID", uint(1)).Return(order, nil)

	_, err := svc.UpdateProductionStatus(context.Background(), 1, domain.ProductionCutting)

	assert.ErrorIs(t, err, domain.ErrProductionStageBack)
	orders.AssertNotCalled(t, "Update", mock.Anything)
}

func TestFinishProductionPromotesAndMailsOnce(t *testing.T) {
	svc, orders, _, _, mailer := newOrderFixture(config.OrdersConfig{})
	ps := domain.ProductionSewing
	order := &models.Order{ID: 1, OrderNumber: "GEPE-CCCCCC", Status: domain.StatusPaid, ProductionStatus: &ps, CustomerEmail: "ana@example.com"}

	orders.On("GetByID", uint(1)).Return(order, nil)
	orders.On("Update", order).Return(nil)
	mailer.On("SendProductionComplete", mock.Anything, order).Return(nil).Once()

	got, err := svc.FinishProduction(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusReadyForShipment, got.Status)
	assert.Equal(t, domain.ProductionFinished, *got.ProductionStatus)
	assert.True(t, got.ShippedEmailSent)

	// A second call fails the PAID guard, so the customer is not mailed
	// twice even on an operator double-click.
	_, err = svc.FinishProduction(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrOrderNotPaid)
	mailer.AssertNumberOfCalls(t, "SendProductionComplete", 1)
}

func TestFinishProductionRequiresPaid(t *testing.T) {
	svc, orders, _, _, _ := newOrderFixture(config.OrdersConfig{})
	order := &models.Order{ID: 1, Status: domain.StatusPending}

	orders.On("GetByID", uint(1)).Return(order, nil)

	_, err := svc.FinishProduction(context.Background(), 1)

	assert.ErrorIs(t, err, domain.ErrOrderNotPaid)
}
