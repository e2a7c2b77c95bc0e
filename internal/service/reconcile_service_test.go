package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gepe/internal/domain"
	"gepe/internal/mocks"
	"gepe/internal/models"
	"gepe/pkg/mercadopago"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func approvedDetails(gatewayID, extRef string, amount float64) *mercadopago.PaymentDetails {
	now := time.Now()
	return &mercadopago.PaymentDetails{
		ID:                gatewayID,
		Status:            "approved",
		StatusDetail:      "accredited",
		ExternalReference: extRef,
		TransactionAmount: amount,
		CurrencyID:        "ARS",
		DateCreated:       &now,
		DateApproved:      &now,
		Raw:               []byte(`{"id":` + gatewayID + `}`),
	}
}

func pendingOrder(id uint, extRef string) *models.Order {
	ref := extRef
	return &models.Order{
		ID:                id,
		OrderNumber:       "GEPE-TESTAA",
		Status:            domain.StatusPending,
		ExternalReference: &ref,
		CustomerEmail:     "ana@example.com",
	}
}

func newReconcileFixture() (*ReconcileService, *mocks.Gateway, *mocks.OrderStore, *mocks.PaymentStore, *mocks.Mailer) {
	gateway := new(mocks.Gateway)
	orders := new(mocks.OrderStore)
	payments := new(mocks.PaymentStore)
	mailer := new(mocks.Mailer)
	svc := NewReconcileService(gateway, orders, payments, mailer)
	return svc, gateway, orders, payments, mailer
}

func TestHandleWebhookEventIgnoresOtherTopics(t *testing.T) {
	svc, gateway, _, _, _ := newReconcileFixture()

	ack := svc.HandleWebhookEvent(context.Background(), "merchant_order", "123")

	assert.Equal(t, "ignored", ack.Status)
	gateway.AssertNotCalled(t, "GetPayment", mock.Anything, mock.Anything)
}

func TestHandleWebhookEventMissingResourceID(t *testing.T) {
	svc, gateway, _, _, _ := newReconcileFixture()

	ack := svc.HandleWebhookEvent(context.Background(), "payment", "")

	assert.Equal(t, "error", ack.Status)
	gateway.AssertNotCalled(t, "GetPayment", mock.Anything, mock.Anything)
}

func TestHandleWebhookEventGatewayFailureMutatesNothing(t *testing.T) {
	svc, gateway, orders, payments, _ := newReconcileFixture()
	gateway.On("GetPayment", mock.Anything, "55").Return(nil, errors.New("boom"))

	ack := svc.HandleWebhookEvent(context.Background(), "payment", "55")

	assert.Equal(t, "error", ack.Status)
	payments.AssertNotCalled(t, "Upsert", mock.Anything)
	payments.AssertNotCalled(t, "UpsertWithOrder", mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "Update", mock.Anything)
}

func TestHandleWebhookEventApprovedPaysOrder(t *testing.T) {
	svc, gateway, orders, payments, mailer := newReconcileFixture()
	order := pendingOrder(1, "ref-1")

	gateway.On("GetPayment", mock.Anything, "55").Return(approvedDetails("55", "ref-1", 18500), nil)
	payments.On("GetByGatewayID", "55").Return(nil, nil)
	orders.On("GetByExternalReference", "ref-1").Return(order, nil)
	payments.On("UpsertWithOrder", mock.Anything, order).Return(nil)
	mailer.On("SendOrderConfirmation", mock.Anything, order).Return(nil)
	orders.On("Update", order).Return(nil)

	ack := svc.HandleWebhookEvent(context.Background(), "payment", "55")

	require.Equal(t, "processed", ack.Status)
	assert.Equal(t, domain.StatusPaid, order.Status)
	require.NotNil(t, order.PaymentID)
	assert.Equal(t, "55", *order.PaymentID)
	require.NotNil(t, order.ProductionStatus)
	assert.Equal(t, domain.ProductionWaitingFabric, *order.ProductionStatus)
	assert.True(t, order.ConfirmationEmailSent)
	payments.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestHandleWebhookEventApprovedRedeliveryIsIdempotent(t *testing.T) {
	svc, gateway, orders, payments, mailer := newReconcileFixture()
	order := pendingOrder(1, "ref-1")
	pid := "55"
	ps := domain.ProductionCutting
	order.Status = domain.StatusPaid
	order.PaymentID = &pid
	order.ProductionStatus = &ps
	order.ConfirmationEmailSent = true

	existing := &models.Payment{ID: 9, GatewayPaymentID: "55", OrderID: &order.ID, Status: "approved"}

	gateway.On("GetPayment", mock.Anything, "55").Return(approvedDetails("55", "ref-1", 18500), nil)
	payments.On("GetByGatewayID", "55").Return(existing, nil)
	orders.On("GetByExternalReference", "ref-1").Return(order, nil)
	payments.On("Upsert", mock.Anything).Return(nil)

	ack := svc.HandleWebhookEvent(context.Background(), "payment", "55")

	require.Equal(t, "processed", ack.Status)
	assert.Equal(t, domain.StatusPaid, order.Status)
	assert.Equal(t, domain.ProductionCutting, *order.ProductionStatus)
	mailer.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything)
	payments.AssertNotCalled(t, "UpsertWithOrder", mock.Anything, mock.Anything)

	// The merged record keeps the existing row identity and order link.
	upserted := payments.Calls[1].Arguments.Get(0).(*models.Payment)
	assert.Equal(t, uint(9), upserted.ID)
	require.NotNil(t, upserted.OrderID)
	assert.Equal(t, order.ID, *upserted.OrderID)
}

func TestHandleWebhookEventPendingRecordsAttempt(t *testing.T) {
	svc, gateway, orders, payments, mailer := newReconcileFixture()
	order := pendingOrder(1, "ref-1")

	details := approvedDetails("70", "ref-1", 18500)
	details.Status = "pending"
	details.DateApproved = nil

	gateway.On("GetPayment", mock.Anything, "70").Return(details, nil)
	payments.On("GetByGatewayID", "70").Return(nil, nil)
	orders.On("GetByExternalReference", "ref-1").Return(order, nil)
	payments.On("UpsertWithOrder", mock.Anything, order).Return(nil)

	ack := svc.HandleWebhookEvent(context.Background(), "payment", "70")

	require.Equal(t, "processed", ack.Status)
	assert.Equal(t, domain.StatusPending, order.Status)
	require.NotNil(t, order.PaymentID)
	assert.Equal(t, "70", *order.PaymentID)
	mailer.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything)
}

func TestHandleWebhookEventStalePendingNeverDowngradesPaid(t *testing.T) {
	svc, gateway, orders, payments, _ := newReconcileFixture()
	order := pendingOrder(1, "ref-1")
	pid := "55"
	order.Status = domain.StatusPaid
	order.PaymentID = &pid
	order.ConfirmationEmailSent = true

	details := approvedDetails("55", "ref-1", 18500)
	details.Status = "pending"

	gateway.On("GetPayment", mock.Anything, "55").Return(details, nil)
	payments.On("GetByGatewayID", "55").Return(nil, nil)
	orders.On("GetByExternalReference", "ref-1").Return(order, nil)
	payments.On("Upsert", mock.Anything).Return(nil)

	ack := svc.HandleWebhookEvent(context.Background(), "payment", "55")

	require.Equal(t, "processed", ack.Status)
	assert.Equal(t, domain.StatusPaid, order.Status)
	orders.AssertNotCalled(t, "Update", mock.Anything)
}

func TestHandleWebhookEventRejectedCancelsPendingOrder(t *testing.T) {
	svc, gateway, orders, payments, mailer := newReconcileFixture()
	order := pendingOrder(1, "ref-1")

	details := approvedDetails("60", "ref-1", 18500)
	details.Status = "rejected"
	details.StatusDetail = "cc_rejected_insufficient_amount"

	gateway.On("GetPayment", mock.Anything, "60").Return(details, nil)
	payments.On("GetByGatewayID", "60").Return(nil, nil)
	orders.On("GetByExternalReference", "ref-1").Return(order, nil)
	payments.On("UpsertWithOrder", mock.Anything, order).Return(nil)

	ack := svc.HandleWebhookEvent(context.Background(), "payment", "60")

	require.Equal(t, "processed", ack.Status)
	assert.Equal(t, domain.StatusCancelled, order.Status)
	mailer.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything)
}

func TestHandleWebhookEventRejectedNeverCancelsPaidOrder(t *testing.T) {
	svc, gateway, orders, payments, _ := newReconcileFixture()
	order := pendingOrder(1, "ref-1")
	pid := "55"
	order.Status = domain.StatusPaid
	order.PaymentID = &pid

	details := approvedDetails("61", "ref-1", 18500)
	details.Status = "rejected"

	gateway.On("GetPayment", mock.Anything, "61").Return(details, nil)
	payments.On("GetByGatewayID", "61").Return(nil, nil)
	orders.On("GetByExternalReference", "ref-1").Return(order, nil)
	payments.On("Upsert", mock.Anything).Return(nil)

	ack := svc.HandleWebhookEvent(context.Background(), "payment", "61")

	require.Equal(t, "processed", ack.Status)
	assert.Equal(t, domain.StatusPaid, order.Status)
}

func TestHandleWebhookEventTerminalOrderAbsorbs(t *testing.T) {
	svc, gateway, orders, payments, mailer := newReconcileFixture()
	order := pendingOrder(1, "ref-1")
	order.Status = domain.StatusCancelled

	gateway.On("GetPayment", mock.Anything, "55").Return(approvedDetails("55", "ref-1", 18500), nil)
	payments.On("GetByGatewayID", "55").Return(nil, nil)
	orders.On("GetByExternalReference", "ref-1").Return(order, nil)
	payments.On("Upsert", mock.Anything).Return(nil)

	ack := svc.HandleWebhookEvent(context.Background(), "payment", "55")

	require.Equal(t, "processed", ack.Status)
	assert.Equal(t, domain.StatusCancelled, order.Status)
	mailer.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything)
}

func TestHandleWebhookEventOrphanPaymentIsStored(t *testing.T) {
	svc, gateway, orders, payments, _ := newReconcileFixture()

	gateway.On("GetPayment", mock.Anything, "80").Return(approvedDetails("80", "ref-missing", 9900), nil)
	payments.On("GetByGatewayID", "80").Return(nil, nil)
	orders.On("GetByExternalReference", "ref-missing").Return(nil, nil)
	payments.On("Upsert", mock.Anything).Return(nil)

	ack := svc.HandleWebhookEvent(context.Background(), "payment", "80")

	require.Equal(t, "processed", ack.Status)
	stored := payments.Calls[1].Arguments.Get(0).(*models.Payment)
	assert.Equal(t, "80", stored.GatewayPaymentID)
	assert.Nil(t, stored.OrderID)
	assert.NotEmpty(t, stored.RawData)
}

func TestHandleWebhookEventConfirmationFailureLeavesFlagUnset(t *testing.T) {
	svc, gateway, orders, payments, mailer := newReconcileFixture()
	order := pendingOrder(1, "ref-1")

	gateway.On("GetPayment", mock.Anything, "55").Return(approvedDetails("55", "ref-1", 18500), nil)
	payments.On("GetByGatewayID", "55").Return(nil, nil)
	orders.On("GetByExternalReference", "ref-1").Return(order, nil)
	payments.On("UpsertWithOrder", mock.Anything, order).Return(nil)
	mailer.On("SendOrderConfirmation", mock.Anything, order).Return(errors.New("smtp down"))

	ack := svc.HandleWebhookEvent(context.Background(), "payment", "55")

	require.Equal(t, "processed", ack.Status)
	assert.Equal(t, domain.StatusPaid, order.Status)
	assert.False(t, order.ConfirmationEmailSent)
	orders.AssertNotCalled(t, "Update", mock.Anything)
}

func TestHandleWebhookEventRefundedPayment(t *testing.T) {
	svc, gateway, orders, payments, _ := newReconcileFixture()
	order := pendingOrder(1, "ref-1")
	pid := "55"
	order.Status = domain.StatusShipped
	order.PaymentID = &pid

	details := approvedDetails("55", "ref-1", 18500)
	details.Status = "refunded"
	details.RefundedAmount = 18500
	details.RefundedCount = 1

	gateway.On("GetPayment", mock.Anything, "55").Return(details, nil)
	payments.On("GetByGatewayID", "55").Return(nil, nil)
	orders.On("GetByExternalReference", "ref-1").Return(order, nil)
	payments.On("UpsertWithOrder", mock.Anything, order).Return(nil)

	ack := svc.HandleWebhookEvent(context.Background(), "payment", "55")

	require.Equal(t, "processed", ack.Status)
	assert.Equal(t, domain.StatusRefunded, order.Status)
}
