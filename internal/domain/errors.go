package domain

import "errors"

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrOrderNotPaid guards production operations.
	ErrOrderNotPaid            = errors.New("order is not paid")
	ErrInvalidProductionStatus = errors.New("invalid production status")
	ErrProductionStageBack     = errors.New("production status cannot move backwards")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")

	// Recovery preconditions. An already linked payment is not an error:
	// recovery treats it as a no-op.
	ErrPaymentNotApproved = errors.New("payment is not approved")
	ErrNoRawPaymentData   = errors.New("payment has no raw gateway data to recover from")
	ErrNoPayerEmail       = errors.New("payer email missing from gateway data")
	ErrNoLineItems        = errors.New("no line items found in gateway data")

	// Refund preconditions.
	ErrRefundAmountInvalid = errors.New("refund amount must be greater than zero")
	ErrRefundExceedsTotal  = errors.New("refund amount exceeds the remaining refundable amount")
	ErrFullyRefunded       = errors.New("payment is already fully refunded")

	ErrEmptyOrder         = errors.New("order must contain at least one item")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
