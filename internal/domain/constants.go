package domain

// Order statuses. Happy path is monotonic; CANCELLED and REFUNDED absorb.
const (
	StatusPending          = "PENDING"
	StatusPaid             = "PAID"
	StatusInProduction     = "IN_PRODUCTION"
	StatusReadyForShipment = "READY_FOR_SHIPMENT"
	StatusShipped          = "SHIPPED"
	StatusDelivered        = "DELIVERED"
	StatusCancelled        = "CANCELLED"
	StatusRefunded         = "REFUNDED"
)

// Production sub-statuses, meaningful only while the order is PAID.
const (
	ProductionWaitingFabric = "WAITING_FABRIC"
	ProductionCutting       = "CUTTING"
	ProductionSewing        = "SEWING"
	ProductionPrinting      = "PRINTING"
	ProductionFinished      = "FINISHED"
)

// ProductionStatuses in workshop order. The index doubles as the stage rank
// when forward-only enforcement is on.
var ProductionStatuses = []string{
	ProductionWaitingFabric,
	ProductionCutting,
	ProductionSewing,
	ProductionPrinting,
	ProductionFinished,
}

// Gateway payment statuses, mirrored verbatim from Mercado Pago.
const (
	PaymentApproved    = "approved"
	PaymentPending     = "pending"
	PaymentRejected    = "rejected"
	PaymentCancelled   = "cancelled"
	PaymentRefunded    = "refunded"
	PaymentChargedBack = "charged_back"
)

const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// RevenueStatuses is the canonical set counted as revenue in stats.
// An order counts from the moment it is paid through delivery.
var RevenueStatuses = []string{StatusPaid, StatusReadyForShipment, StatusShipped, StatusDelivered}

// statusTransitions is the order state machine. IN_PRODUCTION is implicit
// via production sub-statuses but accepted as an explicit admin status.
var statusTransitions = map[string][]string{
	StatusPending:          {StatusPaid, StatusCancelled},
	StatusPaid:             {StatusInProduction, StatusReadyForShipment, StatusCancelled, StatusRefunded},
	StatusInProduction:     {StatusReadyForShipment, StatusCancelled, StatusRefunded},
	StatusReadyForShipment: {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:          {StatusDelivered, StatusRefunded},
	StatusDelivered:        {StatusRefunded},
	StatusCancelled:        {},
	StatusRefunded:         {},
}

// CanTransition reports whether an order may move from one status to
// another. Re-applying the current status is always allowed (idempotent).
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether the status absorbs all later events.
func IsTerminalStatus(s string) bool {
	return s == StatusCancelled || s == StatusRefunded
}

// IsValidProductionStatus reports whether s is one of the five stages.
func IsValidProductionStatus(s string) bool {
	return ProductionStageRank(s) >= 0
}

// ProductionStageRank returns the stage index, or -1 for unknown values.
func ProductionStageRank(s string) int {
	for i, v := range ProductionStatuses {
		if v == s {
			return i
		}
	}
	return -1
}
