package models

import (
	"time"
)

// Payment is one gateway transaction as Mercado Pago reports it. It is
// kept separate from Order: a payment can precede its order (webhook
// before checkout completes) and an order can see several attempts.
// Rows are upserted by GatewayPaymentID and never deleted.
type Payment struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// OrderID is nullable: an orphaned payment waits for recovery.
	OrderID *uint `gorm:"index" json:"order_id"`

	GatewayPaymentID string `gorm:"size:100;uniqueIndex;not null" json:"gateway_payment_id"`

	TransactionAmount float64 `gorm:"not null" json:"transaction_amount"`
	CurrencyID        string  `gorm:"size:10;default:'ARS'" json:"currency_id"`

	// Method metadata; populated from whichever sub-object the gateway
	// filled for this payment type.
	PaymentMethodID    *string `gorm:"size:50" json:"payment_method_id"`
	PaymentTypeID      *string `gorm:"size:50" json:"payment_type_id"`
	CardLastFourDigits *string `gorm:"size:4" json:"card_last_four_digits"`
	CardHolderName     *string `gorm:"size:255" json:"card_holder_name"`

	// Status mirrors the gateway vocabulary verbatim: approved, pending,
	// rejected, cancelled, refunded, charged_back.
	Status       string  `gorm:"size:50;not null;index" json:"status"`
	StatusDetail *string `gorm:"size:100" json:"status_detail"`

	RefundedAmount float64 `gorm:"not null;default:0" json:"refunded_amount"`
	RefundedCount  int     `gorm:"not null;default:0" json:"refunded_count"`
	HasChargeback  bool    `gorm:"not null;default:false" json:"has_chargeback"`

	// Gateway timestamps.
	DateCreated     time.Time  `gorm:"not null" json:"date_created"`
	DateApproved    *time.Time `json:"date_approved"`
	DateLastUpdated *time.Time `json:"date_last_updated"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// RawData retains the verbatim gateway payload for forensic recovery.
	RawData string `gorm:"type:text" json:"-"`

	Order *Order `gorm:"foreignKey:OrderID" json:"-"`
}

func (Payment) TableName() string { return "payments" }
