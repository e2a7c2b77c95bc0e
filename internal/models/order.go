package models

import (
	"time"
)

// Order is a purchase attempt. Financial fields are denormalized at order
// time so later catalog price changes never rewrite history.
type Order struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"size:20;uniqueIndex;not null" json:"order_number"` // public, non-sequential (GEPE-XXXXXX)
	UserID      *uint  `gorm:"index" json:"user_id"`

	Status      string  `gorm:"size:30;not null;default:'PENDING';index" json:"status"`
	TotalAmount float64 `gorm:"not null;default:0" json:"total_amount"`

	// Correlation keys to the payment gateway. ExternalReference is sent
	// with the checkout preference; PaymentID arrives with the webhook.
	ExternalReference *string `gorm:"size:255;uniqueIndex" json:"external_reference"`
	PaymentID         *string `gorm:"size:100;index" json:"payment_id"`

	CustomerEmail string  `gorm:"size:255;not null;index" json:"customer_email"`
	CustomerName  *string `gorm:"size:255" json:"customer_name"`
	CustomerPhone *string `gorm:"size:50" json:"customer_phone"`
	CustomerDNI   *string `gorm:"size:50" json:"customer_dni"`

	ShippingMethod   *string `gorm:"size:100" json:"shipping_method"`
	ShippingAddress  *string `gorm:"size:512" json:"shipping_address"`
	ShippingCity     *string `gorm:"size:255" json:"shipping_city"`
	ShippingProvince *string `gorm:"size:255" json:"shipping_province"`

	TrackingCode          *string `gorm:"size:100" json:"tracking_code"`
	TrackingCompany       *string `gorm:"size:100" json:"tracking_company"`
	TrackingBranchAddress *string `gorm:"size:512" json:"tracking_branch_address"`
	TrackingAttachmentURL *string `gorm:"size:512" json:"tracking_attachment_url"`

	// ProductionStatus is non-nil only once the order is PAID.
	ProductionStatus *string `gorm:"size:30;index" json:"production_status"`

	// One-time notification flags keep repeated reconciliation passes from
	// mailing the customer twice.
	ConfirmationEmailSent bool `gorm:"not null;default:false" json:"confirmation_email_sent"`
	ShippedEmailSent      bool `gorm:"not null;default:false" json:"shipped_email_sent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	User  *User       `gorm:"foreignKey:UserID" json:"-"`
}

func (Order) TableName() string { return "orders" }

// OrderItem snapshots product name/price/size at order time. ProductID may
// dangle if the catalog product is later deleted.
type OrderItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	OrderID     uint    `gorm:"not null;index" json:"order_id"`
	ProductID   *uint   `json:"product_id"`
	ProductName string  `gorm:"size:255;not null" json:"product_name"`
	ProductSize *string `gorm:"size:20" json:"product_size"`
	Quantity    int     `gorm:"not null" json:"quantity"`
	UnitPrice   float64 `gorm:"not null" json:"unit_price"`
}

func (OrderItem) TableName() string { return "order_items" }
