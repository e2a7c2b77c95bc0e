package repository

import (
	"errors"

	"gepe/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Preload("Order").First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByGatewayID(gatewayID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("gateway_payment_id = ?", gatewayID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// paymentUpsertColumns are the mutable fields refreshed on webhook
// redelivery; created_at and the gateway ID stay as first written.
var paymentUpsertColumns = []string{
	"order_id", "transaction_amount", "currency_id",
	"payment_method_id", "payment_type_id", "card_last_four_digits", "card_holder_name",
	"status", "status_detail", "refunded_amount", "refunded_count", "has_chargeback",
	"date_created", "date_approved", "date_last_updated", "raw_data", "updated_at",
}

// Upsert inserts or refreshes the payment keyed on gateway_payment_id as a
// single statement, so concurrent webhook redeliveries cannot race a
// read-then-write.
func (r *PaymentRepository) Upsert(p *models.Payment) error {
	return r.UpsertWithOrder(p, nil)
}

// UpsertWithOrder additionally persists an order transition in the same
// transaction: either both the payment upsert and the order change commit,
// or neither does.
func (r *PaymentRepository) UpsertWithOrder(p *models.Payment, order *models.Order) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gateway_payment_id"}},
			DoUpdates: clause.AssignmentColumns(paymentUpsertColumns),
		}).Create(p).Error
		if err != nil {
			return err
		}
		if order != nil {
			if err := tx.Omit("Items").Save(order).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateOrderForPayment persists a recovered order (with items) and links
// the payment to it atomically. Used by orphan recovery.
func (r *PaymentRepository) CreateOrderForPayment(order *models.Order, p *models.Payment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		p.OrderID = &order.ID
		return tx.Model(&models.Payment{}).
			Where("id = ?", p.ID).
			Update("order_id", order.ID).Error
	})
}

func (r *PaymentRepository) Update(p *models.Payment) error {
	return r.db.Omit("Order").Save(p).Error
}

func (r *PaymentRepository) ListApproved() ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("status = ?", "approved").Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) List(statusFilter string, offset, limit int) ([]models.Payment, error) {
	q := r.db.Preload("Order")
	if statusFilter != "" {
		q = q.Where("status = ?", statusFilter)
	}
	var payments []models.Payment
	err := q.Order("date_created desc").Offset(offset).Limit(limit).Find(&payments).Error
	return payments, err
}
