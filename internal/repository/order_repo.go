package repository

import (
	"errors"

	"gepe/internal/models"

	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists the order together with its items. Gorm wraps the
// association insert in a single transaction, so an order is never
// committed without its line items.
func (r *OrderRepository) Create(o *models.Order) error {
	return r.db.Create(o).Error
}

func (r *OrderRepository) GetByID(id uint) (*models.Order, error) {
	var o models.Order
	err := r.db.Preload("Items").First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) GetByOrderNumber(number string) (*models.Order, error) {
	return r.getBy("order_number = ?", number)
}

func (r *OrderRepository) GetByExternalReference(ref string) (*models.Order, error) {
	return r.getBy("external_reference = ?", ref)
}

func (r *OrderRepository) GetByPaymentID(paymentID string) (*models.Order, error) {
	return r.getBy("payment_id = ?", paymentID)
}

func (r *OrderRepository) getBy(query string, arg string) (*models.Order, error) {
	var o models.Order
	err := r.db.Preload("Items").Where(query, arg).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) OrderNumberExists(number string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Order{}).Where("order_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *OrderRepository) Update(o *models.Order) error {
	return r.db.Omit("Items").Save(o).Error
}

func (r *OrderRepository) ListByStatus(status string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").Where("status = ?", status).Order("created_at asc").Find(&orders).Error
	return orders, err
}

// ListWithPaymentID returns orders that carry a gateway payment reference,
// regardless of status. Used to backfill missing payment records.
func (r *OrderRepository) ListWithPaymentID() ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("payment_id IS NOT NULL AND payment_id <> ''").Find(&orders).Error
	return orders, err
}

func (r *OrderRepository) ListByStatuses(statuses []string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").Where("status IN ?", statuses).Order("created_at asc").Find(&orders).Error
	return orders, err
}

// CountByStatus groups order counts by status for the stats endpoints.
func (r *OrderRepository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Count
	}
	return counts, nil
}

// RevenueTotal sums order totals over the given statuses.
func (r *OrderRepository) RevenueTotal(statuses []string) (float64, error) {
	var total float64
	err := r.db.Model(&models.Order{}).
		Where("status IN ?", statuses).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&total).Error
	return total, err
}

// List returns orders for the admin view, newest first, optionally
// filtered by status and a free-text search over number, email, name and
// external reference.
func (r *OrderRepository) List(statusFilter, search string, offset, limit int) ([]models.Order, error) {
	q := r.db.Preload("Items")
	if statusFilter != "" {
		q = q.Where("status = ?", statusFilter)
	}
	if search != "" {
		term := "%" + search + "%"
		q = q.Where(
			"order_number LIKE ? OR customer_email LIKE ? OR customer_name LIKE ? OR external_reference LIKE ?",
			term, term, term, term,
		)
	}
	var orders []models.Order
	err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&orders).Error
	return orders, err
}

func (r *OrderRepository) ListByCustomerEmail(email string, offset, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").
		Where("customer_email = ?", email).
		Order("created_at desc").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	return orders, err
}
