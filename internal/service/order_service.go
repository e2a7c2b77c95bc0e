package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"

	"gepe/config"
	"gepe/internal/domain"
	"gepe/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderService struct {
	orders    OrderStore
	customers CustomerStore
	staff     StaffEmailStore
	mailer    Mailer
	cfg       config.OrdersConfig
}

func NewOrderService(orders OrderStore, customers CustomerStore, staff StaffEmailStore, mailer Mailer, cfg config.OrdersConfig) *OrderService {
	return &OrderService{orders: orders, customers: customers, staff: staff, mailer: mailer, cfg: cfg}
}

type CreateOrderItemInput struct {
	ProductID   *uint   `json:"product_id"`
	ProductName string  `json:"product_name" binding:"required"`
	ProductSize *string `json:"product_size"`
	Quantity    int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" binding:"gte=0"`
}

type CreateOrderInput struct {
	CustomerEmail string  `json:"customer_email" binding:"required,email"`
	CustomerName  *string `json:"customer_name"`
	CustomerPhone *string `json:"customer_phone"`
	CustomerDNI   *string `json:"customer_dni"`

	ShippingMethod   *string `json:"shipping_method"`
	ShippingAddress  *string `json:"shipping_address"`
	ShippingCity     *string `json:"shipping_city"`
	ShippingProvince *string `json:"shipping_province"`

	// Either correlation key makes the call idempotent: resubmitting with
	// the same external_reference or payment_id returns the existing order.
	ExternalReference string `json:"external_reference"`
	PaymentID         string `json:"payment_id"`

	Items []CreateOrderItemInput `json:"items" binding:"required,dive"`
}

// CreateOrder registers a purchase attempt in PENDING. It is idempotent on
// both correlation keys, with the unique index on external_reference as
// the backstop for two concurrent submissions.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, bool, error) {
	if len(in.Items) == 0 {
		return nil, false, domain.ErrEmptyOrder
	}

	if in.ExternalReference != "" {
		existing, err := s.orders.GetByExternalReference(in.ExternalReference)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	if in.PaymentID != "" {
		existing, err := s.orders.GetByPaymentID(in.PaymentID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	if _, err := s.resolveCustomer(in.CustomerEmail, in.CustomerName); err != nil {
		log.Printf("[ORDERS] could not resolve customer %s: %v", in.CustomerEmail, err)
	}

	extRef := in.ExternalReference
	if extRef == "" {
		extRef = "gepe-" + uuid.NewString()
	}

	order := &models.Order{
		Status:            domain.StatusPending,
		CustomerEmail:     in.CustomerEmail,
		CustomerName:      in.CustomerName,
		CustomerPhone:     in.CustomerPhone,
		CustomerDNI:       in.CustomerDNI,
		ShippingMethod:    in.ShippingMethod,
		ShippingAddress:   in.ShippingAddress,
		ShippingCity:      in.ShippingCity,
		ShippingProvince:  in.ShippingProvince,
		ExternalReference: &extRef,
		PaymentID:         strPtr(in.PaymentID),
	}
	for _, it := range in.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ProductSize: it.ProductSize,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
		order.TotalAmount += float64(it.Quantity) * it.UnitPrice
	}

	for attempt := 0; ; attempt++ {
		number, err := s.uniqueOrderNumber()
		if err != nil {
			return nil, false, err
		}
		order.OrderNumber = number

		err = s.orders.Create(order)
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Either a concurrent submit won the external_reference race
			// (return its order) or the order number collided (retry).
			if existing, lookupErr := s.orders.GetByExternalReference(extRef); lookupErr == nil && existing != nil {
				return existing, false, nil
			}
			if attempt < 3 {
				continue
			}
		}
		return nil, false, err
	}

	s.notifyStaffSale(ctx, order)
	return order, true, nil
}

// resolveCustomer finds or registers the customer account for an email.
// Orders reference the account when present but never depend on it.
func (s *OrderService) resolveCustomer(email string, name *string) (*models.User, error) {
	u, err := s.customers.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}
	u = &models.User{Email: email, FullName: name, Role: domain.RoleCustomer}
	if err := s.customers.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *OrderService) notifyStaffSale(ctx context.Context, order *models.Order) {
	recipients, err := s.staff.ListVerified()
	if err != nil {
		log.Printf("[ORDERS] could not load notification recipients: %v", err)
		return
	}
	if err := s.mailer.SendSaleNotification(ctx, order, recipients); err != nil {
		log.Printf("[ORDERS] sale notification for %s failed: %v", order.OrderNumber, err)
	}
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// uniqueOrderNumber draws GEPE-XXXXXX codes until one is free. The
// alphabet drops ambiguous glyphs (0/O, 1/I) since customers read these
// over the phone.
func (s *OrderService) uniqueOrderNumber() (string, error) {
	for i := 0; i < 10; i++ {
		number, err := randomOrderNumber(s.cfg.NumberPrefix)
		if err != nil {
			return "", err
		}
		exists, err := s.orders.OrderNumberExists(number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique order number")
}

func randomOrderNumber(prefix string) (string, error) {
	buf := make([]byte, 6)
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = orderNumberAlphabet[n.Int64()]
	}
	return prefix + "-" + string(buf), nil
}

type UpdateOrderInput struct {
	Status *string `json:"status"`

	CustomerName  *string `json:"customer_name"`
	CustomerPhone *string `json:"customer_phone"`

	ShippingMethod   *string `json:"shipping_method"`
	ShippingAddress  *string `json:"shipping_address"`
	ShippingCity     *string `json:"shipping_city"`
	ShippingProvince *string `json:"shipping_province"`

	TrackingCode          *string `json:"tracking_code"`
	TrackingCompany       *string `json:"tracking_company"`
	TrackingBranchAddress *string `json:"tracking_branch_address"`
	TrackingAttachmentURL *string `json:"tracking_attachment_url"`
}

// UpdateOrder applies an admin patch. Status changes go through the state
// machine; everything else is a plain field update.
func (s *OrderService) UpdateOrder(ctx context.Context, id uint, in UpdateOrderInput) (*models.Order, error) {
	order, err := s.orders.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	if in.Status != nil && *in.Status != order.Status {
		if !domain.CanTransition(order.Status, *in.Status) {
			return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidStatusTransition, order.Status, *in.Status)
		}
		order.Status = *in.Status
	}

	assign(&order.CustomerName, in.CustomerName)
	assign(&order.CustomerPhone, in.CustomerPhone)
	assign(&order.ShippingMethod, in.ShippingMethod)
	assign(&order.ShippingAddress, in.ShippingAddress)
	assign(&order.ShippingCity, in.ShippingCity)
	assign(&order.ShippingProvince, in.ShippingProvince)
	assign(&order.TrackingCode, in.TrackingCode)
	assign(&order.TrackingCompany, in.TrackingCompany)
	assign(&order.TrackingBranchAddress, in.TrackingBranchAddress)
	assign(&order.TrackingAttachmentURL, in.TrackingAttachmentURL)

	if err := s.orders.Update(order); err != nil {
		return nil, err
	}
	return order, nil
}

func assign(dst **string, src *string) {
	if src != nil {
		*dst = src
	}
}

// UpdateProductionStatus moves a paid order through the workshop stages.
func (s *OrderService) UpdateProductionStatus(ctx context.Context, id uint, status string) (*models.Order, error) {
	order, err := s.orders.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.Status != domain.StatusPaid {
		return nil, domain.ErrOrderNotPaid
	}
	if !domain.IsValidProductionStatus(status) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidProductionStatus, status)
	}

	if order.ProductionStatus != nil {
		cur := domain.ProductionStageRank(*order.ProductionStatus)
		next := domain.ProductionStageRank(status)
		if next < cur {
			if s.cfg.EnforceProductionFlow {
				return nil, domain.ErrProductionStageBack
			}
			log.Printf("[PRODUCTION] order %s moved back from %s to %s",
				order.OrderNumber, *order.ProductionStatus, status)
		}
	}

	order.ProductionStatus = &status
	if err := s.orders.Update(order); err != nil {
		return nil, err
	}
	return order, nil
}

// FinishProduction marks the garment FINISHED and promotes the order to
// READY_FOR_SHIPMENT in one update, then mails the customer once.
func (s *OrderService) FinishProduction(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.orders.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.Status != domain.StatusPaid {
		return nil, domain.ErrOrderNotPaid
	}

	finished := domain.ProductionFinished
	order.ProductionStatus = &finished
	order.Status = domain.StatusReadyForShipment
	if err := s.orders.Update(order); err != nil {
		return nil, err
	}

	if !order.ShippedEmailSent {
		if err := s.mailer.SendProductionComplete(ctx, order); err != nil {
			log.Printf("[PRODUCTION] order %s: ready email failed: %v", order.OrderNumber, err)
		} else {
			order.ShippedEmailSent = true
			if err := s.orders.Update(order); err != nil {
				log.Printf("[PRODUCTION] order %s: could not persist email flag: %v", order.OrderNumber, err)
			}
		}
	}
	return order, nil
}
