package handler

import (
	"errors"
	"net/http"
	"strconv"

	"gepe/internal/domain"
	"gepe/internal/models"
	"gepe/internal/repository"
	"gepe/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductionHandler struct {
	svc    *service.OrderService
	orders *repository.OrderRepository
}

func NewProductionHandler(svc *service.OrderService, orders *repository.OrderRepository) *ProductionHandler {
	return &ProductionHandler{svc: svc, orders: orders}
}

// boardItem is the workshop view of a line item. No prices: the board
// hangs on a screen in the workshop.
type boardItem struct {
	ProductName string  `json:"product_name"`
	ProductSize *string `json:"product_size"`
	Quantity    int     `json:"quantity"`
}

type boardOrder struct {
	ID            uint        `json:"id"`
	OrderNumber   string      `json:"order_number"`
	CustomerName  *string     `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	CreatedAt     string      `json:"created_at"`
	Items         []boardItem `json:"items"`
}

// Board handles GET /orders/production: paid and ready-for-shipment
// orders grouped by workshop stage, oldest first within each stage.
func (h *ProductionHandler) Board(c *gin.Context) {
	paid, err := h.orders.ListByStatuses([]string{domain.StatusPaid, domain.StatusReadyForShipment})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load production board"})
		return
	}

	board := make(map[string][]boardOrder, len(domain.ProductionStatuses))
	for _, stage := range domain.ProductionStatuses {
		board[stage] = []boardOrder{}
	}
	for i := range paid {
		order := &paid[i]
		stage := domain.ProductionWaitingFabric
		if order.ProductionStatus != nil && *order.ProductionStatus != "" {
			stage = *order.ProductionStatus
		}
		board[stage] = append(board[stage], toBoardOrder(order))
	}
	c.JSON(http.StatusOK, gin.H{"stages": domain.ProductionStatuses, "board": board})
}

func toBoardOrder(order *models.Order) boardOrder {
	b := boardOrder{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		CreatedAt:     order.CreatedAt.Format("2006-01-02 15:04"),
	}
	for _, it := range order.Items {
		b.Items = append(b.Items, boardItem{
			ProductName: it.ProductName,
			ProductSize: it.ProductSize,
			Quantity:    it.Quantity,
		})
	}
	return b
}

type updateProductionRequest struct {
	ProductionStatus string `json:"production_status" binding:"required"`
}

// UpdateStatus handles PATCH /orders/:id/production-status.
func (h *ProductionHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req updateProductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.svc.UpdateProductionStatus(c.Request.Context(), uint(id), req.ProductionStatus)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrOrderNotPaid), errors.Is(err, domain.ErrProductionStageBack):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrInvalidProductionStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update production status"})
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

// Finish handles POST /orders/:id/finish-production.
func (h *ProductionHandler) Finish(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.svc.FinishProduction(c.Request.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrOrderNotPaid):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not finish production"})
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

// ProductionStats handles GET /orders/stats/production: garment counts per
// workshop stage.
func (h *ProductionHandler) ProductionStats(c *gin.Context) {
	paid, err := h.orders.ListByStatus(domain.StatusPaid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load production stats"})
		return
	}

	stageOrders := make(map[string]int, len(domain.ProductionStatuses))
	stageUnits := make(map[string]int, len(domain.ProductionStatuses))
	for _, stage := range domain.ProductionStatuses {
		stageOrders[stage] = 0
		stageUnits[stage] = 0
	}
	for i := range paid {
		order := &paid[i]
		stage := domain.ProductionWaitingFabric
		if order.ProductionStatus != nil && *order.ProductionStatus != "" {
			stage = *order.ProductionStatus
		}
		stageOrders[stage]++
		for _, it := range order.Items {
			stageUnits[stage] += it.Quantity
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"orders_in_production": len(paid),
		"orders_per_stage":     stageOrders,
		"units_per_stage":      stageUnits,
	})
}

// PaymentStats handles GET /orders/stats/payments: order counts per status
// plus total revenue. Revenue counts an order from payment through
// delivery; pending, cancelled and refunded orders are excluded.
func (h *ProductionHandler) PaymentStats(c *gin.Context) {
	counts, err := h.orders.CountByStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load payment stats"})
		return
	}
	revenue, err := h.orders.RevenueTotal(domain.RevenueStatuses)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load payment stats"})
		return
	}

	var paidCount int64
	for _, s := range domain.RevenueStatuses {
		paidCount += counts[s]
	}
	c.JSON(http.StatusOK, gin.H{
		"orders_by_status": counts,
		"paid_orders":      paidCount,
		"total_revenue":    revenue,
	})
}
