package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gepe/internal/domain"
	"gepe/internal/repository"
	"gepe/internal/service"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	svc    *service.OrderService
	orders *repository.OrderRepository
}

func NewOrderHandler(svc *service.OrderService, orders *repository.OrderRepository) *OrderHandler {
	return &OrderHandler{svc: svc, orders: orders}
}

// Create handles POST /orders. Resubmitting the same external_reference or
// payment_id returns the existing order with 200 instead of 201.
func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, created, err := h.svc.CreateOrder(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyOrder) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create order"})
		return
	}
	if created {
		c.JSON(http.StatusCreated, order)
		return
	}
	c.JSON(http.StatusOK, order)
}

// List handles GET /orders for the admin panel, with optional status
// filter, free-text search and pagination.
func (h *OrderHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	orders, err := h.orders.List(c.Query("status"), c.Query("search"), offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// GetByNumber handles GET /orders/by-number/:order_number. The customer
// email must match; a wrong email answers 404 so the endpoint cannot be
// used to probe order numbers.
func (h *OrderHandler) GetByNumber(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email query parameter is required"})
		return
	}

	order, err := h.orders.GetByOrderNumber(c.Param("order_number"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load order"})
		return
	}
	if order == nil || !strings.EqualFold(order.CustomerEmail, email) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListByUser handles GET /orders/user/:email.
func (h *OrderHandler) ListByUser(c *gin.Context) {
	offset, limit := pagination(c)
	orders, err := h.orders.ListByCustomerEmail(c.Param("email"), offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// GetByID handles GET /orders/:id (admin).
func (h *OrderHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	order, err := h.orders.GetByID(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load order"})
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// Update handles PATCH /orders/:id (admin).
func (h *OrderHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req service.UpdateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.svc.UpdateOrder(c.Request.Context(), uint(id), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrInvalidStatusTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update order"})
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

func pagination(c *gin.Context) (offset, limit int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return (page - 1) * limit, limit
}
