package delivery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
	"marketplace/internal/idempotency"
	"marketplace/internal/usecase"
)

type OrderHandler struct {
	useCase usecase.OrderUseCase
	log     *logrus.Logger
}

func NewOrderHandler(uc usecase.OrderUseCase, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *OrderHandler) RegisterRoutes(router gin.IRouter) {
	orders := router.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("/customer", h.ListCustomerOrders)
		orders.GET("/vendor", h.ListVendorOrders)
		orders.GET("/:id", h.GetOrderByID)
		orders.PUT("/:id/status", h.UpdateOrderStatus)
	}
}

type statusRequest struct {
	Status *domain.OrderStatus `json:"status"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	caller := callerFrom(c)

	var req domain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for create order (user %d): %v", caller.ID, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := h.useCase.CreateOrder(c.Request.Context(), caller, req, c.GetHeader(idempotency.Header))
	if err != nil {
		h.log.Warnf("Failed to create order for user %d: %v", caller.ID, err)
		failWithError(c, "Failed to create order", err)
		return
	}

	h.log.Infof("Order %d created for user %d", order.ID, caller.ID)
	SuccessResponse(c, http.StatusCreated, "Order created successfully", order)
}

func (h *OrderHandler) ListCustomerOrders(c *gin.Context) {
	caller := callerFrom(c)
	orders, err := h.useCase.ListCustomerOrders(c.Request.Context(), caller)
	if err != nil {
		failWithError(c, "Failed to retrieve orders", err)
		return
	}
	if len(orders) == 0 {
		SuccessResponse(c, http.StatusOK, "No orders found for this user", []domain.Order{})
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) ListVendorOrders(c *gin.Context) {
	caller := callerFrom(c)
	orders, err := h.useCase.ListVendorOrders(c.Request.Context(), caller)
	if err != nil {
		failWithError(c, "Failed to retrieve orders", err)
		return
	}
	if len(orders) == 0 {
		SuccessResponse(c, http.StatusOK, "No orders found for this vendor", []domain.Order{})
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	caller := callerFrom(c)

	order, err := h.useCase.GetOrder(c.Request.Context(), caller, id)
	if err != nil {
		h.log.Warnf("Failed to get order %d (requested by user %d): %v", id, caller.ID, err)
		failWithError(c, "Failed to retrieve order", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order retrieved successfully", order)
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	status, ok := bindStatus(c)
	if !ok {
		return
	}
	caller := callerFrom(c)
	h.log.Infof("User %d attempting to update status for order %d to '%s'", caller.ID, id, status)

	order, err := h.useCase.UpdateOrderStatus(c.Request.Context(), caller, id, status)
	if err != nil {
		h.log.Warnf("Failed to update status for order %d (requested by user %d): %v", id, caller.ID, err)
		failWithError(c, "Failed to update order status", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order status updated successfully", order)
}

func parseID(c *gin.Context) (int, bool) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return 0, false
	}
	return id, true
}

func bindStatus(c *gin.Context) (domain.OrderStatus, bool) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return "", false
	}
	if req.Status == nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: 'status' field is required")
		return "", false
	}
	return *req.Status, true
}
