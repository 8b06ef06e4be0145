package delivery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
	"marketplace/internal/usecase"
)

type AdminHandler struct {
	useCase usecase.AdminUseCase
	log     *logrus.Logger
}

func NewAdminHandler(uc usecase.AdminUseCase, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *AdminHandler) RegisterRoutes(router gin.IRouter) {
	admin := router.Group("/admin")
	{
		admin.GET("/orders", h.ListAllOrders)
		admin.PUT("/orders/:id/status", h.OverrideOrderStatus)
		admin.GET("/logs", h.ListLogs)
	}
}

func (h *AdminHandler) OverrideOrderStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	status, ok := bindStatus(c)
	if !ok {
		return
	}
	caller := callerFrom(c)

	order, err := h.useCase.OverrideOrderStatus(c.Request.Context(), caller, id, status)
	if err != nil {
		h.log.Warnf("Admin %d failed to override status of order %d: %v", caller.ID, id, err)
		failWithError(c, "Failed to update order status", err)
		return
	}
	h.log.Infof("Admin %d set order %d to '%s'", caller.ID, id, order.Status)
	SuccessResponse(c, http.StatusOK, "Order status updated successfully", order)
}

func (h *AdminHandler) ListLogs(c *gin.Context) {
	limit, _ := parsePage(c)

	logs, err := h.useCase.ListAdminLogs(c.Request.Context(), callerFrom(c), limit)
	if err != nil {
		failWithError(c, "Failed to retrieve admin logs", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Admin logs retrieved successfully", logs)
}

func (h *AdminHandler) ListAllOrders(c *gin.Context) {
	limit, offset := parsePage(c)

	orders, err := h.useCase.ListAllOrders(c.Request.Context(), callerFrom(c), limit, offset)
	if err != nil {
		failWithError(c, "Failed to retrieve orders", err)
		return
	}
	if len(orders) == 0 {
		SuccessResponse(c, http.StatusOK, "No orders found", []domain.Order{})
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

// parsePage reads ?limit= and ?offset=; malformed values fall back to the defaults.
func parsePage(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = 0
	}
	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil {
		offset = 0
	}
	return domain.NormalizePage(limit, offset)
}
