package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/shopfox/shopfox/app/models"
	"github.com/shopfox/shopfox/app/repository"
	"github.com/shopfox/shopfox/internal/pkg/mail"
)

type updateOrderRequest struct {
	Status string `json:"status"`
}

var allowedOrderStatuses = map[string]bool{
	models.OrderStatusCreated:   true,
	models.OrderStatusShipped:   true,
	models.OrderStatusDelivered: true,
	models.OrderStatusCancelled: true,
}

// HandleListUserOrders returns a user's orders; gated self-or-admin so a
// subject can only list their own orders unless admin.
func HandleListUserOrders(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	orders, err := repository.GetGlobalFactory().GetOrderRepository().ListByUserID(userID)
	if err != nil {
		return internalError(c, "Failed to list orders")
	}
	return c.JSON(orders)
}

// HandleListOrders returns all orders; admin only.
func HandleListOrders(c *fiber.Ctx) error {
	offset, limit := pagination(c)

	orders, err := repository.GetGlobalFactory().GetOrderRepository().List(offset, limit)
	if err != nil {
		return internalError(c, "Failed to list orders")
	}
	return c.JSON(orders)
}

// HandleUpdateOrder updates fulfillment status; admin only. Order contents
// are immutable after materialization.
func HandleUpdateOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid order id")
	}

	var req updateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if !allowedOrderStatuses[req.Status] {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "Unknown order status"})
	}

	repo := repository.GetGlobalFactory().GetOrderRepository()
	if _, err := repo.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Order not found")
		}
		return internalError(c, "Failed to load order")
	}

	if err := repo.UpdateStatus(id, req.Status); err != nil {
		return internalError(c, "Failed to update order")
	}

	order, err := repo.GetByID(id)
	if err != nil {
		return internalError(c, "Failed to load order")
	}

	notifyOrderStatus(order)

	return c.JSON(order)
}

// notifyOrderStatus emails the order's owner about a fulfillment change.
// Best effort, runs detached.
func notifyOrderStatus(order *models.Order) {
	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(order.UserID)
	if err != nil {
		logError("failed to load user %d for order notification: %v", order.UserID, err)
		return
	}
	go func(email, orderID, status string) {
		body := "<p>Your order " + orderID + " is now: " + status + ".</p>"
		_ = mail.SendMail(email, "Order update", body)
	}(user.Email, order.OrderID, order.Status)
}

// HandleDeleteOrder removes an order record; admin only.
func HandleDeleteOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid order id")
	}

	if err := repository.GetGlobalFactory().GetOrderRepository().Delete(id); err != nil {
		return internalError(c, "Failed to delete order")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleMonthlyIncome returns revenue per month for the last year; admin
// only.
func HandleMonthlyIncome(c *fiber.Ctx) error {
	since := time.Now().AddDate(-1, 0, 0)
	rows, err := repository.GetGlobalFactory().GetOrderRepository().MonthlyIncome(since)
	if err != nil {
		return internalError(c, "Failed to load income statistics")
	}

	income := make([]fiber.Map, 0, len(rows))
	for _, row := range rows {
		income = append(income, fiber.Map{"month": row.Month, "total": row.Total})
	}
	return c.JSON(fiber.Map{"income": income})
}
