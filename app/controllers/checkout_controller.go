package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/shopfox/shopfox/app/repository"
	"github.com/shopfox/shopfox/internal/pkg/payment"
	"github.com/shopfox/shopfox/internal/pkg/principal"
)

// Signature header the gateway sets on webhook deliveries.
const webhookSignatureHeader = "X-Payment-Signature"

var checkoutService *payment.Service

// InitializeCheckoutController injects the checkout service used by the
// checkout and webhook handlers.
func InitializeCheckoutController(svc *payment.Service) {
	checkoutService = svc
}

type initiateCheckoutRequest struct {
	Currency string `json:"currency"`
}

// HandleInitiateCheckout starts a payment session for the caller's current
// cart. The amount is computed from the server-side cart; any total in the
// request body is ignored.
func HandleInitiateCheckout(c *fiber.Ctx) error {
	p := principal.FromCtx(c)
	if p == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated", "message": "Missing or invalid credential"})
	}

	var req initiateCheckoutRequest
	// Body is optional; only the currency is honored from it.
	_ = c.BodyParser(&req)

	cart, err := repository.GetGlobalFactory().GetCartRepository().GetByUserID(p.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid_cart", "message": "Cart is empty"})
		}
		return internalError(c, "Failed to load cart")
	}

	lines := make([]payment.CartLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, payment.CartLine{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	handle, err := checkoutService.InitiateCheckout(c.Context(), p.UserID, lines, req.Currency)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidCart):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid_cart", "message": err.Error()})
		case errors.Is(err, payment.ErrGateway):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "gateway_error", "message": "Payment provider is unavailable, please retry"})
		default:
			return internalError(c, "Checkout initiation failed")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(handle)
}

// HandlePaymentWebhook receives asynchronous payment notifications from the
// gateway. Delivery is at-least-once; the service is idempotent, so a
// rejected delivery may safely be retried by the gateway.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get(webhookSignatureHeader)

	ack, err := checkoutService.HandlePaymentEvent(c.Context(), rawBody, signature)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
		case errors.Is(err, payment.ErrUnknownSession):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_session"})
		default:
			logError("payment webhook processing failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
		}
	}

	return c.JSON(fiber.Map{"ok": true, "duplicate": ack.Duplicate, "ignored": ack.Ignored, "order_id": ack.OrderID})
}
