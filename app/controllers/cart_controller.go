package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/shopfox/shopfox/app/models"
	"github.com/shopfox/shopfox/app/repository"
)

type putCartRequest struct {
	Items []putCartItem `json:"items"`
}

type putCartItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// HandleGetCart returns a user's cart; gated self-or-admin.
func HandleGetCart(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	cart, err := repository.GetGlobalFactory().GetCartRepository().GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(models.Cart{UserID: userID, Items: []models.CartItem{}})
		}
		return internalError(c, "Failed to load cart")
	}

	return c.JSON(cart)
}

// HandlePutCart replaces the cart's item set. Prices and titles are read from
// the live catalog, never from the request; a client cannot write its own
// prices into the cart.
func HandlePutCart(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	var req putCartRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	products := repository.GetGlobalFactory().GetProductRepository()
	items := make([]models.CartItem, 0, len(req.Items))
	for _, in := range req.Items {
		if in.Quantity < 1 {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "Quantity must be at least 1"})
		}
		product, err := products.GetByID(in.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(c, "Product not found")
			}
			return internalError(c, "Failed to load product")
		}
		items = append(items, models.CartItem{
			ProductID: product.ID,
			Title:     product.Title,
			Price:     product.Price,
			Quantity:  in.Quantity,
		})
	}

	carts := repository.GetGlobalFactory().GetCartRepository()
	cart, err := carts.GetOrCreateByUserID(userID)
	if err != nil {
		return internalError(c, "Failed to load cart")
	}
	if err := carts.ReplaceItems(cart.ID, items); err != nil {
		return internalError(c, "Failed to update cart")
	}

	updated, err := carts.GetByUserID(userID)
	if err != nil {
		return internalError(c, "Failed to load cart")
	}
	return c.JSON(updated)
}

// HandleDeleteCart empties and removes a user's cart; gated self-or-admin.
func HandleDeleteCart(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	carts := repository.GetGlobalFactory().GetCartRepository()
	cart, err := carts.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{"ok": true})
		}
		return internalError(c, "Failed to load cart")
	}

	if err := carts.Delete(cart.ID); err != nil {
		return internalError(c, "Failed to delete cart")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleListCarts returns all carts; admin only.
func HandleListCarts(c *fiber.Ctx) error {
	offset, limit := pagination(c)

	carts, err := repository.GetGlobalFactory().GetCartRepository().List(offset, limit)
	if err != nil {
		return internalError(c, "Failed to list carts")
	}
	return c.JSON(carts)
}
