package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/shopfox/shopfox/app/models"
	"github.com/shopfox/shopfox/app/repository"
	"github.com/shopfox/shopfox/internal/pkg/cache"
	"github.com/shopfox/shopfox/internal/pkg/metrics/counter"
)

const (
	productCacheTTL        = 5 * time.Minute
	productCacheKeyPrefix  = "product:"
	productListCachePrefix = "products:"
)

// HandleGetProduct returns a single catalog product; public, cached.
func HandleGetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid product id")
	}

	// View counting happens in Redis and is flushed in batches, so cache
	// hits still count.
	if err := counter.AddProductView(id); err != nil {
		logError("failed to count product view: %v", err)
	}

	cacheKey := fmt.Sprintf("%s%d", productCacheKeyPrefix, id)
	if cached, err := cache.Get(cacheKey); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	product, err := repository.GetGlobalFactory().GetProductRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Product not found")
		}
		return internalError(c, "Failed to load product")
	}

	if body, err := json.Marshal(product); err == nil {
		_ = cache.Set(cacheKey, string(body), productCacheTTL)
	}
	return c.JSON(product)
}

// HandleListProducts returns the catalog; supports ?category= and ?new=true
// like the public storefront expects. Responses are cached per query shape.
func HandleListProducts(c *fiber.Ctx) error {
	category := c.Query("category")
	newest := c.Query("new") == "true"
	offset, limit := pagination(c)

	cacheKey := fmt.Sprintf("%scat=%s:new=%t:off=%d", productListCachePrefix, category, newest, offset)
	if cached, err := cache.Get(cacheKey); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	repo := repository.GetGlobalFactory().GetProductRepository()
	var (
		products []models.Product
		err      error
	)
	switch {
	case newest:
		products, err = repo.ListNewest(5)
	case category != "":
		products, err = repo.ListByCategory(category, offset, limit)
	default:
		products, err = repo.List(offset, limit)
	}
	if err != nil {
		return internalError(c, "Failed to list products")
	}

	if body, err := json.Marshal(products); err == nil {
		_ = cache.Set(cacheKey, string(body), productCacheTTL)
	}
	return c.JSON(products)
}

// HandleCreateProduct adds a catalog product; admin only.
func HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return badRequest(c, "Invalid request body")
	}
	product.ID = 0

	if err := product.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	if err := repository.GetGlobalFactory().GetProductRepository().Create(&product); err != nil {
		return internalError(c, "Failed to create product")
	}
	invalidateProductCache(product.ID)

	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct updates a catalog product; admin only.
func HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid product id")
	}

	repo := repository.GetGlobalFactory().GetProductRepository()
	product, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Product not found")
		}
		return internalError(c, "Failed to load product")
	}

	if err := c.BodyParser(product); err != nil {
		return badRequest(c, "Invalid request body")
	}
	product.ID = id

	if err := product.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := repo.Update(product); err != nil {
		return internalError(c, "Failed to update product")
	}
	invalidateProductCache(id)

	return c.JSON(product)
}

// HandleDeleteProduct removes a catalog product; admin only.
func HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid product id")
	}

	if err := repository.GetGlobalFactory().GetProductRepository().Delete(id); err != nil {
		return internalError(c, "Failed to delete product")
	}
	invalidateProductCache(id)

	return c.JSON(fiber.Map{"ok": true})
}

func invalidateProductCache(id uint) {
	_ = cache.Delete(fmt.Sprintf("%s%d", productCacheKeyPrefix, id))
	if err := cache.DeleteByPattern(productListCachePrefix + "*"); err != nil {
		logError("failed to invalidate product list cache: %v", err)
	}
}
