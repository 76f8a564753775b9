package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/shopfox/shopfox/app/controllers"
	"github.com/shopfox/shopfox/internal/pkg/constants"
	"github.com/shopfox/shopfox/internal/pkg/database"
	"github.com/shopfox/shopfox/internal/pkg/env"
	"github.com/shopfox/shopfox/internal/pkg/middleware"
	"github.com/shopfox/shopfox/internal/pkg/payment"
	"github.com/shopfox/shopfox/internal/pkg/ratelimit"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Token parsing runs on every request; the Require* policies decide.
	app.Use(middleware.TokenAuth())

	// Checkout service with explicit store + gateway dependencies.
	controllers.InitializeCheckoutController(payment.NewServiceFromDB(
		database.GetDB(),
		payment.NewStripeClientFromEnv(),
		env.GetEnv("PAYMENT_WEBHOOK_SECRET", ""),
	))

	// Registered before the limiter group; webhook redeliveries must
	// never be throttled into gateway retry loops.
	app.Post(constants.PaymentWebhookRoute, controllers.HandlePaymentWebhook)

	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{
		Storage: ratelimit.GetStorage(),
	}))

	authGroup := api.Group(constants.AuthRoute)
	authGroup.Post("/register", controllers.HandleRegister)
	authGroup.Post("/login", controllers.HandleLogin)

	products := api.Group(constants.ProductsRoute)
	products.Get("/", controllers.HandleListProducts)
	products.Get("/:id", controllers.HandleGetProduct)
	products.Post("/", middleware.RequireAdmin, controllers.HandleCreateProduct)
	products.Put("/:id", middleware.RequireAdmin, controllers.HandleUpdateProduct)
	products.Delete("/:id", middleware.RequireAdmin, controllers.HandleDeleteProduct)

	users := api.Group(constants.UsersRoute)
	users.Get("/", middleware.RequireAdmin, controllers.HandleListUsers)
	users.Get("/stats", middleware.RequireAdmin, controllers.HandleUserStats)
	users.Get("/:id", middleware.RequireSelfOrAdmin("id"), controllers.HandleGetUser)
	users.Put("/:id", middleware.RequireSelfOrAdmin("id"), controllers.HandleUpdateUser)
	users.Delete("/:id", middleware.RequireSelfOrAdmin("id"), controllers.HandleDeleteUser)

	carts := api.Group(constants.CartsRoute)
	carts.Get("/", middleware.RequireAdmin, controllers.HandleListCarts)
	carts.Get("/:userId", middleware.RequireSelfOrAdmin("userId"), controllers.HandleGetCart)
	carts.Put("/:userId", middleware.RequireSelfOrAdmin("userId"), controllers.HandlePutCart)
	carts.Delete("/:userId", middleware.RequireSelfOrAdmin("userId"), controllers.HandleDeleteCart)

	orders := api.Group(constants.OrdersRoute)
	orders.Get("/", middleware.RequireAdmin, controllers.HandleListOrders)
	orders.Get("/income", middleware.RequireAdmin, controllers.HandleMonthlyIncome)
	orders.Get("/user/:userId", middleware.RequireSelfOrAdmin("userId"), controllers.HandleListUserOrders)
	orders.Put("/:id", middleware.RequireAdmin, controllers.HandleUpdateOrder)
	orders.Delete("/:id", middleware.RequireAdmin, controllers.HandleDeleteOrder)

	checkout := api.Group(constants.CheckoutRoute)
	checkout.Post("/sessions", middleware.RequireAuthenticated, controllers.HandleInitiateCheckout)
}
