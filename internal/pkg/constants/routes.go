package constants

// Static route constants
const (
	APIRoute      = "/api"
	AuthRoute     = "/auth"
	ProductsRoute = "/products"
	UsersRoute    = "/users"
	CartsRoute    = "/carts"
	OrdersRoute   = "/orders"
	CheckoutRoute = "/checkout"
	// Registered ahead of the rate-limited API group so gateway
	// redeliveries are never throttled
	PaymentWebhookRoute = "/api/checkout/webhook"
)
