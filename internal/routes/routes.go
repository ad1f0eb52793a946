package routes

import (
	"boutique_back_end/internal/handlers"
	"boutique_back_end/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// Auth
	api.POST("/register", middleware.RegisterRateLimit(), handlers.Register)
	api.POST("/login", middleware.LoginRateLimit(), handlers.Login)

	// Catalogue (lecture publique)
	api.GET("/products", handlers.GetProducts)
	api.GET("/products/search", handlers.SearchProducts)
	api.GET("/products/:id", handlers.GetProduct)
	api.POST("/products/:id/image", middleware.AuthRequired(), handlers.UploadProductImage)

	// Paniers
	auth := api.Group("", middleware.AuthRequired())
	auth.GET("/carts/:userId", middleware.RequireSameUser("userId"), handlers.GetCarts)
	auth.POST("/carts", handlers.CreateCart)
	auth.DELETE("/carts/:cartId", handlers.DeleteCart)
	auth.GET("/cartitems/:cartId", handlers.GetCartItems)
	auth.POST("/cartitems", handlers.UpsertCartItem)
	auth.DELETE("/cartitems/:cartId/:productId", handlers.DeleteCartItem)
	auth.GET("/cart/ws", handlers.CartWebSocket)

	// Paiement & commandes
	auth.POST("/create-payment-intent", handlers.CreatePaymentIntent)
	auth.POST("/orders", handlers.CreateOrder)
	auth.GET("/orders/:userId", middleware.RequireSameUser("userId"), handlers.GetOrders)

	// Webhook Stripe (signé, pas de JWT)
	api.POST("/stripe/webhook", handlers.StripeWebhook)
}
