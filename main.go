package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/recaptcha"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("⚠️ user index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("⚠️ order index warning: %v", err)
	}

	provider := auth.NewJWTProvider(config.AppEnv.JWTSecret)
	verifier := recaptcha.NewClient(config.AppEnv.RecaptchaSecret, config.AppEnv.VerifyTimeout)

	r := gin.Default()

	r.POST("/api/orders", handlers.CreateOrder(db, provider, verifier))
	r.POST("/api/orders/guest-lookup", handlers.GuestOrderLookup(db))

	user := r.Group("/api")
	user.Use(middleware.RequireUser(provider))
	{
		user.GET("/orders/myorders", handlers.GetMyOrders(db))
		user.GET("/orders/:id", handlers.GetOrderByID(db))

		user.GET("/users/profile", handlers.GetProfile(db))
		user.PUT("/users/profile", handlers.UpdateProfile(db))

		user.GET("/wishlist", handlers.GetWishlist(db))
		user.POST("/wishlist/:productId", handlers.AddToWishlist(db))
		user.DELETE("/wishlist/:productId", handlers.RemoveFromWishlist(db))
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.RequireAdmin(provider))
	{
		admin.PATCH("/orders/:id/status", handlers.UpdateOrderStatus(db))
		admin.DELETE("/orders/:id", handlers.DeleteOrder(db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
