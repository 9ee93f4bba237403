package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/middleware"
	"storefront/internal/models"
)

/* =========================
   MY ORDERS
========================= */

// GetMyOrders lists the caller's orders, newest first.
func GetMyOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/myorders"
		defer handlePanic(c, route)

		ident := middleware.IdentityFrom(c)
		if ident == nil {
			respondWithError(c, http.StatusUnauthorized, route, "authentication required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := db.Collection("orders").Find(ctx, bson.M{"user": ident.UserID}, opts)
		if err != nil {
			log.Println("[ORDER] [ERROR] list orders failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			log.Println("[ORDER] [ERROR] decode orders failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, orders)
	}
}

/* =========================
   GET ORDER BY ID
========================= */

// GetOrderByID returns a single order. A missing order is 404; an order
// owned by a different user is 403. Ownerless guest orders are returned
// to any authenticated caller holding the id.
func GetOrderByID(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/:id"
		defer handlePanic(c, route)

		ident := middleware.IdentityFrom(c)
		if ident == nil {
			respondWithError(c, http.StatusUnauthorized, route, "authentication required")
			return
		}

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			// A malformed id cannot resolve to any stored order.
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "order not found")
				return
			}
			log.Println("[ORDER] [ERROR] get order failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if order.User != nil && *order.User != ident.UserID {
			respondWithError(c, http.StatusForbidden, route, "not authorized")
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

/* =========================
   GUEST LOOKUP
========================= */

type guestLookupRequest struct {
	OrderNumber string `json:"orderNumber" binding:"required"`
	Email       string `json:"email" binding:"required"`
}

// GuestOrderLookup finds a guest order by display order number and the exact
// email given at checkout. The filter is deliberately narrow so account
// orders cannot be enumerated by guessing order numbers.
func GuestOrderLookup(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders/guest-lookup"
		defer handlePanic(c, route)

		var req guestLookupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		orderNumber := models.NormalizeOrderNumber(req.OrderNumber)
		email := strings.TrimSpace(req.Email)
		if orderNumber == "" || email == "" {
			respondWithError(c, http.StatusBadRequest, route, "orderNumber and email are required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		err := db.Collection("orders").FindOne(ctx, bson.M{
			"orderNumber":        orderNumber,
			"shippingInfo.email": email,
			"isGuest":            true,
		}).Decode(&order)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "order not found")
				return
			}
			log.Println("[ORDER] [ERROR] guest lookup failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, order)
	}
}
