package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/middleware"
	"storefront/internal/models"
)

// GetWishlist returns the caller's wishlist products.
func GetWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/wishlist"
		defer handlePanic(c, route)

		ident := middleware.IdentityFrom(c)
		if ident == nil {
			respondWithError(c, http.StatusUnauthorized, route, "authentication required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": ident.UserID}).Decode(&user); err != nil {
			log.Println("[WISHLIST] [ERROR] user lookup failed:", err)
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		products := make([]models.Product, 0)
		if len(user.Wishlist) > 0 {
			cursor, err := db.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": user.Wishlist}})
			if err != nil {
				log.Println("[WISHLIST] [ERROR] products fetch failed:", err)
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			defer cursor.Close(ctx)
			if err := cursor.All(ctx, &products); err != nil {
				log.Println("[WISHLIST] [ERROR] products decode failed:", err)
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
		}

		c.JSON(http.StatusOK, products)
	}
}

// AddToWishlist adds a product to the caller's wishlist.
func AddToWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/wishlist/:productId"
		defer handlePanic(c, route)

		ident := middleware.IdentityFrom(c)
		if ident == nil {
			respondWithError(c, http.StatusUnauthorized, route, "authentication required")
			return
		}

		productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Err(); err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "product not found")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": ident.UserID}).Decode(&user); err != nil {
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusNotFound, route, "user not found")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		for _, existing := range user.Wishlist {
			if existing == productID {
				respondWithError(c, http.StatusBadRequest, route, "already in wishlist")
				return
			}
		}

		res, err := db.Collection("users").UpdateByID(ctx, ident.UserID, bson.M{
			"$addToSet": bson.M{"wishlist": productID},
			"$set":      bson.M{"updatedAt": time.Now()},
		})
		if err != nil {
			log.Println("[WISHLIST] [ERROR] add failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "added to wishlist", "wishlist": append(user.Wishlist, productID)})
	}
}

// RemoveFromWishlist removes a product from the caller's wishlist.
func RemoveFromWishlist(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/wishlist/:productId"
		defer handlePanic(c, route)

		ident := middleware.IdentityFrom(c)
		if ident == nil {
			respondWithError(c, http.StatusUnauthorized, route, "authentication required")
			return
		}

		productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("users").UpdateByID(ctx, ident.UserID, bson.M{
			"$pull": bson.M{"wishlist": productID},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
		if err != nil {
			log.Println("[WISHLIST] [ERROR] remove failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": ident.UserID}).Decode(&user); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "removed from wishlist", "wishlist": user.Wishlist})
	}
}
