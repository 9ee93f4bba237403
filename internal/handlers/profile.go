package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/middleware"
	"storefront/internal/models"
)

type updateProfileRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	City    *string `json:"city"`
}

// GetProfile returns the caller's user document.
func GetProfile(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/users/profile"
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
			log.Println("[PROFILE] [ERROR] get profile failed:", err)
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

// UpdateProfile applies a partial update of the caller's saved contact
// details. Absent fields are left untouched.
func UpdateProfile(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/users/profile"
		defer handlePanic(c, route)

		ident := middleware.IdentityFrom(c)
		if ident == nil {
			respondWithError(c, http.StatusUnauthorized, route, "authentication required")
			return
		}

		var req updateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		update := models.ProfileUpdate{
			Name:    req.Name,
			Phone:   req.Phone,
			Address: req.Address,
			City:    req.City,
		}
		if update.IsEmpty() {
			respondWithError(c, http.StatusBadRequest, route, "no fields to update")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("users").UpdateByID(ctx, ident.UserID, bson.M{
			"$set": update.SetDocument(time.Now()),
		})
		if err != nil {
			log.Println("[PROFILE] [ERROR] update failed:", err)
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

		c.JSON(http.StatusOK, user)
	}
}
