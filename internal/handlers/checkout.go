package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/recaptcha"
)

/* =========================
   REQUEST DTOs
========================= */

type checkoutItemRequest struct {
	Type      string                 `json:"type"`
	ProductID string                 `json:"productId"`
	BundleID  string                 `json:"bundleId"`
	Title     string                 `json:"title"`
	Quantity  int                    `json:"quantity"`
	Price     float64                `json:"price"`
	Variants  map[string]interface{} `json:"variants"`
	Products  []string               `json:"products"`
}

type checkoutShippingRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Notes    string `json:"notes"`
}

type createOrderRequest struct {
	Items          []checkoutItemRequest   `json:"items"`
	ShippingInfo   checkoutShippingRequest `json:"shippingInfo"`
	Subtotal       float64                 `json:"subtotal"`
	Shipping       float64                 `json:"shipping"`
	Total          float64                 `json:"total"`
	PaymentMethod  string                  `json:"paymentMethod"`
	Status         string                  `json:"status"`
	SaveInfo       bool                    `json:"saveInfo"`
	RecaptchaToken string                  `json:"recaptchaToken"`
	IsGuest        bool                    `json:"isGuest"`
}

/* =========================
   CREATE ORDER
========================= */

// CreateOrder handles guest and authenticated checkout. Validation is
// fail-fast in a fixed order: human verification, then items, then shipping
// details. Nothing is written before every check has passed.
func CreateOrder(db *mongo.Database, provider auth.Provider, verifier recaptcha.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders"
		defer handlePanic(c, route)

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ident, err := provider.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			log.Println("[ORDER] [ERROR] token validation failed:", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		token := strings.TrimSpace(req.RecaptchaToken)
		if token == "" {
			respondWithError(c, http.StatusBadRequest, route, "verification required")
			return
		}

		verifyCtx, cancelVerify := context.WithTimeout(c.Request.Context(), 5*time.Second)
		passed, err := verifier.Verify(verifyCtx, token)
		cancelVerify()
		if err != nil {
			// Fail closed: a broken or unreachable verifier rejects the order.
			log.Println("[ORDER] [ERROR] verification call failed:", err)
			passed = false
		}
		if !passed {
			respondWithError(c, http.StatusBadRequest, route, "verification failed")
			return
		}

		order, err := buildOrderFromRequest(req, ident)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if _, err := db.Collection("orders").InsertOne(ctx, order); err != nil {
			log.Println("[ORDER] [ERROR] insert failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if !order.IsGuest && ident != nil && req.SaveInfo {
			saveShippingProfile(ctx, db, ident.UserID, order.ShippingInfo)
		}

		if order.User != nil {
			log.Println("[ORDER] [INFO] order created for user:", order.User.Hex())
		} else {
			log.Println("[ORDER] [INFO] guest order created:", order.OrderNumber)
		}

		c.JSON(http.StatusCreated, order)
	}
}

/* =========================
   BUILD ORDER
========================= */

func buildOrderFromRequest(req createOrderRequest, ident *auth.Identity) (models.Order, error) {
	if len(req.Items) == 0 {
		return models.Order{}, errors.New("no items")
	}

	if hasMissingShippingFields(req.ShippingInfo) {
		return models.Order{}, errors.New("missing shipping information")
	}

	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = models.PaymentMethodCOD
	}
	if paymentMethod != models.PaymentMethodCOD {
		return models.Order{}, errors.New("invalid payment method")
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = models.OrderStatusPending
	}
	if !models.ValidOrderStatus(status) {
		return models.Order{}, errors.New("invalid status")
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		built, err := buildOrderItem(item)
		if err != nil {
			return models.Order{}, err
		}
		items = append(items, built)
	}

	now := time.Now()
	order := models.Order{
		ID:    primitive.NewObjectID(),
		Items: items,
		ShippingInfo: models.ShippingInfo{
			FullName: strings.TrimSpace(req.ShippingInfo.FullName),
			Email:    strings.TrimSpace(req.ShippingInfo.Email),
			Phone:    strings.TrimSpace(req.ShippingInfo.Phone),
			Address:  strings.TrimSpace(req.ShippingInfo.Address),
			City:     strings.TrimSpace(req.ShippingInfo.City),
			Notes:    strings.TrimSpace(req.ShippingInfo.Notes),
		},
		Subtotal:      req.Subtotal,
		Shipping:      req.Shipping,
		Total:         req.Total,
		PaymentMethod: paymentMethod,
		Status:        status,
		IsGuest:       req.IsGuest,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// An anonymous caller is always a guest, whatever the flag said. An
	// authenticated caller who declares a guest checkout keeps the order
	// detached from the account.
	if ident == nil {
		order.IsGuest = true
	} else if !req.IsGuest {
		userID := ident.UserID
		order.User = &userID
	}

	order.OrderNumber = models.OrderNumberFromID(order.ID)

	return order, nil
}

func buildOrderItem(item checkoutItemRequest) (models.OrderItem, error) {
	if item.Quantity <= 0 {
		return models.OrderItem{}, errors.New("quantity must be greater than zero")
	}

	built := models.OrderItem{
		Type:     item.Type,
		Title:    strings.TrimSpace(item.Title),
		Quantity: item.Quantity,
		Price:    item.Price,
		Variants: item.Variants,
	}

	switch item.Type {
	case models.OrderItemProduct:
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return models.OrderItem{}, errors.New("invalid productId")
		}
		built.ProductID = &productID
	case models.OrderItemBundle:
		bundleID, err := primitive.ObjectIDFromHex(item.BundleID)
		if err != nil {
			return models.OrderItem{}, errors.New("invalid bundleId")
		}
		built.BundleID = &bundleID
		for _, raw := range item.Products {
			productID, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				return models.OrderItem{}, errors.New("invalid bundle products")
			}
			built.Products = append(built.Products, productID)
		}
	default:
		return models.OrderItem{}, errors.New("invalid item type")
	}

	return built, nil
}

func hasMissingShippingFields(info checkoutShippingRequest) bool {
	return strings.TrimSpace(info.FullName) == "" ||
		strings.TrimSpace(info.Phone) == "" ||
		strings.TrimSpace(info.Address) == "" ||
		strings.TrimSpace(info.City) == ""
}

/* =========================
   PROFILE SIDE EFFECT
========================= */

// saveShippingProfile copies the order's shipping details onto the user's
// saved profile. It takes the assembled (trimmed) shipping info so both
// writes agree. Best effort: the order already exists, so a failure here is
// logged and never surfaced to the caller.
func saveShippingProfile(ctx context.Context, db *mongo.Database, userID primitive.ObjectID, info models.ShippingInfo) {
	update := models.ProfileUpdate{
		Name:    &info.FullName,
		Phone:   &info.Phone,
		Address: &info.Address,
		City:    &info.City,
	}

	_, err := db.Collection("users").UpdateByID(ctx, userID, bson.M{
		"$set": update.SetDocument(time.Now()),
	})
	if err != nil {
		log.Println("[ORDER] [WARN] profile save failed:", err)
	}
}
