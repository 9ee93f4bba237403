package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses. Transitions move forward only; cancellation is allowed
// from any non-terminal status.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Order item kinds.
const (
	OrderItemProduct = "product"
	OrderItemBundle  = "bundle"
)

// PaymentMethodCOD is the only supported payment method.
const PaymentMethodCOD = "COD"

// OrderItem is a line-item snapshot taken at checkout time. Product items
// carry ProductID, bundle items carry BundleID plus the bundled products.
type OrderItem struct {
	Type      string                 `bson:"type" json:"type"`
	ProductID *primitive.ObjectID    `bson:"productId,omitempty" json:"productId,omitempty"`
	BundleID  *primitive.ObjectID    `bson:"bundleId,omitempty" json:"bundleId,omitempty"`
	Title     string                 `bson:"title" json:"title"`
	Quantity  int                    `bson:"quantity" json:"quantity"`
	Price     float64                `bson:"price" json:"price"`
	Variants  map[string]interface{} `bson:"variants,omitempty" json:"variants,omitempty"`
	Products  []primitive.ObjectID   `bson:"products,omitempty" json:"products,omitempty"`
}

// ShippingInfo captures the delivery contact details for an order.
type ShippingInfo struct {
	FullName string `bson:"fullName" json:"fullName"`
	Email    string `bson:"email,omitempty" json:"email,omitempty"`
	Phone    string `bson:"phone" json:"phone"`
	Address  string `bson:"address" json:"address"`
	City     string `bson:"city" json:"city"`
	Notes    string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Order defines the persisted order document.
type Order struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	User          *primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	IsGuest       bool                `bson:"isGuest" json:"isGuest"`
	Items         []OrderItem         `bson:"items" json:"items"`
	ShippingInfo  ShippingInfo        `bson:"shippingInfo" json:"shippingInfo"`
	Subtotal      float64             `bson:"subtotal" json:"subtotal"`
	Shipping      float64             `bson:"shipping" json:"shipping"`
	Total         float64             `bson:"total" json:"total"`
	PaymentMethod string              `bson:"paymentMethod" json:"paymentMethod"`
	Status        string              `bson:"status" json:"status"`
	OrderNumber   string              `bson:"orderNumber" json:"orderNumber"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// OrderNumberFromID derives the display order number from the document id:
// "#" plus the last 6 hex characters, uppercased. It is a pure function of
// the id so the number can be recomputed without touching storage.
func OrderNumberFromID(id primitive.ObjectID) string {
	hex := id.Hex()
	return "#" + strings.ToUpper(hex[len(hex)-6:])
}

// NormalizeOrderNumber strips an optional leading "#" and uppercases the
// rest, returning the canonical stored form.
func NormalizeOrderNumber(raw string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if trimmed == "" {
		return ""
	}
	return "#" + strings.ToUpper(trimmed)
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

var statusRank = map[string]int{
	OrderStatusPending:   0,
	OrderStatusConfirmed: 1,
	OrderStatusShipped:   2,
	OrderStatusDelivered: 3,
}

// CanTransitionStatus reports whether an order may move from one status to
// the next: strictly forward through the fulfillment chain, with cancelled
// reachable from any non-terminal status. Terminal statuses (delivered,
// cancelled) cannot be left.
func CanTransitionStatus(from, to string) bool {
	if !ValidOrderStatus(from) || !ValidOrderStatus(to) || from == to {
		return false
	}
	if from == OrderStatusDelivered || from == OrderStatusCancelled {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	return statusRank[to] > statusRank[from]
}
