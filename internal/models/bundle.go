package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bundle groups several products under a single price.
type Bundle struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title      string               `bson:"title" json:"title"`
	Image      string               `bson:"image" json:"image"`
	ProductIDs []primitive.ObjectID `bson:"productIds" json:"productIds"`
	Price      float64              `bson:"price" json:"price"`
	CreatedAt  time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt" json:"updatedAt"`
}
