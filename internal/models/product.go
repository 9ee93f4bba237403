package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Product is the catalog document referenced by wishlists and order items.
type Product struct {
	ID       primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title    string              `bson:"title" json:"title"`
	Price    float64             `bson:"price" json:"price"`
	Images   []string            `bson:"images" json:"images"`
	Variants map[string][]string `bson:"variants,omitempty" json:"variants,omitempty"`
	Stock    int                 `bson:"stock" json:"stock"`
}
