package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents the application user account.
type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email        string               `bson:"email" json:"email"`
	PasswordHash string               `bson:"passwordHash,omitempty" json:"-"`
	Name         string               `bson:"name" json:"name"`
	Phone        string               `bson:"phone,omitempty" json:"phone,omitempty"`
	Address      string               `bson:"address,omitempty" json:"address,omitempty"`
	City         string               `bson:"city,omitempty" json:"city,omitempty"`
	Wishlist     []primitive.ObjectID `bson:"wishlist" json:"wishlist"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// ProfileUpdate is a partial update of the user's saved contact details.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name    *string
	Phone   *string
	Address *string
	City    *string
}

// IsEmpty reports whether no field is set.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Address == nil && p.City == nil
}

// SetDocument builds the $set document for the update, always bumping
// updatedAt.
func (p ProfileUpdate) SetDocument(now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	if p.Address != nil {
		set["address"] = *p.Address
	}
	if p.City != nil {
		set["city"] = *p.City
	}
	return set
}
