package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is the resolved caller of a request.
type Identity struct {
	UserID primitive.ObjectID
	Email  string
	Role   string
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == "admin"
}

// Provider resolves an Authorization header to a caller identity. A missing
// header resolves to (nil, nil): the caller is anonymous. A header that is
// present but cannot be validated is an error.
type Provider interface {
	Resolve(ctx context.Context, authorization string) (*Identity, error)
}

var (
	ErrInvalidToken = errors.New("invalid token")
)

// JWTProvider validates HMAC-signed bearer tokens carrying an "id" claim and
// optional "email"/"role" claims.
type JWTProvider struct {
	secret []byte
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

func (p *JWTProvider) Resolve(_ context.Context, authorization string) (*Identity, error) {
	raw := strings.TrimSpace(authorization)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	idValue, ok := claims["id"].(string)
	if !ok || strings.TrimSpace(idValue) == "" {
		return nil, ErrInvalidToken
	}

	userID, err := primitive.ObjectIDFromHex(idValue)
	if err != nil {
		return nil, ErrInvalidToken
	}

	ident := &Identity{UserID: userID}
	if email, ok := claims["email"].(string); ok {
		ident.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		ident.Role = role
	}
	return ident, nil
}
