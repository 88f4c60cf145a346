package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// RoleCustomer marks tokens issued to locker users; admin tokens carry
	// the admin's role directly.
	RoleCustomer = "customer"

	tokenIssuer   = "yeslocker"
	tokenAudience = "yeslocker-app"
)

// Claims is the signed session payload for both customers and admins.
type Claims struct {
	Phone       string   `json:"phone"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	StoreID     string   `json:"store_id,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the decoded token content handed to request handlers.
type Identity struct {
	SubjectID   uuid.UUID
	Phone       string
	Name        string
	Role        string
	StoreID     *uuid.UUID
	Permissions []string
}

// GenerateToken creates a signed HS256 JWT for the given identity.
func GenerateToken(secret string, id Identity, ttl time.Duration) (string, error) {
	storeID := ""
	if id.StoreID != nil {
		storeID = id.StoreID.String()
	}

	claims := &Claims{
		Phone:       id.Phone,
		Name:        id.Name,
		Role:        id.Role,
		StoreID:     storeID,
		Permissions: id.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.SubjectID.String(),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token signature and expiry and returns the
// embedded identity.
func ParseToken(secret, tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, jwt.ErrTokenInvalidClaims
	}

	identity := &Identity{
		SubjectID:   subject,
		Phone:       claims.Phone,
		Name:        claims.Name,
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}

	if claims.StoreID != "" {
		if storeID, err := uuid.Parse(claims.StoreID); err == nil {
			identity.StoreID = &storeID
		}
	}

	return identity, nil
}
