package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const trackingScope = "order:track"

// TrackingClaims authorize a customer to read one order and follow its status.
type TrackingClaims struct {
	OrderID int64  `json:"orderId"`
	Scope   string `json:"scope"`
	jwt.RegisteredClaims
}

func ParseBearerToken(authHeader string) string {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// IssueTrackingToken signs an HS256 token bound to orderID.
func IssueTrackingToken(secret string, orderID int64, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("tracking secret required")
	}
	claims := TrackingClaims{
		OrderID: orderID,
		Scope:   trackingScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(orderID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifyTrackingToken checks signature, expiry, scope and that the token was
// issued for orderID.
func VerifyTrackingToken(tokenString, secret string, orderID int64) (*TrackingClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token required")
	}

	claims := &TrackingClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, errors.New("token expired")
	}
	if claims.Scope != trackingScope || claims.OrderID != orderID {
		return nil, errors.New("token does not match order")
	}
	return claims, nil
}
