package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AttributionClaims is the cookie-equivalent token handed back by the
// visit recorder. Its expiry equals the configured attribution window,
// so an expired token simply means the conversion is no longer
// attributable.
type AttributionClaims struct {
	VisitID  uint   `json:"visit_id"`
	LinkCode string `json:"link_code"`
	jwt.RegisteredClaims
}

// GenerateAttributionToken signs an attribution token for a visit,
// valid for the given window.
func GenerateAttributionToken(visitID uint, linkCode string, window time.Duration) (string, error) {
	if len(jwtSecret) == 0 {
		return "", fmt.Errorf("JWT secret not initialized")
	}

	now := time.Now()
	claims := &AttributionClaims{
		VisitID:  visitID,
		LinkCode: linkCode,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(window)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign attribution token: %w", err)
	}

	return tokenString, nil
}

// ParseAttributionToken validates an attribution token and returns its
// claims. Expired or malformed tokens return an error; callers treat
// that as no attribution, not a failure.
func ParseAttributionToken(tokenString string) (*AttributionClaims, error) {
	if len(jwtSecret) == 0 {
		return nil, fmt.Errorf("JWT secret not initialized")
	}

	claims := &AttributionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse attribution token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid attribution token")
	}

	return claims, nil
}
