package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/SravanamCharan20/CodeClash/domain"
	"github.com/golang-jwt/jwt/v5"
)

// The account service signs tokens with the user id under "_id".
type jwtCustomClaims struct {
	UserId string `json:"_id"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secretKey []byte
	maxAge    time.Duration
}

func NewJWTManager(secretKey string, maxAge time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		maxAge:    maxAge,
	}
}

func (m *JWTManager) Generate(userId string, now time.Time) (string, error) {
	claims := jwtCustomClaims{
		UserId: userId,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTokenGeneration, err)
	}

	return signedToken, nil
}

// Verify returns the user id carried by a valid token.
func (m *JWTManager) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtCustomClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidSigningMethod
		}
		return m.secretKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSigningMethod):
			return "", domain.ErrInvalidSigningMethod
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", domain.ErrExpiredToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return "", domain.ErrInvalidTokenSignature
		default:
			return "", domain.ErrCorruptedToken
		}
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid || claims.UserId == "" {
		return "", domain.ErrCorruptedToken
	}

	return claims.UserId, nil
}
