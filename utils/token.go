package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type JwtCustomClaim struct {
	TenantId string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

func getJwtSecret() string {
	return strings.TrimSpace(os.Getenv("API_SECRET"))
}

// JwtSecretConfigured reports whether bearer tokens are required.
func JwtSecretConfigured() bool {
	return getJwtSecret() != ""
}

func JwtGenerate(tenantId string, role string, lifespan time.Duration) (string, error) {
	secret := getJwtSecret()
	if secret == "" {
		return "", errors.New("API_SECRET is not set")
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		TenantId: tenantId,
		Role:     role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(lifespan).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})

	return t.SignedString([]byte(secret))
}

func JwtValidate(token string) (*JwtCustomClaim, error) {
	secret := getJwtSecret()
	parsed, err := jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid {
		return nil, ErrorUnauthorized
	}
	return claims, nil
}
