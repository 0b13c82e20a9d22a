// Package security provides the token gate for the bridge event socket.
// The embedded server listens on loopback only, but any local process can
// reach loopback; the token proves a connection originates from the web
// layer this process started.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const bridgeScope = "bridge"

// IssueBridgeToken creates a signed token the host hands to the web layer
// at startup.
func IssueBridgeToken(jwtSecret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"scope": bridgeScope,
		"iat":   time.Now().UTC().Unix(),
		"exp":   time.Now().UTC().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// ValidateBridgeToken validates a token and returns its claims.
func ValidateBridgeToken(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if scope, _ := claims["scope"].(string); scope != bridgeScope {
		return nil, errors.New("token lacks bridge scope")
	}
	return claims, nil
}
