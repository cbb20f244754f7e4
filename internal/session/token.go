package session

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// TokenService signs reconnect tokens. A token proves a player held a seat
// in a specific room, so a rejoin with a fresh connection id can skip the
// name-match fallback.
type TokenService struct {
	secret string
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: secret}
}

// GenerateToken signs {playerID, roomCode} with HS256.
func (s *TokenService) GenerateToken(playerID, roomCode string) (string, error) {
	if s == nil || s.secret == "" {
		return "", fmt.Errorf("token secret is not configured")
	}
	if playerID == "" {
		return "", fmt.Errorf("player id is required")
	}

	claims := jwt.MapClaims{
		"sub":  playerID,
		"room": roomCode,
		"exp":  time.Now().Add(time.Hour * 2).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// VerifyToken returns the player id a valid token was issued to, for this
// room only.
func (s *TokenService) VerifyToken(tokenString, roomCode string) (string, error) {
	if s == nil || s.secret == "" {
		return "", fmt.Errorf("token secret is not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("parse reconnect token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid reconnect token")
	}
	if room, _ := claims["room"].(string); room != roomCode {
		return "", fmt.Errorf("reconnect token is for another room")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("reconnect token has no subject")
	}
	return sub, nil
}
