package authutils

import (
	"time"

	"proposal-pipeline-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// GetToken токен участника; выдается внешним сервисом авторизации, здесь нужен для служебных вызовов и тестов
func GetToken(secret string, actor models.Actor, isAdmin bool, ttl time.Duration) (tokenString string, err error) {
	claims := jwt.MapClaims{
		"sub":   actor.ID,
		"role":  string(actor.Role),
		"admin": isAdmin,
		"exp":   time.Now().Add(ttl).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func GetClaims(ctx *fiber.Ctx) jwt.MapClaims {
	token, ok := ctx.Locals("user").(*jwt.Token)
	if !ok {
		return jwt.MapClaims{}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return jwt.MapClaims{}
	}
	return claims
}
