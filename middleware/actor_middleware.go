package middleware

import (
	authutils "proposal-pipeline-backend/lib/utils/auth-utils"
	"proposal-pipeline-backend/models"
	apimodels "proposal-pipeline-backend/models/api"

	"github.com/gofiber/fiber/v2"
)

func GetUserID(ctx *fiber.Ctx) string {
	claims := authutils.GetClaims(ctx)
	if sub, exist := claims["sub"]; exist {
		if stringSub, ok := sub.(string); ok {
			return stringSub
		}
	}
	return ""
}

func GetPartyRole(ctx *fiber.Ctx) models.PartyRole {
	claims := authutils.GetClaims(ctx)
	if role, exist := claims["role"]; exist {
		if stringRole, ok := role.(string); ok && stringRole != "" {
			return models.PartyRole(stringRole)
		}
	}
	return ""
}

func IsAdmin(ctx *fiber.Ctx) bool {
	claims := authutils.GetClaims(ctx)
	admin, ok := claims["admin"].(bool)
	return ok && admin
}

func GetActor(ctx *fiber.Ctx) models.Actor {
	return models.Actor{
		ID:   GetUserID(ctx),
		Role: GetPartyRole(ctx),
	}
}

// PartyRequired токен должен содержать пользователя и известную роль участника.
// Токен оператора (admin) пропускается без роли: ему нужны только маршруты админки.
func PartyRequired() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if IsAdmin(ctx) {
			return ctx.Next()
		}
		if GetUserID(ctx) == "" || !GetPartyRole(ctx).IsValid() {
			return ctx.Status(fiber.StatusForbidden).JSON(apimodels.NewError("операция недоступна"))
		}
		return ctx.Next()
	}
}
