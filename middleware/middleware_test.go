package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	authutils "proposal-pipeline-backend/lib/utils/auth-utils"
	"proposal-pipeline-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(AuthorizationRequired(testSecret))
	app.Get("/me", PartyRequired(), func(ctx *fiber.Ctx) error {
		actor := GetActor(ctx)
		return ctx.SendString(actor.ID + ":" + string(actor.Role))
	})
	app.Get("/admin", AdminRequired(), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, path, token string) *http.Response {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthorization(t *testing.T) {
	app := newTestApp()

	t.Run("без токена", func(t *testing.T) {
		resp := doRequest(t, app, "/me", "")
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("чужая подпись", func(t *testing.T) {
		token, err := authutils.GetToken("other", models.Actor{ID: "c1", Role: models.PartyCandidate}, false, time.Hour)
		require.NoError(t, err)
		resp := doRequest(t, app, "/me", token)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("участник из claims", func(t *testing.T) {
		token, err := authutils.GetToken(testSecret, models.Actor{ID: "c1", Role: models.PartyCandidate}, false, time.Hour)
		require.NoError(t, err)
		resp := doRequest(t, app, "/me", token)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "c1:candidate", string(body))
	})

	t.Run("неизвестная роль", func(t *testing.T) {
		token, err := authutils.GetToken(testSecret, models.Actor{ID: "x", Role: "auditor"}, false, time.Hour)
		require.NoError(t, err)
		resp := doRequest(t, app, "/me", token)
		require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("админ", func(t *testing.T) {
		user, err := authutils.GetToken(testSecret, models.Actor{ID: "r1", Role: models.PartyRecruiter}, false, time.Hour)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusForbidden, doRequest(t, app, "/admin", user).StatusCode)

		admin, err := authutils.GetToken(testSecret, models.Actor{ID: "r1", Role: models.PartyRecruiter}, true, time.Hour)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusNoContent, doRequest(t, app, "/admin", admin).StatusCode)
	})
}

func TestOperatorWithoutPartyRole(t *testing.T) {
	app := fiber.New()
	app.Use(AuthorizationRequired(testSecret))
	app.Use(PartyRequired())
	app.Get("/admin/sweeps", AdminRequired(), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	})

	operator, err := authutils.GetToken(testSecret, models.Actor{ID: "ops"}, true, time.Hour)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, doRequest(t, app, "/admin/sweeps", operator).StatusCode)

	noRole, err := authutils.GetToken(testSecret, models.Actor{ID: "ops"}, false, time.Hour)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, doRequest(t, app, "/admin/sweeps", noRole).StatusCode)
}

func TestWithBodyLimit(t *testing.T) {
	app := fiber.New()
	app.Use(WithBodyLimit(10))
	app.Post("/", func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	})

	body := strings.Repeat("a", 100)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
