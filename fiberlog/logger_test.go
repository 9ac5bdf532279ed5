package fiberlog

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	app := fiber.New()
	app.Use(New(Config{Logger: logger, Tags: []string{TagStatus, TagMethod, TagPath, TagUserID}}))
	app.Get("/fail", func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusBadRequest)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "warning", entry["level"])
	require.Equal(t, "/fail", entry[TagPath])
	require.Equal(t, http.MethodGet, entry[TagMethod])
	require.EqualValues(t, fiber.StatusBadRequest, entry[TagStatus])
	// без токена пользователь не пишется
	_, exist := entry[TagUserID]
	require.False(t, exist)
}
