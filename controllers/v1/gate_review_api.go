package apiv1

import (
	"fmt"
	"time"

	"proposal-pipeline-backend/controllers"
	gatereviewhandler "proposal-pipeline-backend/lib/gate-review"
	"proposal-pipeline-backend/middleware"
	apimodels "proposal-pipeline-backend/models/api"
	proposalapimodels "proposal-pipeline-backend/models/api/proposal"

	"github.com/gofiber/fiber/v2"
)

type gateReviewApiController struct {
	controllers.BaseAPIController
	handler gatereviewhandler.Provider
}

func InitGateReviewApiRouters(app *fiber.App, handler gatereviewhandler.Provider) {
	controller := gateReviewApiController{handler: handler}
	app.Route("gate_review", func(router fiber.Router) {
		router.Get("queue", controller.queue)
		router.Get("queue/export", controller.export)
	})
}

// @Summary Очередь гейта
// @Tags Гейт
// @Description Предложения, ожидающие решения на гейте текущего участника
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   order		query		string	false	"oldest (по умолчанию) | urgent"
// @Param   page		query		int	false	"страница"
// @Param   limit		query		int	false	"записей на странице"
// @Success 200 {object} apimodels.Response{data=proposalapimodels.QueueView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/gate_review/queue [get]
func (c *gateReviewApiController) queue(ctx *fiber.Ctx) error {
	var filter proposalapimodels.QueueFilter
	if err := c.QueryParser(ctx, &filter); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := filter.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	queue, hMsg, err := c.handler.Queue(ctx.UserContext(), middleware.GetActor(ctx), filter)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения очереди гейта")
	}
	if hMsg != "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(hMsg))
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewScrollerResponse(queue, queue.Count))
}

// @Summary Очередь гейта. Выгрузить в Excel
// @Tags Гейт
// @Description Очередь гейта текущего участника в xlsx
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   order		query		string	false	"oldest (по умолчанию) | urgent"
// @Success 200
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/gate_review/queue/export [get]
func (c *gateReviewApiController) export(ctx *fiber.Ctx) error {
	var filter proposalapimodels.QueueFilter
	if err := c.QueryParser(ctx, &filter); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := filter.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	data, hMsg, err := c.handler.Export(ctx.UserContext(), middleware.GetActor(ctx), filter)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка выгрузки очереди гейта в Excel")
	}
	if hMsg != "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(hMsg))
	}
	fileName := fmt.Sprintf("gate-queue-%v.xlsx", time.Now().Format("20060102-150405"))
	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="`+fileName+`"`)
	return ctx.SendStream(data)
}
