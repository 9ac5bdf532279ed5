package apiv1

import (
	"strconv"

	"proposal-pipeline-backend/controllers"
	timeoutworker "proposal-pipeline-backend/lib/proposal/timeout-worker"
	"proposal-pipeline-backend/middleware"
	apimodels "proposal-pipeline-backend/models/api"
	proposalapimodels "proposal-pipeline-backend/models/api/proposal"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

type sweepAdminApiController struct {
	controllers.BaseAPIController
	worker timeoutworker.Provider
}

func InitSweepAdminApiRouters(app *fiber.App, worker timeoutworker.Provider) {
	controller := sweepAdminApiController{worker: worker}
	app.Route("sweeps", func(router fiber.Router) {
		router.Use(middleware.AdminRequired())
		router.Post("", controller.trigger)
		router.Get("", controller.list)
	})
}

// @Summary Запустить перевод просроченных предложений
// @Tags Администрирование
// @Description Один проход вне расписания. Параллельный ручной запуск отклоняется
// @Param   Authorization		header		string	true	"Authorization token"
// @Success 200 {object} apimodels.Response{data=proposalapimodels.SweepRunView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 409 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/admin/sweeps [post]
func (c *sweepAdminApiController) trigger(ctx *fiber.Ctx) error {
	result, err := c.worker.Trigger(ctx.UserContext())
	if err != nil {
		if errors.Is(err, timeoutworker.ErrAlreadyRunning) {
			return ctx.Status(fiber.StatusConflict).JSON(apimodels.NewError(err.Error()))
		}
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка перевода просроченных предложений")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(resultConvert(result)))
}

// @Summary Последние запуски
// @Tags Администрирование
// @Description Журнал запусков перевода просроченных предложений, новые сверху
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   limit		query		int	false	"количество (по умолчанию 20, не более 100)"
// @Success 200 {object} apimodels.Response{data=[]proposalapimodels.SweepRunView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/admin/sweeps [get]
func (c *sweepAdminApiController) list(ctx *fiber.Ctx) error {
	limit := 0
	if value := ctx.Query("limit"); value != "" {
		var err error
		limit, err = strconv.Atoi(value)
		if err != nil || limit < 0 {
			return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError("некорректное значение limit"))
		}
	}
	list, err := c.worker.Runs(limit)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения журнала запусков")
	}
	result := make([]proposalapimodels.SweepRunView, 0, len(list))
	for _, rec := range list {
		result = append(result, proposalapimodels.SweepRunConvert(rec))
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(result))
}

func resultConvert(r timeoutworker.Result) proposalapimodels.SweepRunView {
	return proposalapimodels.SweepRunView{
		ID:         r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Found:      r.Found,
		Succeeded:  r.Succeeded,
		TimedOut:   r.TimedOut,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
		Partial:    r.Partial,
		Status:     string(r.Status),
	}
}
