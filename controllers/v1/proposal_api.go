package apiv1

import (
	"proposal-pipeline-backend/controllers"
	proposalhandler "proposal-pipeline-backend/lib/proposal"
	"proposal-pipeline-backend/middleware"
	"proposal-pipeline-backend/models"
	apimodels "proposal-pipeline-backend/models/api"
	proposalapimodels "proposal-pipeline-backend/models/api/proposal"

	"github.com/gofiber/fiber/v2"
)

type proposalApiController struct {
	controllers.BaseAPIController
	handler proposalhandler.Provider
}

func InitProposalApiRouters(app *fiber.App, handler proposalhandler.Provider) {
	controller := proposalApiController{handler: handler}
	app.Post("applications", controller.apply)
	app.Route("proposals", func(router fiber.Router) {
		router.Post("", controller.propose)
		router.Route(":id", func(idRoute fiber.Router) {
			idRoute.Get("", controller.get)
			idRoute.Get("gate_history", controller.gateHistory)
			idRoute.Put("submit", controller.submit)     // отправить на гейт
			idRoute.Put("respond", controller.respond)   // ответ кандидата
			idRoute.Put("offer", controller.offer)       // оффер от компании
			idRoute.Put("withdraw", controller.withdraw) // отозвать
			idRoute.Post("gates/:gate/:action", controller.gateAction)
		})
	})
}

// @Summary Предложить вакансию кандидату
// @Tags Предложение
// @Description Рекрутер предлагает вакансию кандидату, срок ответа отсчитывается от момента создания
// @Param   Authorization		header		string	true	"Authorization token"
// @Param	body body	 proposalapimodels.ProposeRequest	true	"request body"
// @Success 200 {object} apimodels.Response{data=proposalapimodels.ProposalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/proposals [post]
func (c *proposalApiController) propose(ctx *fiber.Ctx) error {
	var payload proposalapimodels.ProposeRequest
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	view, hMsg, err := c.handler.Propose(ctx.UserContext(), middleware.GetActor(ctx), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка создания предложения")
	}
	return c.sendView(ctx, view, hMsg)
}

// @Summary Отклик кандидата
// @Tags Предложение
// @Description Кандидат создает черновик отклика на вакансию
// @Param   Authorization		header		string	true	"Authorization token"
// @Param	body body	 proposalapimodels.ApplyRequest	true	"request body"
// @Success 200 {object} apimodels.Response{data=proposalapimodels.ProposalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/applications [post]
func (c *proposalApiController) apply(ctx *fiber.Ctx) error {
	var payload proposalapimodels.ApplyRequest
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	view, hMsg, err := c.handler.Apply(ctx.UserContext(), middleware.GetActor(ctx), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка создания отклика")
	}
	return c.sendView(ctx, view, hMsg)
}

// @Summary Получить
// @Tags Предложение
// @Description Предложение с назначением следующего действия и сроками
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    	string  	true         "proposal ID"
// @Success 200 {object} apimodels.Response{data=proposalapimodels.ProposalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/proposals/{id} [get]
func (c *proposalApiController) get(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	view, hMsg, err := c.handler.Get(ctx.UserContext(), middleware.GetActor(ctx), id)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения предложения")
	}
	return c.sendView(ctx, view, hMsg)
}

// @Summary История гейтов
// @Tags Предложение
// @Description Записи журнала гейтов в порядке добавления
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    	string  	true         "proposal ID"
// @Success 200 {object} apimodels.Response{data=[]proposalapimodels.GateHistoryView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/proposals/{id}/gate_history [get]
func (c *proposalApiController) gateHistory(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	list, hMsg, err := c.handler.History(ctx.UserContext(), middleware.GetActor(ctx), id)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения истории гейтов")
	}
	if hMsg != "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(hMsg))
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(list))
}

// @Summary Отправить на гейт
// @Tags Предложение
// @Description Черновик поступает на первый гейт
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    	string  	true         "proposal ID"
// @Success 200 {object} apimodels.Response{data=proposalapimodels.ProposalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/proposals/{id}/submit [put]
func (c *proposalApiController) submit(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	view, hMsg, err := c.handler.Submit(ctx.UserContext(), middleware.GetActor(ctx), id)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка отправки на гейт")
	}
	return c.sendView(ctx, view, hMsg)
}

// @Summary Ответ кандидата
// @Tags Предложение
// @Description Принять или отклонить предложение или оффер до истечения срока
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    	string  	true         "proposal ID"
// @Param	body body	 proposalapimodels.RespondRequest	true	"request body"
// @Success 200 {object} apimodels.Response{data=proposalapimodels.ProposalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/proposals/{id}/respond [put]
func (c *proposalApiController) respond(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload proposalapimodels.RespondRequest
	if err = c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	if err = payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	view, hMsg, err := c.handler.Respond(ctx.UserContext(), middleware.GetActor(ctx), id, payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка сохранения ответа кандидата")
	}
	return c.sendView(ctx, view, hMsg)
}

// @Summary Оффер
// @Tags Предложение
// @Description Компания направляет оффер кандидату
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    	string  	true         "proposal ID"
// @Param	body body	 proposalapimodels.OfferRequest	true	"request body"
// @Success 200 {object} apimodels.Response{data=proposalapimodels.ProposalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/proposals/{id}/offer [put]
func (c *proposalApiController) offer(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload proposalapimodels.OfferRequest
	if len(ctx.Body()) != 0 {
		if err = c.BodyParser(ctx, &payload); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
		}
	}
	if err = payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	view, hMsg, err := c.handler.ExtendOffer(ctx.UserContext(), middleware.GetActor(ctx), id, payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка направления оффера")
	}
	return c.sendView(ctx, view, hMsg)
}

// @Summary Отозвать
// @Tags Предложение
// @Description Кандидат или его рекрутер отзывает предложение
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    	string  	true         "proposal ID"
// @Param	body body	 proposalapimodels.WithdrawRequest	false	"request body"
// @Success 200 {object} apimodels.Response{data=proposalapimodels.ProposalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/proposals/{id}/withdraw [put]
func (c *proposalApiController) withdraw(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload proposalapimodels.WithdrawRequest
	if len(ctx.Body()) != 0 {
		if err = c.BodyParser(ctx, &payload); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
		}
	}
	view, hMsg, err := c.handler.Withdraw(ctx.UserContext(), middleware.GetActor(ctx), id, payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка отзыва предложения")
	}
	return c.sendView(ctx, view, hMsg)
}

// @Summary Действие на гейте
// @Tags Гейт
// @Description approve, deny (нужна причина), request_info (нужны вопросы), provide_info (нужны ответы)
// @Param   Authorization		header		string	true	"Authorization token"
// @Param   id          		path    	string  	true         "proposal ID"
// @Param   gate          		path    	string  	true         "candidate_recruiter | company_recruiter | company"
// @Param   action          	path    	string  	true         "approve | deny | request_info | provide_info"
// @Param	body body	 proposalapimodels.GateActionRequest	false	"request body"
// @Success 200 {object} apimodels.Response{data=proposalapimodels.ProposalView}
// @Failure 400 {object} apimodels.Response
// @Failure 403
// @Failure 500 {object} apimodels.Response
// @router /api/v1/proposals/{id}/gates/{gate}/{action} [post]
func (c *proposalApiController) gateAction(ctx *fiber.Ctx) error {
	id, err := c.GetID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	gate, err := c.GetIDByKey(ctx, "gate")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	actionPath, err := c.GetIDByKey(ctx, "action")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	action, err := proposalapimodels.GateActionFromPath(actionPath)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload proposalapimodels.GateActionRequest
	if len(ctx.Body()) != 0 {
		if err = c.BodyParser(ctx, &payload); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
		}
	}
	if err = payload.ValidateFor(action); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	view, hMsg, err := c.handler.GateAction(ctx.UserContext(), middleware.GetActor(ctx), id, models.Gate(gate), action, payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка выполнения действия на гейте")
	}
	return c.sendView(ctx, view, hMsg)
}

func (c *proposalApiController) sendView(ctx *fiber.Ctx, view *proposalapimodels.ProposalView, hMsg string) error {
	if hMsg != "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(hMsg))
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(view))
}
