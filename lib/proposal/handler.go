package proposalhandler

import (
	"context"
	"time"

	"proposal-pipeline-backend/lib/eventbus"
	networkstore "proposal-pipeline-backend/lib/network/store"
	historystore "proposal-pipeline-backend/lib/proposal/history-store"
	proposalstore "proposal-pipeline-backend/lib/proposal/store"
	stagegate "proposal-pipeline-backend/lib/stage-gate"
	"proposal-pipeline-backend/lib/utils/helpers"
	"proposal-pipeline-backend/models"
	proposalapimodels "proposal-pipeline-backend/models/api/proposal"
	dbmodels "proposal-pipeline-backend/models/db"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Provider действия участников над предложением.
// hMsg - отказ по бизнес-правилу (показывается пользователю), err - внутренняя ошибка.
type Provider interface {
	Propose(ctx context.Context, actor models.Actor, data proposalapimodels.ProposeRequest) (view *proposalapimodels.ProposalView, hMsg string, err error)
	Apply(ctx context.Context, actor models.Actor, data proposalapimodels.ApplyRequest) (view *proposalapimodels.ProposalView, hMsg string, err error)
	Submit(ctx context.Context, actor models.Actor, id string) (view *proposalapimodels.ProposalView, hMsg string, err error)
	Respond(ctx context.Context, actor models.Actor, id string, data proposalapimodels.RespondRequest) (view *proposalapimodels.ProposalView, hMsg string, err error)
	ExtendOffer(ctx context.Context, actor models.Actor, id string, data proposalapimodels.OfferRequest) (view *proposalapimodels.ProposalView, hMsg string, err error)
	Withdraw(ctx context.Context, actor models.Actor, id string, data proposalapimodels.WithdrawRequest) (view *proposalapimodels.ProposalView, hMsg string, err error)
	GateAction(ctx context.Context, actor models.Actor, id string, gate models.Gate, action models.GateAction, data proposalapimodels.GateActionRequest) (view *proposalapimodels.ProposalView, hMsg string, err error)
	Get(ctx context.Context, actor models.Actor, id string) (view *proposalapimodels.ProposalView, hMsg string, err error)
	History(ctx context.Context, actor models.Actor, id string) (list []proposalapimodels.GateHistoryView, hMsg string, err error)
}

func NewHandler(DB *gorm.DB, publisher eventbus.Publisher, deadLetter eventbus.DeadLetter, responseWindow time.Duration) Provider {
	return newImpl(DB, publisher, deadLetter, responseWindow)
}

func newImpl(DB *gorm.DB, publisher eventbus.Publisher, deadLetter eventbus.DeadLetter, responseWindow time.Duration) *impl {
	return &impl{
		store:          proposalstore.NewInstance(DB),
		historyStore:   historystore.NewInstance(DB),
		networkStore:   networkstore.NewInstance(DB),
		publisher:      publisher,
		deadLetter:     deadLetter,
		responseWindow: responseWindow,
		now:            helpers.UTCNow,
	}
}

type impl struct {
	store          proposalstore.Provider
	historyStore   historystore.Provider
	networkStore   networkstore.Provider
	publisher      eventbus.Publisher
	deadLetter     eventbus.DeadLetter
	responseWindow time.Duration
	now            helpers.Clock
}

func (i impl) getLogger(actor models.Actor, proposalID string) *log.Entry {
	logger := log.
		WithField("actor_id", actor.ID).
		WithField("actor_role", actor.Role)
	if proposalID != "" {
		logger = logger.WithField("proposal_id", proposalID)
	}
	return logger
}

func (i impl) Propose(ctx context.Context, actor models.Actor, data proposalapimodels.ProposeRequest) (*proposalapimodels.ProposalView, string, error) {
	if err := data.Validate(); err != nil {
		return nil, err.Error(), nil
	}
	if actor.Role != models.PartyRecruiter {
		return nil, "Предлагать вакансию кандидату может только рекрутер", nil
	}
	job, err := i.networkStore.GetJob(data.JobID)
	if err != nil {
		return nil, "", errors.Wrap(err, "ошибка получения вакансии")
	}
	if job == nil {
		return nil, "Вакансия не найдена", nil
	}
	companyRecruiterID, err := i.networkStore.ActiveCompanyRecruiter(job.CompanyID)
	if err != nil {
		return nil, "", errors.Wrap(err, "ошибка получения рекрутера компании")
	}
	now := i.now()
	rec, err := i.store.Create(ctx, dbmodels.Proposal{
		JobID:              job.ID,
		CompanyID:          job.CompanyID,
		CandidateID:        data.CandidateID,
		RecruiterID:        helpers.Ptr(actor.ID),
		CompanyRecruiterID: optional(companyRecruiterID),
		Stage:              models.StageRecruiterProposed,
		State:              models.ProposalStateProposed,
		ProposedAt:         helpers.Ptr(now),
		ResponseDueAt:      helpers.Ptr(now.Add(i.responseWindow)),
	})
	if err != nil {
		return nil, "", err
	}
	rec.Job = job
	i.getLogger(actor, rec.ID).Info("кандидату предложена вакансия")
	i.publish(ctx, eventbus.ProposalCreated, proposalData(*rec))
	return i.view(*rec), "", nil
}

func (i impl) Apply(ctx context.Context, actor models.Actor, data proposalapimodels.ApplyRequest) (*proposalapimodels.ProposalView, string, error) {
	if err := data.Validate(); err != nil {
		return nil, err.Error(), nil
	}
	if actor.Role != models.PartyCandidate {
		return nil, "Откликнуться на вакансию может только кандидат", nil
	}
	job, err := i.networkStore.GetJob(data.JobID)
	if err != nil {
		return nil, "", errors.Wrap(err, "ошибка получения вакансии")
	}
	if job == nil {
		return nil, "Вакансия не найдена", nil
	}
	if data.RecruiterID != "" {
		represents, err := i.networkStore.IsRecruiterOfCandidate(data.RecruiterID, actor.ID)
		if err != nil {
			return nil, "", errors.Wrap(err, "ошибка проверки рекрутера кандидата")
		}
		if !represents {
			return nil, "Указанный рекрутер не представляет кандидата", nil
		}
	}
	companyRecruiterID, err := i.networkStore.ActiveCompanyRecruiter(job.CompanyID)
	if err != nil {
		return nil, "", errors.Wrap(err, "ошибка получения рекрутера компании")
	}
	rec, err := i.store.Create(ctx, dbmodels.Proposal{
		JobID:              job.ID,
		CompanyID:          job.CompanyID,
		CandidateID:        actor.ID,
		RecruiterID:        optional(data.RecruiterID),
		CompanyRecruiterID: optional(companyRecruiterID),
		Stage:              models.StageDraft,
	})
	if err != nil {
		return nil, "", err
	}
	rec.Job = job
	i.getLogger(actor, rec.ID).Info("создан отклик кандидата")
	i.publish(ctx, eventbus.ProposalCreated, proposalData(*rec))
	return i.view(*rec), "", nil
}

func (i impl) Submit(ctx context.Context, actor models.Actor, id string) (*proposalapimodels.ProposalView, string, error) {
	rec, hMsg, err := i.getOwned(ctx, actor, id)
	if err != nil || hMsg != "" {
		return nil, hMsg, err
	}
	if !rec.Stage.AllowSubmit() {
		return nil, "Заявку на этапе \"" + rec.Stage.ToHuman() + "\" нельзя отправить", nil
	}
	now := i.now()
	gate, stage := stagegate.EntryGate(rec.HasRecruiter())
	updated, err := i.store.ApplyTransition(ctx, rec.ID, proposalstore.Transition{
		FromStages: []models.ApplicationStage{models.StageDraft, models.StageAIReview, models.StageAIReviewed},
		Stage:      stage,
		Gate:       gate.Ptr(),
		At:         now,
		History: []dbmodels.GateHistory{{
			Gate:       gate,
			Action:     models.GateActionEntered,
			ReviewerID: helpers.Ptr(actor.ID),
			CreatedAt:  now,
		}},
	})
	if hMsg, err = conflictMessage(err); err != nil || hMsg != "" {
		return nil, hMsg, err
	}
	i.getLogger(actor, id).WithField("gate", gate).Info("заявка отправлена на гейт")
	i.publish(ctx, eventbus.GateEntered, gateData(*updated, gate, nil, dbmodels.GateHistory{}))
	return i.view(*updated), "", nil
}

func (i impl) Respond(ctx context.Context, actor models.Actor, id string, data proposalapimodels.RespondRequest) (*proposalapimodels.ProposalView, string, error) {
	if err := data.Validate(); err != nil {
		return nil, err.Error(), nil
	}
	rec, err := i.store.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if rec == nil || actor.Role != models.PartyCandidate || rec.CandidateID != actor.ID {
		return nil, "Предложение не найдено", nil
	}
	if rec.State != models.ProposalStateProposed {
		return nil, "Предложение не ожидает ответа", nil
	}
	now := i.now()
	if rec.IsExpired(now) {
		return nil, "Срок ответа на предложение истек", nil
	}

	var stage models.ApplicationStage
	var state models.ProposalState
	var eventType eventbus.EventType
	switch data.Response {
	case models.ProposalResponseAccept:
		state, eventType = models.ProposalStateAccepted, eventbus.ProposalAccepted
		switch rec.Stage {
		case models.StageRecruiterProposed:
			stage = models.StageAIReview
		case models.StageOffer:
			stage = models.StageHired
		default:
			return nil, "Предложение не ожидает ответа", nil
		}
	default:
		state, eventType = models.ProposalStateDeclined, eventbus.ProposalDeclined
		stage = models.StageWithdrawn
	}

	updated, err := i.store.ApplyTransition(ctx, rec.ID, proposalstore.Transition{
		FromStages:  []models.ApplicationStage{rec.Stage},
		FromState:   helpers.Ptr(models.ProposalStateProposed),
		Stage:       stage,
		State:       helpers.Ptr(state),
		RespondedAt: helpers.Ptr(now),
		At:          now,
	})
	if hMsg, err := conflictMessage(err); err != nil || hMsg != "" {
		return nil, hMsg, err
	}
	i.getLogger(actor, id).WithField("response", data.Response).Info("кандидат ответил на предложение")
	i.publish(ctx, eventType, proposalData(*updated))
	return i.view(*updated), "", nil
}

func (i impl) ExtendOffer(ctx context.Context, actor models.Actor, id string, data proposalapimodels.OfferRequest) (*proposalapimodels.ProposalView, string, error) {
	if err := data.Validate(); err != nil {
		return nil, err.Error(), nil
	}
	rec, err := i.store.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if rec == nil {
		return nil, "Предложение не найдено", nil
	}
	allowed, err := i.isCompanyOf(actor, *rec)
	if err != nil {
		return nil, "", err
	}
	if !allowed {
		return nil, "Оффер может сделать только компания вакансии", nil
	}
	if !rec.Stage.AllowOffer() {
		return nil, "Оффер на этапе \"" + rec.Stage.ToHuman() + "\" недоступен", nil
	}
	window := i.responseWindow
	if data.ResponseWindowHours > 0 {
		window = time.Duration(data.ResponseWindowHours) * time.Hour
	}
	now := i.now()
	updated, err := i.store.ApplyTransition(ctx, rec.ID, proposalstore.Transition{
		FromStages:    []models.ApplicationStage{models.StageScreen, models.StageInterview, models.StageFinalInterview},
		Stage:         models.StageOffer,
		State:         helpers.Ptr(models.ProposalStateProposed),
		ProposedAt:    helpers.Ptr(now),
		ResponseDueAt: helpers.Ptr(now.Add(window)),
		At:            now,
	})
	if hMsg, err := conflictMessage(err); err != nil || hMsg != "" {
		return nil, hMsg, err
	}
	i.getLogger(actor, id).Info("кандидату сделан оффер")
	i.publish(ctx, eventbus.OfferExtended, proposalData(*updated))
	return i.view(*updated), "", nil
}

func (i impl) Withdraw(ctx context.Context, actor models.Actor, id string, data proposalapimodels.WithdrawRequest) (*proposalapimodels.ProposalView, string, error) {
	if err := data.Validate(); err != nil {
		return nil, err.Error(), nil
	}
	rec, hMsg, err := i.getOwned(ctx, actor, id)
	if err != nil || hMsg != "" {
		return nil, hMsg, err
	}
	if rec.Stage.IsTerminal() {
		return nil, "Заявка уже завершена", nil
	}
	now := i.now()
	tr := proposalstore.Transition{
		FromStages: activeStages(),
		Stage:      models.StageWithdrawn,
		At:         now,
	}
	if rec.State == models.ProposalStateProposed {
		// иначе sweeper позже переведет отозванную заявку в expired
		tr.FromState = helpers.Ptr(models.ProposalStateProposed)
		tr.State = helpers.Ptr(models.ProposalStateDeclined)
		tr.RespondedAt = helpers.Ptr(now)
	}
	updated, err := i.store.ApplyTransition(ctx, rec.ID, tr)
	if hMsg, err := conflictMessage(err); err != nil || hMsg != "" {
		return nil, hMsg, err
	}
	i.getLogger(actor, id).WithField("reason", data.Reason).Info("заявка отозвана")
	i.publish(ctx, eventbus.ProposalWithdrawn, proposalData(*updated))
	return i.view(*updated), "", nil
}

func (i impl) GateAction(ctx context.Context, actor models.Actor, id string, gate models.Gate, action models.GateAction, data proposalapimodels.GateActionRequest) (*proposalapimodels.ProposalView, string, error) {
	if !gate.IsValid() {
		return nil, "Неизвестный гейт", nil
	}
	if err := data.ValidateFor(action); err != nil {
		return nil, err.Error(), nil
	}
	rec, err := i.store.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if rec == nil {
		return nil, "Предложение не найдено", nil
	}
	allowed, err := i.canActAtGate(actor, *rec, gate, action)
	if err != nil {
		return nil, "", err
	}
	if !allowed {
		return nil, "Нет прав на действие на гейте \"" + gate.ToHuman() + "\"", nil
	}
	logger := i.getLogger(actor, id).
		WithField("gate", gate).
		WithField("action", action)

	res, err := i.store.ApplyGateAction(ctx, rec.ID, proposalstore.GateActionCmd{
		Gate:       gate,
		Action:     action,
		ReviewerID: actor.ID,
		Notes:      data.Notes,
		Reason:     data.Reason,
		Questions:  data.Questions,
		Answers:    data.Answers,
		At:         i.now(),
	})
	if hMsg, err := conflictMessage(err); err != nil || hMsg != "" {
		if hMsg != "" {
			logger.WithField("reason", hMsg).Warn("действие на гейте отклонено")
		}
		return nil, hMsg, err
	}
	res.Proposal.Job = rec.Job
	logger.Info("действие на гейте выполнено")

	i.publish(ctx, gateEventType(action), gateData(res.Proposal, gate, res.NextGate, res.Entries[0]))
	if res.NextGate != nil {
		i.publish(ctx, eventbus.GateEntered, gateData(res.Proposal, *res.NextGate, nil, dbmodels.GateHistory{}))
	}
	return i.view(res.Proposal), "", nil
}

func (i impl) Get(ctx context.Context, actor models.Actor, id string) (*proposalapimodels.ProposalView, string, error) {
	rec, hMsg, err := i.getVisible(ctx, actor, id)
	if err != nil || hMsg != "" {
		return nil, hMsg, err
	}
	return i.view(*rec), "", nil
}

func (i impl) History(ctx context.Context, actor models.Actor, id string) ([]proposalapimodels.GateHistoryView, string, error) {
	rec, hMsg, err := i.getVisible(ctx, actor, id)
	if err != nil || hMsg != "" {
		return nil, hMsg, err
	}
	list, err := i.historyStore.List(rec.ID)
	if err != nil {
		return nil, "", errors.Wrap(err, "ошибка получения журнала гейтов")
	}
	result := make([]proposalapimodels.GateHistoryView, 0, len(list))
	for _, entry := range list {
		result = append(result, proposalapimodels.GateHistoryConvert(entry))
	}
	return result, "", nil
}

// getOwned предложение кандидата или рекрутера, который его представляет
func (i impl) getOwned(ctx context.Context, actor models.Actor, id string) (*dbmodels.Proposal, string, error) {
	rec, err := i.store.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if rec == nil || !isOwner(actor, *rec) {
		return nil, "Предложение не найдено", nil
	}
	return rec, "", nil
}

func (i impl) getVisible(ctx context.Context, actor models.Actor, id string) (*dbmodels.Proposal, string, error) {
	rec, err := i.store.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if rec == nil {
		return nil, "Предложение не найдено", nil
	}
	if isOwner(actor, *rec) || (actor.Role == models.PartyRecruiter && rec.GetCompanyRecruiterID() == actor.ID) {
		return rec, "", nil
	}
	isCompany, err := i.isCompanyOf(actor, *rec)
	if err != nil {
		return nil, "", err
	}
	if !isCompany {
		return nil, "Предложение не найдено", nil
	}
	return rec, "", nil
}

func (i impl) canActAtGate(actor models.Actor, rec dbmodels.Proposal, gate models.Gate, action models.GateAction) (bool, error) {
	if action == models.GateActionInfoProvided {
		return isOwner(actor, rec), nil
	}
	switch gate {
	case models.GateCandidateRecruiter:
		return actor.Role == models.PartyRecruiter && rec.GetRecruiterID() == actor.ID, nil
	case models.GateCompanyRecruiter:
		return actor.Role == models.PartyRecruiter && rec.GetCompanyRecruiterID() == actor.ID, nil
	case models.GateCompany:
		return i.isCompanyOf(actor, rec)
	}
	return false, nil
}

func (i impl) isCompanyOf(actor models.Actor, rec dbmodels.Proposal) (bool, error) {
	if actor.Role != models.PartyCompany {
		return false, nil
	}
	companyID, err := i.networkStore.CompanyIDForMember(actor.ID)
	if err != nil {
		return false, errors.Wrap(err, "ошибка получения компании участника")
	}
	return companyID != "" && companyID == rec.CompanyID, nil
}

func (i impl) view(rec dbmodels.Proposal) *proposalapimodels.ProposalView {
	view := proposalapimodels.ProposalConvert(rec, i.now())
	return &view
}

// publish событие не критично: состояние уже сохранено, ошибка только логируется
func (i impl) publish(ctx context.Context, eventType eventbus.EventType, data any) {
	if i.publisher == nil {
		return
	}
	logger := log.WithField("event_type", eventType)
	event, err := eventbus.NewEvent(eventType, i.now(), data)
	if err != nil {
		logger.WithError(err).Error("ошибка формирования события")
		return
	}
	if err = eventbus.PublishOrArchive(ctx, i.publisher, i.deadLetter, event); err != nil {
		logger.WithError(err).Error("ошибка публикации события")
	}
}

func isOwner(actor models.Actor, rec dbmodels.Proposal) bool {
	switch actor.Role {
	case models.PartyCandidate:
		return rec.CandidateID == actor.ID
	case models.PartyRecruiter:
		return rec.GetRecruiterID() == actor.ID
	}
	return false
}

// conflictMessage логические ошибки хранилища превращаются в сообщение пользователю
func conflictMessage(err error) (string, error) {
	if err == nil {
		return "", nil
	}
	var mismatch *proposalstore.GateMismatchError
	switch {
	case errors.Is(err, proposalstore.ErrNotFound):
		return "Предложение не найдено", nil
	case errors.Is(err, proposalstore.ErrAlreadyTerminal):
		return "Предложение уже завершено", nil
	case errors.Is(err, proposalstore.ErrStale):
		return "Предложение уже изменено, обновите страницу", nil
	case errors.As(err, &mismatch):
		return "Предложение уже находится на другом гейте", nil
	}
	return "", err
}

func gateEventType(action models.GateAction) eventbus.EventType {
	switch action {
	case models.GateActionApproved:
		return eventbus.GateApproved
	case models.GateActionDenied:
		return eventbus.GateDenied
	case models.GateActionInfoRequested:
		return eventbus.GateInfoRequested
	default:
		return eventbus.GateInfoProvided
	}
}

func activeStages() []models.ApplicationStage {
	result := make([]models.ApplicationStage, 0, len(models.AllStages))
	for _, stage := range models.AllStages {
		if !stage.IsTerminal() {
			result = append(result, stage)
		}
	}
	return result
}

func optional(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func proposalData(rec dbmodels.Proposal) eventbus.ProposalData {
	return eventbus.ProposalData{
		ProposalID:    rec.ID,
		JobID:         rec.JobID,
		CandidateID:   rec.CandidateID,
		RecruiterID:   rec.GetRecruiterID(),
		Stage:         string(rec.Stage),
		State:         string(rec.State),
		ResponseDueAt: rec.ResponseDueAt,
		JobTitle:      rec.GetJobTitle(),
		CompanyName:   rec.GetCompanyName(),
	}
}

func gateData(rec dbmodels.Proposal, gate models.Gate, nextGate *models.Gate, entry dbmodels.GateHistory) eventbus.GateData {
	data := eventbus.GateData{
		ProposalID:  rec.ID,
		JobID:       rec.JobID,
		CandidateID: rec.CandidateID,
		RecruiterID: rec.GetRecruiterID(),
		Gate:        string(gate),
		Stage:       string(rec.Stage),
		ReviewerID:  entry.GetReviewerID(),
		JobTitle:    rec.GetJobTitle(),
		CompanyName: rec.GetCompanyName(),
		Notes:       entry.Notes,
		Reason:      entry.Reason,
		Questions:   entry.Questions,
		Answers:     entry.Answers,
	}
	if nextGate != nil {
		data.NextGate = string(*nextGate)
	}
	return data
}
