package proposalapimodels

import (
	"strings"
	"time"

	stagegate "proposal-pipeline-backend/lib/stage-gate"
	"proposal-pipeline-backend/models"
	apimodels "proposal-pipeline-backend/models/api"
	dbmodels "proposal-pipeline-backend/models/db"

	"github.com/pkg/errors"
)

type ProposeRequest struct {
	JobID       string `json:"job_id"`       // Вакансия
	CandidateID string `json:"candidate_id"` // Кандидат, которому предлагается вакансия
}

func (r ProposeRequest) Validate() error {
	if r.JobID == "" {
		return errors.New("не указана вакансия")
	}
	if r.CandidateID == "" {
		return errors.New("не указан кандидат")
	}
	return nil
}

type ApplyRequest struct {
	JobID       string `json:"job_id"`       // Вакансия
	RecruiterID string `json:"recruiter_id"` // Рекрутер, представляющий кандидата (необязательно)
}

func (r ApplyRequest) Validate() error {
	if r.JobID == "" {
		return errors.New("не указана вакансия")
	}
	return nil
}

type RespondRequest struct {
	Response models.ProposalResponse `json:"response"` // accept/decline
}

func (r RespondRequest) Validate() error {
	switch r.Response {
	case models.ProposalResponseAccept, models.ProposalResponseDecline:
		return nil
	case "":
		return errors.New("не указан ответ")
	}
	return errors.Errorf("недопустимый ответ %v", r.Response)
}

type OfferRequest struct {
	ResponseWindowHours int `json:"response_window_hours"` // Срок ответа на оффер в часах, 0 - по умолчанию
}

func (r OfferRequest) Validate() error {
	if r.ResponseWindowHours < 0 {
		return errors.New("срок ответа не может быть отрицательным")
	}
	if r.ResponseWindowHours > 24*30 {
		return errors.New("срок ответа не может превышать 30 дней")
	}
	return nil
}

type WithdrawRequest struct {
	Reason string `json:"reason"` // Причина отзыва
}

func (r WithdrawRequest) Validate() error {
	return nil
}

type GateActionRequest struct {
	Notes     string   `json:"notes"`     // Комментарий
	Reason    string   `json:"reason"`    // Причина отказа (для deny)
	Questions []string `json:"questions"` // Вопросы (для request_info)
	Answers   []string `json:"answers"`   // Ответы (для provide_info)
}

// ValidateFor обязательные поля зависят от действия
func (r GateActionRequest) ValidateFor(action models.GateAction) error {
	switch action {
	case models.GateActionApproved:
		return nil
	case models.GateActionDenied:
		if strings.TrimSpace(r.Reason) == "" {
			return errors.New("не указана причина отказа")
		}
	case models.GateActionInfoRequested:
		if len(nonEmpty(r.Questions)) == 0 {
			return errors.New("не указаны вопросы")
		}
	case models.GateActionInfoProvided:
		if len(nonEmpty(r.Answers)) == 0 {
			return errors.New("не указаны ответы")
		}
	default:
		return errors.Errorf("недопустимое действие %v", action)
	}
	return nil
}

func nonEmpty(list []string) []string {
	result := make([]string, 0, len(list))
	for _, s := range list {
		if strings.TrimSpace(s) != "" {
			result = append(result, s)
		}
	}
	return result
}

// GateActionFromPath действие в адресе запроса: approve, deny, request_info, provide_info
func GateActionFromPath(path string) (models.GateAction, error) {
	switch path {
	case "approve":
		return models.GateActionApproved, nil
	case "deny":
		return models.GateActionDenied, nil
	case "request_info":
		return models.GateActionInfoRequested, nil
	case "provide_info":
		return models.GateActionInfoProvided, nil
	}
	return "", errors.Errorf("неизвестное действие %v", path)
}

type QueueOrder string

const (
	QueueOrderOldest QueueOrder = "oldest"
	QueueOrderUrgent QueueOrder = "urgent"
)

type QueueFilter struct {
	apimodels.Pagination
	Order QueueOrder `json:"order" query:"order"` // oldest (по умолчанию) или urgent
}

func (f QueueFilter) Validate() error {
	switch f.Order {
	case "", QueueOrderOldest, QueueOrderUrgent:
		return nil
	}
	return errors.Errorf("недопустимый порядок сортировки %v", f.Order)
}

func (f QueueFilter) IsUrgentFirst() bool {
	return f.Order == QueueOrderUrgent
}

type ProposalView struct {
	ID                 string               `json:"id"`
	JobID              string               `json:"job_id"`
	JobTitle           string               `json:"job_title,omitempty"`
	CompanyID          string               `json:"company_id"`
	CompanyName        string               `json:"company_name,omitempty"`
	CandidateID        string               `json:"candidate_id"`
	RecruiterID        string               `json:"recruiter_id,omitempty"`
	CompanyRecruiterID string               `json:"company_recruiter_id,omitempty"`
	Stage              string               `json:"stage"`
	StageName          string               `json:"stage_name"`
	State              string               `json:"state,omitempty"`
	CurrentGate        string               `json:"current_gate,omitempty"`
	ProposedAt         *time.Time           `json:"proposed_at,omitempty"`
	ResponseDueAt      *time.Time           `json:"response_due_at,omitempty"`
	TimedOutAt         *time.Time           `json:"timed_out_at,omitempty"`
	RespondedAt        *time.Time           `json:"responded_at,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	Assignment         stagegate.Assignment `json:"assignment"`
	Deadline           stagegate.Deadline   `json:"deadline"`
}

func ProposalConvert(rec dbmodels.Proposal, now time.Time) ProposalView {
	view := ProposalView{
		ID:                 rec.ID,
		JobID:              rec.JobID,
		JobTitle:           rec.GetJobTitle(),
		CompanyID:          rec.CompanyID,
		CompanyName:        rec.GetCompanyName(),
		CandidateID:        rec.CandidateID,
		RecruiterID:        rec.GetRecruiterID(),
		CompanyRecruiterID: rec.GetCompanyRecruiterID(),
		Stage:              string(rec.Stage),
		StageName:          rec.Stage.ToHuman(),
		State:              string(rec.State),
		ProposedAt:         rec.ProposedAt,
		TimedOutAt:         rec.TimedOutAt,
		RespondedAt:        rec.RespondedAt,
		CreatedAt:          rec.CreatedAt,
		Assignment:         stagegate.Resolve(rec.Stage, rec.HasRecruiter()),
	}
	if rec.CurrentGate != nil {
		view.CurrentGate = string(*rec.CurrentGate)
	}
	if rec.State == models.ProposalStateProposed {
		view.ResponseDueAt = rec.ResponseDueAt
		view.Deadline = stagegate.DeadlineFacts(rec.ResponseDueAt, now)
	}
	return view
}

type GateHistoryView struct {
	Seq        int       `json:"seq"`
	Gate       string    `json:"gate"`
	GateName   string    `json:"gate_name"`
	Action     string    `json:"action"`
	ActionName string    `json:"action_name"`
	ReviewerID string    `json:"reviewer_id,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Questions  []string  `json:"questions,omitempty"`
	Answers    []string  `json:"answers,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func GateHistoryConvert(rec dbmodels.GateHistory) GateHistoryView {
	return GateHistoryView{
		Seq:        rec.Seq,
		Gate:       string(rec.Gate),
		GateName:   rec.Gate.ToHuman(),
		Action:     string(rec.Action),
		ActionName: rec.Action.ToHuman(),
		ReviewerID: rec.GetReviewerID(),
		Notes:      rec.Notes,
		Reason:     rec.Reason,
		Questions:  rec.Questions,
		Answers:    rec.Answers,
		CreatedAt:  rec.CreatedAt,
	}
}

type QueueView struct {
	Gate     string         `json:"gate"`
	GateName string         `json:"gate_name"`
	Count    int64          `json:"count"`
	Items    []ProposalView `json:"items"`
}

type SweepRunView struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Found      int       `json:"found"`
	Succeeded  int       `json:"succeeded"`
	TimedOut   int       `json:"timed_out"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Partial    bool      `json:"partial"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

func SweepRunConvert(rec dbmodels.SweepRun) SweepRunView {
	return SweepRunView{
		ID:         rec.ID,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
		Found:      rec.Found,
		Succeeded:  rec.Succeeded,
		TimedOut:   rec.TimedOut,
		Skipped:    rec.Skipped,
		Failed:     rec.Failed,
		Partial:    rec.Partial,
		Status:     string(rec.Status),
		Error:      rec.Error,
	}
}
