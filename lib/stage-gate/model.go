package stagegate

import (
	"math"
	"proposal-pipeline-backend/models"
	"time"
)

const urgentWindow = 24 * time.Hour

type Assignment struct {
	ProposalType      models.ProposalType      `json:"proposal_type"`
	PendingActionBy   models.PartyRole         `json:"pending_action_by"`
	PendingActionType models.PendingActionType `json:"pending_action_type"`
}

// Resolve определяет тип предложения и кто должен действовать следующим.
// Неизвестные этапы получают значения по умолчанию (company/review), а не ошибку.
func Resolve(stage models.ApplicationStage, hasRecruiter bool) Assignment {
	return Assignment{
		ProposalType:      ProposalType(stage, hasRecruiter),
		PendingActionBy:   PendingActionBy(stage, hasRecruiter),
		PendingActionType: PendingActionType(stage),
	}
}

func ProposalType(stage models.ApplicationStage, hasRecruiter bool) models.ProposalType {
	switch stage {
	case models.StageRecruiterProposed:
		return models.ProposalTypeJobOpportunity
	case models.StageDraft:
		if !hasRecruiter {
			return models.ProposalTypeDirectApplication
		}
		return models.ProposalTypeApplicationReview
	case models.StageAIReview:
		if hasRecruiter {
			return models.ProposalTypeApplicationScreen
		}
		return models.ProposalTypeDirectApplication
	case models.StageScreen:
		if hasRecruiter {
			return models.ProposalTypeApplicationScreen
		}
		return models.ProposalTypeApplicationReview
	case models.StageSubmitted, models.StageInterview:
		return models.ProposalTypeApplicationReview
	case models.StageOffer:
		return models.ProposalTypeJobOffer
	default:
		return models.ProposalTypeApplicationReview
	}
}

func PendingActionBy(stage models.ApplicationStage, hasRecruiter bool) models.PartyRole {
	switch stage {
	case models.StageRecruiterProposed:
		return models.PartyCandidate
	case models.StageAIReview, models.StageScreen:
		if hasRecruiter {
			return models.PartyRecruiter
		}
		return models.PartyCompany
	case models.StageRecruiterReview:
		return models.PartyRecruiter
	case models.StageSubmitted, models.StageInterview, models.StageOffer:
		return models.PartyCompany
	default:
		return models.PartyCompany
	}
}

func PendingActionType(stage models.ApplicationStage) models.PendingActionType {
	switch stage {
	case models.StageRecruiterProposed:
		return models.PendingActionApprove
	case models.StageAIReview, models.StageScreen:
		return models.PendingActionScreen
	case models.StageSubmitted:
		return models.PendingActionReview
	case models.StageInterview:
		return models.PendingActionInterview
	case models.StageOffer:
		return models.PendingActionAccept
	default:
		return models.PendingActionReview
	}
}

// EntryGate первый гейт заявки после отправки
func EntryGate(hasRecruiter bool) (models.Gate, models.ApplicationStage) {
	if hasRecruiter {
		return models.GateCandidateRecruiter, models.StageRecruiterReview
	}
	return models.GateCompany, models.StageSubmitted
}

// NextGate куда переходит заявка после одобрения на гейте. nil - гейтов больше нет.
func NextGate(gate models.Gate, hasCompanyRecruiter bool) (*models.Gate, models.ApplicationStage) {
	switch gate {
	case models.GateCandidateRecruiter:
		if hasCompanyRecruiter {
			return models.GateCompanyRecruiter.Ptr(), models.StageSubmitted
		}
		return models.GateCompany.Ptr(), models.StageSubmitted
	case models.GateCompanyRecruiter:
		return models.GateCompany.Ptr(), models.StageCompanyReview
	default:
		return nil, models.StageScreen
	}
}

// GateStages этапы, на которых заявка ждет решения в очереди гейта
func GateStages(gate models.Gate) []models.ApplicationStage {
	switch gate {
	case models.GateCandidateRecruiter:
		return []models.ApplicationStage{models.StageRecruiterReview}
	case models.GateCompanyRecruiter:
		return []models.ApplicationStage{models.StageSubmitted}
	case models.GateCompany:
		return []models.ApplicationStage{models.StageSubmitted, models.StageCompanyReview}
	default:
		return nil
	}
}

// IsConsistent терминальный этап не может иметь гейт, а гейт допустим только на своих этапах
func IsConsistent(stage models.ApplicationStage, gate *models.Gate) bool {
	if gate == nil {
		return true
	}
	if stage.IsTerminal() {
		return false
	}
	for _, s := range GateStages(*gate) {
		if s == stage {
			return true
		}
	}
	return false
}

// ActingGate гейт, очередь которого видит участник.
// Рекрутер: сначала кандидаты, которых он представляет, затем связь с компанией,
// иначе candidate_recruiter. Для кандидата очереди нет (ok=false).
func ActingGate(role models.PartyRole, hasCandidateAssignments, hasCompanyAssociation bool) (gate models.Gate, ok bool) {
	switch role {
	case models.PartyCompany:
		return models.GateCompany, true
	case models.PartyRecruiter:
		if hasCandidateAssignments {
			return models.GateCandidateRecruiter, true
		}
		if hasCompanyAssociation {
			return models.GateCompanyRecruiter, true
		}
		return models.GateCandidateRecruiter, true
	default:
		return "", false
	}
}

type Deadline struct {
	IsUrgent       bool    `json:"is_urgent"`
	IsOverdue      bool    `json:"is_overdue"`
	HoursRemaining float64 `json:"hours_remaining"`
}

// DeadlineFacts только для отображения, на переходы не влияет
func DeadlineFacts(dueAt *time.Time, now time.Time) Deadline {
	if dueAt == nil {
		return Deadline{}
	}
	left := dueAt.Sub(now)
	hours := math.Round(left.Hours()*10) / 10
	if left <= 0 {
		return Deadline{IsOverdue: true, HoursRemaining: 0}
	}
	return Deadline{
		IsUrgent:       left <= urgentWindow,
		HoursRemaining: hours,
	}
}
