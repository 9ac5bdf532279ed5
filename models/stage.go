package models

type ApplicationStage string

const (
	StageDraft             ApplicationStage = "draft"
	StageAIReview          ApplicationStage = "ai_review"
	StageAIReviewed        ApplicationStage = "ai_reviewed"
	StageRecruiterRequest  ApplicationStage = "recruiter_request"
	StageRecruiterProposed ApplicationStage = "recruiter_proposed"
	StageRecruiterReview   ApplicationStage = "recruiter_review"
	StageSubmitted         ApplicationStage = "submitted"
	StageCompanyReview     ApplicationStage = "company_review"
	StageCompanyFeedback   ApplicationStage = "company_feedback"
	StageScreen            ApplicationStage = "screen"
	StageInterview         ApplicationStage = "interview"
	StageFinalInterview    ApplicationStage = "final_interview"
	StageOffer             ApplicationStage = "offer"
	StageHired             ApplicationStage = "hired"
	StageRejected          ApplicationStage = "rejected"
	StageWithdrawn         ApplicationStage = "withdrawn"
	StageExpired           ApplicationStage = "expired"
)

// AllStages порядок совпадает с движением заявки по воронке
var AllStages = []ApplicationStage{
	StageDraft,
	StageAIReview,
	StageAIReviewed,
	StageRecruiterRequest,
	StageRecruiterProposed,
	StageRecruiterReview,
	StageSubmitted,
	StageCompanyReview,
	StageCompanyFeedback,
	StageScreen,
	StageInterview,
	StageFinalInterview,
	StageOffer,
	StageHired,
	StageRejected,
	StageWithdrawn,
	StageExpired,
}

var stageHumanName = map[ApplicationStage]string{
	StageDraft:             "Черновик",
	StageAIReview:          "AI-скрининг",
	StageAIReviewed:        "AI-скрининг завершен",
	StageRecruiterRequest:  "Запрос рекрутеру",
	StageRecruiterProposed: "Предложение кандидату",
	StageRecruiterReview:   "Проверка рекрутером",
	StageSubmitted:         "Отправлено компании",
	StageCompanyReview:     "Рассмотрение компанией",
	StageCompanyFeedback:   "Обратная связь компании",
	StageScreen:            "Скрининг",
	StageInterview:         "Интервью",
	StageFinalInterview:    "Финальное интервью",
	StageOffer:             "Оффер",
	StageHired:             "Нанят",
	StageRejected:          "Отклонен",
	StageWithdrawn:         "Отозван",
	StageExpired:           "Истек срок",
}

func (s ApplicationStage) ToHuman() string {
	if human, exist := stageHumanName[s]; exist {
		return human
	}
	return string(s)
}

func (s ApplicationStage) IsValid() bool {
	_, ok := stageHumanName[s]
	return ok
}

// IsTerminal заявка на этом этапе больше не двигается и не может находиться ни в одной очереди
func (s ApplicationStage) IsTerminal() bool {
	switch s {
	case StageHired, StageRejected, StageWithdrawn, StageExpired:
		return true
	}
	return false
}

// AllowSubmit этапы, с которых заявку можно отправить на первый гейт
func (s ApplicationStage) AllowSubmit() bool {
	switch s {
	case StageDraft, StageAIReview, StageAIReviewed:
		return true
	}
	return false
}

// AllowOffer этапы, на которых компания может сделать оффер
func (s ApplicationStage) AllowOffer() bool {
	switch s {
	case StageScreen, StageInterview, StageFinalInterview:
		return true
	}
	return false
}
