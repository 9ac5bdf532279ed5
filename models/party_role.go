package models

// PartyRole роль участника воронки, приходит в claims токена
type PartyRole string

const (
	PartyCandidate PartyRole = "candidate"
	PartyRecruiter PartyRole = "recruiter"
	PartyCompany   PartyRole = "company"
)

var partyRoleHumanName = map[PartyRole]string{
	PartyCandidate: "Кандидат",
	PartyRecruiter: "Рекрутер",
	PartyCompany:   "Компания",
}

func (r PartyRole) ToHuman() string {
	if human, exist := partyRoleHumanName[r]; exist {
		return human
	}
	return string(r)
}

func (r PartyRole) IsValid() bool {
	_, ok := partyRoleHumanName[r]
	return ok
}

type ProposalType string

const (
	ProposalTypeJobOpportunity    ProposalType = "job_opportunity"
	ProposalTypeDirectApplication ProposalType = "direct_application"
	ProposalTypeApplicationScreen ProposalType = "application_screen"
	ProposalTypeApplicationReview ProposalType = "application_review"
	ProposalTypeJobOffer          ProposalType = "job_offer"
)

type PendingActionType string

const (
	PendingActionApprove   PendingActionType = "approve"
	PendingActionScreen    PendingActionType = "screen"
	PendingActionReview    PendingActionType = "review"
	PendingActionInterview PendingActionType = "interview"
	PendingActionAccept    PendingActionType = "accept"
)

const SystemUser = "Система"

// Actor участник, от имени которого выполняется действие
type Actor struct {
	ID   string
	Role PartyRole
}
