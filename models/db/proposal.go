package dbmodels

import (
	"proposal-pipeline-backend/models"
	"time"
)

type Proposal struct {
	BaseModel
	JobID              string                  `gorm:"type:varchar(36);index"`
	Job                *Job                    `gorm:"foreignKey:JobID"`
	CompanyID          string                  `gorm:"type:varchar(36);index"`
	CandidateID        string                  `gorm:"type:varchar(36);index"`
	RecruiterID        *string                 `gorm:"type:varchar(36);index"`
	CompanyRecruiterID *string                 `gorm:"type:varchar(36);index"`
	Stage              models.ApplicationStage `gorm:"type:varchar(32);index:idx_proposals_gate_stage,priority:2"`
	State              models.ProposalState    `gorm:"type:varchar(16);index:idx_proposals_state_due,priority:1"`
	CurrentGate        *models.Gate            `gorm:"type:varchar(32);index:idx_proposals_gate_stage,priority:1"`
	ProposedAt         *time.Time
	ResponseDueAt      *time.Time `gorm:"index:idx_proposals_state_due,priority:2"`
	TimedOutAt         *time.Time
	RespondedAt        *time.Time
}

func (p Proposal) HasRecruiter() bool {
	return p.RecruiterID != nil && *p.RecruiterID != ""
}

func (p Proposal) HasCompanyRecruiter() bool {
	return p.CompanyRecruiterID != nil && *p.CompanyRecruiterID != ""
}

func (p Proposal) GetRecruiterID() string {
	if p.RecruiterID == nil {
		return ""
	}
	return *p.RecruiterID
}

func (p Proposal) GetCompanyRecruiterID() string {
	if p.CompanyRecruiterID == nil {
		return ""
	}
	return *p.CompanyRecruiterID
}

func (p Proposal) GetJobTitle() string {
	if p.Job == nil {
		return ""
	}
	return p.Job.Title
}

func (p Proposal) GetCompanyName() string {
	if p.Job == nil {
		return ""
	}
	return p.Job.CompanyName
}

// IsExpired предложение ждет ответа, но срок уже прошел
func (p Proposal) IsExpired(now time.Time) bool {
	return p.State == models.ProposalStateProposed &&
		p.ResponseDueAt != nil &&
		p.ResponseDueAt.Before(now)
}

type ProposalFilter struct {
	Gate               models.Gate
	Stages             []models.ApplicationStage
	RecruiterID        string
	CompanyRecruiterID string
	CompanyIDs         []string
	UrgentFirst        bool
	Limit              int
	Offset             int
}
