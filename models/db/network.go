package dbmodels

import "proposal-pipeline-backend/models"

type Job struct {
	BaseModel
	CompanyID   string `gorm:"type:varchar(36);index"`
	Title       string
	CompanyName string
}

// Member участник воронки: кандидат, рекрутер или сотрудник компании
type Member struct {
	BaseModel
	Role      models.PartyRole `gorm:"type:varchar(16)"`
	FullName  string
	Email     string
	CompanyID *string `gorm:"type:varchar(36);index"`
}

// RecruiterCandidate рекрутер представляет кандидата
type RecruiterCandidate struct {
	BaseModel
	RecruiterID string `gorm:"type:varchar(36);index"`
	CandidateID string `gorm:"type:varchar(36);index"`
	Active      bool
}

// CompanyRecruiter рекрутер работает на стороне компании
type CompanyRecruiter struct {
	BaseModel
	RecruiterID string `gorm:"type:varchar(36);index"`
	CompanyID   string `gorm:"type:varchar(36);index"`
	Active      bool
}
