package networkstore

import (
	dbmodels "proposal-pipeline-backend/models/db"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Provider справочник участников: кто кого представляет и кто с какой компанией работает
type Provider interface {
	GetMember(id string) (*dbmodels.Member, error)
	GetJob(id string) (*dbmodels.Job, error)
	HasActiveCandidateAssignments(recruiterID string) (bool, error)
	IsRecruiterOfCandidate(recruiterID, candidateID string) (bool, error)
	CompanyIDsForRecruiter(recruiterID string) ([]string, error)
	CompanyIDForMember(memberID string) (string, error)
	ActiveCompanyRecruiter(companyID string) (string, error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) GetMember(id string) (*dbmodels.Member, error) {
	var rec dbmodels.Member
	err := i.db.
		Where("id = ?", id).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (i impl) GetJob(id string) (*dbmodels.Job, error) {
	var rec dbmodels.Job
	err := i.db.
		Where("id = ?", id).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (i impl) HasActiveCandidateAssignments(recruiterID string) (bool, error) {
	var count int64
	err := i.db.
		Model(dbmodels.RecruiterCandidate{}).
		Where("recruiter_id = ?", recruiterID).
		Where("active = ?", true).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (i impl) IsRecruiterOfCandidate(recruiterID, candidateID string) (bool, error) {
	var count int64
	err := i.db.
		Model(dbmodels.RecruiterCandidate{}).
		Where("recruiter_id = ?", recruiterID).
		Where("candidate_id = ?", candidateID).
		Where("active = ?", true).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (i impl) CompanyIDsForRecruiter(recruiterID string) ([]string, error) {
	ids := []string{}
	err := i.db.
		Model(dbmodels.CompanyRecruiter{}).
		Where("recruiter_id = ?", recruiterID).
		Where("active = ?", true).
		Order("company_id").
		Pluck("company_id", &ids).
		Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CompanyIDForMember компания сотрудника; пустая строка, если участник не привязан к компании
func (i impl) CompanyIDForMember(memberID string) (string, error) {
	member, err := i.GetMember(memberID)
	if err != nil {
		return "", err
	}
	if member == nil || member.CompanyID == nil {
		return "", nil
	}
	return *member.CompanyID, nil
}

// ActiveCompanyRecruiter рекрутер на стороне компании; при нескольких берется самый ранний
func (i impl) ActiveCompanyRecruiter(companyID string) (string, error) {
	var rec dbmodels.CompanyRecruiter
	err := i.db.
		Where("company_id = ?", companyID).
		Where("active = ?", true).
		Order("created_at").
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return rec.RecruiterID, nil
}
