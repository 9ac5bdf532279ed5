package sweeprunstore

import (
	dbmodels "proposal-pipeline-backend/models/db"

	"gorm.io/gorm"
)

type Provider interface {
	Create(rec dbmodels.SweepRun) (id string, err error)
	List(limit int) ([]dbmodels.SweepRun, error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(rec dbmodels.SweepRun) (id string, err error) {
	err = i.db.
		Create(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) List(limit int) ([]dbmodels.SweepRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list := []dbmodels.SweepRun{}
	err := i.db.
		Order("started_at DESC").
		Limit(limit).
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
