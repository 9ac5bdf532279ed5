package db

import (
	dbmodels "proposal-pipeline-backend/models/db"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func AutoMigrateDB(DB *gorm.DB) error {
	log.Info("Запуск миграций")
	if err := DB.AutoMigrate(&dbmodels.Job{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры Job")
	}
	if err := DB.AutoMigrate(&dbmodels.Member{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры Member")
	}
	if err := DB.AutoMigrate(&dbmodels.RecruiterCandidate{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры RecruiterCandidate")
	}
	if err := DB.AutoMigrate(&dbmodels.CompanyRecruiter{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры CompanyRecruiter")
	}
	if err := DB.AutoMigrate(&dbmodels.Proposal{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры Proposal")
	}
	if err := DB.AutoMigrate(&dbmodels.GateHistory{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры GateHistory")
	}
	if err := DB.AutoMigrate(&dbmodels.SweepRun{}); err != nil {
		return errors.Wrap(err, "ошибка создания структуры SweepRun")
	}
	log.Info("Миграция прошла успешно")
	return nil
}
