package initializers

import (
	"proposal-pipeline-backend/config"
	"proposal-pipeline-backend/db"

	"gorm.io/gorm"
)

func InitDBConnection(cfg *config.Configuration) (*gorm.DB, error) {
	return db.Connect(cfg.Database.Host, cfg.Database.Port, cfg.Database.Name,
		cfg.Database.User, cfg.Database.Password, *cfg.Database.DebugMode, *cfg.Database.MigrateOnStart)
}
