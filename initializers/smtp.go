package initializers

import (
	"proposal-pipeline-backend/config"
	"proposal-pipeline-backend/lib/smtp"

	log "github.com/sirupsen/logrus"
)

func InitSmtp(cfg *config.Configuration) smtp.Provider {
	mailer := smtp.NewClient(cfg.Smtp.User, cfg.Smtp.Password, cfg.Smtp.Host, cfg.Smtp.Port, *cfg.Smtp.TLSEnabled)
	if !mailer.IsConfigured() {
		log.Warn("SMTP не настроен, уведомления по почте отправляться не будут")
	}
	return mailer
}
