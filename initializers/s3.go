package initializers

import (
	"context"

	"proposal-pipeline-backend/config"
	eventarchive "proposal-pipeline-backend/lib/event-archive"
	"proposal-pipeline-backend/lib/eventbus"
	s3client "proposal-pipeline-backend/s3"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// InitEventArchive хранилище неопубликованных событий; без bucket архив отключен
func InitEventArchive(ctx context.Context, cfg *config.Configuration) (eventbus.DeadLetter, error) {
	if cfg.Events.ArchiveBucket == "" {
		log.Info("Архив неопубликованных событий отключен")
		return nil, nil
	}
	minioClient, err := s3client.NewClient(cfg.S3.Endpoint, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, *cfg.S3.UseSSL)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка инициализации клиента S3")
	}
	if err = s3client.MakeBucket(ctx, minioClient, cfg.Events.ArchiveBucket); err != nil {
		return nil, errors.Wrap(err, "ошибка создания bucket архива событий")
	}
	log.WithField("bucket", cfg.Events.ArchiveBucket).Info("S3 клиент успешно инициализирован")
	return eventarchive.NewInstance(minioClient, cfg.Events.ArchiveBucket), nil
}
