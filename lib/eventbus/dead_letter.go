package eventbus

import (
	"context"

	log "github.com/sirupsen/logrus"
)

type DeadLetter interface {
	Save(ctx context.Context, event Event, cause error) error
}

// PublishOrArchive публикует событие; при ошибке сохраняет его в dead letter (если задан).
// Возвращается ошибка публикации: вызывающий решает, считать ли ее сбоем.
func PublishOrArchive(ctx context.Context, publisher Publisher, deadLetter DeadLetter, event Event) error {
	err := publisher.Publish(ctx, event)
	if err == nil {
		return nil
	}
	if deadLetter != nil {
		if archiveErr := deadLetter.Save(context.WithoutCancel(ctx), event, err); archiveErr != nil {
			log.
				WithField("event_type", event.Type).
				WithError(archiveErr).
				Error("ошибка сохранения неопубликованного события")
		}
	}
	return err
}
