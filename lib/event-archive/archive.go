package eventarchive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"proposal-pipeline-backend/lib/eventbus"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Provider хранилище событий, которые не удалось опубликовать.
// Состояние предложения уже сохранено, архив нужен для ручной переотправки.
type Provider interface {
	Save(ctx context.Context, event eventbus.Event, cause error) error
}

type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Record struct {
	Event    eventbus.Event `json:"event"`
	Error    string         `json:"error"`
	FailedAt time.Time      `json:"failed_at"`
}

func NewInstance(client ObjectPutter, bucket string) Provider {
	return &impl{
		client: client,
		bucket: bucket,
	}
}

type impl struct {
	client ObjectPutter
	bucket string
}

func (i impl) Save(ctx context.Context, event eventbus.Event, cause error) error {
	rec := Record{
		Event:    event,
		FailedAt: time.Now().UTC(),
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "ошибка сериализации события для архива")
	}
	objectName := ObjectName(event, rec.FailedAt)
	_, err = i.client.PutObject(ctx, i.bucket, objectName, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return errors.Wrapf(err, "ошибка сохранения события %v в архив", event.Type)
	}
	log.
		WithField("bucket", i.bucket).
		WithField("object", objectName).
		Info("неопубликованное событие сохранено в архив")
	return nil
}

// ObjectName ключ объекта: тип события и дата, чтобы переотправлять выборочно
func ObjectName(event eventbus.Event, at time.Time) string {
	return fmt.Sprintf("%v/%v/%v.json", event.Type, at.UTC().Format("2006/01/02"), uuid.NewString())
}
