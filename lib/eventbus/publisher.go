package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	fieldRoutingKey = "routing_key"
	fieldType       = "type"
	fieldPayload    = "payload"
)

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type PublishObserver func(eventType EventType, err error)

// NewRedisPublisher события пишутся в stream с именем топика. Записи stream хранятся
// на стороне redis, поэтому consumer, который был недоступен, дочитает их позже.
func NewRedisPublisher(client redis.UniversalClient, topic string, maxLen int64, timeout time.Duration, observer PublishObserver) Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &redisPublisher{
		client:   client,
		topic:    topic,
		maxLen:   maxLen,
		timeout:  timeout,
		observer: observer,
	}
}

type redisPublisher struct {
	client   redis.UniversalClient
	topic    string
	maxLen   int64
	timeout  time.Duration
	observer PublishObserver
}

func (p redisPublisher) Publish(ctx context.Context, event Event) (err error) {
	defer func() {
		if p.observer != nil {
			p.observer(event.Type, err)
		}
	}()
	if event.Type == "" {
		return errors.New("не указан тип события")
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "ошибка сериализации события")
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	args := &redis.XAddArgs{
		Stream: p.topic,
		Values: map[string]interface{}{
			fieldRoutingKey: event.Type.RoutingKey(),
			fieldType:       string(event.Type),
			fieldPayload:    string(raw),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return errors.Wrapf(err, "ошибка публикации события %v", event.Type)
	}
	log.
		WithField("topic", p.topic).
		WithField("routing_key", event.Type.RoutingKey()).
		WithField("message_id", id).
		Debug("событие опубликовано")
	return nil
}
