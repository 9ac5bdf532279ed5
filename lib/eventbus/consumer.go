package eventbus

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type Handler func(ctx context.Context, event Event) error

type ConsumerConfig struct {
	Topic     string
	Group     string
	Consumer  string
	Patterns  []string
	Block     time.Duration
	BatchSize int64
}

// Consumer читает stream топика через consumer group. Сообщение подтверждается (XACK)
// только после успешной обработки, иначе остается в pending и будет перечитано.
type Consumer struct {
	client  redis.UniversalClient
	cfg     ConsumerConfig
	handler Handler
}

func NewConsumer(client redis.UniversalClient, cfg ConsumerConfig, handler Handler) *Consumer {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = []string{"#"}
	}
	return &Consumer{
		client:  client,
		cfg:     cfg,
		handler: handler,
	}
}

func (c *Consumer) getLogger() *log.Entry {
	return log.
		WithField("topic", c.cfg.Topic).
		WithField("group", c.cfg.Group).
		WithField("consumer", c.cfg.Consumer)
}

func (c *Consumer) Init(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Topic, c.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return errors.Wrapf(err, "ошибка создания consumer group %v", c.cfg.Group)
	}
	return nil
}

func (c *Consumer) Run(ctx context.Context) error {
	logger := c.getLogger()
	if err := c.Init(ctx); err != nil {
		return err
	}
	logger.Info("чтение событий запущено")
	for {
		if ctx.Err() != nil {
			logger.Info("чтение событий остановлено")
			return nil
		}
		if _, err := c.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("ошибка чтения необработанных событий")
		}
		n, err := c.ProcessNew(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.WithError(err).Error("ошибка чтения событий")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if n == 0 && c.cfg.Block <= 0 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessPending перечитывает доставленные, но не подтвержденные сообщения этого consumer.
// Идет по PEL страницами по BatchSize, начиная после последнего прочитанного id,
// чтобы сообщения, которые стабильно падают, не закрывали остальные.
func (c *Consumer) ProcessPending(ctx context.Context) (int, error) {
	handled := 0
	start := "0"
	for {
		page, err := c.read(ctx, start, -1)
		handled += page.handled
		if err != nil {
			return handled, err
		}
		if page.read < int(c.cfg.BatchSize) || page.lastID == "" {
			return handled, nil
		}
		start = page.lastID
	}
}

func (c *Consumer) ProcessNew(ctx context.Context) (int, error) {
	block := c.cfg.Block
	if block <= 0 {
		block = -1
	}
	page, err := c.read(ctx, ">", block)
	return page.handled, err
}

type readPage struct {
	read    int
	handled int
	lastID  string
}

func (c *Consumer) read(ctx context.Context, start string, block time.Duration) (readPage, error) {
	page := readPage{}
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Topic, start},
		Count:    c.cfg.BatchSize,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return page, nil
		}
		return page, err
	}
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			page.read++
			page.lastID = msg.ID
			if c.handle(ctx, msg) {
				page.handled++
			}
		}
	}
	return page, nil
}

func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) (acked bool) {
	logger := c.getLogger().WithField("message_id", msg.ID)
	routingKey, _ := msg.Values[fieldRoutingKey].(string)
	logger = logger.WithField("routing_key", routingKey)
	if !MatchAny(c.cfg.Patterns, routingKey) {
		return c.ack(ctx, logger, msg.ID)
	}
	payload, _ := msg.Values[fieldPayload].(string)
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logger.WithError(err).Error("некорректное событие, пропускаем")
		return c.ack(ctx, logger, msg.ID)
	}
	if err := c.handler(ctx, event); err != nil {
		logger.WithError(err).Error("ошибка обработки события")
		return false
	}
	return c.ack(ctx, logger, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, logger *log.Entry, id string) bool {
	if err := c.client.XAck(ctx, c.cfg.Topic, c.cfg.Group, id).Err(); err != nil {
		logger.WithError(err).Error("ошибка подтверждения события")
		return false
	}
	return true
}
