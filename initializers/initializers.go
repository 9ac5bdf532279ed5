package initializers

import (
	"context"
	"os"
	"time"

	"proposal-pipeline-backend/config"
	"proposal-pipeline-backend/db"
	"proposal-pipeline-backend/fiberlog"
	"proposal-pipeline-backend/lib/eventbus"
	gatereviewhandler "proposal-pipeline-backend/lib/gate-review"
	"proposal-pipeline-backend/lib/metrics"
	notificationhandler "proposal-pipeline-backend/lib/notification"
	proposalhandler "proposal-pipeline-backend/lib/proposal"
	proposalstore "proposal-pipeline-backend/lib/proposal/store"
	sweeprunstore "proposal-pipeline-backend/lib/proposal/sweep-run-store"
	timeoutworker "proposal-pipeline-backend/lib/proposal/timeout-worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Services зависимости приложения, создаются один раз при старте
type Services struct {
	Config        *config.Configuration
	LoggerConfig  *fiberlog.Config
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Registry      *prometheus.Registry
	SweepMetrics  *metrics.Sweeper
	Publisher     eventbus.Publisher
	DeadLetter    eventbus.DeadLetter
	Proposals     proposalhandler.Provider
	GateReview    gatereviewhandler.Provider
	Sweeper       timeoutworker.Provider
	Notifications notificationhandler.Provider
}

func InitAllServices(ctx context.Context, cfg *config.Configuration) (*Services, error) {
	s := &Services{
		Config:       cfg,
		LoggerConfig: InitLogger(),
		Registry:     prometheus.NewRegistry(),
	}
	s.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var err error
	s.DB, err = InitDBConnection(cfg)
	if err != nil {
		return nil, err
	}
	s.Redis, err = InitRedis(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.DeadLetter, err = InitEventArchive(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	eventMetrics := metrics.NewEvents(s.Registry)
	s.Publisher = eventbus.NewRedisPublisher(s.Redis, cfg.Events.Topic, cfg.Events.MaxLen, cfg.PublishTimeout(),
		func(eventType eventbus.EventType, err error) {
			eventMetrics.ObservePublish(string(eventType), err)
		})
	s.SweepMetrics = metrics.NewSweeper(s.Registry)

	s.Proposals = proposalhandler.NewHandler(s.DB, s.Publisher, s.DeadLetter, cfg.ResponseWindow())
	s.GateReview = gatereviewhandler.NewHandler(s.DB)
	s.Sweeper = NewSweeper(cfg, s.DB, s.Publisher, s.DeadLetter, s.SweepMetrics)
	s.Notifications = notificationhandler.NewHandler(s.DB, s.Redis, InitSmtp(cfg), cfg.Notification.From, cfg.NotificationDedupTTL())
	return s, nil
}

func NewSweeper(cfg *config.Configuration, DB *gorm.DB, publisher eventbus.Publisher, deadLetter eventbus.DeadLetter, sweepMetrics *metrics.Sweeper) timeoutworker.Provider {
	return timeoutworker.NewWorker(
		proposalstore.NewInstance(DB),
		sweeprunstore.NewInstance(DB),
		publisher,
		deadLetter,
		sweepMetrics,
		timeoutworker.Config{
			CallTimeout:  cfg.SweepCallTimeout(),
			SoftDeadline: cfg.SweepSoftDeadline(),
			MaxAttempts:  cfg.Sweeper.MaxAttempts,
			Concurrency:  cfg.Sweeper.Concurrency,
		})
}

// StartWorkers фоновые задачи процесса api
func (s *Services) StartWorkers(ctx context.Context) {
	if *s.Config.Sweeper.InProcess {
		// Задача перевода просроченных предложений в expired
		s.Sweeper.StartWorker(ctx, s.Config.SweepFirstRunDelay(), s.Config.SweepInterval())
	}
	if *s.Config.Notification.Enabled {
		go s.runNotifications(ctx)
	}
}

func (s *Services) runNotifications(ctx context.Context) {
	consumerName := s.Config.Notification.Consumer
	if consumerName == "" {
		consumerName, _ = os.Hostname()
	}
	consumer := eventbus.NewConsumer(s.Redis, eventbus.ConsumerConfig{
		Topic:    s.Config.Events.Topic,
		Group:    s.Config.Notification.Group,
		Consumer: consumerName,
		Patterns: notificationhandler.Patterns,
		Block:    s.Config.NotificationBlockTimeout(),
	}, s.Notifications.Handle)
	for {
		err := consumer.Run(ctx)
		if err == nil {
			return
		}
		log.WithError(err).Error("ошибка запуска рассылки уведомлений")
		if !makeTimeGap(ctx) {
			return
		}
	}
}

func (s *Services) Close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.WithError(err).Error("ошибка закрытия соединения с redis")
		}
	}
	if s.DB != nil {
		db.Close(s.DB)
	}
}

func makeTimeGap(ctx context.Context) (canRun bool) {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Second * 10):
		return true
	}
}
