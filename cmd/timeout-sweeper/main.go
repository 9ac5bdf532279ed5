package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"proposal-pipeline-backend/config"
	"proposal-pipeline-backend/db"
	"proposal-pipeline-backend/initializers"
	"proposal-pipeline-backend/lib/eventbus"
	"proposal-pipeline-backend/lib/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	log "github.com/sirupsen/logrus"
)

// Один проход перевода просроченных предложений для внешнего планировщика (cron, k8s CronJob).
// Код выхода 1, если проход прерван.
func main() {
	initializers.InitLogger()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.InitConfig()
	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Error("перевод просроченных предложений завершился ошибкой")
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Configuration) error {
	DB, err := initializers.InitDBConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close(DB)

	client, err := initializers.InitRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	deadLetter, err := initializers.InitEventArchive(ctx, cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	eventMetrics := metrics.NewEvents(registry)
	publisher := eventbus.NewRedisPublisher(client, cfg.Events.Topic, cfg.Events.MaxLen, cfg.PublishTimeout(),
		func(eventType eventbus.EventType, err error) {
			eventMetrics.ObservePublish(string(eventType), err)
		})
	sweeper := initializers.NewSweeper(cfg, DB, publisher, deadLetter, metrics.NewSweeper(registry))

	result, sweepErr := sweeper.Sweep(ctx)
	log.
		WithField("run_id", result.RunID).
		WithField("status", result.Status).
		WithField("found", result.Found).
		WithField("timed_out", result.TimedOut).
		WithField("failed", result.Failed).
		Info("перевод просроченных предложений завершен")

	if cfg.Metrics.PushGatewayURL != "" {
		err = push.New(cfg.Metrics.PushGatewayURL, cfg.Metrics.Job).Gatherer(registry).Push()
		if err != nil {
			log.WithError(err).Error("ошибка отправки метрик в pushgateway")
		}
	}
	return sweepErr
}
