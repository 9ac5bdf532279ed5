package timeoutworker

import (
	"context"
	"sync"
	"time"

	"proposal-pipeline-backend/lib/eventbus"
	"proposal-pipeline-backend/lib/metrics"
	proposalstore "proposal-pipeline-backend/lib/proposal/store"
	sweeprunstore "proposal-pipeline-backend/lib/proposal/sweep-run-store"
	baseworker "proposal-pipeline-backend/lib/utils/base-worker"
	"proposal-pipeline-backend/lib/utils/helpers"
	"proposal-pipeline-backend/lib/utils/lock"
	"proposal-pipeline-backend/lib/utils/retry"
	dbmodels "proposal-pipeline-backend/models/db"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	workerName = "ProposalTimeoutWorker"
	manualKey  = "proposal-timeout-sweep"
)

var ErrAlreadyRunning = errors.New("перевод просроченных предложений уже выполняется")

type Config struct {
	CallTimeout   time.Duration
	SoftDeadline  time.Duration
	MaxAttempts   int
	RetryInterval time.Duration
	Concurrency   int
	BatchLimit    int
}

// Result итог одного прохода. Succeeded - переведены и событие опубликовано,
// TimedOut - переведены (включая те, где публикация не удалась).
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Found      int
	Succeeded  int
	TimedOut   int
	Skipped    int
	Failed     int
	Partial    bool
	Status     dbmodels.SweepStatus
}

type Provider interface {
	// Sweep один проход без состояния между вызовами
	Sweep(ctx context.Context) (Result, error)
	// Trigger ручной запуск; параллельный ручной запуск в том же процессе получает ErrAlreadyRunning
	Trigger(ctx context.Context) (Result, error)
	Runs(limit int) ([]dbmodels.SweepRun, error)
	StartWorker(ctx context.Context, firstRunDelay, interval time.Duration)
}

func NewWorker(store proposalstore.Provider, runStore sweeprunstore.Provider, publisher eventbus.Publisher, deadLetter eventbus.DeadLetter, sweepMetrics *metrics.Sweeper, cfg Config) Provider {
	return newImpl(store, runStore, publisher, deadLetter, sweepMetrics, cfg)
}

func newImpl(store proposalstore.Provider, runStore sweeprunstore.Provider, publisher eventbus.Publisher, deadLetter eventbus.DeadLetter, sweepMetrics *metrics.Sweeper, cfg Config) *impl {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	policy := retry.DefaultPolicy(cfg.MaxAttempts)
	if cfg.RetryInterval > 0 {
		policy.InitialInterval = cfg.RetryInterval
		policy.MaxInterval = cfg.RetryInterval * 8
	}
	return &impl{
		BaseImpl:   *baseworker.NewInstance(workerName, 0, 0),
		store:      store,
		runStore:   runStore,
		publisher:  publisher,
		deadLetter: deadLetter,
		metrics:    sweepMetrics,
		cfg:        cfg,
		policy:     policy,
		locks:      lock.NewKeyed(),
		now:        helpers.UTCNow,
	}
}

type impl struct {
	baseworker.BaseImpl
	store      proposalstore.Provider
	runStore   sweeprunstore.Provider
	publisher  eventbus.Publisher
	deadLetter eventbus.DeadLetter
	metrics    *metrics.Sweeper
	cfg        Config
	policy     retry.Policy
	locks      *lock.Keyed
	now        helpers.Clock
}

type counters struct {
	mu        sync.Mutex
	succeeded int
	timedOut  int
	skipped   int
	failed    int
}

func (i *impl) StartWorker(ctx context.Context, firstRunDelay, interval time.Duration) {
	worker := baseworker.NewInstance(workerName, firstRunDelay, interval)
	go worker.Run(ctx, func(ctx context.Context) {
		if _, err := i.Sweep(ctx); err != nil {
			worker.GetLogger().WithError(err).Error("ошибка перевода просроченных предложений")
		}
	})
}

func (i *impl) Trigger(ctx context.Context) (Result, error) {
	var result Result
	ok, err := i.locks.WithDelay(ctx, manualKey, 0, func() error {
		var sweepErr error
		result, sweepErr = i.Sweep(ctx)
		return sweepErr
	})
	if !ok {
		return Result{}, ErrAlreadyRunning
	}
	return result, err
}

func (i *impl) Runs(limit int) ([]dbmodels.SweepRun, error) {
	return i.runStore.List(limit)
}

func (i *impl) Sweep(ctx context.Context) (Result, error) {
	result := Result{StartedAt: i.now()}
	now := result.StartedAt
	logger := i.GetLogger().WithField("sweep_at", now)

	var expired []dbmodels.Proposal
	err := retry.Do(ctx, i.policy, func(ctx context.Context) error {
		callCtx, cancel := i.callContext(ctx)
		defer cancel()
		list, err := i.store.FindExpired(callCtx, now, i.cfg.BatchLimit)
		if err != nil {
			return err
		}
		expired = list
		return nil
	})
	if err != nil {
		i.metrics.ObserveError(metrics.SweepErrorFetch)
		result.Status = dbmodels.SweepStatusFailed
		i.finish(&result, err, logger)
		return result, errors.Wrap(err, "ошибка получения просроченных предложений")
	}
	result.Found = len(expired)
	if result.Found == 0 {
		result.Status = dbmodels.SweepStatusSuccess
		i.finish(&result, nil, logger)
		return result, nil
	}
	logger.WithField("found", result.Found).Info("найдены просроченные предложения")

	softCtx := ctx
	if i.cfg.SoftDeadline > 0 {
		var cancel context.CancelFunc
		softCtx, cancel = context.WithTimeout(ctx, i.cfg.SoftDeadline)
		defer cancel()
	}

	cnt := &counters{}
	g := errgroup.Group{}
	g.SetLimit(i.cfg.Concurrency)
	for _, proposal := range expired {
		if helpers.IsContextDone(softCtx) {
			result.Partial = true
			break
		}
		g.Go(func() error {
			i.processOne(ctx, proposal, now, cnt)
			return nil
		})
	}
	_ = g.Wait()

	result.Succeeded = cnt.succeeded
	result.TimedOut = cnt.timedOut
	result.Skipped = cnt.skipped
	result.Failed = cnt.failed
	if ctx.Err() != nil && result.Succeeded+result.Skipped+result.Failed < result.Found {
		result.Partial = true
	}
	result.Status = dbmodels.SweepStatusSuccess
	if result.Partial || result.Failed > 0 {
		result.Status = dbmodels.SweepStatusPartial
	}
	i.finish(&result, nil, logger)
	return result, nil
}

// processOne ошибки по одному предложению не прерывают проход
func (i *impl) processOne(ctx context.Context, proposal dbmodels.Proposal, now time.Time, cnt *counters) {
	logger := i.GetLogger().WithField("proposal_id", proposal.ID)
	err := retry.Do(ctx, i.policy, func(ctx context.Context) error {
		callCtx, cancel := i.callContext(ctx)
		defer cancel()
		err := i.store.ApplyTimeout(callCtx, proposal.ID, now)
		if proposalstore.IsLogical(err) {
			return retry.Permanent(err)
		}
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, proposalstore.ErrAlreadyTerminal),
		errors.Is(err, proposalstore.ErrNotFound),
		errors.Is(err, proposalstore.ErrNotExpired):
		logger.WithError(err).Info("предложение пропущено")
		cnt.add(func(c *counters) { c.skipped++ })
		return
	default:
		logger.WithError(err).Error("ошибка перевода предложения в timed_out")
		i.metrics.ObserveError(metrics.SweepErrorStore)
		cnt.add(func(c *counters) { c.failed++ })
		return
	}
	cnt.add(func(c *counters) { c.timedOut++ })

	if err = i.publishTimedOut(ctx, proposal, now); err != nil {
		logger.WithError(err).Error("ошибка публикации события proposal.timed_out")
		i.metrics.ObserveError(metrics.SweepErrorPublish)
		cnt.add(func(c *counters) { c.failed++ })
		return
	}
	logger.Info("предложение переведено в timed_out")
	cnt.add(func(c *counters) { c.succeeded++ })
}

// publishTimedOut повторяется ограниченное число раз: переход уже сохранен
func (i *impl) publishTimedOut(ctx context.Context, proposal dbmodels.Proposal, now time.Time) error {
	if i.publisher == nil {
		return nil
	}
	data := eventbus.ProposalTimedOutData{
		ProposalID:  proposal.ID,
		JobID:       proposal.JobID,
		CandidateID: proposal.CandidateID,
		RecruiterID: proposal.GetRecruiterID(),
		TimedOutAt:  now,
	}
	if proposal.ProposedAt != nil {
		data.ProposedAt = *proposal.ProposedAt
	}
	if proposal.ResponseDueAt != nil {
		data.ResponseDueAt = *proposal.ResponseDueAt
	}
	event, err := eventbus.NewEvent(eventbus.ProposalTimedOut, now, data)
	if err != nil {
		return err
	}
	err = retry.Do(ctx, i.policy, func(ctx context.Context) error {
		callCtx, cancel := i.callContext(ctx)
		defer cancel()
		return i.publisher.Publish(callCtx, event)
	})
	if err != nil && i.deadLetter != nil {
		if archiveErr := i.deadLetter.Save(context.WithoutCancel(ctx), event, err); archiveErr != nil {
			log.WithError(archiveErr).Error("ошибка сохранения неопубликованного события")
		}
	}
	return err
}

func (i *impl) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if i.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, i.cfg.CallTimeout)
}

func (i *impl) finish(result *Result, runErr error, logger *log.Entry) {
	result.FinishedAt = i.now()
	rec := dbmodels.SweepRun{
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Found:      result.Found,
		Succeeded:  result.Succeeded,
		TimedOut:   result.TimedOut,
		Skipped:    result.Skipped,
		Failed:     result.Failed,
		Partial:    result.Partial,
		Status:     result.Status,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if i.runStore != nil {
		id, err := i.runStore.Create(rec)
		if err != nil {
			logger.WithError(err).Error("ошибка сохранения результата прохода")
		}
		result.RunID = id
	}
	i.metrics.ObserveRun(string(result.Status), result.StartedAt, result.FinishedAt, result.TimedOut)
	logger.
		WithField("found", result.Found).
		WithField("succeeded", result.Succeeded).
		WithField("timed_out", result.TimedOut).
		WithField("skipped", result.Skipped).
		WithField("failed", result.Failed).
		WithField("partial", result.Partial).
		WithField("status", result.Status).
		Info("проход завершен")
}

func (c *counters) add(fn func(c *counters)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}
