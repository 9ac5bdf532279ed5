package timeoutworker

import (
	"context"
	"sync"
	"testing"
	"time"

	"proposal-pipeline-backend/lib/eventbus"
	"proposal-pipeline-backend/lib/metrics"
	proposalstore "proposal-pipeline-backend/lib/proposal/store"
	sweeprunstore "proposal-pipeline-backend/lib/proposal/sweep-run-store"
	"proposal-pipeline-backend/lib/utils/helpers"
	"proposal-pipeline-backend/lib/utils/testdb"
	"proposal-pipeline-backend/models"
	dbmodels "proposal-pipeline-backend/models/db"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var proposedAt = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type deadLetterMock struct {
	mu    sync.Mutex
	saved []eventbus.Event
}

func (d *deadLetterMock) Save(ctx context.Context, event eventbus.Event, cause error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saved = append(d.saved, event)
	return nil
}

// faultyStore падает на ApplyTimeout для выбранного предложения.
// Для lostAckID первый переход сохраняется, но вызывающий получает сетевую ошибку.
type faultyStore struct {
	proposalstore.Provider
	failID      string
	lostAckID   string
	lostAck     *sync.Once
	fetchErr    error
	delay       time.Duration
	beforeApply func(id string)
}

func (s faultyStore) FindExpired(ctx context.Context, now time.Time, limit int) ([]dbmodels.Proposal, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.Provider.FindExpired(ctx, now, limit)
}

func (s faultyStore) ApplyTimeout(ctx context.Context, id string, at time.Time) error {
	if s.beforeApply != nil {
		s.beforeApply(id)
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if id == s.failID {
		return errors.New("connection reset by peer")
	}
	if id == s.lostAckID && s.lostAck != nil {
		if err := s.Provider.ApplyTimeout(ctx, id, at); err != nil {
			return err
		}
		lost := false
		s.lostAck.Do(func() { lost = true })
		if lost {
			return errors.New("read tcp 10.0.0.5:5432: i/o timeout")
		}
		return nil
	}
	return s.Provider.ApplyTimeout(ctx, id, at)
}

type fixture struct {
	db        *gorm.DB
	store     proposalstore.Provider
	runStore  sweeprunstore.Provider
	publisher *recordingPublisher
	metrics   *metrics.Sweeper
}

func newFixture(t *testing.T) *fixture {
	gdb := testdb.Open(t)
	return &fixture{
		db:        gdb,
		store:     proposalstore.NewInstance(gdb),
		runStore:  sweeprunstore.NewInstance(gdb),
		publisher: &recordingPublisher{},
		metrics:   metrics.NewSweeper(prometheus.NewRegistry()),
	}
}

func (f *fixture) worker(store proposalstore.Provider, at time.Time, cfg Config) *impl {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 2
	}
	cfg.RetryInterval = time.Millisecond
	w := newImpl(store, f.runStore, f.publisher, nil, f.metrics, cfg)
	w.now = func() time.Time { return at }
	return w
}

func (f *fixture) propose(t *testing.T, dueAt time.Time) *dbmodels.Proposal {
	t.Helper()
	rec, err := f.store.Create(context.Background(), dbmodels.Proposal{
		JobID:         "job-1",
		CompanyID:     "company-1",
		CandidateID:   "cand-1",
		RecruiterID:   helpers.Ptr("rec-1"),
		Stage:         models.StageRecruiterProposed,
		State:         models.ProposalStateProposed,
		ProposedAt:    helpers.Ptr(proposedAt),
		ResponseDueAt: helpers.Ptr(dueAt),
	})
	require.NoError(t, err)
	return rec
}

func TestSweepTimesOutOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dueAt := proposedAt.Add(72 * time.Hour)
	rec := f.propose(t, dueAt)

	at := proposedAt.Add(73 * time.Hour)
	result, err := f.worker(f.store, at, Config{}).Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Found)
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, dbmodels.SweepStatusSuccess, result.Status)
	require.NotEmpty(t, result.RunID)

	current, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProposalStateTimedOut, current.State)
	require.True(t, current.TimedOutAt.Equal(at))

	require.Equal(t, 1, f.publisher.count())
	event := f.publisher.events[0]
	require.Equal(t, eventbus.ProposalTimedOut, event.Type)
	var data eventbus.ProposalTimedOutData
	require.NoError(t, event.Decode(&data))
	require.Equal(t, rec.ID, data.ProposalID)
	require.Equal(t, "rec-1", data.RecruiterID)
	require.True(t, data.ResponseDueAt.Equal(dueAt))
	require.True(t, data.ProposedAt.Equal(proposedAt))
	require.True(t, data.TimedOutAt.Equal(at))

	second, err := f.worker(f.store, proposedAt.Add(74*time.Hour), Config{}).Sweep(ctx)
	require.NoError(t, err)
	require.Zero(t, second.Found)
	require.Equal(t, dbmodels.SweepStatusSuccess, second.Status)
	require.Equal(t, 1, f.publisher.count())

	runs, err := f.runStore.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.TimedOut))
	require.Equal(t, float64(2), testutil.ToFloat64(f.metrics.Runs.WithLabelValues("success")))
}

func TestSweepNeverTimesOutEarly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rec := f.propose(t, proposedAt.Add(72*time.Hour))

	for _, at := range []time.Time{proposedAt, proposedAt.Add(71 * time.Hour), proposedAt.Add(72 * time.Hour)} {
		result, err := f.worker(f.store, at, Config{}).Sweep(ctx)
		require.NoError(t, err)
		require.Zero(t, result.Found)
	}
	current, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProposalStateProposed, current.State)
	require.Zero(t, f.publisher.count())
}

func TestSweepIsolatesItemFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := []string{}
	for idx := 0; idx < 5; idx++ {
		ids = append(ids, f.propose(t, proposedAt.Add(time.Duration(idx+1)*time.Hour)).ID)
	}
	store := faultyStore{Provider: f.store, failID: ids[2]}

	result, err := f.worker(store, proposedAt.Add(73*time.Hour), Config{}).Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, result.Found)
	require.Equal(t, 4, result.Succeeded)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, dbmodels.SweepStatusPartial, result.Status)

	for idx, id := range ids {
		current, err := f.store.GetByID(ctx, id)
		require.NoError(t, err)
		if idx == 2 {
			require.Equal(t, models.ProposalStateProposed, current.State)
			continue
		}
		require.Equal(t, models.ProposalStateTimedOut, current.State)
	}
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Errors.WithLabelValues(metrics.SweepErrorStore)))

	retried, err := f.worker(f.store, proposedAt.Add(80*time.Hour), Config{}).Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, retried.Found)
	require.Equal(t, 1, retried.Succeeded)
}

func TestSweepPublishesAfterLostCommitAck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rec := f.propose(t, proposedAt.Add(time.Hour))
	store := faultyStore{Provider: f.store, lostAckID: rec.ID, lostAck: &sync.Once{}}

	result, err := f.worker(store, proposedAt.Add(73*time.Hour), Config{MaxAttempts: 3}).Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Found)
	require.Equal(t, 1, result.TimedOut)
	require.Equal(t, 1, result.Succeeded)
	require.Zero(t, result.Skipped)
	require.Zero(t, result.Failed)
	require.Equal(t, dbmodels.SweepStatusSuccess, result.Status)

	require.Equal(t, 1, f.publisher.count())
	require.Equal(t, eventbus.ProposalTimedOut, f.publisher.events[0].Type)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.TimedOut))
}

func TestSweepLosesRaceToHuman(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rec := f.propose(t, proposedAt.Add(72*time.Hour))
	at := proposedAt.Add(73 * time.Hour)

	var humanErr error
	store := faultyStore{
		Provider: f.store,
		beforeApply: func(id string) {
			_, humanErr = f.store.ApplyTransition(ctx, id, proposalstore.Transition{
				FromStages:  []models.ApplicationStage{models.StageRecruiterProposed},
				FromState:   helpers.Ptr(models.ProposalStateProposed),
				Stage:       models.StageAIReview,
				State:       helpers.Ptr(models.ProposalStateAccepted),
				RespondedAt: helpers.Ptr(at),
				At:          at,
			})
		},
	}
	result, err := f.worker(store, at, Config{}).Sweep(ctx)
	require.NoError(t, err)
	require.NoError(t, humanErr)
	require.Equal(t, 1, result.Found)
	require.Equal(t, 1, result.Skipped)
	require.Zero(t, result.Failed)
	require.Equal(t, dbmodels.SweepStatusSuccess, result.Status)

	current, err := f.store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProposalStateAccepted, current.State)
	require.Zero(t, f.publisher.count())
}

func TestSweepSoftDeadline(t *testing.T) {
	f := newFixture(t)
	for idx := 0; idx < 3; idx++ {
		f.propose(t, proposedAt.Add(time.Duration(idx+1)*time.Hour))
	}
	store := faultyStore{Provider: f.store, delay: 30 * time.Millisecond}

	result, err := f.worker(store, proposedAt.Add(73*time.Hour), Config{SoftDeadline: 5 * time.Millisecond}).Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, result.Found)
	require.True(t, result.Partial)
	require.Equal(t, dbmodels.SweepStatusPartial, result.Status)
	require.Less(t, result.Succeeded, 3)
}

func TestSweepAbortsWhenStoreUnreachable(t *testing.T) {
	f := newFixture(t)
	store := faultyStore{Provider: f.store, fetchErr: errors.New("dial tcp: connection refused")}

	result, err := f.worker(store, proposedAt, Config{}).Sweep(context.Background())
	require.Error(t, err)
	require.Equal(t, dbmodels.SweepStatusFailed, result.Status)

	runs, err := f.runStore.List(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, dbmodels.SweepStatusFailed, runs[0].Status)
	require.Contains(t, runs[0].Error, "connection refused")
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Errors.WithLabelValues(metrics.SweepErrorFetch)))
}

func TestSweepPublishFailure(t *testing.T) {
	f := newFixture(t)
	rec := f.propose(t, proposedAt.Add(time.Hour))
	f.publisher.err = errors.New("redis down")
	deadLetter := &deadLetterMock{}
	w := f.worker(f.store, proposedAt.Add(73*time.Hour), Config{})
	w.deadLetter = deadLetter

	result, err := w.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.TimedOut)
	require.Equal(t, 1, result.Failed)
	require.Zero(t, result.Succeeded)
	require.Len(t, deadLetter.saved, 1)

	current, err := f.store.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProposalStateTimedOut, current.State)
}

func TestSweepConcurrent(t *testing.T) {
	f := newFixture(t)
	for idx := 0; idx < 12; idx++ {
		f.propose(t, proposedAt.Add(time.Duration(idx+1)*time.Minute))
	}
	result, err := f.worker(f.store, proposedAt.Add(73*time.Hour), Config{Concurrency: 4}).Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, result.Found)
	require.Equal(t, 12, result.Succeeded)
	require.Equal(t, 12, f.publisher.count())
}

func TestTriggerIsExclusive(t *testing.T) {
	f := newFixture(t)
	w := f.worker(f.store, proposedAt, Config{})

	release := make(chan struct{})
	locked := make(chan struct{})
	go func() {
		_, _ = w.locks.WithDelay(context.Background(), manualKey, time.Second, func() error {
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	_, err := w.Trigger(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRunning)
	close(release)

	require.Eventually(t, func() bool { return !w.locks.IsLocked(manualKey) }, time.Second, 10*time.Millisecond)
	result, err := w.Trigger(context.Background())
	require.NoError(t, err)
	require.Equal(t, dbmodels.SweepStatusSuccess, result.Status)
}
