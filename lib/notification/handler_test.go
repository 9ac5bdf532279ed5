package notificationhandler

import (
	"context"
	"sync"
	"testing"
	"time"

	"proposal-pipeline-backend/lib/eventbus"
	"proposal-pipeline-backend/lib/utils/testdb"
	"proposal-pipeline-backend/models"
	dbmodels "proposal-pipeline-backend/models/db"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type mailerMock struct {
	mu     sync.Mutex
	sent   []string
	err    error
	failTo string
}

func (m *mailerMock) IsConfigured() bool {
	return true
}

func (m *mailerMock) SendEMail(from, to, message, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.failTo == to {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, to)
	return nil
}

func setup(t *testing.T) (*impl, *mailerMock, *dbmodels.Member, *dbmodels.Member) {
	gdb := testdb.Open(t)
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	candidate := &dbmodels.Member{Role: models.PartyCandidate, FullName: "Иван", Email: "ivan@mail.local"}
	recruiter := &dbmodels.Member{Role: models.PartyRecruiter, FullName: "Анна", Email: "anna@mail.local"}
	require.NoError(t, gdb.Create(candidate).Error)
	require.NoError(t, gdb.Create(recruiter).Error)

	mailer := &mailerMock{}
	h := NewHandler(gdb, client, mailer, "noreply@proposals.local", time.Hour).(*impl)
	return h, mailer, candidate, recruiter
}

func TestTimedOutIsSentOnce(t *testing.T) {
	ctx := context.Background()
	h, mailer, candidate, recruiter := setup(t)
	event, err := eventbus.NewEvent(eventbus.ProposalTimedOut, time.Now(), eventbus.ProposalTimedOutData{
		ProposalID:  "p-1",
		CandidateID: candidate.ID,
		RecruiterID: recruiter.ID,
	})
	require.NoError(t, err)

	require.NoError(t, h.Handle(ctx, event))
	require.NoError(t, h.Handle(ctx, event))
	require.Equal(t, []string{"ivan@mail.local", "anna@mail.local"}, mailer.sent)
}

func TestSendFailureAllowsRedelivery(t *testing.T) {
	ctx := context.Background()
	h, mailer, candidate, _ := setup(t)
	event, err := eventbus.NewEvent(eventbus.GateDenied, time.Now(), eventbus.GateData{
		ProposalID:  "p-1",
		CandidateID: candidate.ID,
		Gate:        string(models.GateCompany),
		Reason:      "нет опыта",
	})
	require.NoError(t, err)

	mailer.err = errors.New("smtp down")
	require.Error(t, h.Handle(ctx, event))

	mailer.err = nil
	require.NoError(t, h.Handle(ctx, event))
	require.Equal(t, []string{"ivan@mail.local"}, mailer.sent)
}

func TestAcceptedJobAndOfferSendBoth(t *testing.T) {
	ctx := context.Background()
	h, mailer, candidate, recruiter := setup(t)
	for _, stage := range []models.ApplicationStage{models.StageAIReview, models.StageHired} {
		event, err := eventbus.NewEvent(eventbus.ProposalAccepted, time.Now(), eventbus.ProposalData{
			ProposalID:  "p-1",
			CandidateID: candidate.ID,
			RecruiterID: recruiter.ID,
			Stage:       string(stage),
			State:       string(models.ProposalStateAccepted),
		})
		require.NoError(t, err)
		require.NoError(t, h.Handle(ctx, event))
		require.NoError(t, h.Handle(ctx, event))
	}
	require.Equal(t, []string{"anna@mail.local", "anna@mail.local"}, mailer.sent)
}

func TestRedeliverySkipsAlreadyMailedRecipients(t *testing.T) {
	ctx := context.Background()
	h, mailer, candidate, recruiter := setup(t)
	event, err := eventbus.NewEvent(eventbus.GateDenied, time.Now(), eventbus.GateData{
		ProposalID:  "p-1",
		CandidateID: candidate.ID,
		RecruiterID: recruiter.ID,
		Gate:        string(models.GateCompany),
		Reason:      "нет опыта",
	})
	require.NoError(t, err)

	mailer.failTo = recruiter.Email
	require.Error(t, h.Handle(ctx, event))
	require.Equal(t, []string{"ivan@mail.local"}, mailer.sent)

	mailer.failTo = ""
	require.NoError(t, h.Handle(ctx, event))
	require.NoError(t, h.Handle(ctx, event))
	require.Equal(t, []string{"ivan@mail.local", "anna@mail.local"}, mailer.sent)
}

func TestIgnoredEvents(t *testing.T) {
	ctx := context.Background()
	h, mailer, candidate, _ := setup(t)
	event, err := eventbus.NewEvent(eventbus.GateEntered, time.Now(), eventbus.GateData{ProposalID: "p-1", CandidateID: candidate.ID, Gate: "company"})
	require.NoError(t, err)
	require.NoError(t, h.Handle(ctx, event))

	direct, err := eventbus.NewEvent(eventbus.ProposalCreated, time.Now(), eventbus.ProposalData{ProposalID: "p-2", CandidateID: candidate.ID})
	require.NoError(t, err)
	require.NoError(t, h.Handle(ctx, direct))
	require.Empty(t, mailer.sent)
}

func TestDedupKey(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	approved := eventbus.Event{Type: eventbus.GateApproved, Timestamp: at}
	require.Equal(t, "notification:gate.approved:p-1:company", DedupKey(approved, payload{ProposalID: "p-1", Gate: "company"}))

	timedOut := eventbus.Event{Type: eventbus.ProposalTimedOut, Timestamp: at}
	require.Equal(t, "notification:proposal.timed_out:p-1", DedupKey(timedOut, payload{ProposalID: "p-1"}))

	accepted := eventbus.Event{Type: eventbus.ProposalAccepted, Timestamp: at}
	require.Equal(t, "notification:proposal.accepted:p-1:ai_review", DedupKey(accepted, payload{ProposalID: "p-1", Stage: "ai_review"}))
	require.NotEqual(t, DedupKey(accepted, payload{ProposalID: "p-1", Stage: "ai_review"}), DedupKey(accepted, payload{ProposalID: "p-1", Stage: "hired"}))
	require.Equal(t, "notification:gate.approved:p-1:company", DedupKey(approved, payload{ProposalID: "p-1", Gate: "company", Stage: "submitted"}))

	first := eventbus.Event{Type: eventbus.GateInfoRequested, Timestamp: at}
	second := eventbus.Event{Type: eventbus.GateInfoRequested, Timestamp: at.Add(time.Hour)}
	require.NotEqual(t, DedupKey(first, payload{ProposalID: "p-1", Gate: "company"}), DedupKey(second, payload{ProposalID: "p-1", Gate: "company"}))
}
