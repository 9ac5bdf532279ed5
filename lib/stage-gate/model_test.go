package stagegate

import (
	"testing"
	"time"

	"proposal-pipeline-backend/models"

	"github.com/stretchr/testify/require"
)

func TestResolveIsTotal(t *testing.T) {
	for _, stage := range models.AllStages {
		for _, hasRecruiter := range []bool{true, false} {
			a := Resolve(stage, hasRecruiter)
			require.NotEmpty(t, a.ProposalType, "stage %v", stage)
			require.True(t, a.PendingActionBy.IsValid(), "stage %v", stage)
			require.NotEmpty(t, a.PendingActionType, "stage %v", stage)
		}
	}

	unknown := Resolve(models.ApplicationStage("background_check"), true)
	require.Equal(t, Assignment{
		ProposalType:      models.ProposalTypeApplicationReview,
		PendingActionBy:   models.PartyCompany,
		PendingActionType: models.PendingActionReview,
	}, unknown)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		stage        models.ApplicationStage
		hasRecruiter bool
		want         Assignment
	}{
		{models.StageRecruiterProposed, true, Assignment{models.ProposalTypeJobOpportunity, models.PartyCandidate, models.PendingActionApprove}},
		{models.StageDraft, false, Assignment{models.ProposalTypeDirectApplication, models.PartyCompany, models.PendingActionReview}},
		{models.StageAIReview, false, Assignment{models.ProposalTypeDirectApplication, models.PartyCompany, models.PendingActionScreen}},
		{models.StageAIReview, true, Assignment{models.ProposalTypeApplicationScreen, models.PartyRecruiter, models.PendingActionScreen}},
		{models.StageScreen, true, Assignment{models.ProposalTypeApplicationScreen, models.PartyRecruiter, models.PendingActionScreen}},
		{models.StageRecruiterReview, true, Assignment{models.ProposalTypeApplicationReview, models.PartyRecruiter, models.PendingActionReview}},
		{models.StageSubmitted, false, Assignment{models.ProposalTypeApplicationReview, models.PartyCompany, models.PendingActionReview}},
		{models.StageInterview, true, Assignment{models.ProposalTypeApplicationReview, models.PartyCompany, models.PendingActionInterview}},
		{models.StageOffer, true, Assignment{models.ProposalTypeJobOffer, models.PartyCompany, models.PendingActionAccept}},
	}
	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			require.Equal(t, tt.want, Resolve(tt.stage, tt.hasRecruiter))
		})
	}
}

func TestGateFlow(t *testing.T) {
	gate, stage := EntryGate(true)
	require.Equal(t, models.GateCandidateRecruiter, gate)
	require.Equal(t, models.StageRecruiterReview, stage)
	require.True(t, IsConsistent(stage, &gate))

	gate, stage = EntryGate(false)
	require.Equal(t, models.GateCompany, gate)
	require.Equal(t, models.StageSubmitted, stage)

	next, stage := NextGate(models.GateCandidateRecruiter, true)
	require.Equal(t, models.GateCompanyRecruiter, *next)
	require.Equal(t, models.StageSubmitted, stage)
	require.True(t, IsConsistent(stage, next))

	next, stage = NextGate(models.GateCandidateRecruiter, false)
	require.Equal(t, models.GateCompany, *next)
	require.Equal(t, models.StageSubmitted, stage)

	next, stage = NextGate(models.GateCompanyRecruiter, false)
	require.Equal(t, models.GateCompany, *next)
	require.Equal(t, models.StageCompanyReview, stage)
	require.True(t, IsConsistent(stage, next))

	next, stage = NextGate(models.GateCompany, false)
	require.Nil(t, next)
	require.Equal(t, models.StageScreen, stage)
}

func TestIsConsistent(t *testing.T) {
	for _, stage := range models.AllStages {
		require.True(t, IsConsistent(stage, nil))
		if stage.IsTerminal() {
			for _, gate := range []models.Gate{models.GateCandidateRecruiter, models.GateCompanyRecruiter, models.GateCompany} {
				require.False(t, IsConsistent(stage, &gate), "stage %v gate %v", stage, gate)
			}
		}
	}
	require.False(t, IsConsistent(models.StageRecruiterReview, models.GateCompany.Ptr()))
	require.True(t, IsConsistent(models.StageCompanyReview, models.GateCompany.Ptr()))
}

func TestActingGate(t *testing.T) {
	gate, ok := ActingGate(models.PartyCompany, false, false)
	require.True(t, ok)
	require.Equal(t, models.GateCompany, gate)

	gate, ok = ActingGate(models.PartyRecruiter, true, true)
	require.True(t, ok)
	require.Equal(t, models.GateCandidateRecruiter, gate)

	gate, ok = ActingGate(models.PartyRecruiter, false, true)
	require.True(t, ok)
	require.Equal(t, models.GateCompanyRecruiter, gate)

	gate, ok = ActingGate(models.PartyRecruiter, false, false)
	require.True(t, ok)
	require.Equal(t, models.GateCandidateRecruiter, gate)

	_, ok = ActingGate(models.PartyCandidate, true, true)
	require.False(t, ok)
}

func TestDeadlineFacts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.Equal(t, Deadline{}, DeadlineFacts(nil, now))

	due := now.Add(10 * time.Hour)
	facts := DeadlineFacts(&due, now)
	require.True(t, facts.IsUrgent)
	require.False(t, facts.IsOverdue)
	require.Equal(t, 10.0, facts.HoursRemaining)

	due = now.Add(72 * time.Hour)
	facts = DeadlineFacts(&due, now)
	require.False(t, facts.IsUrgent)
	require.Equal(t, 72.0, facts.HoursRemaining)

	due = now.Add(-time.Minute)
	facts = DeadlineFacts(&due, now)
	require.True(t, facts.IsOverdue)
	require.False(t, facts.IsUrgent)
	require.Zero(t, facts.HoursRemaining)
}
