package networkstore

import (
	"testing"

	"proposal-pipeline-backend/lib/utils/helpers"
	"proposal-pipeline-backend/lib/utils/testdb"
	"proposal-pipeline-backend/models"
	dbmodels "proposal-pipeline-backend/models/db"

	"github.com/stretchr/testify/require"
)

func TestNetworkStore(t *testing.T) {
	gdb := testdb.Open(t)
	store := NewInstance(gdb)

	companyMember := dbmodels.Member{Role: models.PartyCompany, FullName: "Acme HR", CompanyID: helpers.Ptr("company-1")}
	require.NoError(t, gdb.Create(&companyMember).Error)
	require.NoError(t, gdb.Create(&dbmodels.RecruiterCandidate{RecruiterID: "rec-1", CandidateID: "cand-1", Active: true}).Error)
	require.NoError(t, gdb.Create(&dbmodels.RecruiterCandidate{RecruiterID: "rec-2", CandidateID: "cand-1", Active: false}).Error)
	require.NoError(t, gdb.Create(&dbmodels.CompanyRecruiter{RecruiterID: "rec-2", CompanyID: "company-2", Active: true}).Error)
	require.NoError(t, gdb.Create(&dbmodels.CompanyRecruiter{RecruiterID: "rec-2", CompanyID: "company-1", Active: true}).Error)

	t.Run("candidate assignments", func(t *testing.T) {
		ok, err := store.HasActiveCandidateAssignments("rec-1")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = store.HasActiveCandidateAssignments("rec-2")
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = store.IsRecruiterOfCandidate("rec-2", "cand-1")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("company association", func(t *testing.T) {
		ids, err := store.CompanyIDsForRecruiter("rec-2")
		require.NoError(t, err)
		require.Equal(t, []string{"company-1", "company-2"}, ids)

		recruiterID, err := store.ActiveCompanyRecruiter("company-2")
		require.NoError(t, err)
		require.Equal(t, "rec-2", recruiterID)

		recruiterID, err = store.ActiveCompanyRecruiter("company-3")
		require.NoError(t, err)
		require.Empty(t, recruiterID)
	})

	t.Run("member", func(t *testing.T) {
		companyID, err := store.CompanyIDForMember(companyMember.ID)
		require.NoError(t, err)
		require.Equal(t, "company-1", companyID)

		member, err := store.GetMember("missing")
		require.NoError(t, err)
		require.Nil(t, member)
	})
}
