package xlsexport

import (
	"testing"
	"time"

	stagegate "proposal-pipeline-backend/lib/stage-gate"
	proposalapimodels "proposal-pipeline-backend/models/api/proposal"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportGateQueue(t *testing.T) {
	due := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	queue := proposalapimodels.QueueView{
		Gate:     "company",
		GateName: "Компания",
		Count:    2,
		Items: []proposalapimodels.ProposalView{
			{JobTitle: "Go разработчик", CompanyName: "Acme", CandidateID: "cand-1", StageName: "Отправлено компании", CreatedAt: due.Add(-48 * time.Hour)},
			{JobTitle: "SRE", CompanyName: "Acme", CandidateID: "cand-2", StageName: "Оффер", CreatedAt: due.Add(-24 * time.Hour), ResponseDueAt: &due, Deadline: stagegate.Deadline{IsUrgent: true, HoursRemaining: 3}},
		},
	}
	buf, err := NewHandler().ExportGateQueue(queue)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Компания")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, queueHeaders, rows[0])
	require.Equal(t, "Go разработчик", rows[1][0])
	require.Equal(t, "cand-2", rows[2][2])
	require.Equal(t, "да", rows[2][8])

	plain, err := f.GetCellStyle("Компания", "A2")
	require.NoError(t, err)
	highlighted, err := f.GetCellStyle("Компания", "A3")
	require.NoError(t, err)
	require.NotEqual(t, plain, highlighted)
}
