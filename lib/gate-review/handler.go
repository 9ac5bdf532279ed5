package gatereviewhandler

import (
	"bytes"
	"context"

	xlsexport "proposal-pipeline-backend/lib/export/xls"
	networkstore "proposal-pipeline-backend/lib/network/store"
	proposalstore "proposal-pipeline-backend/lib/proposal/store"
	stagegate "proposal-pipeline-backend/lib/stage-gate"
	"proposal-pipeline-backend/lib/utils/helpers"
	"proposal-pipeline-backend/models"
	proposalapimodels "proposal-pipeline-backend/models/api/proposal"
	dbmodels "proposal-pipeline-backend/models/db"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const exportLimit = 10000

// Provider очередь гейта для участника, только чтение
type Provider interface {
	ResolveGate(actor models.Actor) (gate models.Gate, hMsg string, err error)
	Queue(ctx context.Context, actor models.Actor, filter proposalapimodels.QueueFilter) (queue *proposalapimodels.QueueView, hMsg string, err error)
	Export(ctx context.Context, actor models.Actor, filter proposalapimodels.QueueFilter) (buf *bytes.Buffer, hMsg string, err error)
}

func NewHandler(DB *gorm.DB) Provider {
	return &impl{
		store:        proposalstore.NewInstance(DB),
		networkStore: networkstore.NewInstance(DB),
		exporter:     xlsexport.NewHandler(),
		now:          helpers.UTCNow,
	}
}

type impl struct {
	store        proposalstore.Provider
	networkStore networkstore.Provider
	exporter     xlsexport.Provider
	now          helpers.Clock
}

// ResolveGate рекрутер попадает в очередь candidate_recruiter, если представляет кандидатов,
// иначе в company_recruiter, если связан с компанией, иначе снова в candidate_recruiter.
// Ошибка справочника возвращается, а не заменяется значением по умолчанию.
func (i impl) ResolveGate(actor models.Actor) (models.Gate, string, error) {
	hasAssignments, hasCompany := false, false
	if actor.Role == models.PartyRecruiter {
		var err error
		hasAssignments, err = i.networkStore.HasActiveCandidateAssignments(actor.ID)
		if err != nil {
			return "", "", errors.Wrap(err, "ошибка проверки кандидатов рекрутера")
		}
		if !hasAssignments {
			companyIDs, err := i.networkStore.CompanyIDsForRecruiter(actor.ID)
			if err != nil {
				return "", "", errors.Wrap(err, "ошибка проверки компаний рекрутера")
			}
			hasCompany = len(companyIDs) > 0
		}
	}
	gate, ok := stagegate.ActingGate(actor.Role, hasAssignments, hasCompany)
	if !ok {
		return "", "Очередь гейта недоступна для роли \"" + actor.Role.ToHuman() + "\"", nil
	}
	return gate, "", nil
}

func (i impl) Queue(ctx context.Context, actor models.Actor, filter proposalapimodels.QueueFilter) (*proposalapimodels.QueueView, string, error) {
	if err := filter.Validate(); err != nil {
		return nil, err.Error(), nil
	}
	_, limit := filter.GetPage()
	return i.queue(ctx, actor, filter, limit, filter.Offset())
}

func (i impl) Export(ctx context.Context, actor models.Actor, filter proposalapimodels.QueueFilter) (*bytes.Buffer, string, error) {
	if err := filter.Validate(); err != nil {
		return nil, err.Error(), nil
	}
	queue, hMsg, err := i.queue(ctx, actor, filter, exportLimit, 0)
	if err != nil || hMsg != "" {
		return nil, hMsg, err
	}
	buf, err := i.exporter.ExportGateQueue(*queue)
	if err != nil {
		return nil, "", err
	}
	return buf, "", nil
}

func (i impl) queue(ctx context.Context, actor models.Actor, filter proposalapimodels.QueueFilter, limit, offset int) (*proposalapimodels.QueueView, string, error) {
	gate, hMsg, err := i.ResolveGate(actor)
	if err != nil || hMsg != "" {
		return nil, hMsg, err
	}
	storeFilter := dbmodels.ProposalFilter{
		Gate:        gate,
		Stages:      stagegate.GateStages(gate),
		UrgentFirst: filter.IsUrgentFirst(),
		Limit:       limit,
		Offset:      offset,
	}
	switch gate {
	case models.GateCandidateRecruiter:
		storeFilter.RecruiterID = actor.ID
	case models.GateCompanyRecruiter:
		storeFilter.CompanyRecruiterID = actor.ID
	case models.GateCompany:
		companyID, err := i.networkStore.CompanyIDForMember(actor.ID)
		if err != nil {
			return nil, "", errors.Wrap(err, "ошибка получения компании участника")
		}
		storeFilter.CompanyIDs = []string{}
		if companyID != "" {
			storeFilter.CompanyIDs = append(storeFilter.CompanyIDs, companyID)
		}
	}

	count, err := i.store.CountAtGate(ctx, storeFilter)
	if err != nil {
		return nil, "", err
	}
	list, err := i.store.ListAtGate(ctx, storeFilter)
	if err != nil {
		return nil, "", err
	}
	now := i.now()
	result := &proposalapimodels.QueueView{
		Gate:     string(gate),
		GateName: gate.ToHuman(),
		Count:    count,
		Items:    make([]proposalapimodels.ProposalView, 0, len(list)),
	}
	for _, rec := range list {
		result.Items = append(result.Items, proposalapimodels.ProposalConvert(rec, now))
	}
	log.
		WithField("actor_id", actor.ID).
		WithField("gate", gate).
		WithField("count", count).
		Debug("получена очередь гейта")
	return result, "", nil
}
