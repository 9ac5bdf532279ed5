package proposalstore

import (
	"context"
	"time"

	historystore "proposal-pipeline-backend/lib/proposal/history-store"
	stagegate "proposal-pipeline-backend/lib/stage-gate"
	"proposal-pipeline-backend/models"
	dbmodels "proposal-pipeline-backend/models/db"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Provider единственная точка изменения stage/state/current_gate предложения.
// Все переходы выполняются условным UPDATE (compare-and-swap) без блокировок.
type Provider interface {
	Create(ctx context.Context, rec dbmodels.Proposal, history ...dbmodels.GateHistory) (*dbmodels.Proposal, error)
	GetByID(ctx context.Context, id string) (*dbmodels.Proposal, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]dbmodels.Proposal, error)
	ApplyTimeout(ctx context.Context, id string, at time.Time) error
	ApplyTransition(ctx context.Context, id string, tr Transition) (*dbmodels.Proposal, error)
	ApplyGateAction(ctx context.Context, id string, cmd GateActionCmd) (*GateActionResult, error)
	ListAtGate(ctx context.Context, filter dbmodels.ProposalFilter) ([]dbmodels.Proposal, error)
	CountAtGate(ctx context.Context, filter dbmodels.ProposalFilter) (int64, error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

// Transition переход по действию участника. Применяется, только если предложение
// все еще на одном из FromStages (и в FromState, если указан).
type Transition struct {
	FromStages    []models.ApplicationStage
	FromState     *models.ProposalState
	Stage         models.ApplicationStage
	State         *models.ProposalState
	Gate          *models.Gate
	ProposedAt    *time.Time
	ResponseDueAt *time.Time
	RespondedAt   *time.Time
	ClearDue      bool
	At            time.Time
	History       []dbmodels.GateHistory
}

type GateActionCmd struct {
	Gate       models.Gate
	Action     models.GateAction
	ReviewerID string
	Notes      string
	Reason     string
	Questions  []string
	Answers    []string
	At         time.Time
}

type GateActionResult struct {
	Proposal dbmodels.Proposal
	Entries  []dbmodels.GateHistory
	NextGate *models.Gate
}

func (i impl) Create(ctx context.Context, rec dbmodels.Proposal, history ...dbmodels.GateHistory) (*dbmodels.Proposal, error) {
	if !rec.Stage.IsValid() {
		return nil, errors.Errorf("неизвестный этап %v", rec.Stage)
	}
	if !stagegate.IsConsistent(rec.Stage, rec.CurrentGate) {
		return nil, errors.Errorf("гейт не соответствует этапу %v", rec.Stage)
	}
	if rec.State != models.ProposalStateProposed {
		rec.ResponseDueAt = nil
	}
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Job").Create(&rec).Error; err != nil {
			return errors.Wrap(err, "ошибка создания предложения")
		}
		historyStore := historystore.NewInstance(tx)
		for _, entry := range history {
			entry.ProposalID = rec.ID
			if _, err := historyStore.Append(entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (i impl) GetByID(ctx context.Context, id string) (*dbmodels.Proposal, error) {
	var rec dbmodels.Proposal
	err := i.db.WithContext(ctx).
		Preload("Job").
		Where("id = ?", id).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// FindExpired предложения, ожидающие ответа, у которых срок истек до now.
// Запрос идет по индексу (state, response_due_at).
func (i impl) FindExpired(ctx context.Context, now time.Time, limit int) ([]dbmodels.Proposal, error) {
	list := []dbmodels.Proposal{}
	tx := i.db.WithContext(ctx).
		Where("state = ?", models.ProposalStateProposed).
		Where("response_due_at < ?", now).
		Order("response_due_at")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	err := tx.Find(&list).Error
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения просроченных предложений")
	}
	return list, nil
}

// ApplyTimeout переводит предложение в timed_out одним условным UPDATE.
// Если условие уже не выполняется, возвращается причина: ErrNotFound, ErrAlreadyTerminal или ErrNotExpired.
// Повтор с тем же at после потерянного ответа БД считается успехом: переход уже сделан этим вызовом.
func (i impl) ApplyTimeout(ctx context.Context, id string, at time.Time) error {
	// точность postgres - микросекунды, иначе повтор не узнает свою запись
	at = at.Truncate(time.Microsecond)
	res := i.db.WithContext(ctx).
		Model(&dbmodels.Proposal{}).
		Where("id = ?", id).
		Where("state = ?", models.ProposalStateProposed).
		Where("response_due_at < ?", at).
		Updates(map[string]interface{}{
			"state":        models.ProposalStateTimedOut,
			"timed_out_at": at,
			"updated_at":   at,
			"stage":        models.StageExpired,
			"current_gate": nil,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "ошибка перевода предложения в timed_out")
	}
	if res.RowsAffected > 0 {
		return nil
	}
	current, err := i.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNotFound
	}
	if current.State == models.ProposalStateTimedOut && current.TimedOutAt != nil && current.TimedOutAt.Equal(at) {
		return nil
	}
	if current.State != models.ProposalStateProposed {
		return ErrAlreadyTerminal
	}
	return ErrNotExpired
}

func (i impl) ApplyTransition(ctx context.Context, id string, tr Transition) (*dbmodels.Proposal, error) {
	if len(tr.FromStages) == 0 {
		return nil, errors.New("не указаны исходные этапы перехода")
	}
	if !stagegate.IsConsistent(tr.Stage, tr.Gate) {
		return nil, errors.Errorf("гейт не соответствует этапу %v", tr.Stage)
	}
	updates := map[string]interface{}{
		"stage":        tr.Stage,
		"current_gate": tr.Gate,
		"updated_at":   tr.At,
	}
	if tr.State != nil {
		updates["state"] = *tr.State
		if *tr.State != models.ProposalStateProposed {
			tr.ClearDue = true
		}
	}
	if tr.ProposedAt != nil {
		updates["proposed_at"] = *tr.ProposedAt
	}
	if tr.ResponseDueAt != nil {
		updates["response_due_at"] = *tr.ResponseDueAt
	} else if tr.ClearDue {
		updates["response_due_at"] = nil
	}
	if tr.RespondedAt != nil {
		updates["responded_at"] = *tr.RespondedAt
	}

	var result *dbmodels.Proposal
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Model(&dbmodels.Proposal{}).
			Where("id = ?", id).
			Where("stage IN ?", tr.FromStages)
		if tr.FromState != nil {
			q = q.Where("state = ?", *tr.FromState)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return errors.Wrap(res.Error, "ошибка изменения предложения")
		}
		if res.RowsAffected == 0 {
			current, err := NewInstance(tx).GetByID(ctx, id)
			if err != nil {
				return err
			}
			if current == nil {
				return ErrNotFound
			}
			if current.Stage.IsTerminal() || current.State.IsTerminal() {
				return ErrAlreadyTerminal
			}
			return ErrStale
		}
		historyStore := historystore.NewInstance(tx)
		for _, entry := range tr.History {
			entry.ProposalID = id
			if _, err := historyStore.Append(entry); err != nil {
				return err
			}
		}
		current, err := NewInstance(tx).GetByID(ctx, id)
		if err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyGateAction проверяет, что предложение на гейте cmd.Gate, меняет этап и пишет журнал
// в одной короткой транзакции. Одобрение переводит на следующий гейт, отказ завершает заявку,
// запрос и предоставление информации этап не меняют.
func (i impl) ApplyGateAction(ctx context.Context, id string, cmd GateActionCmd) (*GateActionResult, error) {
	if !cmd.Action.IsReviewerAction() {
		return nil, errors.Errorf("недопустимое действие %v", cmd.Action)
	}
	var result *GateActionResult
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := NewInstance(tx).GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNotFound
		}
		if current.Stage.IsTerminal() {
			return ErrAlreadyTerminal
		}
		if current.CurrentGate == nil || *current.CurrentGate != cmd.Gate {
			return &GateMismatchError{ProposalID: id, Expected: cmd.Gate, Actual: current.CurrentGate}
		}

		nextStage := current.Stage
		nextGate := current.CurrentGate
		switch cmd.Action {
		case models.GateActionApproved:
			nextGate, nextStage = stagegate.NextGate(cmd.Gate, current.HasCompanyRecruiter())
		case models.GateActionDenied:
			nextGate, nextStage = nil, models.StageRejected
		}

		res := tx.
			Model(&dbmodels.Proposal{}).
			Where("id = ?", id).
			Where("current_gate = ?", cmd.Gate).
			Where("stage = ?", current.Stage).
			Updates(map[string]interface{}{
				"stage":        nextStage,
				"current_gate": nextGate,
				"updated_at":   cmd.At,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "ошибка изменения гейта предложения")
		}
		if res.RowsAffected == 0 {
			return &GateMismatchError{ProposalID: id, Expected: cmd.Gate, Actual: current.CurrentGate}
		}

		historyStore := historystore.NewInstance(tx)
		entries := []dbmodels.GateHistory{}
		actionEntry, err := historyStore.Append(dbmodels.GateHistory{
			ProposalID: id,
			Gate:       cmd.Gate,
			Action:     cmd.Action,
			ReviewerID: reviewerPtr(cmd.ReviewerID),
			Notes:      cmd.Notes,
			Reason:     cmd.Reason,
			Questions:  cmd.Questions,
			Answers:    cmd.Answers,
			CreatedAt:  cmd.At,
		})
		if err != nil {
			return err
		}
		entries = append(entries, *actionEntry)
		if cmd.Action == models.GateActionApproved && nextGate != nil {
			enteredEntry, err := historyStore.Append(dbmodels.GateHistory{
				ProposalID: id,
				Gate:       *nextGate,
				Action:     models.GateActionEntered,
				CreatedAt:  cmd.At,
			})
			if err != nil {
				return err
			}
			entries = append(entries, *enteredEntry)
		}

		current.Stage = nextStage
		current.CurrentGate = nextGate
		current.UpdatedAt = cmd.At
		result = &GateActionResult{
			Proposal: *current,
			Entries:  entries,
			NextGate: nextGate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (i impl) ListAtGate(ctx context.Context, filter dbmodels.ProposalFilter) ([]dbmodels.Proposal, error) {
	list := []dbmodels.Proposal{}
	tx := i.atGate(ctx, filter)
	if filter.UrgentFirst {
		tx = tx.
			Order("response_due_at IS NULL").
			Order("response_due_at").
			Order("created_at")
	} else {
		tx = tx.Order("created_at")
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit).Offset(filter.Offset)
	}
	err := tx.Preload("Job").Find(&list).Error
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения очереди гейта")
	}
	return list, nil
}

func (i impl) CountAtGate(ctx context.Context, filter dbmodels.ProposalFilter) (int64, error) {
	var count int64
	err := i.atGate(ctx, filter).Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "ошибка получения количества предложений на гейте")
	}
	return count, nil
}

func (i impl) atGate(ctx context.Context, filter dbmodels.ProposalFilter) *gorm.DB {
	stages := filter.Stages
	if len(stages) == 0 {
		stages = stagegate.GateStages(filter.Gate)
	}
	tx := i.db.WithContext(ctx).
		Model(&dbmodels.Proposal{}).
		Where("current_gate = ?", filter.Gate).
		Where("stage IN ?", stages)
	if filter.RecruiterID != "" {
		tx = tx.Where("recruiter_id = ?", filter.RecruiterID)
	}
	if filter.CompanyRecruiterID != "" {
		tx = tx.Where("company_recruiter_id = ?", filter.CompanyRecruiterID)
	}
	if filter.CompanyIDs != nil {
		tx = tx.Where("company_id IN ?", filter.CompanyIDs)
	}
	return tx
}

func reviewerPtr(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
