package historystore

import (
	dbmodels "proposal-pipeline-backend/models/db"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Provider журнал гейтов. Методов изменения и удаления нет: записи только добавляются.
type Provider interface {
	Append(rec dbmodels.GateHistory) (*dbmodels.GateHistory, error)
	List(proposalID string) ([]dbmodels.GateHistory, error)
	Last(proposalID string) (*dbmodels.GateHistory, error)
	Count(proposalID string) (int64, error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

// Append присваивает следующий seq в рамках предложения.
// Конкурентная вставка с тем же seq упадет на уникальном индексе (proposal_id, seq).
func (i impl) Append(rec dbmodels.GateHistory) (*dbmodels.GateHistory, error) {
	if rec.ProposalID == "" {
		return nil, errors.New("не указано предложение")
	}
	var maxSeq int
	err := i.db.
		Model(dbmodels.GateHistory{}).
		Where("proposal_id = ?", rec.ProposalID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).
		Error
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения последней записи журнала гейтов")
	}
	rec.ID = ""
	rec.Seq = maxSeq + 1
	err = i.db.
		Create(&rec).
		Error
	if err != nil {
		return nil, errors.Wrap(err, "ошибка добавления записи в журнал гейтов")
	}
	return &rec, nil
}

func (i impl) List(proposalID string) ([]dbmodels.GateHistory, error) {
	list := []dbmodels.GateHistory{}
	err := i.db.
		Where("proposal_id = ?", proposalID).
		Order("seq").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) Last(proposalID string) (*dbmodels.GateHistory, error) {
	var rec dbmodels.GateHistory
	err := i.db.
		Where("proposal_id = ?", proposalID).
		Order("seq DESC").
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

func (i impl) Count(proposalID string) (int64, error) {
	var count int64
	err := i.db.
		Model(dbmodels.GateHistory{}).
		Where("proposal_id = ?", proposalID).
		Count(&count).
		Error
	return count, err
}
