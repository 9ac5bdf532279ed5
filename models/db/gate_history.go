package dbmodels

import (
	"proposal-pipeline-backend/models"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GateHistory запись журнала действий по гейтам, только добавляется
type GateHistory struct {
	ID         string            `gorm:"type:varchar(36);primaryKey"`
	ProposalID string            `gorm:"type:varchar(36);uniqueIndex:idx_gate_history_seq,priority:1"`
	Seq        int               `gorm:"uniqueIndex:idx_gate_history_seq,priority:2"`
	Gate       models.Gate       `gorm:"type:varchar(32)"`
	Action     models.GateAction `gorm:"type:varchar(32)"`
	ReviewerID *string           `gorm:"type:varchar(36)"`
	Notes      string
	Reason     string
	Questions  datatypes.JSONSlice[string]
	Answers    datatypes.JSONSlice[string]
	CreatedAt  time.Time
}

func (GateHistory) TableName() string {
	return "gate_history"
}

func (h GateHistory) GetReviewerID() string {
	if h.ReviewerID == nil {
		return ""
	}
	return *h.ReviewerID
}

func (h *GateHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}
