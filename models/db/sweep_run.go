package dbmodels

import "time"

type SweepStatus string

const (
	SweepStatusSuccess SweepStatus = "success"
	SweepStatusPartial SweepStatus = "partial"
	SweepStatusFailed  SweepStatus = "failed"
)

type SweepRun struct {
	BaseModel
	StartedAt  time.Time
	FinishedAt time.Time
	Found      int
	Succeeded  int
	TimedOut   int
	Skipped    int
	Failed     int
	Partial    bool
	Status     SweepStatus `gorm:"type:varchar(16)"`
	Error      string
}
