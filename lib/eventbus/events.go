package eventbus

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

const DefaultTopic = "domain_events"

type EventType string

const (
	ProposalCreated   EventType = "proposal.created"
	ProposalAccepted  EventType = "proposal.accepted"
	ProposalDeclined  EventType = "proposal.declined"
	ProposalTimedOut  EventType = "proposal.timed_out"
	ProposalWithdrawn EventType = "proposal.withdrawn"
	OfferExtended     EventType = "offer.extended"
	GateEntered       EventType = "gate.entered"
	GateApproved      EventType = "gate.approved"
	GateDenied        EventType = "gate.denied"
	GateInfoRequested EventType = "gate.info_requested"
	GateInfoProvided  EventType = "gate.info_provided"
)

// RoutingKey совпадает с типом события
func (t EventType) RoutingKey() string {
	return string(t)
}

type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func NewEvent(eventType EventType, ts time.Time, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, errors.Wrapf(err, "ошибка сериализации события %v", eventType)
	}
	return Event{
		Type:      eventType,
		Timestamp: ts.UTC(),
		Data:      raw,
	}, nil
}

func (e Event) Decode(out any) error {
	return json.Unmarshal(e.Data, out)
}

type ProposalTimedOutData struct {
	ProposalID    string    `json:"proposal_id"`
	JobID         string    `json:"job_id"`
	CandidateID   string    `json:"candidate_id"`
	RecruiterID   string    `json:"recruiter_id"`
	ProposedAt    time.Time `json:"proposed_at"`
	ResponseDueAt time.Time `json:"response_due_at"`
	TimedOutAt    time.Time `json:"timed_out_at"`
}

// ProposalData остальные события предложения
type ProposalData struct {
	ProposalID    string     `json:"proposal_id"`
	JobID         string     `json:"job_id"`
	CandidateID   string     `json:"candidate_id"`
	RecruiterID   string     `json:"recruiter_id,omitempty"`
	Stage         string     `json:"stage"`
	State         string     `json:"state,omitempty"`
	ResponseDueAt *time.Time `json:"response_due_at,omitempty"`
	JobTitle      string     `json:"job_title,omitempty"`
	CompanyName   string     `json:"company_name,omitempty"`
	CandidateName string     `json:"candidate_name,omitempty"`
}

type GateData struct {
	ProposalID    string   `json:"proposal_id"`
	JobID         string   `json:"job_id"`
	CandidateID   string   `json:"candidate_id"`
	RecruiterID   string   `json:"recruiter_id,omitempty"`
	Gate          string   `json:"gate"`
	NextGate      string   `json:"next_gate,omitempty"`
	Stage         string   `json:"stage"`
	ReviewerID    string   `json:"reviewer_id,omitempty"`
	CandidateName string   `json:"candidate_name,omitempty"`
	JobTitle      string   `json:"job_title,omitempty"`
	CompanyName   string   `json:"company_name,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	Questions     []string `json:"questions,omitempty"`
	Answers       []string `json:"answers,omitempty"`
}
