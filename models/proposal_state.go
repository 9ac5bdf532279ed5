package models

// ProposalState состояние под-процесса предложения/оффера, не зависит от этапа
type ProposalState string

const (
	ProposalStateNone     ProposalState = ""
	ProposalStateProposed ProposalState = "proposed"
	ProposalStateAccepted ProposalState = "accepted"
	ProposalStateDeclined ProposalState = "declined"
	ProposalStateTimedOut ProposalState = "timed_out"
)

var proposalStateHumanName = map[ProposalState]string{
	ProposalStateProposed: "Ожидает ответа",
	ProposalStateAccepted: "Принято",
	ProposalStateDeclined: "Отклонено",
	ProposalStateTimedOut: "Истек срок ответа",
}

func (s ProposalState) ToHuman() string {
	if human, exist := proposalStateHumanName[s]; exist {
		return human
	}
	return string(s)
}

// IsTerminal из accepted, declined и timed_out переходов нет
func (s ProposalState) IsTerminal() bool {
	switch s {
	case ProposalStateAccepted, ProposalStateDeclined, ProposalStateTimedOut:
		return true
	}
	return false
}

type ProposalResponse string

const (
	ProposalResponseAccept  ProposalResponse = "accept"
	ProposalResponseDecline ProposalResponse = "decline"
)
