package models

type Gate string

const (
	GateCandidateRecruiter Gate = "candidate_recruiter"
	GateCompanyRecruiter   Gate = "company_recruiter"
	GateCompany            Gate = "company"
)

var gateHumanName = map[Gate]string{
	GateCandidateRecruiter: "Рекрутер кандидата",
	GateCompanyRecruiter:   "Рекрутер компании",
	GateCompany:            "Компания",
}

func (g Gate) ToHuman() string {
	if human, exist := gateHumanName[g]; exist {
		return human
	}
	return string(g)
}

func (g Gate) IsValid() bool {
	_, ok := gateHumanName[g]
	return ok
}

func (g Gate) Ptr() *Gate {
	return &g
}

type GateAction string

const (
	GateActionApproved      GateAction = "approved"
	GateActionDenied        GateAction = "denied"
	GateActionInfoRequested GateAction = "info_requested"
	GateActionInfoProvided  GateAction = "info_provided"
	GateActionEntered       GateAction = "entered"
)

var gateActionHumanName = map[GateAction]string{
	GateActionApproved:      "Одобрено",
	GateActionDenied:        "Отклонено",
	GateActionInfoRequested: "Запрошена информация",
	GateActionInfoProvided:  "Информация предоставлена",
	GateActionEntered:       "Поступило на гейт",
}

func (a GateAction) ToHuman() string {
	if human, exist := gateActionHumanName[a]; exist {
		return human
	}
	return string(a)
}

// IsReviewerAction действия, которые может совершить человек через api
func (a GateAction) IsReviewerAction() bool {
	switch a {
	case GateActionApproved, GateActionDenied, GateActionInfoRequested, GateActionInfoProvided:
		return true
	}
	return false
}
