package notificationhandler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"proposal-pipeline-backend/lib/eventbus"
	networkstore "proposal-pipeline-backend/lib/network/store"
	"proposal-pipeline-backend/lib/smtp"
	"proposal-pipeline-backend/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var Patterns = []string{"proposal.#", "gate.#", "offer.#"}

// Provider реагирует на доменные события письмами участникам.
// Повторная доставка того же события письмо не дублирует.
type Provider interface {
	Handle(ctx context.Context, event eventbus.Event) error
}

func NewHandler(DB *gorm.DB, client redis.UniversalClient, mailer smtp.Provider, from string, dedupTTL time.Duration) Provider {
	return &impl{
		networkStore: networkstore.NewInstance(DB),
		redis:        client,
		mailer:       mailer,
		from:         from,
		dedupTTL:     dedupTTL,
	}
}

type impl struct {
	networkStore networkstore.Provider
	redis        redis.UniversalClient
	mailer       smtp.Provider
	from         string
	dedupTTL     time.Duration
}

// payload общие поля всех событий предложения и гейта
type payload struct {
	ProposalID  string   `json:"proposal_id"`
	CandidateID string   `json:"candidate_id"`
	RecruiterID string   `json:"recruiter_id"`
	Gate        string   `json:"gate"`
	Stage       string   `json:"stage"`
	JobTitle    string   `json:"job_title"`
	CompanyName string   `json:"company_name"`
	Reason      string   `json:"reason"`
	Notes       string   `json:"notes"`
	Questions   []string `json:"questions"`
}

type message struct {
	subject    string
	text       string
	recipients []string
}

func (i impl) Handle(ctx context.Context, event eventbus.Event) error {
	var data payload
	if err := event.Decode(&data); err != nil {
		log.WithError(err).WithField("event_type", event.Type).Error("некорректные данные события")
		return nil
	}
	logger := log.
		WithField("event_type", event.Type).
		WithField("proposal_id", data.ProposalID)
	msg, ok := compose(event.Type, data)
	if !ok || len(msg.recipients) == 0 {
		return nil
	}

	key := DedupKey(event, data)
	sent := 0
	for _, memberID := range msg.recipients {
		recipientKey := key + ":" + memberID
		first, err := i.redis.SetNX(ctx, recipientKey, 1, i.dedupTTL).Result()
		if err != nil {
			return errors.Wrap(err, "ошибка проверки повторной доставки")
		}
		if !first {
			logger.WithField("member_id", memberID).Info("письмо участнику уже отправлено")
			continue
		}
		if err = i.notify(memberID, msg); err != nil {
			// ключ получателя снимается, чтобы повторная доставка отправила письмо только ему
			if delErr := i.redis.Del(context.WithoutCancel(ctx), recipientKey).Err(); delErr != nil {
				logger.WithError(delErr).Error("ошибка снятия ключа повторной доставки")
			}
			return err
		}
		sent++
	}
	if sent > 0 {
		logger.WithField("recipients", sent).Info("уведомление отправлено")
	}
	return nil
}

func (i impl) notify(memberID string, msg message) error {
	member, err := i.networkStore.GetMember(memberID)
	if err != nil {
		return errors.Wrap(err, "ошибка получения участника")
	}
	if member == nil || member.Email == "" {
		log.WithField("member_id", memberID).Warn("у участника нет почты")
		return nil
	}
	return i.mailer.SendEMail(i.from, member.Email, msg.text, msg.subject)
}

// DedupKey тип события + предложение (+ этап для событий предложения и оффера, + гейт).
// Одно предложение принимается дважды (вакансия, затем оффер), этап их различает.
// Запрос и предоставление информации могут повторяться на одном гейте, поэтому для них
// добавляется время события. Письмо каждому получателю отмечается отдельно: ключ + ":" + member_id.
func DedupKey(event eventbus.Event, data payload) string {
	parts := []string{"notification", string(event.Type), data.ProposalID}
	if data.Stage != "" && isProposalEvent(event.Type) {
		parts = append(parts, data.Stage)
	}
	if data.Gate != "" {
		parts = append(parts, data.Gate)
	}
	switch event.Type {
	case eventbus.GateInfoRequested, eventbus.GateInfoProvided:
		parts = append(parts, fmt.Sprint(event.Timestamp.UnixNano()))
	}
	return strings.Join(parts, ":")
}

func isProposalEvent(eventType eventbus.EventType) bool {
	key := eventType.RoutingKey()
	return strings.HasPrefix(key, "proposal.") || strings.HasPrefix(key, "offer.")
}

func compose(eventType eventbus.EventType, data payload) (message, bool) {
	job := data.JobTitle
	if job == "" {
		job = "вакансия"
	}
	gateName := models.Gate(data.Gate).ToHuman()
	switch eventType {
	case eventbus.ProposalTimedOut:
		return message{
			subject:    "Срок ответа на предложение истек",
			text:       fmt.Sprintf("Предложение по вакансии \"%v\" закрыто: ответ не получен в срок.", job),
			recipients: nonEmpty(data.CandidateID, data.RecruiterID),
		}, true
	case eventbus.ProposalCreated:
		if data.RecruiterID == "" {
			return message{}, false
		}
		return message{
			subject:    "Новое предложение",
			text:       fmt.Sprintf("Рекрутер предлагает вам вакансию \"%v\" %v.", job, data.CompanyName),
			recipients: nonEmpty(data.CandidateID),
		}, true
	case eventbus.ProposalAccepted, eventbus.ProposalDeclined, eventbus.ProposalWithdrawn:
		return message{
			subject:    "Ответ кандидата",
			text:       fmt.Sprintf("Кандидат %v предложение по вакансии \"%v\".", responseText[eventType], job),
			recipients: nonEmpty(data.RecruiterID),
		}, true
	case eventbus.OfferExtended:
		return message{
			subject:    "Оффер",
			text:       fmt.Sprintf("Компания %v сделала вам оффер по вакансии \"%v\".", data.CompanyName, job),
			recipients: nonEmpty(data.CandidateID),
		}, true
	case eventbus.GateApproved:
		return message{
			subject:    "Заявка одобрена",
			text:       fmt.Sprintf("Заявка по вакансии \"%v\" одобрена на гейте \"%v\". %v", job, gateName, data.Notes),
			recipients: nonEmpty(data.CandidateID, data.RecruiterID),
		}, true
	case eventbus.GateDenied:
		return message{
			subject:    "Заявка отклонена",
			text:       fmt.Sprintf("Заявка по вакансии \"%v\" отклонена на гейте \"%v\". Причина: %v", job, gateName, data.Reason),
			recipients: nonEmpty(data.CandidateID, data.RecruiterID),
		}, true
	case eventbus.GateInfoRequested:
		return message{
			subject:    "Запрошена информация",
			text:       fmt.Sprintf("По заявке на вакансию \"%v\" нужны ответы:\n%v", job, strings.Join(data.Questions, "\n")),
			recipients: nonEmpty(data.CandidateID, data.RecruiterID),
		}, true
	}
	return message{}, false
}

var responseText = map[eventbus.EventType]string{
	eventbus.ProposalAccepted:  "принял",
	eventbus.ProposalDeclined:  "отклонил",
	eventbus.ProposalWithdrawn: "отозвал",
}

func nonEmpty(ids ...string) []string {
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			result = append(result, id)
		}
	}
	return result
}
