package proposalstore

import (
	"fmt"

	"proposal-pipeline-backend/models"

	"github.com/pkg/errors"
)

var (
	ErrNotFound        = errors.New("предложение не найдено")
	ErrAlreadyTerminal = errors.New("предложение уже в конечном состоянии")
	ErrNotExpired      = errors.New("срок ответа по предложению еще не истек")
	ErrStale           = errors.New("предложение уже изменено другим участником")
)

// GateMismatchError предложение находится не на том гейте, от имени которого действует участник
type GateMismatchError struct {
	ProposalID string
	Expected   models.Gate
	Actual     *models.Gate
}

func (e *GateMismatchError) Error() string {
	actual := "нет"
	if e.Actual != nil {
		actual = string(*e.Actual)
	}
	return fmt.Sprintf("предложение %v находится на гейте %v, а не %v", e.ProposalID, actual, e.Expected)
}

// IsLogical ошибки, которые не имеет смысла повторять
func IsLogical(err error) bool {
	if err == nil {
		return false
	}
	var mismatch *GateMismatchError
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyTerminal) ||
		errors.Is(err, ErrNotExpired) ||
		errors.Is(err, ErrStale) ||
		errors.As(err, &mismatch)
}
