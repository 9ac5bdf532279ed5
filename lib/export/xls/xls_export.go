package xlsexport

import (
	"bytes"

	proposalapimodels "proposal-pipeline-backend/models/api/proposal"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const dateFormat = "02.01.2006 15:04"

type Provider interface {
	ExportGateQueue(queue proposalapimodels.QueueView) (*bytes.Buffer, error)
}

func NewHandler() Provider {
	return impl{}
}

type impl struct{}

var (
	queueHeaders = []string{"Вакансия", "Компания", "Кандидат", "Рекрутер", "Этап", "Поступило", "Срок ответа", "Осталось часов", "Срочно"}
	queueWidths  = []float64{30, 25, 38, 38, 25, 18, 18, 15, 10}
)

func (i impl) ExportGateQueue(queue proposalapimodels.QueueView) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Error("ошибка закрытия файла")
		}
	}()
	sheet := queue.GateName
	if sheet == "" {
		sheet = queue.Gate
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, errors.Wrap(err, "ошибка переименования листа xlsx")
	}
	styles, err := newSheetStyles(f)
	if err != nil {
		return nil, errors.Wrap(err, "ошибка создания стилей xlsx")
	}
	if err = setColumnWidths(f, sheet, queueWidths); err != nil {
		return nil, errors.Wrap(err, "ошибка установки ширины колонок xlsx")
	}
	header := make([]interface{}, 0, len(queueHeaders))
	for _, h := range queueHeaders {
		header = append(header, h)
	}
	if err = writeRow(f, sheet, 1, header, styles.header); err != nil {
		return nil, errors.Wrap(err, "ошибка формирования заголовка в xlsx")
	}
	for idx, item := range queue.Items {
		values, urgent := queueRow(item)
		style := styles.data
		if urgent {
			style = styles.urgent
		}
		if err = writeRow(f, sheet, idx+2, values, style); err != nil {
			return nil, errors.Wrap(err, "ошибка формирования таблицы с данными в xlsx")
		}
	}
	return f.WriteToBuffer()
}

func queueRow(item proposalapimodels.ProposalView) (values []interface{}, urgent bool) {
	values = []interface{}{
		item.JobTitle,
		item.CompanyName,
		item.CandidateID,
		item.RecruiterID,
		item.StageName,
		item.CreatedAt.Format(dateFormat),
		"",
		"",
		"",
	}
	if item.ResponseDueAt == nil {
		return values, false
	}
	urgent = item.Deadline.IsUrgent || item.Deadline.IsOverdue
	values[6] = item.ResponseDueAt.Format(dateFormat)
	values[7] = item.Deadline.HoursRemaining
	if urgent {
		values[8] = "да"
	}
	return values, urgent
}
