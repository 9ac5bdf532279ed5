package apimodels

const (
	StatusSuccess = "success"
	StatusFail    = "fail"

	defaultPageLimit = 10
	maxPageLimit     = 100
)

type Response struct {
	Status  string      `json:"status"`            //результат обработки fail/success
	Message string      `json:"message,omitempty"` //сообщение ошибки
	Data    interface{} `json:"data,omitempty"`    //данные ответа
}

type ScrollerResponse struct {
	Response
	RowCount int64 `json:"row_count"` //общее кол-во записей в очереди без учета страницы
}

func NewError(message string) Response {
	return Response{
		Status:  StatusFail,
		Message: message,
	}
}

func NewResponse(data interface{}) Response {
	return Response{
		Status: StatusSuccess,
		Data:   data,
	}
}

func NewScrollerResponse(data interface{}, rowCount int64) ScrollerResponse {
	return ScrollerResponse{
		Response: NewResponse(data),
		RowCount: rowCount,
	}
}

type Pagination struct {
	Limit int `json:"limit" query:"limit"` // Записей на странице, не более 100
	Page  int `json:"page" query:"page"`   // Страница (1,2,3..)
}

// GetPage номер страницы и размер с учетом значений по умолчанию
func (r Pagination) GetPage() (page, limit int) {
	page, limit = 1, defaultPageLimit
	if r.Page > 0 {
		page = r.Page
	}
	if r.Limit > 0 {
		limit = min(r.Limit, maxPageLimit)
	}
	return page, limit
}

func (r Pagination) Offset() int {
	page, limit := r.GetPage()
	return (page - 1) * limit
}
