package apimodels

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPagination(t *testing.T) {
	page, limit := Pagination{}.GetPage()
	require.Equal(t, 1, page)
	require.Equal(t, 10, limit)
	require.Zero(t, Pagination{}.Offset())

	page, limit = Pagination{Page: 3, Limit: 500}.GetPage()
	require.Equal(t, 3, page)
	require.Equal(t, 100, limit)
	require.Equal(t, 200, Pagination{Page: 3, Limit: 500}.Offset())
}

func TestEnvelope(t *testing.T) {
	require.Equal(t, Response{Status: "fail", Message: "нет доступа"}, NewError("нет доступа"))
	resp := NewScrollerResponse([]string{"a"}, 7)
	require.Equal(t, "success", resp.Status)
	require.EqualValues(t, 7, resp.RowCount)
}
