package pagination

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "invoicer/internal/errors"
)

func TestFromQuery(t *testing.T) {
	tests := []struct {
		name, page, size string
		want             PageRequest
	}{
		{"empty", "", "", PageRequest{Page: 1, PageSize: DefaultPageSize}},
		{"explicit", "3", "25", PageRequest{Page: 3, PageSize: 25}},
		{"non positive", "0", "-5", PageRequest{Page: 1, PageSize: DefaultPageSize}},
		{"garbage", "abc", "x", PageRequest{Page: 1, PageSize: DefaultPageSize}},
		{"capped", "1", "1000", PageRequest{Page: 1, PageSize: MaxPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromQuery(tt.page, tt.size))
		})
	}
}

func TestCheck(t *testing.T) {
	req := PageRequest{Page: 4, PageSize: 10}
	err := req.Check(25)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPageOutOfRange))
	assert.Equal(t, "Page 4 does not exist. Valid pages: 1 to 3", err.Error())

	req.Page = 3
	assert.NoError(t, req.Check(25))

	// an empty result set has no pages to overrun
	req.Page = 9
	assert.NoError(t, req.Check(0))
}

func TestNewPageResponse(t *testing.T) {
	req := PageRequest{Page: 2, PageSize: 2}
	resp := NewPageResponse([]int{3, 4}, req, 5)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 2, resp.CurrentPage)
	assert.Equal(t, int64(5), resp.TotalCount)

	empty := NewPageResponse[int](nil, req, 0)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)

	strs := Map(resp, func(i int) string { return string(rune('a' + i)) })
	assert.Equal(t, []string{"d", "e"}, strs.Items)
	assert.Equal(t, resp.TotalPages, strs.TotalPages)
}
