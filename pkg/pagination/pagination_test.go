package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func paramsFor(target string) Params {
	return FromRequest(httptest.NewRequest(http.MethodGet, target, nil))
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		page    int
		perPage int
		offset  int
	}{
		{"defaults", "/users", 1, 20, 0},
		{"custom values", "/users?page=3&per_page=50", 3, 50, 100},
		{"negative page falls back", "/users?page=-1", 1, 20, 0},
		{"zero page falls back", "/users?page=0", 1, 20, 0},
		{"non-numeric page falls back", "/users?page=abc", 1, 20, 0},
		{"per_page over cap falls back", "/users?per_page=200", 1, 20, 0},
		{"per_page at cap accepted", "/users?per_page=100", 1, 100, 0},
		{"zero per_page falls back", "/users?per_page=0", 1, 20, 0},
		{"offset for later page", "/users?page=5&per_page=20", 5, 20, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paramsFor(tt.target)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.perPage, p.PerPage)
			assert.Equal(t, tt.offset, p.Offset)
		})
	}
}

func TestNewResult_SinglePage(t *testing.T) {
	data := []string{"u1", "u2", "u3"}
	result := NewResult(data, 3, Params{Page: 1, PerPage: 10})

	assert.Equal(t, data, result.Data)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, 1, result.TotalPages)
	assert.False(t, result.HasNext)
	assert.False(t, result.HasPrev)
}

func TestNewResult_MiddlePage(t *testing.T) {
	result := NewResult([]string{"u3", "u4"}, 10, Params{Page: 2, PerPage: 2, Offset: 2})

	assert.Equal(t, 5, result.TotalPages)
	assert.True(t, result.HasNext)
	assert.True(t, result.HasPrev)
}

func TestNewResult_LastPageRoundsUp(t *testing.T) {
	result := NewResult([]string{"u11"}, 11, Params{Page: 3, PerPage: 5, Offset: 10})

	assert.Equal(t, 3, result.TotalPages) // ceil(11/5)
	assert.False(t, result.HasNext)
	assert.True(t, result.HasPrev)
}

func TestNewResult_Empty(t *testing.T) {
	result := NewResult([]string{}, 0, Params{Page: 1, PerPage: 20})

	assert.Equal(t, 0, result.TotalCount)
	assert.Equal(t, 0, result.TotalPages)
	assert.False(t, result.HasNext)
	assert.False(t, result.HasPrev)
}
