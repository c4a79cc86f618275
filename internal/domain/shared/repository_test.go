package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestNewPage(t *testing.T) {
	tests := []struct {
		name        string
		total       int64
		page        int
		perPage     int
		wantPage    int
		wantPerPage int
		wantLast    int
		wantMore    bool
		wantNext    *int
		wantPrev    *int
	}{
		{"empty result", 0, 1, 20, 1, 20, 1, false, nil, nil},
		{"empty result asked for a later page", 0, 3, 20, 3, 20, 1, false, nil, intPtr(1)},
		{"single partial page", 7, 1, 20, 1, 20, 1, false, nil, nil},
		{"exact multiple", 40, 1, 20, 1, 20, 2, true, intPtr(2), nil},
		{"middle page", 41, 2, 20, 2, 20, 3, true, intPtr(3), intPtr(1)},
		{"last page", 41, 3, 20, 3, 20, 3, false, nil, intPtr(2)},
		{"past the last page", 41, 9, 20, 9, 20, 3, false, nil, intPtr(3)},
		{"page below one", 41, 0, 20, 1, 20, 3, true, intPtr(2), nil},
		{"default per page", 16, 1, 0, 1, DefaultPerPage, 2, true, intPtr(2), nil},
		{"per page clamped", 250, 1, 500, 1, MaxPerPage, 3, true, intPtr(2), nil},
		{"negative total", -5, 1, 20, 1, 20, 1, false, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage[string](nil, tt.total, tt.page, tt.perPage)

			assert.NotNil(t, p.Items)
			assert.Empty(t, p.Items)
			assert.Equal(t, tt.wantPage, p.CurrentPage)
			assert.Equal(t, tt.wantPerPage, p.PerPage)
			assert.Equal(t, tt.wantLast, p.LastPage)
			assert.Equal(t, tt.wantMore, p.HasMorePages)
			assert.Equal(t, tt.wantNext, p.NextPage)
			assert.Equal(t, tt.wantPrev, p.PreviousPage)
		})
	}
}

func TestNewPage_KeepsItems(t *testing.T) {
	p := NewPage([]int{1, 2, 3}, 3, 1, 15)
	assert.Equal(t, []int{1, 2, 3}, p.Items)
	assert.Equal(t, int64(3), p.Total)
}
