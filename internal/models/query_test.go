package models

import (
	"math"
	"testing"
)

func TestAuthLogQuery_NormalizeDefaults(t *testing.T) {
	q := AuthLogQuery{OrderBy: "password", Order: "sideways", Result: "maybe", Page: -3}
	q.Normalize()

	if q.OrderBy != ColumnAttemptTime {
		t.Errorf("expected order by %q, got %q", ColumnAttemptTime, q.OrderBy)
	}
	if q.Order != SortDesc {
		t.Errorf("expected order %q, got %q", SortDesc, q.Order)
	}
	if q.Result != ResultFilterAll {
		t.Errorf("expected result %q, got %q", ResultFilterAll, q.Result)
	}
	if q.Page != 1 || q.PageSize != DefaultPageSize {
		t.Errorf("expected page 1 of %d, got page %d of %d", DefaultPageSize, q.Page, q.PageSize)
	}
	if q.Offset() != 0 {
		t.Errorf("expected offset 0, got %d", q.Offset())
	}
}

func TestAuthLogQuery_HugePageNeverGoesNegative(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		pageSize int
	}{
		{"max int page", math.MaxInt, 25},
		{"overflowing product", math.MaxInt/25 + 1, 25},
		{"max page size", math.MaxInt, MaxPerPage},
		{"oversized page size", math.MaxInt, math.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := AuthLogQuery{Page: tt.page, PageSize: tt.pageSize}
			q.Normalize()

			offset := q.Offset()
			if offset < 0 {
				t.Fatalf("expected non-negative offset, got %d", offset)
			}
			if offset > math.MaxInt32 {
				t.Errorf("expected offset within int32, got %d", offset)
			}
			if q.PageSize > MaxPerPage {
				t.Errorf("expected page size capped at %d, got %d", MaxPerPage, q.PageSize)
			}
		})
	}
}

func TestAuthLogQuery_OrdinaryPageUntouched(t *testing.T) {
	q := AuthLogQuery{Page: 4, PageSize: 50}
	q.Normalize()

	if q.Page != 4 {
		t.Errorf("expected page 4, got %d", q.Page)
	}
	if q.Offset() != 150 {
		t.Errorf("expected offset 150, got %d", q.Offset())
	}
}
