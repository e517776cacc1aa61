package api

import (
	"testing"
	"time"
)

// TestWeekRange はWeekRangeを検証する。
func TestWeekRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		t    time.Time
		want Range
	}{
		{
			name: "水曜日を含む週",
			t:    time.Date(2026, 10, 21, 15, 30, 0, 0, time.UTC),
			want: Range{From: "2026-10-18", To: "2026-10-24"},
		},
		{
			name: "日曜日はその日から始まる",
			t:    time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
			want: Range{From: "2026-10-18", To: "2026-10-24"},
		},
		{
			name: "土曜日はその日で終わる",
			t:    time.Date(2026, 10, 24, 23, 59, 0, 0, time.UTC),
			want: Range{From: "2026-10-18", To: "2026-10-24"},
		},
		{
			name: "月と年をまたぐ週",
			t:    time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC),
			want: Range{From: "2026-12-27", To: "2027-01-02"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := WeekRange(tt.t); got != tt.want {
				t.Errorf("WeekRange(%v) = %+v, want %+v", tt.t, got, tt.want)
			}
		})
	}
}

// TestMonthGridRange はMonthGridRangeを検証する。
func TestMonthGridRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		t    time.Time
		want Range
	}{
		{
			// 2026-10-01は木曜日
			name: "月初が週の途中",
			t:    time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
			want: Range{From: "2026-09-27", To: "2026-11-07"},
		},
		{
			// 2026-02-01は日曜日
			name: "月初が日曜日",
			t:    time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
			want: Range{From: "2026-02-01", To: "2026-03-14"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := MonthGridRange(tt.t)
			if got != tt.want {
				t.Errorf("MonthGridRange(%v) = %+v, want %+v", tt.t, got, tt.want)
			}
			q := got.Query()
			if q.From != got.From || q.To != got.To {
				t.Errorf("Query() = %+v", q)
			}
		})
	}
}
