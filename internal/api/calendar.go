package api

import "time"

// DateLayout はAPIで使用する日付の形式。
const DateLayout = "2006-01-02"

// Range は日付の期間。両端を含む。
type Range struct {
	From string
	To   string
}

// WeekRange はtを含む週（日曜日から土曜日）を返す。
func WeekRange(t time.Time) Range {
	start := startOfDay(t).AddDate(0, 0, -int(t.Weekday()))
	return Range{
		From: start.Format(DateLayout),
		To:   start.AddDate(0, 0, 6).Format(DateLayout),
	}
}

// MonthGridRange はtの月を表示する6週間分のカレンダーグリッドの期間を返す。
// グリッドは月初を含む週の日曜日から始まる。
func MonthGridRange(t time.Time) Range {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	start := first.AddDate(0, 0, -int(first.Weekday()))
	return Range{
		From: start.Format(DateLayout),
		To:   start.AddDate(0, 0, 6*7-1).Format(DateLayout),
	}
}

// Query は期間をRangeQueryに変換する。
func (r Range) Query() RangeQuery {
	return RangeQuery{From: r.From, To: r.To}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
