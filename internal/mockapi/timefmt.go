package mockapi

import (
	"database/sql"
	"time"
)

const (
	// localDateTime はDBとAPIで使う日時形式。タイムゾーンを持たない。
	localDateTime = "2006-01-02T15:04:05"
	dateLayout    = "2006-01-02"
	clockLayout   = "15:04"
)

// parseDateTime は "2006-01-02T15:04:05" または "2006-01-02" 形式の値を解釈する。
// 日付のみの場合はその日の0時とする。
func parseDateTime(v string) (time.Time, error) {
	if t, err := time.ParseInLocation(localDateTime, v, time.Local); err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateLayout, v, time.Local)
}

// parseDueDate は課題の期限を解釈する。日付のみの場合はその日の23:59とする。
func parseDueDate(v string) (time.Time, error) {
	if t, err := time.ParseInLocation(localDateTime, v, time.Local); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(dateLayout, v, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(23*time.Hour + 59*time.Minute), nil
}

// nullTime はDBの日時文字列を解釈する。NULLや不正な値の場合はokが偽になる。
func nullTime(v sql.NullString) (t time.Time, ok bool) {
	if !v.Valid || v.String == "" {
		return time.Time{}, false
	}
	t, err := parseDateTime(v.String)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// nullString はNULLを空文字列として返す。
func nullString(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

// formatPart はNULLでない日時をlayoutで整形する。
func formatPart(v sql.NullString, layout string) string {
	t, ok := nullTime(v)
	if !ok {
		return ""
	}
	return t.Format(layout)
}
