package xlimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period 计数窗口的周期单位。
type Period int

const (
	Second Period = iota + 1
	Minute
	Hour
	Day
	Month
	Year
)

var periodNames = map[Period]string{
	Second: "SECOND",
	Minute: "MINUTE",
	Hour:   "HOUR",
	Day:    "DAY",
	Month:  "MONTH",
	Year:   "YEAR",
}

// String 返回大写名称，作为计数器键的一部分。
func (p Period) String() string {
	if name, ok := periodNames[p]; ok {
		return name
	}
	return "Period(" + strconv.Itoa(int(p)) + ")"
}

// Valid 报告 p 是否为已知周期。
func (p Period) Valid() bool {
	_, ok := periodNames[p]
	return ok
}

// ParsePeriod 解析周期名称，大小写不敏感。
func ParsePeriod(s string) (Period, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for p, name := range periodNames {
		if name == upper {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// Window 半开区间 [Start, End)。
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains 报告 t 是否落在窗口内。
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Window 返回 now 所在的窗口，按 loc 的日历边界对齐。
// 日、月、年按日历推进，夏令时切换当天的日窗口可能不是 24 小时。
func (p Period) Window(now time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	t := now.In(loc)
	y, mo, d := t.Date()
	h, mi, s := t.Clock()

	var start, end time.Time
	switch p {
	case Second:
		start = time.Date(y, mo, d, h, mi, s, 0, loc)
		end = start.Add(time.Second)
	case Minute:
		start = time.Date(y, mo, d, h, mi, 0, 0, loc)
		end = start.Add(time.Minute)
	case Hour:
		start = time.Date(y, mo, d, h, 0, 0, 0, loc)
		end = start.Add(time.Hour)
	case Day:
		start = time.Date(y, mo, d, 0, 0, 0, 0, loc)
		end = time.Date(y, mo, d+1, 0, 0, 0, 0, loc)
	case Month:
		start = time.Date(y, mo, 1, 0, 0, 0, 0, loc)
		end = time.Date(y, mo+1, 1, 0, 0, 0, 0, loc)
	case Year:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		end = time.Date(y+1, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return Window{}, fmt.Errorf("%w: %d", ErrInvalidPeriod, int(p))
	}
	return Window{Start: start, End: end}, nil
}

// counterKey 计数器键：{prefix}{bucketID}::{PERIOD}::{windowStartUnix}
func counterKey(prefix, bucketID string, p Period, w Window) string {
	var b strings.Builder
	b.Grow(len(prefix) + len(bucketID) + 32)
	b.WriteString(prefix)
	b.WriteString(bucketID)
	b.WriteString("::")
	b.WriteString(p.String())
	b.WriteString("::")
	b.WriteString(strconv.FormatInt(w.Start.Unix(), 10))
	return b.String()
}
