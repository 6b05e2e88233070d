package xratelimit

import "github.com/omeyang/xgate/pkg/resilience/xlimit"

// MapPeriod 把配置周期映射为限流窗口，未知周期映射为月。
func MapPeriod(p Period) xlimit.Period {
	switch p {
	case PeriodSecond:
		return xlimit.Second
	case PeriodMinute:
		return xlimit.Minute
	case PeriodHour:
		return xlimit.Hour
	case PeriodDay:
		return xlimit.Day
	case PeriodMonth:
		return xlimit.Month
	case PeriodYear:
		return xlimit.Year
	default:
		return xlimit.Month
	}
}
