package loadshed

import (
	"strings"
	"time"

	"loadshed-monitor/internal/logger"
)

// 文档注释：判定当前是否处于停电中
// 背景：先查当日分级时段（粒度更细），再以事件窗口兜底；任一命中即返回 true。
// 约束：分级时段只给出本地时刻，存在当前事件时沿用事件开始时间的时区偏移；无事件时按 now 所在时区解释。
// 结束时刻不晚于开始时刻的时段（如 22:00-00:30）视为跨零点，结束于次日。
func IsActive(info Info, now time.Time) bool {
	loc := now.Location()
	if info.CurrentEvent != nil {
		loc = info.CurrentEvent.Start.Location()
	}
	for date, periods := range info.TodaySchedule {
		for _, p := range periods {
			start, end, ok := periodBounds(date, p, loc)
			if !ok {
				logger.L().Debug("schedule_period_invalid", "date", date, "period", p)
				continue
			}
			if !now.Before(start) && !now.After(end) {
				return true
			}
		}
	}
	if info.CurrentEvent != nil && info.CurrentEvent.Contains(now) {
		return true
	}
	return false
}

// periodBounds：将日期与 "HH:MM-HH:MM" 组合为 loc 时区下的起止时刻
func periodBounds(date, period string, loc *time.Location) (time.Time, time.Time, bool) {
	a, b, found := strings.Cut(period, "-")
	if !found {
		return time.Time{}, time.Time{}, false
	}
	start, err := time.ParseInLocation(dateLayout+" 15:04", date+" "+strings.TrimSpace(a), loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := time.ParseInLocation(dateLayout+" 15:04", date+" "+strings.TrimSpace(b), loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, true
}
