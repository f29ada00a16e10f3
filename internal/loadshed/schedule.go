package loadshed

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"loadshed-monitor/internal/cache"
	"loadshed-monitor/internal/esp"
	"loadshed-monitor/internal/logger"
)

var stagePattern = regexp.MustCompile(`Stage\s*(\d+)`)

const dateLayout = "2006-01-02"

// 文档注释：停电计划解析器（区域 → 当前/下一事件 + 当日分级时段）
// 背景：区域停电状态变化较快，结果进入短 TTL 缓存（默认 30min）；命中时不访问上游也不重新计算。
// 约束：“今天”取 now() 所在时区的日历日期，now 由调用方注入（已换算到参考时区）。
type ScheduleResolver struct {
	up    Upstream
	cache *cache.TTL[string, Info]
	now   cache.Clock
	sf    singleflight.Group
}

func NewScheduleResolver(up Upstream, c *cache.TTL[string, Info], now cache.Clock) *ScheduleResolver {
	if now == nil {
		now = time.Now
	}
	return &ScheduleResolver{up: up, cache: c, now: now}
}

// Resolve：返回区域的停电信息；失败时记录日志并返回 *ResolutionError
func (r *ScheduleResolver) Resolve(ctx context.Context, areaID string) (Info, error) {
	if info, ok := r.cache.Get(ctx, areaID); ok {
		return info, nil
	}
	v, err, _ := r.sf.Do(areaID, func() (any, error) {
		if info, ok := r.cache.Get(ctx, areaID); ok {
			return info, nil
		}
		info, err := r.fetch(ctx, areaID)
		if err != nil {
			rerr := &ResolutionError{Op: OpSchedule, Key: areaID, Err: err}
			logger.L().Error("schedule_resolve_error", "area_id", areaID, "err", rerr)
			return nil, rerr
		}
		r.cache.Put(ctx, areaID, info)
		logger.L().Debug("schedule_resolved", "area_id", areaID, "has_event", info.CurrentEvent != nil, "days", len(info.TodaySchedule))
		return info, nil
	})
	if err != nil {
		return Info{}, err
	}
	return v.(Info), nil
}

func (r *ScheduleResolver) fetch(ctx context.Context, areaID string) (Info, error) {
	resp, err := r.up.Area(ctx, areaID)
	if err != nil {
		return Info{}, classify(err)
	}
	if resp == nil {
		return Info{}, &UpstreamFormatError{Reason: "empty response"}
	}
	return buildInfo(resp, r.now())
}

// buildInfo：从区域详情生成停电信息
func buildInfo(resp *esp.AreaResponse, now time.Time) (Info, error) {
	info := Info{TodaySchedule: map[string][]string{}}
	events, notes, err := parseEvents(resp.Events)
	if err != nil {
		return Info{}, err
	}
	idx, ok := selectEvent(events, now)
	if !ok {
		return info, nil
	}
	if notes[idx] == nil {
		return Info{}, &UpstreamFormatError{Reason: "event note missing"}
	}
	ev := events[idx]
	ev.Note = *notes[idx]
	info.CurrentEvent = &ev
	stage, ok := parseStage(ev.Note)
	if !ok {
		return info, nil
	}
	info.CurrentStage = &stage
	if resp.Schedule != nil {
		today := now.Format(dateLayout)
		if periods := stagePeriods(resp.Schedule.Days, today, stage); len(periods) > 0 {
			info.TodaySchedule[today] = periods
		}
	}
	return info, nil
}

func parseEvents(raw []esp.Event) ([]Event, []*string, error) {
	events := make([]Event, 0, len(raw))
	notes := make([]*string, 0, len(raw))
	for i, e := range raw {
		start, err := parseTimestamp(e.Start)
		if err != nil {
			return nil, nil, &UpstreamFormatError{Reason: "event " + strconv.Itoa(i) + " start", Err: err}
		}
		end, err := parseTimestamp(e.End)
		if err != nil {
			return nil, nil, &UpstreamFormatError{Reason: "event " + strconv.Itoa(i) + " end", Err: err}
		}
		events = append(events, Event{Start: start, End: end})
		notes = append(notes, e.Note)
	}
	return events, notes, nil
}

// parseTimestamp：解析带时区偏移的 ISO-8601 时间；不带偏移的时间视为格式错误
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	if t2, err2 := time.Parse("2006-01-02T15:04Z07:00", s); err2 == nil {
		return t2, nil
	}
	return time.Time{}, err
}

// 文档注释：选择当前或下一事件
// 背景：按上游顺序扫描；包含 now 的事件（两端闭区间）立即胜出并停止扫描；否则记录开始时间严格晚于 now 的最早事件。
// 返回：所选事件下标；全部为过去事件时返回 false。
func selectEvent(events []Event, now time.Time) (int, bool) {
	next := -1
	for i := range events {
		if events[i].Contains(now) {
			return i, true
		}
		if now.Before(events[i].Start) && (next < 0 || events[i].Start.Before(events[next].Start)) {
			next = i
		}
	}
	return next, next >= 0
}

// parseStage：提取备注中第一个 "Stage N" 的级别
func parseStage(note string) (int, bool) {
	m := stagePattern.FindStringSubmatch(note)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// stagePeriods：取 today 当日第 stage 级（从 1 起）的时段列表；级别越界或无当日计划返回 nil
func stagePeriods(days []esp.ScheduleDay, today string, stage int) []string {
	if stage < 1 {
		return nil
	}
	for _, d := range days {
		if d.Date != today {
			continue
		}
		if len(d.Stages) < stage {
			return nil
		}
		return append([]string(nil), d.Stages[stage-1]...)
	}
	return nil
}
