// 包 loadshed：商户所在区域的解析、停电计划解析与“当前是否停电”判定
package loadshed

import (
	"context"
	"math"
	"strconv"
	"time"

	"loadshed-monitor/internal/esp"
)

// Coordinate：WGS84 坐标；作为区域缓存键时按精确值比较，不做近似
type Coordinate struct {
	Lat float64
	Lon float64
}

func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// Valid：纬度 [-90,90]、经度 [-180,180] 且非 NaN/Inf
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// AreaInfo：停电区域标识；解析后只读
type AreaInfo struct {
	ID   string `json:"area_id"`
	Name string `json:"area_name"`
}

// Event：一次计划或实际停电窗口，起止时间携带上游给出的时区偏移
type Event struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Note  string    `json:"note"`
}

// Contains：now 是否落在 [Start, End] 内（两端闭区间）
func (e Event) Contains(now time.Time) bool {
	return !now.Before(e.Start) && !now.After(e.End)
}

// 文档注释：单个区域一轮刷新的停电信息
// 背景：由计划解析器在缓存未命中时生成，之后只读，随缓存过期丢弃。
// 约束：CurrentStage 为空时 TodaySchedule 必为空；TodaySchedule 以日期（YYYY-MM-DD）为键，值为 "HH:MM-HH:MM" 时段列表。
type Info struct {
	CurrentEvent  *Event              `json:"current_event,omitempty"`
	CurrentStage  *int                `json:"current_stage,omitempty"`
	TodaySchedule map[string][]string `json:"today_stage_schedule"`
}

// Upstream：上游数据源契约，由 esp.Client 实现；测试中替换为桩
type Upstream interface {
	AreasNearby(ctx context.Context, lat, lon float64) (*esp.AreasNearbyResponse, error)
	Area(ctx context.Context, id string) (*esp.AreaResponse, error)
}
