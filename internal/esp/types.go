package esp

// 文档注释：EskomSePush business/2.0 响应结构
// 背景：仅解析区域定位与停电计划所需字段；时间字段保留原始文本，由核心逻辑负责解析与校验。
// 约束：note 缺失与空字符串需可区分，故使用指针。
type Area struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

type AreasNearbyResponse struct {
	Areas []Area `json:"areas"`
}

type Event struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Note  *string `json:"note"`
}

// ScheduleDay：单日计划；Stages[i] 为第 i+1 级的 "HH:MM-HH:MM" 时段列表
type ScheduleDay struct {
	Date   string     `json:"date"`
	Name   string     `json:"name"`
	Stages [][]string `json:"stages"`
}

type Schedule struct {
	Days   []ScheduleDay `json:"days"`
	Source string        `json:"source"`
}

type AreaInfo struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}

type AreaResponse struct {
	Events   []Event   `json:"events"`
	Info     AreaInfo  `json:"info"`
	Schedule *Schedule `json:"schedule"`
}
