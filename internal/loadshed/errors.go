package loadshed

import (
	"errors"
	"fmt"

	"loadshed-monitor/internal/esp"
)

// Op：失败的解析环节
type Op string

const (
	OpArea     Op = "area"
	OpSchedule Op = "schedule"
)

var (
	ErrNoArea            = errors.New("no candidate area returned")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// TransportError：无法从上游取得成功响应（网络、超时、非 2xx 状态）；本层不重试，由下一轮轮询兜底
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamFormatError：响应成功但缺少或无法解析预期字段
type UpstreamFormatError struct {
	Reason string
	Err    error
}

func (e *UpstreamFormatError) Error() string {
	if e.Err != nil {
		return "upstream format: " + e.Reason + ": " + e.Err.Error()
	}
	return "upstream format: " + e.Reason
}

func (e *UpstreamFormatError) Unwrap() error { return e.Err }

// ResolutionError：解析器对外唯一的错误类型，携带环节、键与底层原因
type ResolutionError struct {
	Op  Op
	Key string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// classify：将上游客户端错误归一为传输错误或格式错误
func classify(err error) error {
	if esp.IsDecode(err) {
		return &UpstreamFormatError{Reason: "malformed response", Err: err}
	}
	return &TransportError{Err: err}
}
