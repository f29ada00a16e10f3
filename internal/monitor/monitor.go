// 包 monitor：单轮轮询编排（区域解析 → 计划解析 → 停电判定 → 持久化）与周期调度
package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"loadshed-monitor/internal/loadshed"
	"loadshed-monitor/internal/logger"
	"loadshed-monitor/internal/merchants"
	"loadshed-monitor/internal/metrics"
)

type AreaResolver interface {
	Resolve(ctx context.Context, c loadshed.Coordinate) (loadshed.AreaInfo, error)
}

type ScheduleResolver interface {
	Resolve(ctx context.Context, areaID string) (loadshed.Info, error)
}

// Recorder：持久化协作方，由 store.Store 实现
type Recorder interface {
	CloseMerchant(ctx context.Context, merchantUUID string, area loadshed.AreaInfo, at time.Time) error
	OpenMerchant(ctx context.Context, merchantUUID string, area loadshed.AreaInfo, at time.Time) error
}

// Result：单轮统计
type Result struct {
	Merchants     int
	Closed        int
	Opened        int
	Failed        int
	ScheduleCalls int
}

// 文档注释：单轮编排器
// 背景：逐个商户判定停电状态；同一轮内相同区域只调用一次计划解析器，结果供该区域所有商户复用。
// 约束：workers<=1 时顺序执行；>1 时按商户并发，去重状态与缓存是唯一共享可变状态。单个商户失败只记录日志，不中断本轮。
type Monitor struct {
	areas     AreaResolver
	schedules ScheduleResolver
	rec       Recorder
	now       func() time.Time
	workers   int
}

func New(areas AreaResolver, schedules ScheduleResolver, rec Recorder, now func() time.Time, workers int) *Monitor {
	if now == nil {
		now = time.Now
	}
	if workers < 1 {
		workers = 1
	}
	return &Monitor{areas: areas, schedules: schedules, rec: rec, now: now, workers: workers}
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeClosed
	outcomeOpened
)

// RunPass：对一份商户快照执行一轮判定
func (m *Monitor) RunPass(ctx context.Context, list []merchants.Merchant) Result {
	t0 := time.Now()
	d := &passDedup{resolver: m.schedules, done: map[string]areaResult{}}
	var closed, opened, failed atomic.Int64
	count := func(o outcome) {
		switch o {
		case outcomeClosed:
			closed.Add(1)
		case outcomeOpened:
			opened.Add(1)
		default:
			failed.Add(1)
		}
	}
	if m.workers == 1 {
		for _, mc := range list {
			count(m.evaluate(ctx, mc, d))
		}
	} else {
		var g errgroup.Group
		g.SetLimit(m.workers)
		for _, mc := range list {
			g.Go(func() error {
				count(m.evaluate(ctx, mc, d))
				return nil
			})
		}
		_ = g.Wait()
	}
	res := Result{
		Merchants:     len(list),
		Closed:        int(closed.Load()),
		Opened:        int(opened.Load()),
		Failed:        int(failed.Load()),
		ScheduleCalls: d.calls(),
	}
	dur := time.Since(t0)
	metrics.PassDurationMs.Observe(float64(dur.Milliseconds()))
	logger.L().Info("pass_done",
		"merchants", res.Merchants,
		"closed", res.Closed,
		"opened", res.Opened,
		"failed", res.Failed,
		"schedule_calls", res.ScheduleCalls,
		"duration_ms", dur.Milliseconds(),
	)
	return res
}

func (m *Monitor) evaluate(ctx context.Context, mc merchants.Merchant, d *passDedup) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("merchant_error", "merchant_uuid", mc.UUID, "err", fmt.Sprintf("panic: %v", r))
			metrics.DecisionsTotal.WithLabelValues("failed").Inc()
			o = outcomeFailed
		}
	}()
	fail := func(err error) outcome {
		logger.L().Error("merchant_error", "merchant_uuid", mc.UUID, "err", err)
		metrics.DecisionsTotal.WithLabelValues("failed").Inc()
		return outcomeFailed
	}
	area, err := m.areas.Resolve(ctx, mc.Coord)
	if err != nil {
		return fail(err)
	}
	info, err := d.resolve(ctx, area.ID)
	if err != nil {
		return fail(err)
	}
	now := m.now()
	if loadshed.IsActive(info, now) {
		if err := m.rec.CloseMerchant(ctx, mc.UUID, area, now); err != nil {
			return fail(err)
		}
		logger.L().Info("merchant_closed", "merchant_uuid", mc.UUID, "area_id", area.ID, "area_name", area.Name)
		metrics.DecisionsTotal.WithLabelValues("closed").Inc()
		return outcomeClosed
	}
	if err := m.rec.OpenMerchant(ctx, mc.UUID, area, now); err != nil {
		return fail(err)
	}
	logger.L().Info("merchant_opened", "merchant_uuid", mc.UUID, "area_id", area.ID, "area_name", area.Name)
	metrics.DecisionsTotal.WithLabelValues("opened").Inc()
	return outcomeOpened
}

type areaResult struct {
	info loadshed.Info
	err  error
}

// 文档注释：单轮去重
// 背景：轮内每个区域最多调用一次计划解析器（失败结果同样复用至本轮结束，下一轮重试）；轮结束即丢弃，不替代跨轮的短 TTL 缓存。
// 约束：并发时以 singleflight 合并同区域的在途调用，并在调用内复查已完成结果，保证至多一次。
type passDedup struct {
	resolver ScheduleResolver
	sf       singleflight.Group
	mu       sync.Mutex
	done     map[string]areaResult
	n        int
}

func (d *passDedup) lookup(areaID string) (areaResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.done[areaID]
	return r, ok
}

func (d *passDedup) resolve(ctx context.Context, areaID string) (loadshed.Info, error) {
	if r, ok := d.lookup(areaID); ok {
		return r.info, r.err
	}
	v, _, _ := d.sf.Do(areaID, func() (any, error) {
		if r, ok := d.lookup(areaID); ok {
			return r, nil
		}
		info, err := d.resolver.Resolve(ctx, areaID)
		r := areaResult{info: info, err: err}
		d.mu.Lock()
		d.done[areaID] = r
		d.n++
		d.mu.Unlock()
		return r, nil
	})
	r := v.(areaResult)
	return r.info, r.err
}

func (d *passDedup) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}
