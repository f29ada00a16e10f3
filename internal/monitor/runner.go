package monitor

import (
	"context"
	"time"

	"loadshed-monitor/internal/logger"
	"loadshed-monitor/internal/merchants"
)

// Source：输入协作方，每轮提供一份只读商户快照
type Source interface {
	Snapshot(ctx context.Context) ([]merchants.Merchant, error)
}

// 文档注释：周期调度器
// 背景：两轮之间的间隔从上一轮结束开始计时，轮次不会重叠；MaxPasses>0 时执行指定轮数后返回，用于 --once 与测试。
// 约束：ctx 取消只阻止下一轮开始，进行中的一轮以脱离取消的上下文跑完，避免留下半截状态写入。
type Runner struct {
	Monitor   *Monitor
	Source    Source
	Interval  time.Duration
	MaxPasses int
	OnPass    func(Result)
}

func (r *Runner) Run(ctx context.Context) error {
	l := logger.L()
	for n := 0; r.MaxPasses <= 0 || n < r.MaxPasses; n++ {
		if ctx.Err() != nil {
			break
		}
		list, err := r.Source.Snapshot(ctx)
		if err != nil {
			l.Error("merchants_snapshot_error", "err", err)
		} else {
			res := r.Monitor.RunPass(context.WithoutCancel(ctx), list)
			if r.OnPass != nil {
				r.OnPass(res)
			}
		}
		if r.MaxPasses > 0 && n+1 >= r.MaxPasses {
			break
		}
		l.Debug("pass_wait", "interval", r.Interval.String())
		t := time.NewTimer(r.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}
	l.Info("runner_stopped")
	return nil
}
