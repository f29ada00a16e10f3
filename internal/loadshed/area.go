package loadshed

import (
	"context"

	"golang.org/x/sync/singleflight"

	"loadshed-monitor/internal/cache"
	"loadshed-monitor/internal/logger"
)

// 文档注释：区域解析器（坐标 → 区域）
// 背景：商户坐标对应的区域几乎不变，结果进入长 TTL 缓存（默认 24h），每个坐标每天只需访问上游一次。
// 约束：缓存按坐标精确匹配；取上游返回的第一个候选区域；并发的同坐标未命中合并为一次上游调用。
type AreaResolver struct {
	up    Upstream
	cache *cache.TTL[Coordinate, AreaInfo]
	sf    singleflight.Group
}

func NewAreaResolver(up Upstream, c *cache.TTL[Coordinate, AreaInfo]) *AreaResolver {
	return &AreaResolver{up: up, cache: c}
}

// Resolve：返回坐标所在区域；失败时记录日志并返回 *ResolutionError
func (r *AreaResolver) Resolve(ctx context.Context, c Coordinate) (AreaInfo, error) {
	if !c.Valid() {
		err := &ResolutionError{Op: OpArea, Key: c.String(), Err: ErrInvalidCoordinate}
		logger.L().Error("area_resolve_error", "lat", c.Lat, "lon", c.Lon, "err", err)
		return AreaInfo{}, err
	}
	if a, ok := r.cache.Get(ctx, c); ok {
		return a, nil
	}
	v, err, _ := r.sf.Do(c.String(), func() (any, error) {
		if a, ok := r.cache.Get(ctx, c); ok {
			return a, nil
		}
		a, err := r.fetch(ctx, c)
		if err != nil {
			rerr := &ResolutionError{Op: OpArea, Key: c.String(), Err: err}
			logger.L().Error("area_resolve_error", "lat", c.Lat, "lon", c.Lon, "err", rerr)
			return nil, rerr
		}
		r.cache.Put(ctx, c, a)
		logger.L().Debug("area_resolved", "lat", c.Lat, "lon", c.Lon, "area_id", a.ID, "area_name", a.Name)
		return a, nil
	})
	if err != nil {
		return AreaInfo{}, err
	}
	return v.(AreaInfo), nil
}

func (r *AreaResolver) fetch(ctx context.Context, c Coordinate) (AreaInfo, error) {
	resp, err := r.up.AreasNearby(ctx, c.Lat, c.Lon)
	if err != nil {
		return AreaInfo{}, classify(err)
	}
	if resp == nil || len(resp.Areas) == 0 {
		return AreaInfo{}, &UpstreamFormatError{Reason: "areas", Err: ErrNoArea}
	}
	first := resp.Areas[0]
	if first.ID == "" {
		return AreaInfo{}, &UpstreamFormatError{Reason: "area id missing"}
	}
	return AreaInfo{ID: first.ID, Name: first.Name}, nil
}
