package loadshed

import (
	"context"
	"sync"
	"time"

	"loadshed-monitor/internal/cache"
	"loadshed-monitor/internal/esp"
)

type fakeUpstream struct {
	mu        sync.Mutex
	nearby    *esp.AreasNearbyResponse
	nearbyErr error
	area      map[string]*esp.AreaResponse
	areaErr   error

	nearbyCalls int
	areaCalls   int
}

func (f *fakeUpstream) AreasNearby(_ context.Context, _, _ float64) (*esp.AreasNearbyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nearbyCalls++
	return f.nearby, f.nearbyErr
}

func (f *fakeUpstream) Area(_ context.Context, id string) (*esp.AreaResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.areaCalls++
	if f.areaErr != nil {
		return nil, f.areaErr
	}
	return f.area[id], nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var sast = time.FixedZone("SAST", 2*60*60)

func strp(s string) *string { return &s }

func newAreaCache(clk *clock) *cache.TTL[Coordinate, AreaInfo] {
	return cache.NewTTL[Coordinate, AreaInfo]("area", cache.NewLRU[Coordinate, AreaInfo](1000), 24*time.Hour, clk.Now)
}

func newScheduleCache(clk *clock) *cache.TTL[string, Info] {
	return cache.NewTTL[string, Info]("schedule", cache.NewLRU[string, Info](1000), 30*time.Minute, clk.Now)
}
