package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loadshed-monitor/internal/loadshed"
	"loadshed-monitor/internal/merchants"
)

var sast = time.FixedZone("SAST", 2*60*60)

type stubAreas struct {
	byLat map[float64]loadshed.AreaInfo
	fail  map[float64]bool
	panic map[float64]bool
}

func (s *stubAreas) Resolve(_ context.Context, c loadshed.Coordinate) (loadshed.AreaInfo, error) {
	if s.panic[c.Lat] {
		panic("unexpected nil")
	}
	if s.fail[c.Lat] {
		return loadshed.AreaInfo{}, &loadshed.ResolutionError{Op: loadshed.OpArea, Key: c.String(), Err: loadshed.ErrNoArea}
	}
	return s.byLat[c.Lat], nil
}

type stubSchedules struct {
	mu    sync.Mutex
	calls map[string]int
	info  map[string]loadshed.Info
	fail  map[string]bool
	delay time.Duration
}

func (s *stubSchedules) Resolve(_ context.Context, areaID string) (loadshed.Info, error) {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[areaID]++
	if s.fail[areaID] {
		return loadshed.Info{}, &loadshed.ResolutionError{Op: loadshed.OpSchedule, Key: areaID, Err: errors.New("timeout")}
	}
	return s.info[areaID], nil
}

func (s *stubSchedules) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

type record struct {
	action string
	uuid   string
	area   string
	at     time.Time
}

type stubRecorder struct {
	mu      sync.Mutex
	records []record
	fail    map[string]bool
}

func (s *stubRecorder) add(action, uuid string, area loadshed.AreaInfo, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[uuid] {
		return errors.New("database is locked")
	}
	s.records = append(s.records, record{action: action, uuid: uuid, area: area.ID, at: at})
	return nil
}

func (s *stubRecorder) CloseMerchant(_ context.Context, uuid string, area loadshed.AreaInfo, at time.Time) error {
	return s.add("closed", uuid, area, at)
}

func (s *stubRecorder) OpenMerchant(_ context.Context, uuid string, area loadshed.AreaInfo, at time.Time) error {
	return s.add("opened", uuid, area, at)
}

func (s *stubRecorder) actions() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	for _, r := range s.records {
		out[r.uuid] = r.action
	}
	return out
}

func fixedNow() time.Time { return time.Date(2024, 1, 1, 19, 0, 0, 0, sast) }

func fixture() (*stubAreas, *stubSchedules, []merchants.Merchant) {
	areas := &stubAreas{byLat: map[float64]loadshed.AreaInfo{
		1: {ID: "north", Name: "North"},
		2: {ID: "north", Name: "North"},
		3: {ID: "south", Name: "South"},
		4: {ID: "south", Name: "South"},
		5: {ID: "north", Name: "North"},
	}}
	active := loadshed.Info{CurrentEvent: &loadshed.Event{
		Start: time.Date(2024, 1, 1, 18, 0, 0, 0, sast),
		End:   time.Date(2024, 1, 1, 20, 30, 0, 0, sast),
		Note:  "Stage 2",
	}}
	schedules := &stubSchedules{info: map[string]loadshed.Info{"north": active, "south": {}}}
	var list []merchants.Merchant
	for i, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		list = append(list, merchants.Merchant{UUID: id, Coord: loadshed.Coordinate{Lat: float64(i + 1), Lon: 28}})
	}
	return areas, schedules, list
}

func TestRunPassDedupsScheduleCalls(t *testing.T) {
	areas, schedules, list := fixture()
	rec := &stubRecorder{}
	m := New(areas, schedules, rec, fixedNow, 1)

	res := m.RunPass(context.Background(), list)
	assert.Equal(t, Result{Merchants: 5, Closed: 3, Opened: 2, ScheduleCalls: 2}, res)
	assert.Equal(t, 2, schedules.total())
	assert.Equal(t, map[string]string{"m1": "closed", "m2": "closed", "m5": "closed", "m3": "opened", "m4": "opened"}, rec.actions())
	for _, r := range rec.records {
		assert.Equal(t, fixedNow(), r.at)
	}

	m.RunPass(context.Background(), list)
	assert.Equal(t, 4, schedules.total(), "dedup state does not survive the pass")
}

func TestRunPassDedupsConcurrently(t *testing.T) {
	areas, schedules, list := fixture()
	schedules.delay = 10 * time.Millisecond
	rec := &stubRecorder{}
	m := New(areas, schedules, rec, fixedNow, 4)

	res := m.RunPass(context.Background(), list)
	assert.Equal(t, 3, res.Closed)
	assert.Equal(t, 2, res.Opened)
	assert.Equal(t, 2, res.ScheduleCalls)
	assert.Equal(t, 1, schedules.calls["north"])
	assert.Equal(t, 1, schedules.calls["south"])
}

func TestRunPassIsolatesFailures(t *testing.T) {
	areas, schedules, list := fixture()
	areas.fail = map[float64]bool{1: true}
	areas.panic = map[float64]bool{3: true}
	rec := &stubRecorder{fail: map[string]bool{"m5": true}}
	m := New(areas, schedules, rec, fixedNow, 1)

	res := m.RunPass(context.Background(), list)
	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, 1, res.Closed)
	assert.Equal(t, 1, res.Opened)
	assert.Equal(t, map[string]string{"m2": "closed", "m4": "opened"}, rec.actions())
}

func TestRunPassMemoizesScheduleFailureWithinPass(t *testing.T) {
	areas, schedules, list := fixture()
	schedules.fail = map[string]bool{"north": true}
	rec := &stubRecorder{}
	m := New(areas, schedules, rec, fixedNow, 1)

	res := m.RunPass(context.Background(), list)
	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, 2, res.Opened)
	assert.Equal(t, 1, schedules.calls["north"])
}

func TestRunPassEmptySnapshot(t *testing.T) {
	_, schedules, _ := fixture()
	m := New(&stubAreas{}, schedules, &stubRecorder{}, nil, 0)
	res := m.RunPass(context.Background(), nil)
	assert.Equal(t, Result{}, res)
}

type stubSource struct {
	mu    sync.Mutex
	list  []merchants.Merchant
	err   error
	calls int
}

func (s *stubSource) Snapshot(context.Context) ([]merchants.Merchant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.list, s.err
}

func TestRunnerStopsAfterMaxPasses(t *testing.T) {
	areas, schedules, list := fixture()
	src := &stubSource{list: list}
	var results []Result
	r := &Runner{
		Monitor:   New(areas, schedules, &stubRecorder{}, fixedNow, 1),
		Source:    src,
		Interval:  time.Millisecond,
		MaxPasses: 3,
		OnPass:    func(res Result) { results = append(results, res) },
	}
	require.NoError(t, r.Run(context.Background()))
	assert.Len(t, results, 3)
	assert.Equal(t, 3, src.calls)
	assert.Equal(t, 6, schedules.total())
}

func TestRunnerStopsOnCancelAfterInFlightPass(t *testing.T) {
	areas, schedules, list := fixture()
	ctx, cancel := context.WithCancel(context.Background())
	passes := 0
	r := &Runner{
		Monitor:  New(areas, schedules, &stubRecorder{}, fixedNow, 1),
		Source:   &stubSource{list: list},
		Interval: time.Hour,
		OnPass: func(res Result) {
			passes++
			assert.Equal(t, 5, res.Closed+res.Opened)
			cancel()
		},
	}
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
	assert.Equal(t, 1, passes)
}

func TestRunnerContinuesAfterSnapshotError(t *testing.T) {
	areas, schedules, _ := fixture()
	src := &stubSource{err: errors.New("file vanished")}
	passes := 0
	r := &Runner{
		Monitor:   New(areas, schedules, &stubRecorder{}, fixedNow, 1),
		Source:    src,
		Interval:  time.Millisecond,
		MaxPasses: 2,
		OnPass:    func(Result) { passes++ },
	}
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, 0, passes)
}
