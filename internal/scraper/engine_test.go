package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeListFetcher struct {
	mu      sync.Mutex
	lists   map[string][]Product
	errs    map[string]error
	calls   map[string]int
	onFetch func(date time.Time)
}

func newFakeListFetcher() *fakeListFetcher {
	return &fakeListFetcher{
		lists: map[string][]Product{},
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func (f *fakeListFetcher) FetchList(_ context.Context, date time.Time) ([]Product, error) {
	f.mu.Lock()
	key := date.Format(DateLayout)
	f.calls[key]++
	list := f.lists[key]
	err := f.errs[key]
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(date)
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (f *fakeListFetcher) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

type fakeDetailFetcher struct {
	mu       sync.Mutex
	failFor  map[string]bool
	delay    time.Duration
	onFetch  func(stub Product)
	inFlight atomic.Int64
	peak     atomic.Int64
}

func newFakeDetailFetcher() *fakeDetailFetcher {
	return &fakeDetailFetcher{failFor: map[string]bool{}}
}

func (f *fakeDetailFetcher) FetchDetail(ctx context.Context, stub Product) (Product, error) {
	cur := f.inFlight.Add(1)
	for {
		peak := f.peak.Load()
		if cur <= peak || f.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	defer f.inFlight.Add(-1)

	if f.onFetch != nil {
		f.onFetch(stub)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Product{}, ctx.Err()
		}
	}

	f.mu.Lock()
	fail := f.failFor[stub.Name]
	f.mu.Unlock()
	if fail {
		return Product{}, fmt.Errorf("detail fetch blew up for %s", stub.Name)
	}

	full := stub
	full.Page = &ProductPage{Name: stub.Name}
	return full, nil
}

type fakeSink struct {
	mu      sync.Mutex
	name    string
	records []Record
	failFor map[string]bool
}

func newFakeSink(name string) *fakeSink {
	return &fakeSink{name: name, failFor: map[string]bool{}}
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Deliver(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[rec.Product.Name] {
		return fmt.Errorf("delivery refused for %s", rec.Product.Name)
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeSink) Close() error { return nil }

func (s *fakeSink) delivered() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

type fakeCheckpoint struct {
	mu        sync.Mutex
	last      time.Time
	hasLast   bool
	committed []time.Time
	commitErr error
}

func (c *fakeCheckpoint) Load() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.hasLast
}

func (c *fakeCheckpoint) Commit(date time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.commitErr != nil {
		return c.commitErr
	}
	c.committed = append(c.committed, date)
	c.last = date
	c.hasLast = true
	return nil
}

func (c *fakeCheckpoint) committedDates() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.committed))
	for i, d := range c.committed {
		out[i] = d.Format(DateLayout)
	}
	return out
}

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func stubs(names ...string) []Product {
	out := make([]Product, len(names))
	for i, n := range names {
		out[i] = Product{Name: n, PHURL: "/products/" + n}
	}
	return out
}

func TestEngine_Run_ChecksEveryDateInOrder(t *testing.T) {
	t.Parallel()

	lists := newFakeListFetcher()
	lists.lists["2024-05-01"] = stubs("alpha", "beta")
	lists.lists["2024-05-02"] = stubs("gamma")
	lists.lists["2024-05-03"] = stubs("delta")

	details := newFakeDetailFetcher()
	warehouse := newFakeSink("warehouse")
	ckpt := &fakeCheckpoint{}
	clock := &fakeClock{now: day("2024-05-03").Add(6 * time.Hour)}

	engine := NewEngine(
		Config{StartDate: day("2024-05-01"), Concurrency: 2, ListRetryAttempts: 1},
		lists, details, []Sink{warehouse}, ckpt, clock, zap.NewNop(),
	)

	require.NoError(t, engine.Run(context.Background()))
	require.Equal(t, []string{"2024-05-01", "2024-05-02", "2024-05-03"}, ckpt.committedDates())
	require.Len(t, warehouse.delivered(), 4)

	for _, rec := range warehouse.delivered() {
		require.NotNil(t, rec.Product.Page)
		require.Equal(t, rec.Date, rec.Product.Date)
	}
}

func TestEngine_Run_ResumesAfterCheckpoint(t *testing.T) {
	t.Parallel()

	lists := newFakeListFetcher()
	lists.lists["2024-05-03"] = stubs("delta")

	ckpt := &fakeCheckpoint{last: day("2024-05-02"), hasLast: true}
	clock := &fakeClock{now: day("2024-05-03")}
	warehouse := newFakeSink("warehouse")

	engine := NewEngine(
		Config{StartDate: day("2024-05-01"), Concurrency: 1, ListRetryAttempts: 1},
		lists, newFakeDetailFetcher(), []Sink{warehouse}, ckpt, clock, zap.NewNop(),
	)

	require.NoError(t, engine.Run(context.Background()))
	require.Equal(t, []string{"2024-05-03"}, ckpt.committedDates())
	require.Zero(t, lists.callCount("2024-05-01"))
	require.Zero(t, lists.callCount("2024-05-02"))
}

func TestEngine_Run_SkipsDateWhenListFetchExhausts(t *testing.T) {
	t.Parallel()

	lists := newFakeListFetcher()
	lists.errs["2024-05-01"] = errors.New("leaderboard unavailable")
	lists.lists["2024-05-02"] = stubs("gamma")

	warehouse := newFakeSink("warehouse")
	ckpt := &fakeCheckpoint{}
	clock := &fakeClock{now: day("2024-05-02")}

	engine := NewEngine(
		Config{StartDate: day("2024-05-01"), Concurrency: 1, ListRetryAttempts: 1},
		lists, newFakeDetailFetcher(), []Sink{warehouse}, ckpt, clock, zap.NewNop(),
	)

	require.NoError(t, engine.Run(context.Background()))
	// The bad date is still checkpointed so the run never stalls on it.
	require.Equal(t, []string{"2024-05-01", "2024-05-02"}, ckpt.committedDates())
	require.Len(t, warehouse.delivered(), 1)
	require.Equal(t, "gamma", warehouse.delivered()[0].Product.Name)
}

func TestEngine_Run_ItemFailureDoesNotAffectSiblings(t *testing.T) {
	t.Parallel()

	lists := newFakeListFetcher()
	lists.lists["2024-05-01"] = stubs("alpha", "broken", "gamma")

	details := newFakeDetailFetcher()
	details.failFor["broken"] = true

	warehouse := newFakeSink("warehouse")
	ckpt := &fakeCheckpoint{}
	clock := &fakeClock{now: day("2024-05-01")}

	engine := NewEngine(
		Config{StartDate: day("2024-05-01"), Concurrency: 3, ListRetryAttempts: 1},
		lists, details, []Sink{warehouse}, ckpt, clock, zap.NewNop(),
	)

	require.NoError(t, engine.Run(context.Background()))
	require.Equal(t, []string{"2024-05-01"}, ckpt.committedDates())

	names := map[string]bool{}
	for _, rec := range warehouse.delivered() {
		names[rec.Product.Name] = true
	}
	require.Equal(t, map[string]bool{"alpha": true, "gamma": true}, names)
}

func TestEngine_Run_SinkFailureIsolatedPerSink(t *testing.T) {
	t.Parallel()

	lists := newFakeListFetcher()
	lists.lists["2024-05-01"] = stubs("alpha", "beta")

	flaky := newFakeSink("warehouse")
	flaky.failFor["alpha"] = true
	steady := newFakeSink("file")

	ckpt := &fakeCheckpoint{}
	clock := &fakeClock{now: day("2024-05-01")}

	engine := NewEngine(
		Config{StartDate: day("2024-05-01"), Concurrency: 1, ListRetryAttempts: 1},
		lists, newFakeDetailFetcher(), []Sink{flaky, steady}, ckpt, clock, zap.NewNop(),
	)

	require.NoError(t, engine.Run(context.Background()))
	require.Equal(t, []string{"2024-05-01"}, ckpt.committedDates())
	require.Len(t, flaky.delivered(), 1)
	require.Len(t, steady.delivered(), 2)
}

func TestEngine_Run_RespectsConcurrencyBound(t *testing.T) {
	t.Parallel()

	lists := newFakeListFetcher()
	lists.lists["2024-05-01"] = stubs("p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8")

	details := newFakeDetailFetcher()
	details.delay = 20 * time.Millisecond

	ckpt := &fakeCheckpoint{}
	clock := &fakeClock{now: day("2024-05-01")}

	engine := NewEngine(
		Config{StartDate: day("2024-05-01"), Concurrency: 2, ListRetryAttempts: 1},
		lists, details, []Sink{newFakeSink("warehouse")}, ckpt, clock, zap.NewNop(),
	)

	require.NoError(t, engine.Run(context.Background()))
	require.LessOrEqual(t, details.peak.Load(), int64(2))
}

func TestEngine_Run_EmptyDayStillAdvancesCheckpoint(t *testing.T) {
	t.Parallel()

	lists := newFakeListFetcher()
	ckpt := &fakeCheckpoint{}
	clock := &fakeClock{now: day("2024-05-01")}

	engine := NewEngine(
		Config{StartDate: day("2024-05-01"), Concurrency: 1, ListRetryAttempts: 1},
		lists, newFakeDetailFetcher(), []Sink{newFakeSink("warehouse")}, ckpt, clock, zap.NewNop(),
	)

	require.NoError(t, engine.Run(context.Background()))
	require.Equal(t, []string{"2024-05-01"}, ckpt.committedDates())
}

func TestEngine_Run_CommitFailureAbortsRun(t *testing.T) {
	t.Parallel()

	lists := newFakeListFetcher()
	lists.lists["2024-05-01"] = stubs("alpha")

	ckpt := &fakeCheckpoint{commitErr: errors.New("disk full")}
	clock := &fakeClock{now: day("2024-05-02")}

	engine := NewEngine(
		Config{StartDate: day("2024-05-01"), Concurrency: 1, ListRetryAttempts: 1},
		lists, newFakeDetailFetcher(), []Sink{newFakeSink("warehouse")}, ckpt, clock, zap.NewNop(),
	)

	err := engine.Run(context.Background())
	require.Error(t, err)

	var ckptErr *CheckpointError
	require.ErrorAs(t, err, &ckptErr)
	require.Equal(t, "2024-05-01", ckptErr.Date)
	// The second date was never reached.
	require.Zero(t, lists.callCount("2024-05-02"))
}

func TestEngine_Run_CancellationLeavesDateUncommitted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	lists := newFakeListFetcher()
	lists.lists["2024-05-01"] = stubs("alpha")

	details := newFakeDetailFetcher()
	details.onFetch = func(Product) { cancel() }

	warehouse := newFakeSink("warehouse")
	ckpt := &fakeCheckpoint{}
	clock := &fakeClock{now: day("2024-05-02")}

	engine := NewEngine(
		Config{StartDate: day("2024-05-01"), Concurrency: 1, ListRetryAttempts: 1},
		lists, details, []Sink{warehouse}, ckpt, clock, zap.NewNop(),
	)

	err := engine.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	// The in-flight item was allowed to finish and deliver, but the
	// half-done date is not checkpointed and replays next run.
	require.Len(t, warehouse.delivered(), 1)
	require.Empty(t, ckpt.committedDates())
}

func TestEngine_Run_ExtendsAcrossMidnight(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: day("2024-05-01").Add(23 * time.Hour)}
	lists := newFakeListFetcher()
	lists.onFetch = func(date time.Time) {
		if date.Equal(day("2024-05-01")) {
			clock.advance(2 * time.Hour) // midnight passes mid-run
		}
	}

	ckpt := &fakeCheckpoint{}
	engine := NewEngine(
		Config{
			StartDate:         day("2024-05-01"),
			EndDate:           day("2024-05-01"),
			Concurrency:       1,
			ListRetryAttempts: 1,
		},
		lists, newFakeDetailFetcher(), []Sink{newFakeSink("warehouse")}, ckpt, clock, zap.NewNop(),
	)

	require.NoError(t, engine.Run(context.Background()))
	require.Equal(t, []string{"2024-05-01", "2024-05-02"}, ckpt.committedDates())
}
