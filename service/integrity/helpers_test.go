package integrity

import (
	"context"
	"sync/atomic"
	"time"

	"integrity-service/service/config"
	"integrity-service/service/distributed_lock"
	"integrity-service/service/models"
	"integrity-service/testutil"
)

// fakeAdapter 可注入失败和延迟的查询适配器
type fakeAdapter struct {
	inner  QueryAdapter
	rows   map[string][]Row
	fail   map[string]error
	delay  time.Duration
	active int32
	peak   int32
	calls  int32
}

func (f *fakeAdapter) Query(ctx context.Context, rule Rule, scope string) ([]Row, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.fail[rule.ID]; ok {
		return nil, err
	}
	if f.inner != nil {
		return f.inner.Query(ctx, rule, scope)
	}
	return f.rows[rule.ID], nil
}

type testEnv struct {
	tdb     *testutil.TestDB
	factory *testutil.TestDataFactory
	lock    *distributed_lock.MemoryLock
	svc     *Service
}

func newTestEnv(adapter QueryAdapter) *testEnv {
	tdb := testutil.NewTestDB()
	lock := distributed_lock.NewMemoryLock()

	cfg := config.DefaultIntegrityConfig()
	cfg.RuleTimeout = 5 * time.Second

	svc := NewService(tdb.DB, cfg, Dependencies{Adapter: adapter, Lock: lock})
	return &testEnv{
		tdb:     tdb,
		factory: testutil.NewTestDataFactory(tdb.DB),
		lock:    lock,
		svc:     svc,
	}
}

func issueTypes(issues []models.Issue) []string {
	types := make([]string, 0, len(issues))
	for _, issue := range issues {
		types = append(types, issue.Type)
	}
	return types
}
