package branchdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmdatafocus/maintcost_backend/models"
)

type fakeFactory struct {
	mu     sync.Mutex
	opens  map[models.BranchCode]int
	closed map[models.BranchCode]int
	fail   func(code models.BranchCode, attempt int) error
	query  func(ctx context.Context, code models.BranchCode) ([]models.Row, error)
}

func newFakeFactory(fail func(code models.BranchCode, attempt int) error) *fakeFactory {
	return &fakeFactory{
		opens:  map[models.BranchCode]int{},
		closed: map[models.BranchCode]int{},
		fail:   fail,
	}
}

func (f *fakeFactory) Open(ctx context.Context, branch models.BranchConfig) (Conn, error) {
	f.mu.Lock()
	f.opens[branch.Code]++
	attempt := f.opens[branch.Code]
	f.mu.Unlock()

	if f.fail != nil {
		if err := f.fail(branch.Code, attempt); err != nil {
			return nil, err
		}
	}
	return &fakeConn{factory: f, code: branch.Code}, nil
}

func (f *fakeFactory) openCount(code models.BranchCode) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens[code]
}

func (f *fakeFactory) closeCount(code models.BranchCode) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed[code]
}

type fakeConn struct {
	factory *fakeFactory
	code    models.BranchCode
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) ([]models.Row, error) {
	if c.factory.query != nil {
		return c.factory.query(ctx, c.code)
	}
	return []models.Row{{"branch": string(c.code), "args": fmt.Sprint(args...)}}, nil
}

func (c *fakeConn) Close() error {
	c.factory.mu.Lock()
	defer c.factory.mu.Unlock()
	c.factory.closed[c.code]++
	return nil
}

func testBranches() []models.BranchConfig {
	out := make([]models.BranchConfig, len(models.AllBranches))
	for i, code := range models.AllBranches {
		out[i] = models.BranchConfig{
			Code:           code,
			Name:           string(code),
			ConnectTimeout: time.Second,
			QueryTimeout:   time.Second,
		}
	}
	return out
}

type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
}
