package costreport

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/maintcost_backend/cache"
	"github.com/mmdatafocus/maintcost_backend/models"
)

func newTestService(q BranchQuerier) (*Service, *testClock) {
	clock := &testClock{now: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	store := cache.NewMemory().WithClock(clock.Now)
	svc := NewService(q, store, nil, Options{
		CacheEnabled: true,
		TTL:          5 * time.Minute,
		DegradedTTL:  time.Minute,
		StaleTTL:     24 * time.Hour,
	})
	svc.now = clock.Now
	return svc, clock
}

func TestBuildQuery(t *testing.T) {
	sql, params, err := BuildQuery(Filter{StartDate: "2024-01-01", EndDate: "2024-12-31"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(sql, "FROM vw_maintenance_purchase_lines") ||
		!strings.Contains(sql, "AND order_date >= ? AND order_date <= ?") ||
		!strings.HasSuffix(sql, "ORDER BY order_date DESC") {
		t.Fatalf("unexpected sql %q", sql)
	}
	if len(params) != 2 || params[0] != "2024-01-01" || params[1] != "2024-12-31 23:59:59" {
		t.Fatalf("unexpected params %v", params)
	}

	sql, params, err = BuildQuery(Filter{EndDate: "2024-12-31"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Contains(sql, ">=") || !strings.Contains(sql, "order_date <= ?") || len(params) != 1 {
		t.Fatalf("unexpected end-only query %q %v", sql, params)
	}

	sql, params, _ = BuildQuery(Filter{})
	if strings.Contains(sql, "?") || len(params) != 0 {
		t.Fatalf("expected no clauses, got %q %v", sql, params)
	}
}

func TestFilterCacheKey(t *testing.T) {
	if got := (Filter{StartDate: "2024-01-01", EndDate: "2024-12-31"}).CacheKey(); got != "records:all:endDate=2024-12-31&startDate=2024-01-01" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := (Filter{}).CacheKey(); got != "records:all" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestRecords_CachesFullResult(t *testing.T) {
	q := &fakeQuerier{results: func(int) []models.QueryResult { return healthyResults() }}
	svc, clock := newTestService(q)
	ctx := context.Background()

	first, err := svc.Records(ctx, Filter{})
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(first.Records) != 5 || first.Warning != "" || first.Cached {
		t.Fatalf("unexpected first report %+v", first)
	}
	if first.Records[0].OrderNumber != "PO-5" {
		t.Fatalf("expected newest first, got %s", first.Records[0].OrderNumber)
	}

	second, _ := svc.Records(ctx, Filter{})
	if !second.Cached || len(second.Records) != 5 || q.callCount() != 1 {
		t.Fatalf("expected cache hit, calls=%d", q.callCount())
	}
	if !second.Records[0].Amount.Equal(first.Records[0].Amount) || second.Records[0].Branch != first.Records[0].Branch {
		t.Fatalf("cached records differ")
	}

	clock.Advance(5*time.Minute + time.Second)
	if _, err := svc.Records(ctx, Filter{}); err != nil || q.callCount() != 2 {
		t.Fatalf("expected refetch after TTL, calls=%d", q.callCount())
	}
}

func TestRecords_PartialResultUsesDegradedTTL(t *testing.T) {
	q := &fakeQuerier{results: func(int) []models.QueryResult { return partialResults() }}
	svc, clock := newTestService(q)
	ctx := context.Background()

	report, err := svc.Records(ctx, Filter{})
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(report.Records) != 3 || !strings.Contains(report.Warning, "PTA") || report.Stale {
		t.Fatalf("unexpected partial report %+v", report)
	}
	if report.Branches[1].Success || report.Branches[1].Attempts != 3 {
		t.Fatalf("branch status not reported: %+v", report.Branches[1])
	}

	clock.Advance(30 * time.Second)
	svc.Records(ctx, Filter{})
	if q.callCount() != 1 {
		t.Fatalf("expected degraded entry to be served within its TTL")
	}
	clock.Advance(31 * time.Second)
	svc.Records(ctx, Filter{})
	if q.callCount() != 2 {
		t.Fatalf("expected degraded entry to expire after a minute")
	}
}

func TestRecords_TotalFailureWithoutFallback(t *testing.T) {
	q := &fakeQuerier{results: func(int) []models.QueryResult { return failedResults() }}
	svc, _ := newTestService(q)
	ctx := context.Background()

	report, err := svc.Records(ctx, Filter{})
	if err != nil {
		t.Fatalf("total failure must not be an error: %v", err)
	}
	if report.Records == nil || len(report.Records) != 0 || report.Warning != WarningUnavailable || report.Stale {
		t.Fatalf("unexpected report %+v", report)
	}
	svc.Records(ctx, Filter{})
	if q.callCount() != 2 {
		t.Fatalf("total failure must not be cached")
	}
}

func TestRecords_TotalFailureFallsBackToLastKnownGood(t *testing.T) {
	q := &fakeQuerier{results: func(call int) []models.QueryResult {
		if call == 1 {
			return healthyResults()
		}
		return failedResults()
	}}
	svc, _ := newTestService(q)
	ctx := context.Background()

	if _, err := svc.Records(ctx, Filter{StartDate: "2024-01-01"}); err != nil {
		t.Fatalf("records: %v", err)
	}
	if n := svc.Invalidate(ctx, RecordsCachePrefix+":"); n != 1 {
		t.Fatalf("expected one fresh entry evicted, got %d", n)
	}

	report, err := svc.Records(ctx, Filter{StartDate: "2024-01-01"})
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if !report.Stale || report.Warning != WarningStale || len(report.Records) != 5 {
		t.Fatalf("expected stale fallback, got %+v", report)
	}
	if report.Branches[0].Success {
		t.Fatalf("fallback must carry current branch statuses")
	}

	// other filters have no fallback
	other, _ := svc.Records(ctx, Filter{StartDate: "2023-01-01"})
	if other.Stale || len(other.Records) != 0 {
		t.Fatalf("fallback leaked across filters")
	}
}

func TestRecords_CacheDisabled(t *testing.T) {
	q := &fakeQuerier{results: func(int) []models.QueryResult { return healthyResults() }}
	svc := NewService(q, cache.NewMemory(), nil, Options{CacheEnabled: false})
	svc.Records(context.Background(), Filter{})
	svc.Records(context.Background(), Filter{})
	if q.callCount() != 2 {
		t.Fatalf("expected every call to query, got %d", q.callCount())
	}
	if svc.Invalidate(context.Background(), "*") != 0 || svc.Store() != nil {
		t.Fatalf("disabled cache should be inert")
	}
}

func TestRecords_PassesQueryToBranches(t *testing.T) {
	q := &fakeQuerier{results: func(int) []models.QueryResult { return healthyResults() }}
	svc, _ := newTestService(q)
	svc.Records(context.Background(), Filter{StartDate: "2024-02-01", EndDate: "2024-02-29"})
	if len(q.params) != 1 || len(q.params[0]) != 2 || q.params[0][0] != "2024-02-01" {
		t.Fatalf("unexpected params %v", q.params)
	}
	if !strings.Contains(q.sqls[0], "order_date >= ?") {
		t.Fatalf("unexpected sql %q", q.sqls[0])
	}
}

func TestRecordsFor_AppliesPermissionsAfterCache(t *testing.T) {
	q := &fakeQuerier{results: func(int) []models.QueryResult { return healthyResults() }}
	svc, _ := newTestService(q)
	ctx := context.Background()

	pmbUser := models.CurrentUser{ID: 2, Role: models.UserRoleUser, Branch: models.BranchPMB, Groups: models.RestrictTo("HVAC")}
	report, err := svc.RecordsFor(ctx, pmbUser, Filter{})
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(report.Records) != 1 || report.Records[0].OrderNumber != "PO-4" || report.Records[0].SourceDatabase != models.BranchPTA {
		t.Fatalf("expected the PMB-coded HVAC row fetched from PTA, got %+v", report.Records)
	}

	all, _ := svc.RecordsFor(ctx, adminAll, Filter{})
	if len(all.Records) != 5 || q.callCount() != 1 {
		t.Fatalf("expected shared cache entry across users, got %d records and %d calls", len(all.Records), q.callCount())
	}
}

func TestInvalidateAll(t *testing.T) {
	q := &fakeQuerier{results: func(int) []models.QueryResult { return healthyResults() }}
	svc, _ := newTestService(q)
	ctx := context.Background()
	svc.Records(ctx, Filter{})
	svc.Records(ctx, Filter{EndDate: "2024-02-01"})
	if n := svc.Invalidate(ctx, "*"); n != 4 {
		t.Fatalf("expected fresh and last-known-good entries evicted, got %d", n)
	}
}

func TestProbeBranches(t *testing.T) {
	q := &fakeQuerier{results: func(int) []models.QueryResult { return partialResults() }}
	svc, _ := newTestService(q)
	statuses := svc.ProbeBranches(context.Background())
	if len(statuses) != 4 || statuses[1].Success || q.sqls[0] != "SELECT 1" {
		t.Fatalf("unexpected probe %+v", statuses)
	}
}
