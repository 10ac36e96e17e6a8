package costreport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mmdatafocus/maintcost_backend/models"
)

type fakeQuerier struct {
	mu      sync.Mutex
	calls   int
	sqls    []string
	params  [][]string
	results func(call int) []models.QueryResult
}

func (q *fakeQuerier) QueryAll(_ context.Context, sqlTemplate string, params []string) []models.QueryResult {
	q.mu.Lock()
	q.calls++
	call := q.calls
	q.sqls = append(q.sqls, sqlTemplate)
	q.params = append(q.params, params)
	q.mu.Unlock()
	return q.results(call)
}

func (q *fakeQuerier) callCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls
}

func purchaseRow(date, order, code, group, amount string) models.Row {
	return models.Row{
		models.ColumnOrderDate:    date,
		models.ColumnOrderNumber:  order,
		models.ColumnSupplierName: "Acme",
		models.ColumnOrderTotal:   amount,
		models.ColumnLineTotal:    nil,
		models.ColumnCostCode:     code,
		models.ColumnCostGroup:    group,
	}
}

func success(branch models.BranchCode, rows ...models.Row) models.QueryResult {
	r := models.NewSuccessResult(branch, rows, time.Millisecond)
	r.Attempts = 1
	return r
}

func failure(branch models.BranchCode) models.QueryResult {
	r := models.NewFailureResult(branch, errors.New("connect "+string(branch)+": i/o timeout"), time.Millisecond)
	r.Attempts = 3
	return r
}

func healthyResults() []models.QueryResult {
	return []models.QueryResult{
		success(models.BranchPMB,
			purchaseRow("2024-03-01 09:00:00", "PO-1", "PMB-MNT-001", "General", "100.00"),
			purchaseRow("2024-01-15 09:00:00", "PO-2", "PMB-ELEC-002", "Electrical", "250.50"),
		),
		success(models.BranchPTA,
			purchaseRow("2024-02-10 09:00:00", "PO-3", "PTA-PLB-001", "Plumbing", "80.00"),
			purchaseRow("2024-02-20 09:00:00", "PO-4", "PMB-HVAC-003", "HVAC", "1000.00"),
		),
		success(models.BranchQTN,
			purchaseRow("2024-03-05 09:00:00", "PO-5", "MNT-009", "", "10.00"),
		),
		success(models.BranchCPT),
	}
}

func partialResults() []models.QueryResult {
	r := healthyResults()
	r[1] = failure(models.BranchPTA)
	return r
}

func failedResults() []models.QueryResult {
	return []models.QueryResult{
		failure(models.BranchPMB), failure(models.BranchPTA), failure(models.BranchQTN), failure(models.BranchCPT),
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var adminAll = models.CurrentUser{ID: 1, Role: models.UserRoleAdmin, Branch: models.BranchAll}
