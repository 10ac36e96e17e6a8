package models

import "time"

// Row is one result row keyed by column name.
type Row map[string]any

// QueryResult is the outcome of one query against one branch.
// Data is authoritative only when Success; Error is set iff !Success.
type QueryResult struct {
	Branch   BranchCode    `json:"branch"`
	Data     []Row         `json:"-"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"-"`
	RowCount int           `json:"rowCount"`
	Attempts int           `json:"attempts"`
}

func NewSuccessResult(branch BranchCode, rows []Row, d time.Duration) QueryResult {
	if rows == nil {
		rows = []Row{}
	}
	return QueryResult{
		Branch:   branch,
		Data:     rows,
		Success:  true,
		Duration: d,
		RowCount: len(rows),
	}
}

func NewFailureResult(branch BranchCode, err error, d time.Duration) QueryResult {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return QueryResult{
		Branch:   branch,
		Data:     []Row{},
		Error:    msg,
		Duration: d,
	}
}

// BranchStatus is a QueryResult without rows, safe to hand to callers and to cache.
type BranchStatus struct {
	Branch     BranchCode `json:"branch"`
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	DurationMs int64      `json:"durationMs"`
	RowCount   int        `json:"rowCount"`
	Attempts   int        `json:"attempts"`
}

func StatusOf(results []QueryResult) []BranchStatus {
	out := make([]BranchStatus, len(results))
	for i, r := range results {
		out[i] = BranchStatus{
			Branch:     r.Branch,
			Success:    r.Success,
			Error:      r.Error,
			DurationMs: r.Duration.Milliseconds(),
			RowCount:   r.RowCount,
			Attempts:   r.Attempts,
		}
	}
	return out
}

// CountSucceeded returns how many results succeeded.
func CountSucceeded(results []QueryResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}
