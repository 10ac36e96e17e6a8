package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mmdatafocus/maintcost_backend/branchdb"
	"github.com/mmdatafocus/maintcost_backend/config"
	"github.com/mmdatafocus/maintcost_backend/costreport"
	"github.com/mmdatafocus/maintcost_backend/models"
)

// branch-probe runs one query on every configured branch through the same
// executor and retry path the API uses, and prints per-branch status.
// It exits 1 when any branch failed.
//
// Example:
//
//	go run ./cmd/branch-probe/ -json
//	go run ./cmd/branch-probe/ -records -start=2024-01-01 -end=2024-03-31 -branch=PMB,QTN
func main() {
	asJSON := flag.Bool("json", false, "Print JSON instead of a table")
	records := flag.Bool("records", false, "Run the record query instead of SELECT 1")
	start := flag.String("start", "", "Record query start date (YYYY-MM-DD)")
	end := flag.String("end", "", "Record query end date (YYYY-MM-DD)")
	only := flag.String("branch", "", "Comma-separated branch codes (default all)")
	retries := flag.Int("retries", -1, "Override BRANCH_MAX_RETRIES")
	flag.Parse()

	branches, err := selectBranches(config.GetBranches(), *only)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	sql, params := "SELECT 1", []string(nil)
	if *records {
		sql, params, err = costreport.BuildQuery(costreport.Filter{StartDate: *start, EndDate: *end})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}

	logger := config.GetLogger()
	orchestrator := branchdb.NewOrchestrator(branches, branchdb.NewExecutor(config.NewBranchConnector(logger), logger), logger)
	orchestrator.MaxRetries, orchestrator.BaseBackoff = config.BranchRetrySettings()
	if *retries >= 0 {
		orchestrator.MaxRetries = *retries
	}

	results := orchestrator.QueryAll(context.Background(), sql, params)
	statuses := models.StatusOf(results)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(statuses)
	} else {
		printTable(os.Stdout, statuses)
	}

	if models.CountSucceeded(results) < len(results) {
		os.Exit(1)
	}
}

func selectBranches(all []models.BranchConfig, only string) ([]models.BranchConfig, error) {
	if strings.TrimSpace(only) == "" {
		return all, nil
	}
	want := map[models.BranchCode]bool{}
	for _, part := range strings.Split(only, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, ok := models.ParseBranchCode(part)
		if !ok {
			return nil, fmt.Errorf("unknown branch %q", part)
		}
		if code == models.BranchAll {
			return all, nil
		}
		want[code] = true
	}
	out := []models.BranchConfig{}
	for _, b := range all {
		if want[b.Code] {
			out = append(out, b)
		}
	}
	return out, nil
}

func printTable(w io.Writer, statuses []models.BranchStatus) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BRANCH\tOK\tROWS\tATTEMPTS\tMS\tERROR")
	for _, s := range statuses {
		fmt.Fprintf(tw, "%s\t%t\t%d\t%d\t%d\t%s\n", s.Branch, s.Success, s.RowCount, s.Attempts, s.DurationMs, s.Error)
	}
	_ = tw.Flush()
}
