package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmdatafocus/maintcost_backend/branchdb"
	"github.com/mmdatafocus/maintcost_backend/models"
)

var (
	branchesOnce sync.Once
	branches     []models.BranchConfig
)

// GetBranches returns a copy of the branch list loaded from env on first use.
func GetBranches() []models.BranchConfig {
	branchesOnce.Do(func() {
		branches = LoadBranches(os.Getenv)
	})
	out := make([]models.BranchConfig, len(branches))
	copy(out, branches)
	return out
}

// LoadBranches builds one config per branch, in configuration order.
//
// Env per branch (CODE is PMB, PTA, QTN or CPT):
// - BRANCH_<CODE>_HOST, BRANCH_<CODE>_PORT (default 3306)
// - BRANCH_<CODE>_DATABASE (default lower-case code), BRANCH_<CODE>_NAME
// Shared: BRANCH_DB_USER, BRANCH_DB_PASSWORD, BRANCH_CONNECT_TIMEOUT_SECONDS, BRANCH_QUERY_TIMEOUT_SECONDS
func LoadBranches(getenv func(string) string) []models.BranchConfig {
	lookup := func(key string, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	connectTimeout := secondsOr(getenv("BRANCH_CONNECT_TIMEOUT_SECONDS"), branchdb.DefaultConnectTimeout)
	queryTimeout := secondsOr(getenv("BRANCH_QUERY_TIMEOUT_SECONDS"), branchdb.DefaultQueryTimeout)

	out := make([]models.BranchConfig, 0, len(models.AllBranches))
	for _, code := range models.AllBranches {
		prefix := "BRANCH_" + string(code) + "_"
		out = append(out, models.BranchConfig{
			Code:           code,
			Name:           lookup(prefix+"NAME", string(code)),
			Host:           lookup(prefix+"HOST", "127.0.0.1"),
			Port:           atoiOr(lookup(prefix+"PORT", ""), 3306),
			Database:       lookup(prefix+"DATABASE", strings.ToLower(string(code))),
			User:           lookup("BRANCH_DB_USER", ""),
			Password:       getenv("BRANCH_DB_PASSWORD"),
			ConnectTimeout: connectTimeout,
			QueryTimeout:   queryTimeout,
		})
	}
	return out
}

// BranchRetrySettings returns BRANCH_MAX_RETRIES and BRANCH_RETRY_BASE_MS.
func BranchRetrySettings() (int, time.Duration) {
	retries := intFromEnv("BRANCH_MAX_RETRIES", branchdb.DefaultMaxRetries)
	if retries < 0 {
		retries = branchdb.DefaultMaxRetries
	}
	base := intFromEnv("BRANCH_RETRY_BASE_MS", int(branchdb.DefaultBaseBackoff/time.Millisecond))
	if base <= 0 {
		base = int(branchdb.DefaultBaseBackoff / time.Millisecond)
	}
	return retries, time.Duration(base) * time.Millisecond
}

func atoiOr(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func secondsOr(v string, def time.Duration) time.Duration {
	n := atoiOr(v, 0)
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
