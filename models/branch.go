package models

import (
	"strings"
	"time"
)

type BranchCode string

const (
	BranchPMB BranchCode = "PMB"
	BranchPTA BranchCode = "PTA"
	BranchQTN BranchCode = "QTN"
	BranchCPT BranchCode = "CPT"

	// BranchAll is the user-level sentinel for "every branch".
	BranchAll BranchCode = "ALL"
)

// AllBranches in configuration order.
var AllBranches = []BranchCode{BranchPMB, BranchPTA, BranchQTN, BranchCPT}

func (b BranchCode) IsValid() bool {
	for _, code := range AllBranches {
		if b == code {
			return true
		}
	}
	return false
}

// ParseBranchCode accepts any casing; "all" and blank map to BranchAll.
func ParseBranchCode(s string) (BranchCode, bool) {
	code := BranchCode(strings.ToUpper(strings.TrimSpace(s)))
	if code == "" || code == BranchAll {
		return BranchAll, true
	}
	if code.IsValid() {
		return code, true
	}
	return "", false
}

// BranchConfig identifies one regional database. Loaded once at start-up.
type BranchConfig struct {
	Code           BranchCode    `json:"code"`
	Name           string        `json:"name"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	Database       string        `json:"database"`
	User           string        `json:"-"`
	Password       string        `json:"-"`
	ConnectTimeout time.Duration `json:"-"`
	QueryTimeout   time.Duration `json:"-"`
}
