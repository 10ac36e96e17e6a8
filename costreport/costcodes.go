package costreport

import (
	"github.com/mmdatafocus/maintcost_backend/costcode"
	"github.com/mmdatafocus/maintcost_backend/models"
	"github.com/shopspring/decimal"
)

// CostCodeEntry is one distinct cost code among the visible records.
type CostCodeEntry struct {
	Code     string            `json:"code"`
	Display  string            `json:"display"`
	Category string            `json:"category"`
	Branch   models.BranchCode `json:"branch,omitempty"`
	Count    int               `json:"count"`
	Total    decimal.Decimal   `json:"total"`
}

// ListCostCodes deduplicates record cost codes by comparison form.
// The first spelling seen is kept; the list is sorted by that spelling.
func ListCostCodes(records []models.PurchaseRecord) []CostCodeEntry {
	codes := make([]string, 0, len(records))
	counts := map[string]int{}
	totals := map[string]decimal.Decimal{}
	for _, r := range records {
		if r.CostCode == models.UnknownCostCode {
			continue
		}
		codes = append(codes, r.CostCode)
		key := costcode.NormalizeForComparison(r.CostCode)
		counts[key]++
		totals[key] = totals[key].Add(r.Amount)
	}

	unique := costcode.Deduplicate(codes)
	out := make([]CostCodeEntry, 0, len(unique))
	for _, code := range unique {
		key := costcode.NormalizeForComparison(code)
		entry := CostCodeEntry{
			Code:     code,
			Display:  costcode.NormalizeForDisplay(code),
			Category: costcode.CategoryOf(code),
			Count:    counts[key],
			Total:    totals[key],
		}
		if b, ok := costcode.ExtractOwningBranch(code); ok {
			entry.Branch = models.BranchCode(b)
		}
		out = append(out, entry)
	}
	return out
}

// SuggestCostCode finds the listed code closest to a free-text code.
// It is a lookup aid only and never grants access.
func SuggestCostCode(candidate string, entries []CostCodeEntry) (CostCodeEntry, bool) {
	codes := make([]string, len(entries))
	for i, e := range entries {
		codes[i] = e.Code
	}
	match, ok := costcode.FindBestMatch(candidate, codes)
	if !ok {
		return CostCodeEntry{}, false
	}
	for _, e := range entries {
		if e.Code == match {
			return e, true
		}
	}
	return CostCodeEntry{}, false
}
