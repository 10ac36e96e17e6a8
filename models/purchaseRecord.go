package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/mmdatafocus/maintcost_backend/costcode"
	"github.com/shopspring/decimal"
)

// columns of vw_maintenance_purchase_lines read by the record query
const (
	ColumnOrderDate       = "order_date"
	ColumnOrderNumber     = "order_number"
	ColumnSupplierName    = "supplier_name"
	ColumnOrderTotal      = "order_total"
	ColumnLineTotal       = "line_total"
	ColumnItemCode        = "item_code"
	ColumnItemDescription = "item_description"
	ColumnCostCode        = "cost_code"
	ColumnCostGroup       = "cost_group"
)

const (
	UnknownCostCode  = "Unknown"
	UncategorizedGrp = "Uncategorized"
)

// PurchaseRecord is one merged line item. Derived per request, never persisted.
type PurchaseRecord struct {
	Date            time.Time           `json:"date"`
	OrderNumber     string              `json:"orderNumber"`
	Supplier        string              `json:"supplier"`
	OrderTotal      decimal.Decimal     `json:"orderTotal"`
	LineTotal       decimal.NullDecimal `json:"lineTotal"`
	ItemCode        string              `json:"itemCode"`
	ItemDescription string              `json:"itemDescription"`
	CostCode        string              `json:"costCode"`
	Group           string              `json:"group"`
	Category        string              `json:"category"`
	// Branch is the owning branch implied by the cost code prefix.
	Branch BranchCode `json:"branch"`
	// SourceDatabase is the branch whose database returned the row.
	SourceDatabase BranchCode      `json:"sourceDatabase"`
	Amount         decimal.Decimal `json:"amount"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func toTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case nil:
		return time.Time{}
	}
	s := strings.TrimSpace(toString(v))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func toNullDecimal(v any) decimal.NullDecimal {
	switch x := v.(type) {
	case nil:
		return decimal.NullDecimal{}
	case decimal.Decimal:
		return decimal.NewNullDecimal(x)
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(x))
	case float32:
		return decimal.NewNullDecimal(decimal.NewFromFloat32(x))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(x))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(x)))
	}
	s := strings.ReplaceAll(strings.TrimSpace(toString(v)), ",", "")
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// SanitizeCostCode trims the code; blank codes become UnknownCostCode.
func SanitizeCostCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return UnknownCostCode
	}
	return code
}

// SanitizeGroup tidies a free-text group label. Labels without any letter or
// digit (blank, punctuation, encoding artifacts) become UncategorizedGrp.
func SanitizeGroup(group string) string {
	group = strings.Map(func(r rune) rune {
		if r == unicode.ReplacementChar {
			return -1
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, group)
	group = strings.Join(strings.Fields(group), " ")
	if strings.IndexFunc(group, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) < 0 {
		return UncategorizedGrp
	}
	return group
}

// OwningBranch attributes a record to the branch in its cost code prefix,
// falling back to the branch it was fetched from.
func OwningBranch(code string, source BranchCode) BranchCode {
	if p, ok := costcode.ExtractOwningBranch(code); ok {
		return BranchCode(p)
	}
	return source
}

// NewPurchaseRecord converts one branch row. Malformed fields degrade to
// sentinels or zero values, the row is never dropped.
func NewPurchaseRecord(row Row, source BranchCode) PurchaseRecord {
	code := SanitizeCostCode(toString(row[ColumnCostCode]))
	orderTotal := toNullDecimal(row[ColumnOrderTotal]).Decimal
	lineTotal := toNullDecimal(row[ColumnLineTotal])

	amount := orderTotal
	if lineTotal.Valid && !lineTotal.Decimal.IsZero() {
		amount = lineTotal.Decimal
	}

	return PurchaseRecord{
		Date:            toTime(row[ColumnOrderDate]),
		OrderNumber:     strings.TrimSpace(toString(row[ColumnOrderNumber])),
		Supplier:        strings.TrimSpace(toString(row[ColumnSupplierName])),
		OrderTotal:      orderTotal,
		LineTotal:       lineTotal,
		ItemCode:        strings.TrimSpace(toString(row[ColumnItemCode])),
		ItemDescription: strings.TrimSpace(toString(row[ColumnItemDescription])),
		CostCode:        code,
		Group:           SanitizeGroup(toString(row[ColumnCostGroup])),
		Category:        costcode.CategoryOf(code),
		Branch:          OwningBranch(code, source),
		SourceDatabase:  source,
		Amount:          amount,
	}
}

// MergeResults flattens the rows of every successful result, newest first.
// Records with equal dates keep branch configuration order, then row order.
func MergeResults(results []QueryResult) []PurchaseRecord {
	total := 0
	for _, r := range results {
		if r.Success {
			total += len(r.Data)
		}
	}
	records := make([]PurchaseRecord, 0, total)
	for _, r := range results {
		if !r.Success {
			continue
		}
		for _, row := range r.Data {
			records = append(records, NewPurchaseRecord(row, r.Branch))
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
	return records
}
