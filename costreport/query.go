package costreport

import (
	"strings"

	"github.com/mmdatafocus/maintcost_backend/cache"
	"github.com/mmdatafocus/maintcost_backend/models"
	"github.com/mmdatafocus/maintcost_backend/utils"
)

const RecordsCachePrefix = "records"

// lastGoodPrefix is outside "records:" so a routine invalidation keeps the fallback copy.
const lastGoodPrefix = "lastgood:" + RecordsCachePrefix

const recordsSQL = `SELECT order_date, order_number, supplier_name, order_total, line_total,
	item_code, item_description, cost_code, cost_group
FROM vw_maintenance_purchase_lines
WHERE 1 = 1
{{- if .startDate }} AND order_date >= ?{{ end }}
{{- if .endDate }} AND order_date <= ?{{ end }}
ORDER BY order_date DESC`

// Filter is the date range of a record request. Dates are YYYY-MM-DD, both inclusive.
type Filter struct {
	StartDate string `form:"startDate" json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"endDate" json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// BuildQuery renders the record query and its positional params.
func BuildQuery(f Filter) (string, []string, error) {
	sql, err := utils.ExecTemplate(recordsSQL, map[string]interface{}{
		"startDate": f.StartDate != "",
		"endDate":   f.EndDate != "",
	})
	if err != nil {
		return "", nil, err
	}
	params := []string{}
	if f.StartDate != "" {
		params = append(params, f.StartDate)
	}
	if f.EndDate != "" {
		// inclusive of the whole end day for DATETIME columns
		params = append(params, f.EndDate+" 23:59:59")
	}
	return sql, params, nil
}

func (f Filter) cacheFilters() map[string]any {
	filters := map[string]any{}
	if f.StartDate != "" {
		filters["startDate"] = f.StartDate
	}
	if f.EndDate != "" {
		filters["endDate"] = f.EndDate
	}
	return filters
}

// CacheKey is the key of the merged, unfiltered record set for f,
// e.g. records:all:endDate=2024-12-31&startDate=2024-01-01.
func (f Filter) CacheKey() string {
	return cache.BuildKey(RecordsCachePrefix+":"+scopeAll(), f.cacheFilters())
}

func (f Filter) lastGoodKey() string {
	return cache.BuildKey(lastGoodPrefix+":"+scopeAll(), f.cacheFilters())
}

// records are cached merged across every branch; user scoping happens after the cache
func scopeAll() string {
	return strings.ToLower(string(models.BranchAll))
}
