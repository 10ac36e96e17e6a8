package costreport

import (
	"sort"

	"github.com/mmdatafocus/maintcost_backend/models"
	"github.com/shopspring/decimal"
)

const unknownMonth = "unknown"

type Bucket struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

type Summary struct {
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	ByBranch   []Bucket        `json:"byBranch"`
	ByCategory []Bucket        `json:"byCategory"`
	ByGroup    []Bucket        `json:"byGroup"`
	ByMonth    []Bucket        `json:"byMonth"`
}

type bucketSet struct {
	index map[string]int
	items []Bucket
}

func newBucketSet() *bucketSet {
	return &bucketSet{index: map[string]int{}}
}

func (b *bucketSet) add(key string, amount decimal.Decimal) {
	i, ok := b.index[key]
	if !ok {
		i = len(b.items)
		b.index[key] = i
		b.items = append(b.items, Bucket{Key: key, Total: decimal.Zero})
	}
	b.items[i].Total = b.items[i].Total.Add(amount)
	b.items[i].Count++
}

// byTotal orders largest total first, ties by key.
func (b *bucketSet) byTotal() []Bucket {
	out := append([]Bucket{}, b.items...)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (b *bucketSet) byKey() []Bucket {
	out := append([]Bucket{}, b.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Summarize totals Amount by owning branch (configuration order), category,
// group (largest first) and month (YYYY-MM ascending).
func Summarize(records []models.PurchaseRecord) Summary {
	branches, categories, groups, months := newBucketSet(), newBucketSet(), newBucketSet(), newBucketSet()
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
		branches.add(string(r.Branch), r.Amount)
		categories.add(r.Category, r.Amount)
		groups.add(r.Group, r.Amount)
		month := unknownMonth
		if !r.Date.IsZero() {
			month = r.Date.Format("2006-01")
		}
		months.add(month, r.Amount)
	}

	byBranch := []Bucket{}
	for _, code := range models.AllBranches {
		if i, ok := branches.index[string(code)]; ok {
			byBranch = append(byBranch, branches.items[i])
		}
	}

	return Summary{
		Total:      total,
		Count:      len(records),
		ByBranch:   byBranch,
		ByCategory: categories.byTotal(),
		ByGroup:    groups.byTotal(),
		ByMonth:    months.byKey(),
	}
}
