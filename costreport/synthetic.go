package costreport

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mmdatafocus/maintcost_backend/models"
	"github.com/mmdatafocus/maintcost_backend/utils"
	"github.com/shopspring/decimal"
)

// Synthetic generates deterministic branch rows for demos and local work.
// Codes and groups are deliberately as messy as the live data.
type Synthetic struct {
	Seed          int64
	RowsPerBranch int
	Start         time.Time
	Days          int
	Branches      []models.BranchCode
}

func NewSynthetic() *Synthetic {
	return &Synthetic{
		Seed:          20240101,
		RowsPerBranch: 60,
		Start:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:          365,
		Branches:      models.AllBranches,
	}
}

var syntheticCodeFormats = []string{
	"%s-%s-%03d",
	"%s %s %03d",
	"%[2]s-%03[3]d",
	" %s - %s-%03d ",
	"%s-%s %03d",
}

var syntheticCategories = []string{"MNT", "ELEC", "PLB", "HVAC", "MECH", "CIV", "VEH", "GEN", "CLN", "LAB", "MISC"}

var syntheticGroups = []string{"General", "Electrical", "Plumbing", "HVAC", "Vehicles", "Civil", "", "??", "  Electrical "}

var syntheticSuppliers = []string{"Acme Electric", "Cape Plumbing Supplies", "Midlands Hardware", "Bolt & Nut", "Coolair HVAC"}

// Results returns one successful result per branch, rows filtered by f
// and ordered newest first like the live query.
func (g *Synthetic) Results(f Filter) []models.QueryResult {
	from, to := g.bounds(f)
	out := make([]models.QueryResult, len(g.Branches))
	for i, branch := range g.Branches {
		start := time.Now()
		rows := g.branchRows(i, branch, from, to)
		out[i] = models.NewSuccessResult(branch, rows, time.Since(start))
		out[i].Attempts = 1
	}
	return out
}

func (g *Synthetic) bounds(f Filter) (time.Time, time.Time) {
	from := time.Time{}
	to := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if t, err := utils.ParseDate(f.StartDate); err == nil {
		from = t
	}
	if t, err := utils.ParseDate(f.EndDate); err == nil {
		to = t.Add(24*time.Hour - time.Second)
	}
	return from, to
}

func (g *Synthetic) branchRows(index int, branch models.BranchCode, from, to time.Time) []models.Row {
	rng := rand.New(rand.NewSource(g.Seed + int64(index)*7919))
	days := g.Days
	if days <= 0 {
		days = 1
	}

	rows := []models.Row{}
	for n := 0; n < g.RowsPerBranch; n++ {
		// newest first
		offset := days - 1 - (n*days)/max(g.RowsPerBranch, 1)
		date := g.Start.AddDate(0, 0, offset).Add(time.Duration(rng.Intn(10*3600)) * time.Second)

		owner := branch
		// a share of the work is booked against another branch's codes
		if rng.Intn(8) == 0 {
			owner = g.Branches[rng.Intn(len(g.Branches))]
		}
		category := syntheticCategories[rng.Intn(len(syntheticCategories))]
		format := syntheticCodeFormats[rng.Intn(len(syntheticCodeFormats))]
		code := fmt.Sprintf(format, owner, category, 1+rng.Intn(12))

		orderTotal := decimal.New(int64(5000+rng.Intn(500000)), -2)
		var lineTotal any
		switch rng.Intn(5) {
		case 0:
			lineTotal = nil
		case 1:
			lineTotal = "0.00"
		default:
			lineTotal = orderTotal.Mul(decimal.New(int64(10+rng.Intn(90)), -2)).Round(2).StringFixed(2)
		}

		if date.Before(from) || date.After(to) {
			continue
		}
		rows = append(rows, models.Row{
			models.ColumnOrderDate:       date.Format("2006-01-02 15:04:05"),
			models.ColumnOrderNumber:     fmt.Sprintf("PO-%s-%05d", branch, 10000+n),
			models.ColumnSupplierName:    syntheticSuppliers[rng.Intn(len(syntheticSuppliers))],
			models.ColumnOrderTotal:      orderTotal.StringFixed(2),
			models.ColumnLineTotal:       lineTotal,
			models.ColumnItemCode:        fmt.Sprintf("ITM-%04d", rng.Intn(10000)),
			models.ColumnItemDescription: "Maintenance item",
			models.ColumnCostCode:        code,
			models.ColumnCostGroup:       syntheticGroups[rng.Intn(len(syntheticGroups))],
		})
	}
	return rows
}
