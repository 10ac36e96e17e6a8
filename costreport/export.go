package costreport

import (
	"fmt"
	"io"

	"github.com/mmdatafocus/maintcost_backend/models"
	"github.com/xuri/excelize/v2"
)

const (
	RecordsSheet = "Records"
	SummarySheet = "Summary"

	ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var recordHeadings = []interface{}{
	"Date", "Order Number", "Supplier", "Item Code", "Item Description",
	"Cost Code", "Category", "Group", "Branch", "Source Database", "Order Total", "Line Total", "Amount",
}

// ExcelExporter supplies one row of cell values.
type ExcelExporter interface {
	GetCellValues() []interface{}
}

type recordRow models.PurchaseRecord

func (r recordRow) GetCellValues() []interface{} {
	date := ""
	if !r.Date.IsZero() {
		date = r.Date.Format("2006-01-02")
	}
	var lineTotal interface{}
	if r.LineTotal.Valid {
		lineTotal = r.LineTotal.Decimal.InexactFloat64()
	}
	return []interface{}{
		date, r.OrderNumber, r.Supplier, r.ItemCode, r.ItemDescription,
		r.CostCode, r.Category, r.Group, string(r.Branch), string(r.SourceDatabase),
		r.OrderTotal.InexactFloat64(), lineTotal, r.Amount.InexactFloat64(),
	}
}

type bucketRow struct {
	dimension string
	Bucket
}

func (b bucketRow) GetCellValues() []interface{} {
	return []interface{}{b.dimension, b.Key, b.Count, b.Total.InexactFloat64()}
}

// WriteWorkbook writes the records and their summary as an xlsx workbook.
func WriteWorkbook(w io.Writer, records []models.PurchaseRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RecordsSheet); err != nil {
		return err
	}
	rows := make([]ExcelExporter, len(records))
	for i, r := range records {
		rows[i] = recordRow(r)
	}
	if err := writeSheet(f, RecordsSheet, recordHeadings, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	summary := Summarize(records)
	summaryRows := []ExcelExporter{bucketRow{"Total", Bucket{Key: "All", Total: summary.Total, Count: summary.Count}}}
	for _, group := range []struct {
		name    string
		buckets []Bucket
	}{
		{"Branch", summary.ByBranch},
		{"Category", summary.ByCategory},
		{"Group", summary.ByGroup},
		{"Month", summary.ByMonth},
	} {
		for _, b := range group.buckets {
			summaryRows = append(summaryRows, bucketRow{group.name, b})
		}
	}
	if err := writeSheet(f, SummarySheet, []interface{}{"Dimension", "Key", "Records", "Total"}, summaryRows); err != nil {
		return err
	}

	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, headings []interface{}, data []ExcelExporter) error {
	if err := f.SetSheetRow(sheet, "A1", &headings); err != nil {
		return err
	}
	for i, d := range data {
		values := d.GetCellValues()
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return err
		}
	}
	return nil
}
