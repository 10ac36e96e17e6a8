package costreport

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/maintcost_backend/models"
	"github.com/mmdatafocus/maintcost_backend/utils"
)

var validate = validator.New()

// writeWorkbook is swapped in tests to simulate export failures.
var writeWorkbook func(w io.Writer, records []models.PurchaseRecord) error = WriteWorkbook

type recordsRequest struct {
	Filter
	Page     *int `form:"page"`
	PageSize *int `form:"pageSize"`
}

type suggestRequest struct {
	Filter
	Code string `form:"code" validate:"required,max=100"`
}

type recordsResponse struct {
	Data       []models.PurchaseRecord `json:"data"`
	Count      int                     `json:"count"`
	Pagination *models.Pagination      `json:"pagination,omitempty"`
	Branches   []models.BranchStatus   `json:"branches"`
	Warning    string                  `json:"warning,omitempty"`
	Stale      bool                    `json:"stale"`
}

func bindFilter(c *gin.Context, req any, f *Filter) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
		return false
	}
	if f.StartDate != "" && f.EndDate != "" && f.StartDate > f.EndDate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startDate must not be after endDate"})
		return false
	}
	return true
}

func currentUser(c *gin.Context) (models.CurrentUser, bool) {
	user, ok := utils.GetCurrentUserFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return user, ok
}

func renderError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// RecordsHandler serves GET /api/maintenance/records.
func RecordsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var req recordsRequest
		if !bindFilter(c, &req, &req.Filter) {
			return
		}

		report, err := svc.RecordsFor(c.Request.Context(), user, req.Filter)
		if err != nil {
			renderError(c, err)
			return
		}

		resp := recordsResponse{
			Data:     report.Records,
			Count:    len(report.Records),
			Branches: report.Branches,
			Warning:  report.Warning,
			Stale:    report.Stale,
		}
		if req.Page != nil || req.PageSize != nil {
			page, pagination := models.Paginate(report.Records, utils.DereferencePtr(req.Page, 1), utils.DereferencePtr(req.PageSize))
			resp.Data = page
			resp.Pagination = &pagination
		}
		c.JSON(http.StatusOK, resp)
	}
}

// SummaryHandler serves GET /api/maintenance/summary.
func SummaryHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var f Filter
		if !bindFilter(c, &f, &f) {
			return
		}
		report, err := svc.RecordsFor(c.Request.Context(), user, f)
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"summary":  Summarize(report.Records),
			"branches": report.Branches,
			"warning":  report.Warning,
			"stale":    report.Stale,
		})
	}
}

// ExportHandler serves GET /api/maintenance/export as an xlsx download.
func ExportHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var f Filter
		if !bindFilter(c, &f, &f) {
			return
		}
		report, err := svc.RecordsFor(c.Request.Context(), user, f)
		if err != nil {
			renderError(c, err)
			return
		}
		var buf bytes.Buffer
		if err := writeWorkbook(&buf, report.Records); err != nil {
			renderError(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename=maintenance-costs.xlsx")
		if report.Warning != "" {
			c.Header("X-Report-Warning", report.Warning)
		}
		c.Data(http.StatusOK, ExcelContentType, buf.Bytes())
	}
}

// CostCodesHandler serves GET /api/maintenance/cost-codes.
func CostCodesHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var f Filter
		if !bindFilter(c, &f, &f) {
			return
		}
		report, err := svc.RecordsFor(c.Request.Context(), user, f)
		if err != nil {
			renderError(c, err)
			return
		}
		codes := ListCostCodes(report.Records)
		c.JSON(http.StatusOK, gin.H{"data": codes, "count": len(codes)})
	}
}

// SuggestCostCodeHandler serves GET /api/maintenance/cost-codes/suggest (admin).
func SuggestCostCodeHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		var req suggestRequest
		if !bindFilter(c, &req, &req.Filter) {
			return
		}
		report, err := svc.RecordsFor(c.Request.Context(), user, req.Filter)
		if err != nil {
			renderError(c, err)
			return
		}
		match, found := SuggestCostCode(req.Code, ListCostCodes(report.Records))
		if !found {
			c.JSON(http.StatusOK, gin.H{"query": req.Code, "found": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"query": req.Code, "found": true, "match": match})
	}
}

// BranchStatusHandler serves GET /api/maintenance/branches/status (admin).
func BranchStatusHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		statuses := svc.ProbeBranches(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"branches":  statuses,
			"succeeded": countHealthy(statuses),
			"total":     len(statuses),
		})
	}
}

// InvalidateCacheHandler serves POST /api/maintenance/cache/invalidate (admin).
func InvalidateCacheHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		prefix := strings.TrimSpace(c.Query("prefix"))
		if prefix == "" {
			prefix = RecordsCachePrefix + ":"
		}
		evicted := svc.Invalidate(c.Request.Context(), prefix)
		c.JSON(http.StatusOK, gin.H{"prefix": prefix, "evicted": evicted})
	}
}

func countHealthy(statuses []models.BranchStatus) int {
	n := 0
	for _, s := range statuses {
		if s.Success {
			n++
		}
	}
	return n
}
