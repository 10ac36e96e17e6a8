package costreport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maintcost_backend/models"
	"github.com/mmdatafocus/maintcost_backend/utils"
)

func newHandlerRouter(svc *Service, user *models.CurrentUser) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if user != nil {
			c.Request = c.Request.WithContext(utils.SetCurrentUserInContext(c.Request.Context(), *user))
		}
		c.Next()
	})
	r.GET("/records", RecordsHandler(svc))
	r.GET("/summary", SummaryHandler(svc))
	r.GET("/export", ExportHandler(svc))
	r.GET("/cost-codes", CostCodesHandler(svc))
	r.GET("/cost-codes/suggest", SuggestCostCodeHandler(svc))
	r.GET("/branches/status", BranchStatusHandler(svc))
	r.POST("/cache/invalidate", InvalidateCacheHandler(svc))
	return r
}

func do(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

type recordsBody struct {
	Data       []map[string]any      `json:"data"`
	Count      int                   `json:"count"`
	Pagination *models.Pagination    `json:"pagination"`
	Branches   []models.BranchStatus `json:"branches"`
	Warning    string                `json:"warning"`
	Stale      bool                  `json:"stale"`
}

func TestRecordsHandler(t *testing.T) {
	q := &fakeQuerier{results: func(int) []models.QueryResult { return partialResults() }}
	svc, _ := newTestService(q)
	r := newHandlerRouter(svc, &adminAll)

	w := do(r, http.MethodGet, "/records?startDate=2024-01-01&endDate=2024-12-31")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	var body recordsBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 3 || len(body.Data) != 3 || body.Pagination != nil {
		t.Fatalf("unexpected body %+v", body)
	}
	if len(body.Branches) != 4 || !strings.Contains(body.Warning, "PTA") {
		t.Fatalf("expected degraded branch info, got %+v", body)
	}
	if body.Data[0]["sourceDatabase"] != "QTN" || body.Data[0]["amount"] != "10" {
		t.Fatalf("unexpected record json %v", body.Data[0])
	}
}

func TestRecordsHandler_Pagination(t *testing.T) {
	q := &fakeQuerier{results: func(int) []models.QueryResult { return healthyResults() }}
	svc, _ := newTestService(q)
	r := newHandlerRouter(svc, &adminAll)

	w := do(r, http.MethodGet, "/records?page=0&pageSize=1")
	var body recordsBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Pagination == nil {
		t.Fatalf("expected pagination block")
	}
	p := *body.Pagination
	if p.CurrentPage != 1 || p.PageSize != models.MinPageSize || p.TotalRecords != 5 || p.TotalPages != 1 || p.HasNextPage {
		t.Fatalf("unexpected pagination %+v", p)
	}
	if body.Count != 5 || len(body.Data) != 5 {
		t.Fatalf("count is the filtered total, got %d/%d", body.Count, len(body.Data))
	}

	w = do(r, http.MethodGet, "/records?page=1152921504606846977&pageSize=10")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for a page past the end, got %d", w.Code)
	}
	body = recordsBody{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 0 || body.Pagination == nil || body.Pagination.HasNextPage {
		t.Fatalf("expected empty page, got %s", w.Body.String())
	}
}

func TestRecordsHandler_BadInput(t *testing.T) {
	svc, _ := newTestService(&fakeQuerier{results: func(int) []models.QueryResult { return healthyResults() }})
	r := newHandlerRouter(svc, &adminAll)

	for _, target := range []string{
		"/records?startDate=2024-13-01",
		"/records?endDate=31-12-2024",
		"/records?startDate=2024-06-01&endDate=2024-01-01",
		"/records?page=abc",
	} {
		if w := do(r, http.MethodGet, target); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, w.Code)
		}
	}
}

func TestRecordsHandler_RequiresUser(t *testing.T) {
	svc, _ := newTestService(&fakeQuerier{results: func(int) []models.QueryResult { return healthyResults() }})
	r := newHandlerRouter(svc, nil)
	if w := do(r, http.MethodGet, "/records"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRecordsHandler_ExplicitDeny(t *testing.T) {
	svc, _ := newTestService(&fakeQuerier{results: func(int) []models.QueryResult { return healthyResults() }})
	denied := models.CurrentUser{ID: 4, Role: models.UserRoleUser, Branch: models.BranchAll, CostCodes: models.DenyAllRestriction()}
	r := newHandlerRouter(svc, &denied)

	var body recordsBody
	w := do(r, http.MethodGet, "/records")
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 0 || body.Data == nil {
		t.Fatalf("expected empty list, got %s", w.Body.String())
	}
}

func TestSummaryAndCostCodeHandlers(t *testing.T) {
	svc, _ := newTestService(&fakeQuerier{results: func(int) []models.QueryResult { return healthyResults() }})
	r := newHandlerRouter(svc, &adminAll)

	w := do(r, http.MethodGet, "/summary")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total":"1440.5"`) {
		t.Fatalf("unexpected summary %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/cost-codes")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"count":5`) {
		t.Fatalf("unexpected cost codes %s", w.Body.String())
	}

	w = do(r, http.MethodGet, "/cost-codes/suggest?code=pmb%20elec%20002")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"code":"PMB-ELEC-002"`) {
		t.Fatalf("unexpected suggestion %s", w.Body.String())
	}
	if w := do(r, http.MethodGet, "/cost-codes/suggest"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without code, got %d", w.Code)
	}
}

func TestExportHandler(t *testing.T) {
	svc, _ := newTestService(&fakeQuerier{results: func(int) []models.QueryResult { return healthyResults() }})
	r := newHandlerRouter(svc, &adminAll)

	w := do(r, http.MethodGet, "/export?startDate=2024-01-01")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != ExcelContentType {
		t.Fatalf("unexpected export response %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	// xlsx is a zip archive
	if !strings.HasPrefix(w.Body.String(), "PK") {
		t.Fatalf("expected xlsx payload")
	}
}

func TestExportHandler_FailureSendsNoWorkbook(t *testing.T) {
	svc, _ := newTestService(&fakeQuerier{results: func(int) []models.QueryResult { return partialResults() }})
	r := newHandlerRouter(svc, &adminAll)

	original := writeWorkbook
	writeWorkbook = func(io.Writer, []models.PurchaseRecord) error { return errors.New("excelize: sheet is full") }
	t.Cleanup(func() { writeWorkbook = original })

	w := do(r, http.MethodGet, "/export")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") == ExcelContentType || w.Header().Get("Content-Disposition") != "" || w.Header().Get("X-Report-Warning") != "" {
		t.Fatalf("failed export leaked workbook headers: %v", w.Header())
	}
}

func TestAdminHandlers(t *testing.T) {
	q := &fakeQuerier{results: func(int) []models.QueryResult { return partialResults() }}
	svc, _ := newTestService(q)
	r := newHandlerRouter(svc, &adminAll)

	w := do(r, http.MethodGet, "/branches/status")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"succeeded":3`) || strings.Contains(w.Body.String(), "orderNumber") {
		t.Fatalf("unexpected status body %s", w.Body.String())
	}

	do(r, http.MethodGet, "/records")
	w = do(r, http.MethodPost, "/cache/invalidate")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"evicted":1`) || !strings.Contains(w.Body.String(), `"prefix":"records:"`) {
		t.Fatalf("unexpected invalidate body %s", w.Body.String())
	}
	w = do(r, http.MethodPost, "/cache/invalidate?prefix=*")
	if !strings.Contains(w.Body.String(), `"evicted":1`) {
		t.Fatalf("expected last-known-good entry evicted, got %s", w.Body.String())
	}
}
