package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wisefido-bp/internal/config"
	"wisefido-bp/internal/service"

	"go.uber.org/zap"
)

const sampleCSV = `date,high,low,pulse
2024-01-01 08:00:00,150,95,75
2024-01-01 08:02:00,150,95,75
2024-01-01 20:00:00,110,70,65
`

func newTestRouter() *Router {
	logger := zap.NewNop()
	cfg := config.Load()
	svc := service.NewAnalysisService(cfg, nil, logger)
	fetch := service.NewFetchClient(2*time.Second, logger)
	h := NewAnalysisHandler(svc, fetch, logger)
	router := NewRouter(logger)
	router.RegisterAnalysisRoutes(h)
	return router
}

func TestUploadDataset_RawBody(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/bp/api/v1/datasets", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, `"code":2000`) {
		t.Fatalf("expected wrapper code=2000, got: %s", body)
	}
	if !strings.Contains(body, `"originalCount":3`) || !strings.Contains(body, `"bucketCount":2`) {
		t.Fatalf("expected pipeline counts in snapshot, got: %s", body)
	}
}

func TestUploadDataset_MissingColumns(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/bp/api/v1/datasets", strings.NewReader("a,b\n1,2\n"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "缺少必要的列") {
		t.Fatalf("expected missing column message, got: %s", w.Body.String())
	}
}

func TestGetAnalysis_BeforeUpload(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/bp/api/v1/analysis", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any dataset, got %d", w.Code)
	}
}

func TestSettings_PutRecomputesAnalysis(t *testing.T) {
	router := newTestRouter()

	// 先加载数据
	req := httptest.NewRequest(http.MethodPost, "/bp/api/v1/datasets", strings.NewReader(sampleCSV))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload failed: %d %s", w.Code, w.Body.String())
	}

	// 调低阈值后整体重算：两个桶都判为高压异常
	req = httptest.NewRequest(http.MethodPut, "/bp/api/v1/settings",
		strings.NewReader(`{"systolicLimit":100,"diastolicLimit":60}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"highAbnormal":2`) {
		t.Fatalf("expected recomputed abnormal count, got: %s", w.Body.String())
	}

	// GET 返回新阈值
	req = httptest.NewRequest(http.MethodGet, "/bp/api/v1/settings", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"systolicLimit":100`) {
		t.Fatalf("expected updated settings, got: %s", w.Body.String())
	}
}

func TestSettings_PutInvalidThresholds(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPut, "/bp/api/v1/settings",
		strings.NewReader(`{"systolicLimit":500,"diastolicLimit":90}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid thresholds, got %d", w.Code)
	}
}

func TestSettings_PutWithoutDataset(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPut, "/bp/api/v1/settings",
		strings.NewReader(`{"systolicLimit":130,"diastolicLimit":85}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without dataset, got %d", w.Code)
	}
}

func TestExportReport_ReturnsWorkbook(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/bp/api/v1/datasets", strings.NewReader(sampleCSV))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload failed: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/bp/api/v1/analysis/export", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("expected xlsx content type, got %s", ct)
	}
	if w.Body.Len() == 0 {
		t.Fatal("expected non-empty workbook body")
	}
}

func TestFetchDataset_DownloadsAndAnalyzes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/bp/api/v1/datasets/fetch",
		strings.NewReader(`{"url":"`+srv.URL+`/export.csv","name":"cloud.csv"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"datasetName":"cloud.csv"`) {
		t.Fatalf("expected dataset name in snapshot, got: %s", w.Body.String())
	}
}

func TestFetchDataset_MissingURL(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/bp/api/v1/datasets/fetch", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodDelete, "/bp/api/v1/analysis", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
