package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/snapshot"
	"github.com/pricelens/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockProductSource serves fixed catalogs keyed by source name
type mockProductSource struct {
	catalogs map[string][]domain.RawProduct
	errs     map[string]error
}

func (m *mockProductSource) Fetch(ctx context.Context, source domain.Source) ([]domain.RawProduct, error) {
	if err := m.errs[source.Name]; err != nil {
		return nil, err
	}
	return m.catalogs[source.Name], nil
}

func testCatalogs() *mockProductSource {
	return &mockProductSource{
		catalogs: map[string][]domain.RawProduct{
			"shop": {
				{Name: "Zomato Gift Card ₹500", Price: "₹500"},
				{Name: "Tinder Gold", Price: 999.0},
			},
			"rival": {
				{Name: "Zomato ₹500", Price: "480"},
				{Name: "Zomato ₹1000", Price: 950.0},
				{Name: "Swiggy Voucher", Price: "250"},
			},
		},
		errs: map[string]error{},
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// setupTestRouterWithSource creates a router over a real digest service, an
// in-memory snapshot store and the given product source
func setupTestRouterWithSource(source domain.ProductSource) *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"https://dashboard.pricelens.dev", "http://localhost:*"},
		},
	}

	log := quietLogger()
	service := usecase.NewDigestService(
		source,
		snapshot.NewMemoryStore(),
		usecase.NewVariantMatcher(),
		usecase.NewTemplateInsightGenerator(),
		log,
		usecase.DigestServiceConfig{
			Baseline:    domain.Source{Name: "shop", URL: "https://shop.example.com"},
			Competitors: []domain.Source{{Name: "rival", URL: "https://rival.example.com"}},
		},
	)

	handler := NewHandler(service, usecase.FuzzyMatcherConfig{}, log)
	return SetupRouter(cfg, handler, log)
}

func setupTestRouter() *gin.Engine {
	return setupTestRouterWithSource(testCatalogs())
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body %s)", err, w.Body.String())
	}
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter()

		w := doRequest(router, "GET", "/health", "")

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		decodeBody(t, w, &response)

		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "pricelens-backend" {
			t.Errorf("service = %v, want pricelens-backend", response["service"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			w := doRequest(router, method, "/health", "")
			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestScanEndpoint tests running scans and reading digests back
func TestScanEndpoint(t *testing.T) {
	t.Run("runs a scan and stores the digest", func(t *testing.T) {
		router := setupTestRouter()

		w := doRequest(router, "POST", "/api/v1/scans", `{"date_key": "2025-01-02"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}

		var digest domain.Digest
		decodeBody(t, w, &digest)

		if digest.DateKey != "2025-01-02" {
			t.Errorf("DateKey = %s, want 2025-01-02", digest.DateKey)
		}
		if digest.ID == "" {
			t.Error("ID is empty, want a generated id")
		}
		if len(digest.Baseline.Products) != 2 {
			t.Errorf("len(Baseline.Products) = %d, want 2", len(digest.Baseline.Products))
		}
		if len(digest.Competitors) != 1 {
			t.Fatalf("len(Competitors) = %d, want 1", len(digest.Competitors))
		}

		diff := digest.Competitors[0].Diff
		if len(diff.Matched) != 2 || len(diff.Missing) != 1 || len(diff.VariantGaps) != 1 || len(diff.PriceComparison) != 1 {
			t.Errorf("diff counts = %d/%d/%d/%d, want 2/1/1/1",
				len(diff.Matched), len(diff.Missing), len(diff.VariantGaps), len(diff.PriceComparison))
		}
		if len(digest.Changes) != 0 {
			t.Errorf("Changes = %v, want empty on first run", digest.Changes)
		}

		w = doRequest(router, "GET", "/api/v1/digests/2025-01-02", "")
		if w.Code != http.StatusOK {
			t.Errorf("GET by date Status = %d, want %d", w.Code, http.StatusOK)
		}

		w = doRequest(router, "GET", "/api/v1/digests/latest", "")
		if w.Code != http.StatusOK {
			t.Errorf("GET latest Status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("accepts an empty body", func(t *testing.T) {
		router := setupTestRouter()

		w := doRequest(router, "POST", "/api/v1/scans", "")

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}
	})

	t.Run("rejects a malformed date key", func(t *testing.T) {
		router := setupTestRouter()

		w := doRequest(router, "POST", "/api/v1/scans", `{"date_key": "02/01/2025"}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("fails when the baseline is unavailable", func(t *testing.T) {
		source := testCatalogs()
		source.errs["shop"] = domain.ErrSourceUnavailable
		router := setupTestRouterWithSource(source)

		w := doRequest(router, "POST", "/api/v1/scans", `{"date_key": "2025-01-02"}`)

		if w.Code != http.StatusBadGateway {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadGateway)
		}
	})

	t.Run("reports changes against the previous scan", func(t *testing.T) {
		source := testCatalogs()
		router := setupTestRouterWithSource(source)

		if w := doRequest(router, "POST", "/api/v1/scans", `{"date_key": "2025-01-02"}`); w.Code != http.StatusOK {
			t.Fatalf("first scan Status = %d", w.Code)
		}

		source.catalogs["rival"] = []domain.RawProduct{
			{Name: "Zomato ₹500", Price: "450"},
			{Name: "Zomato ₹1000", Price: 950.0},
			{Name: "Zomato ₹2000", Price: 1900.0},
		}
		if w := doRequest(router, "POST", "/api/v1/scans", `{"date_key": "2025-01-03"}`); w.Code != http.StatusOK {
			t.Fatalf("second scan Status = %d", w.Code)
		}

		w := doRequest(router, "GET", "/api/v1/digests/latest/changes", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response struct {
			DateKey string                          `json:"date_key"`
			Changes map[string]domain.ChangeSummary `json:"changes"`
		}
		decodeBody(t, w, &response)

		if response.DateKey != "2025-01-03" {
			t.Errorf("date_key = %s, want 2025-01-03", response.DateKey)
		}
		rival := response.Changes["rival"]
		if len(rival.NewSKUs) != 1 || rival.NewSKUs[0] != "Zomato ₹2000" {
			t.Errorf("NewSKUs = %v, want [Zomato ₹2000]", rival.NewSKUs)
		}
		if len(rival.DeletedSKUs) != 1 || rival.DeletedSKUs[0] != "Swiggy Voucher" {
			t.Errorf("DeletedSKUs = %v, want [Swiggy Voucher]", rival.DeletedSKUs)
		}
		if len(rival.PriceDrops) != 1 || rival.PriceDrops[0] != "Zomato ₹500" {
			t.Errorf("PriceDrops = %v, want [Zomato ₹500]", rival.PriceDrops)
		}
		if len(rival.VariantExpansion) != 1 || rival.VariantExpansion[0] != "zomato" {
			t.Errorf("VariantExpansion = %v, want [zomato]", rival.VariantExpansion)
		}
	})
}

// TestDigestEndpoints tests lookups without stored digests
func TestDigestEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "latest before any scan", path: "/api/v1/digests/latest", wantStatus: http.StatusNotFound},
		{name: "changes before any scan", path: "/api/v1/digests/latest/changes", wantStatus: http.StatusNotFound},
		{name: "unknown date", path: "/api/v1/digests/2024-12-31", wantStatus: http.StatusNotFound},
		{name: "invalid date", path: "/api/v1/digests/yesterday", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()

			w := doRequest(router, "GET", tt.path, "")

			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}

			var response map[string]interface{}
			decodeBody(t, w, &response)
			if _, ok := response["error"].(string); !ok {
				t.Errorf("error field missing: %v", response)
			}
		})
	}
}

// TestNormalizeEndpoint tests ad-hoc normalization
func TestNormalizeEndpoint(t *testing.T) {
	t.Run("cleans raw products", func(t *testing.T) {
		router := setupTestRouter()

		payload := `{"products": [
			{"name": "Amazon Pay Gift Card Rs. 1,000", "price": "₹1,000.00"},
			{"name": "Login"},
			{"name": "Swiggy", "price": 250, "variant": "500"}
		]}`
		w := doRequest(router, "POST", "/api/v1/normalize", payload)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}

		var response struct {
			Products []domain.CanonicalProduct `json:"products"`
			Count    int                       `json:"count"`
		}
		decodeBody(t, w, &response)

		if response.Count != 2 {
			t.Fatalf("count = %d, want 2 (login entry filtered)", response.Count)
		}
		amazon := response.Products[0]
		if amazon.Signature != "amazon" {
			t.Errorf("Signature = %s, want amazon", amazon.Signature)
		}
		if amazon.VariantValue == nil || *amazon.VariantValue != 1000 {
			t.Errorf("VariantValue = %v, want 1000", amazon.VariantValue)
		}
		if amazon.Price == nil || *amazon.Price != 1000 {
			t.Errorf("Price = %v, want 1000", amazon.Price)
		}
		swiggy := response.Products[1]
		if swiggy.VariantValue == nil || *swiggy.VariantValue != 500 {
			t.Errorf("explicit VariantValue = %v, want 500", swiggy.VariantValue)
		}
	})

	t.Run("rejects a missing products list", func(t *testing.T) {
		router := setupTestRouter()

		w := doRequest(router, "POST", "/api/v1/normalize", `{}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestMatchEndpoint tests ad-hoc catalog comparison
func TestMatchEndpoint(t *testing.T) {
	payload := func(strategy string) string {
		return `{
			"baseline": [{"name": "Zomato Gift Card ₹500", "price": 500}],
			"competitor": [{"name": "Zomato ₹500", "price": 450}, {"name": "Zomato ₹750", "price": 700}],
			"strategy": "` + strategy + `"
		}`
	}

	for _, strategy := range []string{"", "exact", "fuzzy"} {
		t.Run("strategy "+strategy, func(t *testing.T) {
			router := setupTestRouter()

			w := doRequest(router, "POST", "/api/v1/match", payload(strategy))
			if w.Code != http.StatusOK {
				t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
			}

			var result domain.MatchResult
			decodeBody(t, w, &result)

			if len(result.Matched) != 2 {
				t.Errorf("len(Matched) = %d, want 2", len(result.Matched))
			}
			if len(result.VariantGaps) != 1 {
				t.Errorf("len(VariantGaps) = %d, want 1", len(result.VariantGaps))
			}
			if len(result.PriceComparison) != 1 || result.PriceComparison[0].Difference != -50 {
				t.Errorf("PriceComparison = %+v, want one entry with difference -50", result.PriceComparison)
			}
		})
	}

	t.Run("rejects an unknown strategy", func(t *testing.T) {
		router := setupTestRouter()

		w := doRequest(router, "POST", "/api/v1/match", payload("semantic"))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestSignatureEndpoint tests signature lookups
func TestSignatureEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantSig    string
	}{
		{name: "brand rule", query: "?name=Google+Play+Gift+Card+%E2%82%B9100", wantStatus: http.StatusOK, wantSig: "google_play"},
		{name: "fallback", query: "?name=Swiggy+Money+Rs+500", wantStatus: http.StatusOK, wantSig: "swiggy_money"},
		{name: "missing name", query: "", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()

			w := doRequest(router, "GET", "/api/v1/signature"+tt.query, "")

			if w.Code != tt.wantStatus {
				t.Fatalf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantSig == "" {
				return
			}

			var response map[string]string
			decodeBody(t, w, &response)
			if response["signature"] != tt.wantSig {
				t.Errorf("signature = %s, want %s", response["signature"], tt.wantSig)
			}
		})
	}
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for wildcard localhost port", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
		if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want true", got)
		}
	})

	t.Run("foreign origin gets no CORS headers", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	router := setupTestRouter()
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := doRequest(router, "GET", "/panic", "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/api/v1/digests/latest"},
		{"POST", "/api/v1/normalize"},
		{"GET", "/api/v1/signature?name=tinder"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			router := setupTestRouter()

			w := doRequest(router, endpoint.method, endpoint.path, "")

			gotContentType := w.Header().Get("Content-Type")
			if gotContentType != "application/json; charset=utf-8" {
				t.Errorf("Content-Type = %q, want application/json; charset=utf-8", gotContentType)
			}

			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{domain.ErrInvalidRequest, http.StatusBadRequest},
		{domain.ErrInvalidDateKey, http.StatusBadRequest},
		{domain.ErrUnknownStrategy, http.StatusBadRequest},
		{domain.ErrSnapshotNotFound, http.StatusNotFound},
		{domain.ErrSourceUnavailable, http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	handler := NewHandler(nil, usecase.FuzzyMatcherConfig{}, quietLogger())
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest("GET", "/", nil)

			handler.respondError(c, tt.err, "")

			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
