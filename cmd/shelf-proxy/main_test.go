package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/shelfhaven/shelfsync/internal/testutil"
	"github.com/shelfhaven/shelfsync/pkg/cache"
	"github.com/shelfhaven/shelfsync/pkg/client"
	"github.com/shelfhaven/shelfsync/pkg/netmon"
)

func setupProxy(t *testing.T, mock *testutil.MockLibrary) (http.HandlerFunc, cache.Store, *netmon.Monitor) {
	t.Helper()

	store, err := cache.NewBoltStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := client.DefaultConfig(mock.URL())
	cfg.MaxRetries = 1
	apiClient, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	monitor := netmon.New(netmon.Config{ProbeURL: mock.URL()}, zerolog.Nop())

	return proxyHandler(apiClient, store, monitor, zerolog.Nop()), store, monitor
}

func TestHealthEndpoint(t *testing.T) {
	monitor := netmon.New(netmon.Config{}, zerolog.Nop())

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	healthHandler(monitor)(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if !strings.Contains(string(body), `"backend_online":true`) {
		t.Errorf("Unexpected body: %s", body)
	}
}

func TestProxyHandler_FreshFetchIsCached(t *testing.T) {
	mock := testutil.NewMockLibrary()
	defer mock.Close()
	mock.SetBooks("/books", `[{"id":"b1"}]`, 1)

	handler, store, _ := setupProxy(t, mock)

	req := httptest.NewRequest("GET", "/library/books?page=1", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Shelf-Cache") != "" {
		t.Error("Fresh response must not be marked stale")
	}

	key := cache.NewKey("/books", map[string]string{"page": "1"})
	if _, err := store.Get(req.Context(), key); err != nil {
		t.Errorf("Expected a cache entry after proxying: %v", err)
	}
}

func TestProxyHandler_ServesStaleOnUpstreamFailure(t *testing.T) {
	mock := testutil.NewMockLibrary()
	defer mock.Close()
	mock.SetBooks("/books", `[{"id":"b1"}]`, 1)

	handler, _, _ := setupProxy(t, mock)

	// Warm the cache, then break the upstream
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/library/books", nil))
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("Warmup failed: %d", w.Result().StatusCode)
	}

	mock.SetResponse("/books", testutil.MockResponse{StatusCode: http.StatusInternalServerError, Body: `{}`})

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/library/books", nil))

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected stale 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Shelf-Cache") != "stale" {
		t.Error("Expected X-Shelf-Cache: stale header")
	}
	if !strings.Contains(string(body), `"id":"b1"`) {
		t.Errorf("Expected cached payload, got %s", body)
	}
}

func TestProxyHandler_OfflineSkipsUpstream(t *testing.T) {
	mock := testutil.NewMockLibrary()
	defer mock.Close()
	mock.SetBooks("/books", `[{"id":"b1"}]`, 1)

	handler, _, monitor := setupProxy(t, mock)

	// Warm while online
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/library/books", nil))
	requestsAfterWarmup := mock.Requests()

	monitor.SetOnline(false)

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/library/books", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected stale 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Shelf-Cache") != "stale" {
		t.Error("Expected X-Shelf-Cache: stale header")
	}
	if mock.Requests() != requestsAfterWarmup {
		t.Errorf("Offline request must not hit upstream: %d -> %d", requestsAfterWarmup, mock.Requests())
	}
}

func TestProxyHandler_ColdMissReturns502(t *testing.T) {
	mock := testutil.NewMockLibrary()
	defer mock.Close()
	mock.SetResponse("/books", testutil.MockResponse{StatusCode: http.StatusInternalServerError, Body: `{}`})

	handler, _, _ := setupProxy(t, mock)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/library/books", nil))

	if w.Result().StatusCode != http.StatusBadGateway {
		t.Errorf("Expected 502 with no cached copy, got %d", w.Result().StatusCode)
	}
}

func TestProxyHandler_RejectsNonGet(t *testing.T) {
	mock := testutil.NewMockLibrary()
	defer mock.Close()

	handler, _, _ := setupProxy(t, mock)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("POST", "/library/books", nil))

	if w.Result().StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST, got %d", w.Result().StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mock := testutil.NewMockLibrary()
	defer mock.Close()

	// Creating a client registers the request metrics
	if _, err := client.New(client.DefaultConfig(mock.URL())); err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	bodyStr := string(body)
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	if !strings.Contains(bodyStr, "shelf_network_online") {
		t.Error("Expected metrics output to contain shelf_network_online")
	}
}
