package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/kinder-admissions/database"
	"github.com/stevemurr/kinder-admissions/handler"
	"github.com/stevemurr/kinder-admissions/metrics"
	"github.com/stevemurr/kinder-admissions/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	ts := newServer(t, s, handler.Options{})
	return ts, s
}

func newServer(t *testing.T, s store.Store, opts handler.Options) *httptest.Server {
	t.Helper()
	opts.Logger = quietLogger()
	h := handler.New(database.New(s, opts.Logger), opts)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func decodeJSON(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}

func validApplication() map[string]any {
	return map[string]any{
		"child_name":  "Ana",
		"dob":         "2021-05-01",
		"program":     "Nursery",
		"start_term":  "Fall",
		"parent_name": "Mira",
		"email":       "mira@example.com",
		"phone":       "555-0100",
		"consent":     true,
	}
}

func submit(t *testing.T, ts *httptest.Server, payload any) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/applications", "application/json", bytes.NewReader(mustJSON(t, payload)))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp, decodeJSON(t, resp.Body)
}

func list(t *testing.T, ts *httptest.Server, query string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(ts.URL + "/api/applications" + query)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp, decodeJSON(t, resp.Body)
}

func countApplications(t *testing.T, s store.Store) int {
	t.Helper()
	docs, err := s.Find(context.Background(), "application", nil, 0)
	require.NoError(t, err)
	return len(docs)
}

func TestRootAndHello(t *testing.T) {
	ts, _ := setup(t)

	for path, want := range map[string]string{
		"/":          "Nursery & Kindergarten Backend Running",
		"/api/hello": "Welcome to the Nursery & Kindergarten API",
	} {
		// Repeated calls return the same body.
		for i := 0; i < 3; i++ {
			resp, err := http.Get(ts.URL + path)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			body := decodeJSON(t, resp.Body)
			resp.Body.Close()
			assert.Equal(t, map[string]any{"message": want}, body)
		}
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	ts, _ := setup(t)

	resp, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", decodeJSON(t, resp.Body)["detail"])

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/applications", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSubmitApplication(t *testing.T) {
	ts, s := setup(t)

	resp, body := submit(t, ts, validApplication())
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Application submitted", body["message"])
	id, _ := body["id"].(string)
	assert.NotEmpty(t, id)

	docs, err := s.Find(context.Background(), "application", nil, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0][store.IDField])
	assert.Equal(t, "submitted", docs[0]["status"], "status defaults to submitted")
	assert.Contains(t, docs[0], "created_at")
}

func TestSubmitWithoutConsent(t *testing.T) {
	ts, s := setup(t)

	payload := validApplication()
	payload["consent"] = false
	resp, body := submit(t, ts, payload)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Consent is required to submit an application.", body["detail"])
	assert.Zero(t, countApplications(t, s), "nothing may be persisted without consent")
}

func TestSubmitInvalidPayloads(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{"missing child_name", func(p map[string]any) { delete(p, "child_name") }, "child_name"},
		{"missing consent", func(p map[string]any) { delete(p, "consent") }, "consent"},
		{"program out of enum", func(p map[string]any) { p["program"] = "Daycare" }, "program"},
		{"program wrong case", func(p map[string]any) { p["program"] = "pre-k" }, "program"},
		{"start_term out of enum", func(p map[string]any) { p["start_term"] = "Autumn" }, "start_term"},
		{"bad email", func(p map[string]any) { p["email"] = "mira-at-example" }, "email"},
		{"bad status", func(p map[string]any) { p["status"] = "pending" }, "status"},
		{"empty status", func(p map[string]any) { p["status"] = "" }, "status"},
		{"consent wrong type", func(p map[string]any) { p["consent"] = "yes" }, "consent"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts, s := setup(t)
			payload := validApplication()
			tc.mutate(payload)

			resp, body := submit(t, ts, payload)
			require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "body: %v", body)

			detail, ok := body["detail"].([]any)
			require.True(t, ok, "detail should be a list, got %v", body["detail"])
			require.NotEmpty(t, detail)
			first := detail[0].(map[string]any)
			assert.Equal(t, []any{"body", tc.field}, first["loc"])
			assert.NotEmpty(t, first["msg"])
			assert.NotEmpty(t, first["type"])

			assert.Zero(t, countApplications(t, s))
		})
	}
}

func TestSubmitEmptyRequiredStrings(t *testing.T) {
	ts, s := setup(t)

	payload := validApplication()
	payload["child_name"] = ""
	payload["phone"] = ""
	resp, body := submit(t, ts, payload)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)

	docs, err := s.Find(context.Background(), "application", map[string]any{store.IDField: body["id"]}, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "", docs[0]["child_name"])
	assert.Equal(t, "", docs[0]["phone"])
}

func TestSubmitMalformedJSON(t *testing.T) {
	ts, s := setup(t)
	resp, err := http.Post(ts.URL+"/api/applications", "application/json", strings.NewReader("{oops"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Zero(t, countApplications(t, s))
}

func TestSubmitBodyTooLarge(t *testing.T) {
	h := handler.New(database.New(store.NewMemoryStore(), quietLogger()), handler.Options{Logger: quietLogger()})
	big := `{"message":"` + strings.Repeat("x", 2<<20) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/applications", strings.NewReader(big))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestListApplications(t *testing.T) {
	ts, _ := setup(t)

	for i := 0; i < 25; i++ {
		payload := validApplication()
		if i%5 == 0 {
			payload["status"] = "accepted"
		}
		resp, body := submit(t, ts, payload)
		require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	}

	t.Run("default limit", func(t *testing.T) {
		resp, body := list(t, ts, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		items := body["items"].([]any)
		assert.Len(t, items, 20)
		assert.Equal(t, float64(20), body["count"])
		for _, it := range items {
			item := it.(map[string]any)
			assert.IsType(t, "", item["id"])
			assert.NotEmpty(t, item["id"])
			assert.NotContains(t, item, "_id")
		}
	})

	t.Run("explicit limit", func(t *testing.T) {
		_, body := list(t, ts, "?limit=3")
		assert.Len(t, body["items"].([]any), 3)
		assert.Equal(t, float64(3), body["count"])
	})

	t.Run("status filter", func(t *testing.T) {
		_, body := list(t, ts, "?status=accepted")
		items := body["items"].([]any)
		assert.Len(t, items, 5)
		for _, it := range items {
			assert.Equal(t, "accepted", it.(map[string]any)["status"])
		}
	})

	t.Run("status filter without matches", func(t *testing.T) {
		_, body := list(t, ts, "?status=rejected")
		assert.Empty(t, body["items"].([]any))
		assert.Equal(t, float64(0), body["count"])
	})

	t.Run("zero limit lists everything", func(t *testing.T) {
		resp, body := list(t, ts, "?limit=0")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, body["items"].([]any), 25)
	})

	t.Run("invalid limit", func(t *testing.T) {
		for _, q := range []string{"?limit=abc", "?limit=1.5", "?limit=-4"} {
			resp, body := list(t, ts, q)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, q)
			first := body["detail"].([]any)[0].(map[string]any)
			assert.Equal(t, []any{"query", "limit"}, first["loc"])
		}
	})
}

func TestSubmitThenListScenario(t *testing.T) {
	ts, _ := setup(t)

	resp, body := submit(t, ts, validApplication())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", body["status"])
	id := body["id"].(string)

	_, listed := list(t, ts, "?status=submitted")
	var ids []string
	for _, it := range listed["items"].([]any) {
		ids = append(ids, it.(map[string]any)["id"].(string))
	}
	assert.Contains(t, ids, id)
}

// brokenStore fails every data operation with the same error.
type brokenStore struct {
	*store.MemoryStore
	err error
}

func (b brokenStore) Insert(context.Context, string, map[string]any) (string, error) {
	return "", b.err
}

func (b brokenStore) Find(context.Context, string, map[string]any, int) ([]map[string]any, error) {
	return nil, b.err
}

func (b brokenStore) Ping(context.Context) error { return b.err }

// listFailingStore answers pings but cannot list collections.
type listFailingStore struct {
	*store.MemoryStore
	err error
}

func (l listFailingStore) ListCollections(context.Context) ([]string, error) {
	return nil, l.err
}

func TestStorageFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	ts := newServer(t, brokenStore{MemoryStore: store.NewMemoryStore(), err: errors.New("server selection error: context deadline exceeded")},
		handler.Options{Metrics: m, Gatherer: reg})

	resp, body := submit(t, ts, validApplication())
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "server selection error: context deadline exceeded", body["detail"])

	resp, body = list(t, ts, "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "server selection error: context deadline exceeded", body["detail"])

	assert.Equal(t, float64(1), testutil.ToFloat64(m.StorageErrors.WithLabelValues("insert")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StorageErrors.WithLabelValues("find")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ApplicationsSubmitted))
}

func TestNotConfiguredStore(t *testing.T) {
	opts := handler.Options{Logger: quietLogger()}
	ts := httptest.NewServer(handler.New(database.New(nil, opts.Logger), opts))
	defer ts.Close()

	resp, body := submit(t, ts, validApplication())
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "database not configured", body["detail"])
}

func TestDiagnosticEndpoint(t *testing.T) {
	getTest := func(t *testing.T, ts *httptest.Server) map[string]any {
		t.Helper()
		resp, err := http.Get(ts.URL + "/test")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, "diagnostics always answer 200")
		return decodeJSON(t, resp.Body)
	}

	t.Run("connected", func(t *testing.T) {
		ts := newServer(t, store.NewMemoryStore(), handler.Options{DatabaseURLSet: true, DatabaseNameSet: true})
		submit(t, ts, validApplication())

		body := getTest(t, ts)
		assert.Equal(t, "✅ Running", body["backend"])
		assert.Equal(t, "✅ Connected & Working", body["database"])
		assert.Equal(t, "✅ Set", body["database_url"])
		assert.Equal(t, "✅ Set", body["database_name"])
		assert.Equal(t, "Connected", body["connection_status"])
		assert.Equal(t, []any{"application"}, body["collections"])
	})

	t.Run("not configured", func(t *testing.T) {
		opts := handler.Options{Logger: quietLogger()}
		ts := httptest.NewServer(handler.New(database.New(nil, opts.Logger), opts))
		defer ts.Close()

		body := getTest(t, ts)
		assert.Equal(t, "⚠️  Available but not initialized", body["database"])
		assert.Equal(t, "❌ Not Set", body["database_url"])
		assert.Equal(t, "❌ Not Set", body["database_name"])
		assert.Equal(t, "Not Connected", body["connection_status"])
		assert.Equal(t, []any{}, body["collections"])
	})

	t.Run("connection failed", func(t *testing.T) {
		reason := strings.Repeat("unreachable ", 10)
		ts := newServer(t, brokenStore{MemoryStore: store.NewMemoryStore(), err: errors.New(reason)}, handler.Options{DatabaseURLSet: true})

		body := getTest(t, ts)
		db := body["database"].(string)
		assert.True(t, strings.HasPrefix(db, "❌ Error: "), db)
		assert.Equal(t, reason[:50], strings.TrimPrefix(db, "❌ Error: "), "reason is truncated to 50 characters")
		assert.Equal(t, "Not Connected", body["connection_status"])
		assert.Equal(t, "✅ Set", body["database_url"])
	})

	t.Run("query failed", func(t *testing.T) {
		reason := "not authorized on admissions to execute command listCollections"
		ts := newServer(t, listFailingStore{MemoryStore: store.NewMemoryStore(), err: errors.New(reason)}, handler.Options{})

		body := getTest(t, ts)
		db := body["database"].(string)
		assert.True(t, strings.HasPrefix(db, "⚠️  Connected but Error: "), db)
		assert.Equal(t, reason[:50], strings.TrimPrefix(db, "⚠️  Connected but Error: "))
		assert.Equal(t, "Connected", body["connection_status"])
		assert.Equal(t, []any{}, body["collections"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	ts := newServer(t, store.NewMemoryStore(), handler.Options{Metrics: m, Gatherer: reg})

	submit(t, ts, validApplication())
	payload := validApplication()
	payload["consent"] = false
	submit(t, ts, payload)
	delete(payload, "child_name")
	submit(t, ts, payload)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ApplicationsSubmitted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ApplicationsRejected.WithLabelValues(metrics.ReasonConsent)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ApplicationsRejected.WithLabelValues(metrics.ReasonValidation)))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "admissions_applications_submitted_total 1")
}
