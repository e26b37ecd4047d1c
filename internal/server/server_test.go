package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/linkshelf/internal/backup"
	"github.com/mesh-intelligence/linkshelf/internal/gate"
	"github.com/mesh-intelligence/linkshelf/internal/kv/memory"
	"github.com/mesh-intelligence/linkshelf/internal/metrics"
	"github.com/mesh-intelligence/linkshelf/internal/repo"
	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

var cst = time.FixedZone("CST", 8*60*60)

type testEnv struct {
	srv     *Server
	store   *memory.Store
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, now time.Time, enforce bool) *testEnv {
	t.Helper()
	store := memory.New()
	r := repo.New(store)
	b, err := backup.New(store, r, backup.WithClock(func() time.Time { return now }), backup.WithLocation(cst))
	require.NoError(t, err)
	g, err := gate.New("pw", "")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	srv := New(Config{
		Repo:        r,
		Backups:     b,
		Gate:        g,
		EnforceAuth: enforce,
		Logger:      zerolog.Nop(),
		Metrics:     m,
		Gatherer:    reg,
	})
	return &testEnv{srv: srv, store: store, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const success = `{"success":true}`

func TestLogin(t *testing.T) {
	e := newTestEnv(t, time.Now(), false)

	rec := e.do(t, http.MethodPost, "/api/login", `{"password":"pw"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, success, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/login", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/login", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryLifecycle(t *testing.T) {
	e := newTestEnv(t, time.Now(), false)

	rec := e.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, body := range []string{`{"name":"low","order":"1"}`, `{"name":"high","order":9}`, `{"name":"none"}`} {
		rec = e.do(t, http.MethodPost, "/api/categories", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, success, rec.Body.String())
	}

	cats := decodeBody[[]types.Category](t, e.do(t, http.MethodGet, "/api/categories", ""))
	require.Len(t, cats, 3)
	assert.Equal(t, []string{"high", "low", "none"}, []string{cats[0].Name, cats[1].Name, cats[2].Name})

	rec = e.do(t, http.MethodPut, "/api/categories/"+cats[2].ID, `{"name":"","order":20}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cats = decodeBody[[]types.Category](t, e.do(t, http.MethodGet, "/api/categories", ""))
	assert.Equal(t, "none", cats[0].Name)
	assert.Equal(t, types.Order(20), cats[0].Order)

	rec = e.do(t, http.MethodPut, "/api/categories/missing", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/categories/reorder", `{"order":["`+cats[2].ID+`","stale","`+cats[0].ID+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	reordered := decodeBody[[]types.Category](t, e.do(t, http.MethodGet, "/api/categories", ""))
	assert.Equal(t, []string{cats[2].ID, cats[0].ID}, []string{reordered[0].ID, reordered[1].ID})

	rec = e.do(t, http.MethodPost, "/api/categories/reorder", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/categories/"+cats[2].ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodDelete, "/api/categories/absent", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.Category](t, e.do(t, http.MethodGet, "/api/categories", "")), 1)
}

func TestLinkLifecycle(t *testing.T) {
	e := newTestEnv(t, time.Now(), false)

	rec := e.do(t, http.MethodPost, "/api/links", `{"title":"Go","url":"https://go.dev","categoryId":"c1","order":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	links := decodeBody[[]types.Link](t, e.do(t, http.MethodGet, "/api/links", ""))
	require.Len(t, links, 1)
	id := links[0].ID
	assert.NotEmpty(t, id)

	rec = e.do(t, http.MethodPut, "/api/links/"+id, `{"title":"","description":"lang"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	links = decodeBody[[]types.Link](t, e.do(t, http.MethodGet, "/api/links", ""))
	assert.Equal(t, "", links[0].Title)
	assert.Equal(t, "lang", links[0].Description)
	assert.Equal(t, "https://go.dev", links[0].URL)

	rec = e.do(t, http.MethodPut, "/api/links/missing", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/links/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, e.do(t, http.MethodGet, "/api/links", "").Body.String())
}

func TestUpdateWithNullFields(t *testing.T) {
	e := newTestEnv(t, time.Now(), false)
	ctx := context.Background()
	require.NoError(t, e.store.Put(ctx, types.CategoriesKey, []byte(`[{"id":"c1","name":"Tools","order":7}]`)))
	require.NoError(t, e.store.Put(ctx, types.LinksKey, []byte(`[{"id":"l1","title":"Go","url":"https://go.dev","description":"d","categoryId":"c1","order":7}]`)))

	rec := e.do(t, http.MethodPut, "/api/categories/c1", `{"name":null,"order":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decodeBody[[]types.Category](t, e.do(t, http.MethodGet, "/api/categories", ""))
	assert.Equal(t, []types.Category{{ID: "c1", Name: "Tools", Order: 0}}, cats)

	rec = e.do(t, http.MethodPut, "/api/links/l1", `{"description":null,"order":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	stored, err := e.store.Get(ctx, types.LinksKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"l1","title":"Go","url":"https://go.dev","categoryId":"c1","order":0}]`, string(stored))
}

func TestBackupAndRestore(t *testing.T) {
	e := newTestEnv(t, time.Date(2026, 7, 8, 9, 10, 11, 0, cst), false)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/categories", `{"name":"saved"}`).Code)

	rec := e.do(t, http.MethodPost, "/api/backup-kv", "")
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeBody[[]types.KeyInfo](t, e.do(t, http.MethodGet, "/api/backup-list", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "backup_2026/07/08 09:10:11", list[0].Name)

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/categories", `{"name":"later"}`).Code)

	body, err := json.Marshal(map[string]string{"key": list[0].Name})
	require.NoError(t, err)
	rec = e.do(t, http.MethodPost, "/api/restore-kv", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decodeBody[[]types.Category](t, e.do(t, http.MethodGet, "/api/categories", ""))
	require.Len(t, cats, 1)
	assert.Equal(t, "saved", cats[0].Name)

	rec = e.do(t, http.MethodPost, "/api/restore-kv", `{"key":"nonexistent_key"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid backup data"}`, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/restore", `{"categories":[{"id":"x","name":"up","order":0}],"links":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	raw, err := e.store.Get(context.Background(), types.CategoriesKey)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"x","name":"up","order":0}]`, string(raw))
}

func TestCronBackup(t *testing.T) {
	inside := newTestEnv(t, time.Date(2026, 7, 20, 3, 30, 0, 0, cst), false)
	rec := inside.do(t, http.MethodPost, "/api/cron-backup", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, success, rec.Body.String())
	assert.Len(t, decodeBody[[]types.KeyInfo](t, inside.do(t, http.MethodGet, "/api/backup-list", "")), 1)

	outside := newTestEnv(t, time.Date(2026, 7, 21, 3, 30, 0, 0, cst), false)
	rec = outside.do(t, http.MethodPost, "/api/cron-backup", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"skipped":true}`, rec.Body.String())
	assert.JSONEq(t, `[]`, outside.do(t, http.MethodGet, "/api/backup-list", "").Body.String())
}

func TestRoutingErrors(t *testing.T) {
	e := newTestEnv(t, time.Now(), false)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
		{"unknown root", http.MethodGet, "/", "", http.StatusNotFound},
		{"wrong method", http.MethodPost, "/api/backup-list", "", http.StatusMethodNotAllowed},
		{"get on login", http.MethodGet, "/api/login", "", http.StatusMethodNotAllowed},
		{"malformed create", http.MethodPost, "/api/links", `{"title":`, http.StatusBadRequest},
		{"malformed update", http.MethodPut, "/api/categories/x", `[`, http.StatusBadRequest},
		{"malformed restore", http.MethodPost, "/api/restore", `nope`, http.StatusBadRequest},
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

// brokenStore fails every operation.
type brokenStore struct{ types.Store }

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, assert.AnError
}

func TestStoreFailureIs500(t *testing.T) {
	store := brokenStore{Store: memory.New()}
	r := repo.New(store)
	b, err := backup.New(store, r)
	require.NoError(t, err)
	srv := New(Config{Repo: r, Backups: b, Logger: zerolog.Nop()})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestEnforcedAuth(t *testing.T) {
	e := newTestEnv(t, time.Now(), true)

	rec := e.do(t, http.MethodPost, "/api/categories", `{"name":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/categories", `{"name":"x"}`, gate.HeaderPassword, "pw")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Reads and login stay open.
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/categories", "").Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/login", `{"password":"pw"}`).Code)
}

func TestOpenByDefault(t *testing.T) {
	e := newTestEnv(t, time.Now(), false)
	rec := e.do(t, http.MethodPost, "/api/categories", `{"name":"x"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t, time.Now(), false)
	e.do(t, http.MethodGet, "/api/categories", "")
	e.do(t, http.MethodDelete, "/api/links/abc", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Requests.WithLabelValues("/api/categories", http.MethodGet, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Requests.WithLabelValues("/api/links/{id}", http.MethodDelete, "200")))

	rec := e.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("linkshelf_http_requests_total")))
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	e := newTestEnv(t, time.Now(), false)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
