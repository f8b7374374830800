package routes

import (
	"bufio"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus-crane/scrapeboard/db"
	"github.com/marcus-crane/scrapeboard/events"
	"github.com/marcus-crane/scrapeboard/models"
)

const testSecret = "hunter2"

type fakeCache struct {
	mu          sync.Mutex
	invalidated int
}

func (f *fakeCache) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.ScrapeRecord
}

func (f *fakeNotifier) Notify(record models.ScrapeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, record)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type failingStore struct {
	db.MemoryStore
}

func (failingStore) GetLatest(int) ([]models.ScrapeRecord, error) {
	return nil, errors.New("database is locked")
}

type testEnv struct {
	handler  http.Handler
	store    db.Store
	cache    *fakeCache
	notifier *fakeNotifier
}

func newTestEnv(t *testing.T, store db.Store, secret string) testEnv {
	broker := events.NewBroker()
	t.Cleanup(broker.Close)
	env := testEnv{
		store:    store,
		cache:    &fakeCache{},
		notifier: &fakeNotifier{},
	}
	env.handler = Register(http.NewServeMux(), Deps{
		Dashboard: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("dashboard"))
		}),
		Cache:          env.cache,
		Broker:         broker,
		Notifier:       env.notifier,
		Store:          store,
		RequestsLimit:  2,
		IngestSecret:   secret,
		AllowedOrigins: []string{"https://allowed.example"},
	})
	return env
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func (e testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func ingest(body, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/requests", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	return req
}

func TestDashboardRoute(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, db.NewMemoryStore(), testSecret)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dashboard", rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, "")
	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, "")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = env.do(req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, db.NewMemoryStore(), testSecret)

	req := httptest.NewRequest(http.MethodGet, "/api/requests", nil)
	req.Header.Set("Origin", "https://allowed.example")
	assert.Equal(t, "https://allowed.example", env.do(req).Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/requests", nil)
	req.Header.Set("Origin", "https://evil.example")
	assert.Equal(t, "", env.do(req).Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticAssets(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, "")
	rec := env.do(httptest.NewRequest(http.MethodGet, "/static/icons/unknown.svg", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age")
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestListRequests_NotServedWithoutStore(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, testSecret)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/requests", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRequests_ReturnsLatestUpToLimit(t *testing.T) {
	t.Parallel()
	store := db.NewMemoryStore()
	for _, date := range []string{"2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z", "2024-01-03T00:00:00Z"} {
		_, err := store.Insert(models.ScrapeRecord{ProviderName: "twitter.timeline", URL: "https://twitter.com/example", Date: date})
		require.NoError(t, err)
	}
	env := newTestEnv(t, store, testSecret)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/requests", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []models.ScrapeRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	want := []models.ScrapeRecord{
		{ProviderName: "twitter.timeline", URL: "https://twitter.com/example", Date: "2024-01-03T00:00:00Z", Media: []models.MediaItem{}},
		{ProviderName: "twitter.timeline", URL: "https://twitter.com/example", Date: "2024-01-02T00:00:00Z", Media: []models.MediaItem{}},
	}
	if !cmp.Equal(want, got) {
		t.Error(cmp.Diff(want, got))
	}
}

func TestListRequests_StoreErrorReturnsEmptyArray(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &failingStore{MemoryStore: *db.NewMemoryStore()}, testSecret)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/requests", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestIngest_Rejections(t *testing.T) {
	t.Parallel()
	valid := `{"provider_name":"twitter.timeline","url":"https://twitter.com/example","media":[]}`
	tests := []struct {
		name   string
		secret string
		body   string
		sig    string
		status int
	}{
		{"not configured", "", valid, sign(valid), http.StatusServiceUnavailable},
		{"missing signature", testSecret, valid, "", http.StatusUnauthorized},
		{"bad signature", testSecret, valid, sign("something else"), http.StatusUnauthorized},
		{"malformed json", testSecret, `{"provider_name":`, sign(`{"provider_name":`), http.StatusBadRequest},
		{"missing url", testSecret, `{"provider_name":"twitter.timeline"}`, sign(`{"provider_name":"twitter.timeline"}`), http.StatusBadRequest},
		{"missing provider", testSecret, `{"url":"https://twitter.com/example"}`, sign(`{"url":"https://twitter.com/example"}`), http.StatusBadRequest},
		{"bad date", testSecret, `{"provider_name":"a","url":"b","date":"soon"}`, sign(`{"provider_name":"a","url":"b","date":"soon"}`), http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := db.NewMemoryStore()
			env := newTestEnv(t, store, tt.secret)
			rec := env.do(ingest(tt.body, tt.sig))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)

			stored, err := store.GetLatest(10)
			require.NoError(t, err)
			assert.Empty(t, stored)
			assert.Equal(t, 0, env.cache.invalidated)
		})
	}
}

func TestIngest_StoresRecordAndNotifies(t *testing.T) {
	t.Parallel()
	store := db.NewMemoryStore()
	env := newTestEnv(t, store, testSecret)

	body := `{"provider_name":"pinterest.board_feed","url":"https://www.pinterest.com/example/board/","response_code":200,"date":"2024-03-01T10:05:00Z","media":[{"media_url":"https://i.pinimg.com/1.jpg","page_url":"https://www.pinterest.com/pin/1/"}]}`
	rec := env.do(ingest(body, "sha256="+sign(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())

	stored, err := store.GetLatest(10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "https://i.pinimg.com/1.jpg", stored[0].Media[0].MediaURL)
	assert.Equal(t, 1, env.cache.invalidated)
	assert.Eventually(t, func() bool { return env.notifier.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestIngest_SkipsNotificationWithoutMedia(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, db.NewMemoryStore(), testSecret)

	body := `{"provider_name":"twitter.timeline","url":"https://twitter.com/example","media":[]}`
	rec := env.do(ingest(body, sign(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, env.notifier.count())
}

func TestIngest_RejectsOversizedBody(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, db.NewMemoryStore(), testSecret)
	body := `{"url":"` + strings.Repeat("a", maxIngestBytes) + `"}`
	rec := env.do(ingest(body, sign(body)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestIngest_AnnouncesOnEventStream(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, db.NewMemoryStore(), testSecret)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?stream="+events.RequestsStream, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if strings.HasPrefix(scanner.Text(), "data:") {
				lines <- scanner.Text()
				return
			}
		}
	}()

	body := `{"provider_name":"twitter.timeline","url":"https://twitter.com/example","media":[]}`
	signed := func() {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/requests", strings.NewReader(body))
		require.NoError(t, err)
		r.Header.Set(SignatureHeader, sign(body))
		res, err := srv.Client().Do(r)
		if err == nil {
			assert.Equal(t, http.StatusCreated, res.StatusCode)
			res.Body.Close()
		}
	}

	// Subscription registration is asynchronous, so keep ingesting until
	// the subscriber sees an event.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case line := <-lines:
			assert.Equal(t, `data: {"count":1}`, line)
			return
		case <-ticker.C:
			signed()
		case <-ctx.Done():
			t.Fatal("no announcement received")
		}
	}
}
