package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-warmup-automation/internal/events"
	"go-warmup-automation/internal/history"
	"go-warmup-automation/internal/profile"
	"go-warmup-automation/internal/runner"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSession struct{}

func (stubSession) Perform(ctx context.Context, step runner.Step) error { return nil }
func (stubSession) Close() error                                        { return nil }

type stubDriver struct{}

func (stubDriver) OpenSession(ctx context.Context, profilePath string) (runner.Session, error) {
	return stubSession{}, nil
}

// gatedDriver blocks every step until release is closed, so tests can
// observe a run mid-flight.
type gatedDriver struct {
	release chan struct{}
}

type gatedSession struct {
	release chan struct{}
}

func (d *gatedDriver) OpenSession(ctx context.Context, profilePath string) (runner.Session, error) {
	return &gatedSession{release: d.release}, nil
}

func (s *gatedSession) Perform(ctx context.Context, step runner.Step) error {
	<-s.release
	return nil
}

func (s *gatedSession) Close() error { return nil }

type fixture struct {
	srv    *Server
	store  *profile.Store
	runner *runner.Runner
	feed   *events.Feed
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithDriver(t, stubDriver{})
}

func newFixtureWithDriver(t *testing.T, driver runner.Driver) *fixture {
	t.Helper()
	dir := t.TempDir()

	store, err := profile.NewStore(filepath.Join(dir, "profiles.json"))
	require.NoError(t, err)

	hist, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	feed := events.NewFeed()
	t.Cleanup(feed.Close)

	rn := runner.New(driver, store, feed, hist, runner.Options{})

	return &fixture{
		srv:    New(store, rn, feed, hist),
		store:  store,
		runner: rn,
		feed:   feed,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) waitTerminal(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.runner.Wait(ctx))
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestDashboardServed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Warmup Control Panel")
}

func TestProfileCRUD(t *testing.T) {
	f := newFixture(t)

	// Create
	rec := f.do(t, http.MethodPost, "/api/profiles", map[string]string{
		"name": "Main", "path": "/p/main",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var created profile.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	// Validation errors map to 400
	rec = f.do(t, http.MethodPost, "/api/profiles", map[string]string{"name": "", "path": "/x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/profiles", map[string]string{"name": "Dup", "path": "/p/main"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// List
	rec = f.do(t, http.MethodGet, "/api/profiles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []profile.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	// Update
	rec = f.do(t, http.MethodPut, "/api/profiles/"+created.ID, map[string]string{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated profile.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "/p/main", updated.Path)

	// Unknown id maps to 404
	rec = f.do(t, http.MethodPut, "/api/profiles/nope", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/profiles/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Delete
	rec = f.do(t, http.MethodDelete, "/api/profiles/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunLifecycle(t *testing.T) {
	f := newFixture(t)
	p, err := f.store.Add("Main", "/p/main")
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/run", map[string]any{
		"profiles": []string{p.ID}, "loops": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var started struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.NotEmpty(t, started.RunID)

	f.waitTerminal(t)

	rec = f.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap runner.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, runner.StatusCompleted, snap.Status)
	assert.Len(t, snap.Queue, 2)
	assert.Equal(t, 2, snap.Completed)

	// History recorded the finished run.
	require.Eventually(t, func() bool {
		rec := f.do(t, http.MethodGet, "/api/history", nil)
		var runs []history.RunRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
			return false
		}
		return len(runs) == 1 && runs[0].ID == started.RunID
	}, 3*time.Second, 50*time.Millisecond)

	rec = f.do(t, http.MethodGet, "/api/history/"+started.RunID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []runner.StepResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Len(t, results, 2*len(runner.Sequence()))

	// Reset clears the terminal run.
	rec = f.do(t, http.MethodPost, "/api/reset", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/status", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, runner.StatusIdle, snap.Status)
}

func TestRunErrorMapping(t *testing.T) {
	f := newFixture(t)

	// Empty selection maps to 400.
	rec := f.do(t, http.MethodPost, "/api/run", map[string]any{"profiles": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Stop with nothing running maps to 409.
	rec = f.do(t, http.MethodPost, "/api/stop", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Malformed body maps to 400.
	req := httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	raw := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestConcurrentRunRejected(t *testing.T) {
	release := make(chan struct{})
	f := newFixtureWithDriver(t, &gatedDriver{release: release})
	p, err := f.store.Add("Main", "/p/main")
	require.NoError(t, err)
	ids := []string{p.ID}

	rec := f.do(t, http.MethodPost, "/api/run", map[string]any{"profiles": ids, "loops": 5})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/run", map[string]any{"profiles": ids})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/stop", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	close(release)
	f.waitTerminal(t)
}

func TestEventsWebsocket(t *testing.T) {
	f := newFixture(t)
	p, err := f.store.Add("Main", "/p/main")
	require.NoError(t, err)

	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	rec := f.do(t, http.MethodPost, "/api/run", map[string]any{"profiles": []string{p.ID}})
	require.Equal(t, http.StatusOK, rec.Code)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	seen := map[events.Type]bool{}
	for !seen[events.TypeRunFinished] {
		var ev events.Event
		require.NoError(t, conn.ReadJSON(&ev))
		seen[ev.Type] = true
	}
	assert.True(t, seen[events.TypeRunStarted])
	assert.True(t, seen[events.TypeStepFinished])
}
