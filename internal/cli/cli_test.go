package cli

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"playerdash/internal/upstream"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analyticsBody = `{
	"speeds": {"data": [0, 1.2, 3.4], "timestamps": [1500000, 2000000], "average": 1.53, "max": 3.4},
	"steps": {"count": 1, "timestamps": [1500000], "magnitudes": [2.7]},
	"jumps": {"count": 0, "timestamps": [], "magnitudes": []},
	"acceleration_magnitude": {"data": [0.5, 2.7, 0.9], "timestamps": [1000000, 1500000, 2000000]}
}`

type fakeUpstream struct {
	mu        sync.Mutex
	lastQuery url.Values
}

func (f *fakeUpstream) query() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

func newFakeUpstream(t *testing.T) (*fakeUpstream, *httptest.Server) {
	t.Helper()
	f := &fakeUpstream{}

	r := mux.NewRouter()
	r.HandleFunc("/api/players", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"player_id":"p1","name":"Alice","teamName":"Red"},{"player_id":"p2","name":"Bob","teamName":"Blue"}]`))
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/player-time-range", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"player_id": "p1", "start_time": 1000000, "end_time": 2000000}]`))
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/player-analytics", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.lastQuery = req.URL.Query()
		f.mu.Unlock()
		if req.URL.Query().Get("player_id") == "p2" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error": "No data found"}`))
			return
		}
		_, _ = w.Write([]byte(analyticsBody))
	}).Methods(http.MethodGet)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

// writeConfig writes a fast-ticking config exporting into a temp dir
func writeConfig(t *testing.T) (path, exportDir string) {
	t.Helper()
	dir := t.TempDir()
	exportDir = filepath.Join(dir, "exports")
	path = filepath.Join(dir, "config.yaml")

	content := "progress:\n  interval: 5ms\nexport:\n  dir: " + exportDir + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path, exportDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), err
}

func TestPlayersCmd(t *testing.T) {
	_, srv := newFakeUpstream(t)
	cfgPath, _ := writeConfig(t)

	out, err := execute(t, "--config", cfgPath, "--server", srv.URL, "players")
	require.NoError(t, err)
	assert.Equal(t, "p1\tAlice\tRed\np2\tBob\tBlue\n", out)
}

func TestRangeCmd(t *testing.T) {
	_, srv := newFakeUpstream(t)
	cfgPath, _ := writeConfig(t)

	out, err := execute(t, "--config", cfgPath, "--server", srv.URL, "range", "--player", "p1")
	require.NoError(t, err)
	assert.Contains(t, out, "(1000000)")
	assert.Contains(t, out, "(2000000)")
}

func TestRangeCmdRequiresPlayer(t *testing.T) {
	_, err := execute(t, "range")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--player")
}

func TestAnalyzeCmd(t *testing.T) {
	fake, srv := newFakeUpstream(t)
	cfgPath, exportDir := writeConfig(t)
	chartPath := filepath.Join(t.TempDir(), "alice.png")

	out, err := execute(t, "--config", cfgPath, "--server", srv.URL,
		"analyze", "--player", "p1", "--export", "--chart", chartPath)
	require.NoError(t, err)

	q := fake.query()
	assert.Equal(t, "1000000", q.Get("start_time"))
	assert.Equal(t, "2000000", q.Get("end_time"))

	assert.Contains(t, out, "Completed\n")
	assert.Contains(t, out, "steps: 1\n")
	assert.Contains(t, out, "jumps: 0\n")
	assert.Contains(t, out, "max speed: 3.40 m/s\n")
	assert.Contains(t, out, "avg speed: 1.53 m/s\n")

	reportPath := filepath.Join(exportDir, "Alice_Red_report.csv")
	assert.Contains(t, out, "report: "+reportPath)
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Metric,Value\nSteps Count,1\nJumps Count,0\n"))

	_, err = os.Stat(chartPath)
	require.NoError(t, err)
}

func TestAnalyzeCmdClampsBounds(t *testing.T) {
	fake, srv := newFakeUpstream(t)
	cfgPath, _ := writeConfig(t)

	_, err := execute(t, "--config", cfgPath, "--server", srv.URL, "analyze", "--player", "p1",
		"--start", "1970-01-01T00:00:01.5Z", "--end", "1970-01-01T00:00:05Z")
	require.NoError(t, err)

	q := fake.query()
	assert.Equal(t, "1500000", q.Get("start_time"))
	assert.Equal(t, "2000000", q.Get("end_time"))
}

func TestAnalyzeCmdBadBound(t *testing.T) {
	_, srv := newFakeUpstream(t)
	cfgPath, _ := writeConfig(t)

	_, err := execute(t, "--config", cfgPath, "--server", srv.URL, "analyze", "--player", "p1", "--start", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse bound")
}

func TestAnalyzeCmdUnknownPlayer(t *testing.T) {
	_, srv := newFakeUpstream(t)
	cfgPath, _ := writeConfig(t)

	_, err := execute(t, "--config", cfgPath, "--server", srv.URL, "analyze", "--player", "p9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlayerNotFound))
}

func TestAnalyzeCmdFailure(t *testing.T) {
	_, srv := newFakeUpstream(t)
	cfgPath, _ := writeConfig(t)

	out, err := execute(t, "--config", cfgPath, "--server", srv.URL, "analyze", "--player", "p2")
	require.Error(t, err)

	var statusErr *upstream.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.NotContains(t, out, "steps:")
}

func TestBadServerURL(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	_, err := execute(t, "--config", cfgPath, "--server", "ftp://example.com", "players")
	require.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "playerdash dev\n", out)
}

func TestMetricsRouter(t *testing.T) {
	reg := upstream.NewRegistry()
	upstream.NewMetrics("playerdash", "upstream", reg).CounterRequests.WithLabelValues("/api/players", "ok").Inc()

	rec := httptest.NewRecorder()
	newMetricsRouter(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "playerdash_upstream_requests_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
