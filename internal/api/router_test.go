package api

import (
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"arena-survival/internal/config"
	"arena-survival/internal/game"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockSim implements SimulationInterface and records queued commands.
type mockSim struct {
	mu       sync.Mutex
	snap     *game.Snapshot
	commands []game.Command
	full     bool
}

func (m *mockSim) Snapshot() *game.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *mockSim) setSnapshot(s *game.Snapshot) {
	m.mu.Lock()
	m.snap = s
	m.mu.Unlock()
}

func (m *mockSim) PlayerStats() game.PlayerStats {
	return game.PlayerStats{Health: 90, MaxHealth: 100, Level: 4}
}

func (m *mockSim) WeaponStates() []game.WeaponState { return nil }

func (m *mockSim) PassiveStates() []game.PassiveState { return nil }

func (m *mockSim) Quality() (int, game.QualitySettings) {
	return 3, game.QualitySettings{}
}

func (m *mockSim) EventLogStats() game.EventLogStats {
	return game.EventLogStats{Total: 7, Running: true}
}

func (m *mockSim) Enqueue(c game.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full {
		return game.ErrCommandQueueFull
	}
	m.commands = append(m.commands, c)
	return nil
}

func (m *mockSim) queued() []game.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]game.Command(nil), m.commands...)
}

type stubRenderer struct{ err error }

func (s stubRenderer) EncodePNG(w io.Writer, snap *game.Snapshot) error {
	if s.err != nil {
		return s.err
	}
	return png.Encode(w, image.NewRGBA(image.Rect(0, 0, 4, 4)))
}

func sampleSnapshot() *game.Snapshot {
	return &game.Snapshot{
		Sequence: 12,
		Tick:     340,
		RunID:    "run-1",
		Quality:  3,
		Player:   game.PlayerStats{Health: 50, MaxHealth: 100, Level: 2},
		Enemies: []game.EnemyView{
			{ID: 1, X: 10, Y: 20, Radius: 12, Color: "#ef5350", Visible: true},
		},
		EnemyCount: 1,
	}
}

func newTestServer(t *testing.T, sim SimulationInterface, renderer FrameRenderer) *httptest.Server {
	t.Helper()
	limiter := NewIPRateLimiter(1000, 1000)
	t.Cleanup(limiter.Stop)

	router := NewRouter(RouterConfig{
		Sim:            sim,
		Renderer:       renderer,
		RateLimiter:    limiter,
		DisableLogging: true, // Quiet logs in tests
		Logger:         zerolog.Nop(),
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	resp, err := http.Post(url, "application/json", r)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ============================================================================
// Read Endpoints
// ============================================================================

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &mockSim{}, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetStateBeforeFirstFrame(t *testing.T) {
	ts := newTestServer(t, &mockSim{}, nil)

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGetStateJSON(t *testing.T) {
	sim := &mockSim{}
	sim.setSnapshot(sampleSnapshot())
	ts := newTestServer(t, sim, nil)

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, float64(340), got["tick"])
	assert.Equal(t, "run-1", got["runId"])
	assert.Len(t, got["enemies"], 1)
}

func TestGetStateMsgpack(t *testing.T) {
	sim := &mockSim{}
	sim.setSnapshot(sampleSnapshot())
	ts := newTestServer(t, sim, nil)

	resp, err := http.Get(ts.URL + "/api/state?format=msgpack")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/msgpack", resp.Header.Get("Content-Type"))

	var got map[string]interface{}
	dec := msgpack.NewDecoder(resp.Body)
	require.NoError(t, dec.Decode(&got))
	assert.EqualValues(t, 340, got["tick"])
	assert.Equal(t, "run-1", got["runId"])
}

func TestGetListsNeverNull(t *testing.T) {
	ts := newTestServer(t, &mockSim{}, nil)

	for _, path := range []string{"/api/weapons", "/api/passives"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, "[]", strings.TrimSpace(string(body)), path)
	}
}

func TestGetQualityAndEvents(t *testing.T) {
	ts := newTestServer(t, &mockSim{}, nil)

	resp, err := http.Get(ts.URL + "/api/quality")
	require.NoError(t, err)
	var q map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&q))
	resp.Body.Close()
	assert.Equal(t, float64(3), q["level"])

	resp, err = http.Get(ts.URL + "/api/events")
	require.NoError(t, err)
	var ev game.EventLogStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ev))
	resp.Body.Close()
	assert.Equal(t, uint64(7), ev.Total)
	assert.True(t, ev.Running)
}

func TestGetFrame(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		ts := newTestServer(t, &mockSim{}, nil)
		resp, err := http.Get(ts.URL + "/api/frame.png")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("no snapshot", func(t *testing.T) {
		ts := newTestServer(t, &mockSim{}, stubRenderer{})
		resp, err := http.Get(ts.URL + "/api/frame.png")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("render error", func(t *testing.T) {
		sim := &mockSim{}
		sim.setSnapshot(sampleSnapshot())
		ts := newTestServer(t, sim, stubRenderer{err: errors.New("boom")})
		resp, err := http.Get(ts.URL + "/api/frame.png")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("png", func(t *testing.T) {
		sim := &mockSim{}
		sim.setSnapshot(sampleSnapshot())
		ts := newTestServer(t, sim, stubRenderer{})
		resp, err := http.Get(ts.URL + "/api/frame.png")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

		img, err := png.Decode(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, 4, img.Bounds().Dx())
	})
}

// ============================================================================
// Command Endpoints
// ============================================================================

func TestCommandEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		want       game.Command
	}{
		{"input", "/api/input", `{"moveX": 1, "moveY": -0.5, "dash": true}`, http.StatusAccepted,
			game.Command{Kind: game.CmdInput, Input: game.Input{MoveX: 1, MoveY: -0.5, Dash: true}}},
		{"pause without body", "/api/pause", "", http.StatusAccepted, game.Command{Kind: game.CmdPause}},
		{"resume", "/api/resume", "{}", http.StatusAccepted, game.Command{Kind: game.CmdResume}},
		{"reset", "/api/reset", "", http.StatusAccepted, game.Command{Kind: game.CmdReset}},
		{"boss", "/api/boss", "", http.StatusAccepted, game.Command{Kind: game.CmdSpawnBoss}},
		{"quality", "/api/quality", `{"level": 5}`, http.StatusAccepted, game.Command{Kind: game.CmdSetQuality, Value: 5}},
		{"upgrade", "/api/upgrade", `{"index": 2}`, http.StatusAccepted, game.Command{Kind: game.CmdChooseUpgrade, Value: 2}},
		{"autopick", "/api/autopick", `{"enabled": false}`, http.StatusAccepted, game.Command{Kind: game.CmdSetAutoPick}},
		{"spawning", "/api/spawning", `{"enabled": true}`, http.StatusAccepted, game.Command{Kind: game.CmdSetSpawning, Flag: true}},

		{"invalid json", "/api/input", `{invalid}`, http.StatusBadRequest, game.Command{}},
		{"quality too high", "/api/quality", `{"level": 6}`, http.StatusBadRequest, game.Command{}},
		{"quality missing", "/api/quality", `{}`, http.StatusBadRequest, game.Command{}},
		{"negative index", "/api/upgrade", `{"index": -1}`, http.StatusBadRequest, game.Command{}},
		{"autopick missing flag", "/api/autopick", `{}`, http.StatusBadRequest, game.Command{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := &mockSim{}
			ts := newTestServer(t, sim, nil)

			resp := post(t, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			queued := sim.queued()
			if tt.wantStatus != http.StatusAccepted {
				assert.Empty(t, queued)
				return
			}
			require.Len(t, queued, 1)
			assert.Equal(t, tt.want, queued[0])

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.want.Kind.String(), body["queued"])
		})
	}
}

func TestCommandQueueFull(t *testing.T) {
	ts := newTestServer(t, &mockSim{full: true}, nil)

	resp := post(t, ts.URL+"/api/pause", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}

func TestCommandOnlyAcceptsPost(t *testing.T) {
	ts := newTestServer(t, &mockSim{}, nil)

	resp, err := http.Get(ts.URL + "/api/pause")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

// ============================================================================
// Middleware
// ============================================================================

func TestRateLimitRejects(t *testing.T) {
	limiter := NewIPRateLimiter(1, 2)
	defer limiter.Stop()

	router := NewRouter(RouterConfig{Sim: &mockSim{}, RateLimiter: limiter, DisableLogging: true})
	ts := httptest.NewServer(router)
	defer ts.Close()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)
	assert.Equal(t, uint64(1), limiter.Rejected())
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	limiter := NewIPRateLimiter(1, 1)
	defer limiter.Stop()

	require.True(t, limiter.Allow("10.0.0.1"))
	require.False(t, limiter.Allow("10.0.0.1"))

	assert.Zero(t, limiter.sweep(time.Now()), "recent clients are kept")
	assert.Equal(t, 1, limiter.sweep(time.Now().Add(visitorIdleTTL+time.Second)))
	assert.True(t, limiter.Allow("10.0.0.1"), "a forgotten client starts with a full bucket")
}

func TestServerUsesConfiguredRateLimit(t *testing.T) {
	cfg := config.DefaultServer()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 1
	server := NewServer(&mockSim{}, nil, cfg, zerolog.Nop())
	defer server.Stop()

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.0.0.5:5555", "10.0.0.5"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.1:80", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "10.0.0.1:80", "5.6.7.8"},
		{"no port", nil, "pipe", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}

func TestOriginChecker(t *testing.T) {
	c := newOriginChecker(nil)
	assert.True(t, c.allowed(""))
	assert.True(t, c.allowed("http://localhost:5173"))
	assert.True(t, c.allowed("http://127.0.0.1:8080"))
	assert.False(t, c.allowed("http://evil.example"))
	assert.False(t, c.allowed("https://localhost:5173"))
	assert.False(t, c.allowed("::bad"))

	c = newOriginChecker([]string{"https://arena.example"})
	assert.True(t, c.allowed("https://arena.example"))
	assert.False(t, c.allowed("http://localhost:5173"))
}

func TestConnLimiter(t *testing.T) {
	l := newConnLimiter(2, 3)
	require.NoError(t, l.acquire("a"))
	require.NoError(t, l.acquire("a"))
	assert.ErrorIs(t, l.acquire("a"), errIPHubLimit)
	require.NoError(t, l.acquire("b"))
	assert.ErrorIs(t, l.acquire("c"), errHubFull)

	l.release("a")
	perIP, total := l.count("a")
	assert.Equal(t, 1, perIP)
	assert.Equal(t, 2, total)
	assert.NoError(t, l.acquire("c"))

	l.release("unknown")
	_, total = l.count("")
	assert.Equal(t, 3, total, "releasing an unknown IP changes nothing")
}

func BenchmarkGetState(b *testing.B) {
	sim := &mockSim{}
	sim.setSnapshot(sampleSnapshot())
	limiter := NewIPRateLimiter(1e9, 1<<30)
	defer limiter.Stop()
	router := NewRouter(RouterConfig{
		Sim:            sim,
		RateLimiter:    limiter,
		DisableLogging: true,
	})
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			b.Fatal(w.Code)
		}
	}
}
