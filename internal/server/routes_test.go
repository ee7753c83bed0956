package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octarcade/internal/chain"
	"octarcade/internal/config"
	"octarcade/internal/game"
)

type stubSubmitter struct {
	mu    sync.Mutex
	calls []chain.Call
	err   error
}

func (s *stubSubmitter) Submit(_ context.Context, call chain.Call) (chain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	if s.err != nil {
		return chain.Receipt{}, s.err
	}
	return chain.Receipt{Digest: "digest"}, nil
}

func (s *stubSubmitter) Calls() []chain.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chain.Call(nil), s.calls...)
}

func settings(module string) game.Settings {
	return game.Settings{
		Player: "0xabc",
		Game:   config.GameConfig{PackageID: "0xpkg", Module: module, ObjectID: "0xobj"},
	}
}

func newTestServer(t *testing.T, sub *stubSubmitter) *FiberServer {
	t.Helper()
	hub := game.NewHub()
	deps := game.Deps{Submitter: sub, Notifier: hub, Publisher: hub}
	games := Games{
		Crash:       game.NewCrash(settings(config.ModuleCrash), deps),
		Mines:       game.NewMines(settings(config.ModuleMines), deps),
		Slide:       game.NewSlide(settings(config.ModuleSlide), deps),
		VideoPoker:  game.NewVideoPoker(settings(config.ModuleVideoPoker), deps),
		Leaderboard: game.NewLeaderboard(settings(config.ModuleCrash), game.Deps{}, nil),
	}
	s := NewWithGames(games, hub, nil, nil)
	s.RegisterFiberRoutes()
	s.RegisterGameRoutes()
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { s.Shutdown() })
	return s
}

func do(t *testing.T, s *FiberServer, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var result map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &result))
	}
	return resp.StatusCode, result
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, &stubSubmitter{})

	status, result := do(t, s, http.MethodGet, "/health", "")
	if status != http.StatusOK {
		t.Fatalf("expected status OK; got %v", status)
	}

	gameInfo, ok := result["game"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected game section; got %v", result)
	}
	if gameInfo["status"] != "running" {
		t.Errorf("expected status to be 'running'; got %v", gameInfo["status"])
	}
	if len(gameInfo["controllers"].([]interface{})) != 5 {
		t.Errorf("expected 5 controllers; got %v", gameInfo["controllers"])
	}
	if _, ok := result["database"]; ok {
		t.Error("database section should be absent without a database")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &stubSubmitter{})
	do(t, s, http.MethodGet, "/health", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.App.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "octarcade_http_requests_total")
}

func TestVideoPokerRoutes(t *testing.T) {
	sub := &stubSubmitter{}
	s := newTestServer(t, sub)

	status, result := do(t, s, http.MethodPost, "/api/v1/videopoker/deal", `{"amount":"1.5"}`)
	require.Equal(t, http.StatusOK, status, result)
	assert.Equal(t, "hold", result["phase"])
	assert.Len(t, result["cards"], 5)

	calls := sub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []any{uint64(1_500_000_000)}, calls[0].Args)

	status, _ = do(t, s, http.MethodPost, "/api/v1/videopoker/draw", `{"holds":[7]}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, result = do(t, s, http.MethodPost, "/api/v1/videopoker/draw", `{"holds":[0,2]}`)
	require.Equal(t, http.StatusOK, status, result)
	state := result["state"].(map[string]interface{})
	assert.Equal(t, "complete", state["phase"])
	assert.NotNil(t, result["result"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"crash fly without session", http.MethodPost, "/api/v1/crash/fly", "", http.StatusConflict},
		{"crash cashout without session", http.MethodPost, "/api/v1/crash/cashout", "", http.StatusConflict},
		{"crash bet missing amount", http.MethodPost, "/api/v1/crash/bet", `{}`, http.StatusBadRequest},
		{"mines bad amount", http.MethodPost, "/api/v1/mines/bet", `{"amount":"abc","mine_count":3}`, http.StatusBadRequest},
		{"mines too many mines", http.MethodPost, "/api/v1/mines/bet", `{"amount":"1","mine_count":25}`, http.StatusBadRequest},
		{"mines reveal out of range", http.MethodPost, "/api/v1/mines/reveal", `{"point":30}`, http.StatusBadRequest},
		{"mines cashout without session", http.MethodPost, "/api/v1/mines/cashout", "", http.StatusConflict},
		{"slide target below one", http.MethodPost, "/api/v1/slide/bet", `{"amount":"1","target_multiplier":"0.5"}`, http.StatusBadRequest},
		{"poker draw before deal", http.MethodPost, "/api/v1/videopoker/draw", `{"holds":[]}`, http.StatusConflict},
		{"malformed body", http.MethodPost, "/api/v1/videopoker/deal", `{`, http.StatusBadRequest},
	}

	s := newTestServer(t, &stubSubmitter{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, result := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, status, result)
			assert.NotEmpty(t, result["error"])
		})
	}
}

func TestSubmissionFailureIsBadGateway(t *testing.T) {
	sub := &stubSubmitter{err: errors.New("relay unavailable")}
	s := newTestServer(t, sub)

	status, result := do(t, s, http.MethodPost, "/api/v1/slide/bet", `{"amount":"2","target_multiplier":"1.50"}`)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, result["error"], "relay unavailable")

	calls := sub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "0xpkg::slide_game::place_bet", calls[0].Target)
	assert.Equal(t, []any{"0xobj", uint64(2_000_000_000), uint64(150)}, calls[0].Args)
}

func TestLeaderboardRoutes(t *testing.T) {
	s := newTestServer(t, &stubSubmitter{})

	status, result := do(t, s, http.MethodGet, "/api/v1/leaderboard?limit=5", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "live", result["source"])

	status, result = do(t, s, http.MethodGet, "/api/v1/transactions", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, result, "transactions")
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{game.ErrInvalidBet, http.StatusBadRequest},
		{game.ErrNotConfigured, http.StatusBadRequest},
		{game.ErrActionInFlight, http.StatusConflict},
		{game.ErrSessionActive, http.StatusConflict},
		{game.ErrStopped, http.StatusServiceUnavailable},
		{game.ErrSessionLookupFailed, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("place_bet: boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
