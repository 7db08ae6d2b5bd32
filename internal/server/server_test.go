package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixtrade/helix/internal/analysis"
	"github.com/helixtrade/helix/internal/backtest"
	"github.com/helixtrade/helix/internal/cache"
	"github.com/helixtrade/helix/internal/clients"
	"github.com/helixtrade/helix/internal/database"
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/internal/modules/alerts"
	"github.com/helixtrade/helix/internal/modules/backtests"
	"github.com/helixtrade/helix/internal/modules/papertrading"
	"github.com/helixtrade/helix/internal/modules/portfolio"
	"github.com/helixtrade/helix/internal/modules/settings"
	"github.com/helixtrade/helix/internal/modules/signals"
	"github.com/helixtrade/helix/internal/risk"
	"github.com/helixtrade/helix/internal/scheduler"
)

type serverFixture struct {
	srv     *Server
	signals *signals.Repository
	cache   *cache.Cache
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "server.db"),
		Profile: database.ProfileStandard,
		Name:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	log := zerolog.Nop()
	conn := db.Conn()
	c := cache.New(conn, log)
	alertRepo := alerts.NewRepository(conn, log)
	paperRepo := papertrading.NewRepository(conn, log)
	signalRepo := signals.NewRepository(conn, log)
	engine := backtest.NewEngine(log)

	srv := New(Config{
		Port:        0,
		DevMode:     true,
		Log:         log,
		Signals:     signalRepo,
		Settings:    settings.NewRepository(conn, log),
		Portfolio:   portfolio.NewRepository(conn, log),
		Paper:       papertrading.NewEngine(paperRepo, log, papertrading.Options{}),
		PaperRepo:   paperRepo,
		Backtests:   backtests.NewRepository(conn, log),
		Alerts:      alertRepo,
		Risk:        risk.NewManager(alertRepo, log),
		Prices: clients.NewPriceProvider(nil, nil, c,
			clients.NewRateLimiter(1000, 1), clients.NewRateLimiter(1000, 1), log),
		Pipeline:    scheduler.NewPipeline(scheduler.PipelineDeps{}, log),
		Backtest:    engine,
		WalkForward: backtest.NewWalkForward(engine, log),
		ML:          analysis.NewMLService(nil, log),
	})
	return &serverFixture{srv: srv, signals: signalRepo, cache: c}
}

// storeRecentSeries caches n daily bars ending today with closes starting
// at base and moving by step per bar.
func storeRecentSeries(t *testing.T, c *cache.Cache, symbol string, n int, base, step float64) {
	t.Helper()
	end := time.Now().UTC().Truncate(24 * time.Hour)
	var series domain.Series
	for i := 0; i < n; i++ {
		cl := base + step*float64(i)
		series = append(series, domain.Candle{
			Date: end.AddDate(0, 0, i-n+1), Open: cl * 0.995, High: cl * 1.01, Low: cl * 0.99,
			Close: cl, Volume: 1_000_000,
		})
	}
	require.NoError(t, c.StorePrices(symbol, domain.AssetStock, series))
}

func (fx *serverFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.srv.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	fx := newServerFixture(t)
	rec := fx.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "helix", body["service"])
	assert.Contains(t, body, "goroutines")
}

func TestLatestSignalsEndpoint(t *testing.T) {
	fx := newServerFixture(t)
	sig := &domain.Signal{
		Symbol: "AAPL", Kind: domain.KindScheduled,
		Direction: domain.DirectionBuy, Strength: 0.5, Confidence: 0.8,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, fx.signals.Save(sig))

	rec := fx.do(t, http.MethodGet, "/api/signals?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []domain.Signal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "AAPL", out[0].Symbol)
	assert.Equal(t, domain.DirectionBuy, out[0].Direction)
}

func TestSignalHistoryEndpoint(t *testing.T) {
	fx := newServerFixture(t)
	require.NoError(t, fx.signals.Save(&domain.Signal{
		Symbol: "MSFT", Kind: domain.KindScheduled,
		Direction: domain.DirectionHold, CreatedAt: time.Now().UTC(),
	}))

	rec := fx.do(t, http.MethodGet, "/api/signals/MSFT/history?days=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out []domain.Signal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out, 1)

	rec = fx.do(t, http.MethodGet, "/api/signals/TSLA/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Empty(t, out)
}

func TestAccuracyEndpoint(t *testing.T) {
	fx := newServerFixture(t)
	rec := fx.do(t, http.MethodGet, "/api/signals/accuracy", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats signals.AccuracyStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Zero(t, stats.TotalEvaluated)
}

func TestScanStatusEndpoint(t *testing.T) {
	fx := newServerFixture(t)
	rec := fx.do(t, http.MethodGet, "/api/scan/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"idle"}`, rec.Body.String())
}

func TestHoldingsEndpoints(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodPost, "/api/portfolio/holdings", domain.Holding{
		Symbol: "AAPL", Quantity: 10, AvgCost: 150,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Holding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, domain.AssetStock, created.AssetClass)

	// Missing quantity fails validation.
	rec = fx.do(t, http.MethodPost, "/api/portfolio/holdings", domain.Holding{
		Symbol: "MSFT", AvgCost: 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/portfolio/holdings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var holdings []domain.Holding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &holdings))
	require.Len(t, holdings, 1)
	assert.Equal(t, "AAPL", holdings[0].Symbol)

	rec = fx.do(t, http.MethodDelete, "/api/portfolio/holdings/AAPL", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/portfolio/holdings", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &holdings))
	assert.Empty(t, holdings)
}

func TestPaperSummaryEndpoint(t *testing.T) {
	fx := newServerFixture(t)
	rec := fx.do(t, http.MethodGet, "/api/paper/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary papertrading.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.InDelta(t, 100000, summary.TotalValue, 1e-9)
	assert.Zero(t, summary.NumPositions)
}

func TestPaperResetEndpoint(t *testing.T) {
	fx := newServerFixture(t)
	rec := fx.do(t, http.MethodPost, "/api/paper/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"reset"}`, rec.Body.String())
}

func TestSettingsEndpoints(t *testing.T) {
	fx := newServerFixture(t)

	req := httptest.NewRequest(http.MethodPut, "/api/settings/scan_hour", bytes.NewBufferString("9"))
	rec := httptest.NewRecorder()
	fx.srv.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Non-JSON bodies are rejected.
	req = httptest.NewRequest(http.MethodPut, "/api/settings/scan_hour", bytes.NewBufferString("{broken"))
	rec = httptest.NewRecorder()
	fx.srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/api/settings/scan_hour", bytes.NewBuffer(nil))
	rec = httptest.NewRecorder()
	fx.srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Equal(t, "9", all["scan_hour"])
}

func TestAlertsEndpoints(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodGet, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out []domain.RiskAlert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Empty(t, out)

	rec = fx.do(t, http.MethodPost, "/api/alerts/abc/acknowledge", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunBacktestValidation(t *testing.T) {
	fx := newServerFixture(t)

	rec := fx.do(t, http.MethodPost, "/api/backtests/run", backtestRequest{Name: "empty"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No price source and an empty cache leaves nothing to test against.
	rec = fx.do(t, http.MethodPost, "/api/backtests/run", backtestRequest{
		Name: "nodata", Symbols: []string{"AAPL"},
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRunBacktestInvalidMode(t *testing.T) {
	fx := newServerFixture(t)
	rec := fx.do(t, http.MethodPost, "/api/backtests/run", backtestRequest{
		Name: "bad", Symbols: []string{"AAPL"}, Mode: "quantum",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunBacktestAIMode(t *testing.T) {
	fx := newServerFixture(t)
	storeRecentSeries(t, fx.cache, "AAPL", 320, 100, 0.1)

	rec := fx.do(t, http.MethodPost, "/api/backtests/run", backtestRequest{
		Name: "ai-run", Symbols: []string{"AAPL"}, Days: 300, Mode: "ai",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, out, "result")
	assert.Contains(t, out, "id")
}

func TestRiskPlanNoSignal(t *testing.T) {
	fx := newServerFixture(t)
	rec := fx.do(t, http.MethodGet, "/api/risk/plan/AAPL", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRiskPlanUsesNewestSignal(t *testing.T) {
	fx := newServerFixture(t)

	// An older SELL followed by today's BUY: the plan must follow the BUY.
	require.NoError(t, fx.signals.Save(&domain.Signal{
		Symbol: "AAPL", Kind: domain.KindScheduled,
		Direction: domain.DirectionSell, Strength: -0.6, Confidence: 0.7,
		CreatedAt: time.Now().UTC().AddDate(0, 0, -3),
	}))
	require.NoError(t, fx.signals.Save(&domain.Signal{
		Symbol: "AAPL", Kind: domain.KindScheduled,
		Direction: domain.DirectionBuy, Strength: 0.7, Confidence: 0.8,
		CreatedAt: time.Now().UTC(),
	}))
	storeRecentSeries(t, fx.cache, "AAPL", 40, 100, 0)

	rec := fx.do(t, http.MethodGet, "/api/risk/plan/AAPL", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var plan domain.ActionPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, domain.DirectionBuy, plan.Action)
	assert.InDelta(t, 100, plan.EntryPrice, 1e-9)
}
