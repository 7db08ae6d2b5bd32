package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/helixtrade/helix/internal/backtest"
	"github.com/helixtrade/helix/internal/domain"
)

// === HEALTH ===

// handleHealth reports process and host health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := map[string]interface{}{
		"status":     "healthy",
		"service":    "helix",
		"goroutines": runtime.NumGoroutine(),
		"process": map[string]interface{}{
			"alloc_mb": m.Alloc / 1024 / 1024,
			"sys_mb":   m.Sys / 1024 / 1024,
			"num_gc":   m.NumGC,
		},
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		response["memory"] = map[string]interface{}{
			"total_mb":     vm.Total / 1024 / 1024,
			"used_percent": vm.UsedPercent,
		}
	}
	if percent, err := cpu.Percent(0, false); err == nil && len(percent) > 0 {
		response["cpu_percent"] = percent[0]
	}
	if du, err := disk.Usage("/"); err == nil {
		response["disk_used_percent"] = du.UsedPercent
	}

	s.writeJSON(w, http.StatusOK, response)
}

// === SIGNALS ===

func (s *Server) handleLatestSignals(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	out, err := s.cfg.Signals.Latest(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSignalHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	days := queryInt(r, "days", 30)
	out, err := s.cfg.Signals.History(symbol, days)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAccuracy(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cfg.Signals.Accuracy()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// === SCAN ===

// handleScanTrigger kicks off an on-demand scan in the background. The
// pipeline itself rejects overlapping runs.
func (s *Server) handleScanTrigger(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Pipeline.State() != "idle" {
		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": s.cfg.Pipeline.State()})
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := s.cfg.Pipeline.Scan(ctx); err != nil {
			s.log.Warn().Err(err).Msg("On-demand scan failed")
		}
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"state": s.cfg.Pipeline.State()})
}

func (s *Server) handleScanStop(w http.ResponseWriter, r *http.Request) {
	s.cfg.Pipeline.Stop()
	s.writeJSON(w, http.StatusOK, map[string]string{"state": s.cfg.Pipeline.State()})
}

// === PORTFOLIO ===

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.cfg.Portfolio.Holdings()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, holdings)
}

func (s *Server) handleUpsertHolding(w http.ResponseWriter, r *http.Request) {
	var h domain.Holding
	if err := decodeBody(r, &h); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.Symbol == "" || h.Quantity <= 0 || h.AvgCost <= 0 {
		s.writeError(w, http.StatusBadRequest, "symbol, quantity and avg_cost are required")
		return
	}
	if h.AssetClass == "" {
		h.AssetClass = domain.ClassOfSymbol(h.Symbol)
	}
	if err := s.cfg.Portfolio.UpsertHolding(h); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleRemoveHolding(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if err := s.cfg.Portfolio.RemoveHolding(symbol); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"removed": symbol})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	out, err := s.cfg.Portfolio.Transactions(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// === PAPER TRADING ===

func (s *Server) handlePaperSummary(w http.ResponseWriter, r *http.Request) {
	prices := s.openPositionPrices(r)
	summary, err := s.cfg.Paper.PortfolioSummary(prices)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePaperTrades(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	trades, err := s.cfg.PaperRepo.Trades(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handlePaperReset(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Paper.Reset(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// openPositionPrices quotes every open paper position, falling back to
// entry prices inside the summary when a quote is unavailable.
func (s *Server) openPositionPrices(r *http.Request) map[string]float64 {
	positions, err := s.cfg.PaperRepo.OpenPositions()
	if err != nil {
		return nil
	}
	prices := make(map[string]float64, len(positions))
	for _, pos := range positions {
		q, err := s.cfg.Prices.Quote(r.Context(), pos.Symbol, domain.ClassOfSymbol(pos.Symbol))
		if err != nil {
			continue
		}
		prices[pos.Symbol] = q.Price
	}
	return prices
}

// === BACKTESTS ===

func (s *Server) handleRecentBacktests(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	out, err := s.cfg.Backtests.Recent(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// backtestRequest is the run-backtest body. Mode selects the scoring
// path: "technical" (default) or "ai".
type backtestRequest struct {
	Name        string   `json:"name"`
	Symbols     []string `json:"symbols"`
	Days        int      `json:"days"`
	Mode        string   `json:"mode"`
	WalkForward bool     `json:"walk_forward"`
	MonteCarlo  bool     `json:"monte_carlo"`
}

// handleRunBacktest runs a backtest synchronously over the requested
// symbols and persists the result.
func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Symbols) == 0 {
		s.writeError(w, http.StatusBadRequest, "symbols are required")
		return
	}

	var score backtest.ScoreFunc
	switch req.Mode {
	case "", "technical":
		req.Mode = "technical"
		score = backtest.TechnicalScore
	case "ai":
		score = backtest.AIScore(r.Context(), s.cfg.ML,
			s.cfg.Settings.Weights(), s.cfg.Settings.Thresholds())
	default:
		s.writeError(w, http.StatusBadRequest, "mode must be technical or ai")
		return
	}
	if req.Days <= 0 {
		req.Days = 730
	}
	if req.Name == "" {
		req.Name = "backtest-" + time.Now().UTC().Format("20060102-150405")
	}

	priceData := make(map[string]domain.Series, len(req.Symbols))
	for _, symbol := range req.Symbols {
		series, err := s.cfg.Prices.History(r.Context(), symbol, domain.ClassOfSymbol(symbol), req.Days)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Backtest data fetch failed")
			continue
		}
		priceData[symbol] = series
	}
	if len(priceData) == 0 {
		s.writeError(w, http.StatusBadGateway, "no price data for requested symbols")
		return
	}

	result := s.cfg.Backtest.Run(priceData, score)

	configJSON, _ := json.Marshal(req)
	record := result.ToBacktestResult(req.Name, string(configJSON))
	if err := s.cfg.Backtests.Save(record); err != nil {
		s.log.Warn().Err(err).Msg("Backtest result save failed")
	}

	response := map[string]interface{}{"result": result, "id": record.ID}
	if req.WalkForward {
		wf := s.cfg.WalkForward.Run(priceData, score)
		response["walk_forward"] = wf
	}
	if req.MonteCarlo {
		pnls := backtest.TradePnLs(result.Trades)
		response["monte_carlo"] = backtest.MonteCarlo(pnls, result.InitialCapital, 1000, 42)
	}
	s.writeJSON(w, http.StatusOK, response)
}

// === ALERTS ===

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	unackedOnly := r.URL.Query().Get("unacknowledged") == "true"
	out, err := s.cfg.Alerts.List(limit, unackedOnly)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}
	if err := s.cfg.Alerts.Acknowledge(id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"acknowledged": id})
}

// === SETTINGS ===

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	all, err := s.cfg.Settings.GetAll()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, all)
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || len(body) == 0 {
		s.writeError(w, http.StatusBadRequest, "request body required")
		return
	}
	if !json.Valid(body) {
		s.writeError(w, http.StatusBadRequest, "value must be valid JSON")
		return
	}
	if err := s.cfg.Settings.Set(key, string(body)); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

// === HELPERS ===

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func decodeBody(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return dec.Decode(out)
}
