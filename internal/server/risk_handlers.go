package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helixtrade/helix/internal/analysis"
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/internal/risk"
)

// handleRiskPlan sizes the most recent signal for a symbol into a
// risk-gated trade plan against the paper portfolio.
func (s *Server) handleRiskPlan(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	class := domain.ClassOfSymbol(symbol)

	recent, err := s.cfg.Signals.History(symbol, 7)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(recent) == 0 {
		s.writeError(w, http.StatusNotFound, "no recent signal for symbol")
		return
	}
	// History is ordered oldest first; plan from the newest signal.
	sig := recent[len(recent)-1]

	quote, err := s.cfg.Prices.Quote(r.Context(), symbol, class)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	var atr *float64
	if history, err := s.cfg.Prices.History(r.Context(), symbol, class, 60); err == nil {
		if a, ok := analysis.LatestATR(history); ok {
			atr = &a
		}
	}

	prices := s.openPositionPrices(r)
	summary, err := s.cfg.Paper.PortfolioSummary(prices)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var cryptoValue float64
	for _, pos := range summary.Positions {
		if domain.ClassOfSymbol(pos.Symbol) == domain.AssetCrypto {
			cryptoValue += pos.Quantity * pos.CurrentPrice
		}
	}

	// The paper book has no persisted equity history; the gate sees the
	// span from initial capital to the current mark.
	plan := s.cfg.Risk.BuildPlan(risk.PlanInput{
		Signal:         sig,
		AssetClass:     class,
		CurrentPrice:   quote.Price,
		ATR:            atr,
		PortfolioValue: summary.TotalValue,
		Cash:           summary.Cash,
		EquityCurve:    []float64{summary.InitialCapital, summary.TotalValue},
		CryptoValue:    cryptoValue,
	})
	s.writeJSON(w, http.StatusOK, plan)
}
