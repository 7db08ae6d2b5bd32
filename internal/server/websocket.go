package server

import (
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/helixtrade/helix/internal/domain"
)

// priceFeedInterval is the push cadence of the websocket quote feed.
const priceFeedInterval = 5 * time.Second

// handlePriceFeed streams watchlist quotes over a websocket until the
// client disconnects.
func (s *Server) handlePriceFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	ticker := time.NewTicker(priceFeedInterval)
	defer ticker.Stop()

	for {
		symbols := append(s.cfg.Settings.WatchlistStocks(), s.cfg.Settings.WatchlistCrypto()...)
		quotes := make([]domain.Quote, 0, len(symbols))
		for _, symbol := range symbols {
			q, err := s.cfg.Prices.Quote(ctx, symbol, domain.ClassOfSymbol(symbol))
			if err != nil {
				continue
			}
			quotes = append(quotes, *q)
		}

		payload := map[string]interface{}{
			"type":   "quotes",
			"time":   time.Now().UTC().Format(time.RFC3339),
			"quotes": quotes,
		}
		if err := wsjson.Write(ctx, conn, payload); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
