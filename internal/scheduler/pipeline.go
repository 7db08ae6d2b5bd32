package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixtrade/helix/internal/analysis"
	"github.com/helixtrade/helix/internal/cache"
	"github.com/helixtrade/helix/internal/clients"
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/internal/fusion"
	"github.com/helixtrade/helix/internal/modules/papertrading"
	"github.com/helixtrade/helix/internal/modules/settings"
	"github.com/helixtrade/helix/internal/modules/signals"
)

const (
	// maxParallelSymbols bounds the per-symbol fan-out.
	maxParallelSymbols = 8

	// historyDays covers SMA200 plus warmup with margin.
	historyDays = 400
)

// Pipeline states.
const (
	stateIdle int32 = iota
	stateRunning
	stateStopping
)

// PipelineDeps are the collaborators of the scan pipeline. Market,
// fundamentals, news, social and sentiment model may be nil; the
// corresponding factors are then simply omitted from fusion.
type PipelineDeps struct {
	Settings *settings.Repository
	Signals  *signals.Repository
	Cache    *cache.Cache
	Prices   *clients.PriceProvider
	ML       *analysis.MLService
	Weights  *fusion.WeightLearner
	Accuracy *analysis.AccuracyTracker
	Paper    *papertrading.Engine

	Market       clients.MarketDataSource
	Fundamentals clients.FundamentalsSource
	News         clients.NewsSource
	Social       clients.SocialSource
	Sentiment    clients.SentimentModel

	Notifier   clients.Notifier
	NotifyDest string
}

// Pipeline executes one full signal scan: accuracy pass, global factors,
// bounded per-symbol fan-out, fusion, persistence, notification and the
// paper trading tick. One scan runs at a time; a second start while
// running is a no-op.
type Pipeline struct {
	deps PipelineDeps
	log  zerolog.Logger

	state  atomic.Int32
	cancel struct {
		sync.Mutex
		fn context.CancelFunc
	}

	summaryMu      sync.Mutex
	lastSummaryDay string
}

func NewPipeline(deps PipelineDeps, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		deps: deps,
		log:  log.With().Str("component", "scan").Logger(),
	}
}

// State reports the pipeline lifecycle state.
func (p *Pipeline) State() string {
	switch p.state.Load() {
	case stateRunning:
		return "running"
	case stateStopping:
		return "stopping"
	default:
		return "idle"
	}
}

// Stop cancels a running scan. Cancellation is observed between symbols,
// never mid-computation.
func (p *Pipeline) Stop() {
	if !p.state.CompareAndSwap(stateRunning, stateStopping) {
		return
	}
	p.cancel.Lock()
	if p.cancel.fn != nil {
		p.cancel.fn()
	}
	p.cancel.Unlock()
	p.log.Info().Msg("Scan stop requested")
}

// scanTally accumulates per-symbol outcomes across workers.
type scanTally struct {
	mu      sync.Mutex
	scanned int
	skipped int
	buys    []string
	sells   []string
}

// Scan runs one full pass over the watchlist. Idempotent: returns
// immediately when a scan is already in flight.
func (p *Pipeline) Scan(ctx context.Context) error {
	if !p.state.CompareAndSwap(stateIdle, stateRunning) {
		p.log.Info().Msg("Scan already running, skipping")
		return nil
	}
	defer p.state.Store(stateIdle)

	ctx, cancel := context.WithCancel(ctx)
	p.cancel.Lock()
	p.cancel.fn = cancel
	p.cancel.Unlock()
	defer cancel()

	started := time.Now()
	p.log.Info().Msg("Scan started")

	if _, err := p.deps.Accuracy.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.log.Warn().Err(err).Msg("Accuracy pass failed")
	}

	globals := p.globalSignals(ctx)
	weights := p.deps.Weights.Weights(p.deps.Settings.Weights())
	base := p.deps.Settings.Thresholds()

	type entry struct {
		symbol string
		class  domain.AssetClass
	}
	var watchlist []entry
	for _, s := range p.deps.Settings.WatchlistStocks() {
		watchlist = append(watchlist, entry{s, domain.AssetStock})
	}
	for _, s := range p.deps.Settings.WatchlistCrypto() {
		watchlist = append(watchlist, entry{s, domain.AssetCrypto})
	}

	tally := &scanTally{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSymbols)
	for _, e := range watchlist {
		e := e
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			sig, ok := p.processSymbol(gctx, e.symbol, e.class, globals, weights, base)
			tally.mu.Lock()
			defer tally.mu.Unlock()
			if !ok {
				tally.skipped++
				return nil
			}
			tally.scanned++
			switch sig.Direction {
			case domain.DirectionBuy:
				tally.buys = append(tally.buys, e.symbol)
			case domain.DirectionSell:
				tally.sells = append(tally.sells, e.symbol)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.log.Warn().Err(err).Msg("Scan interrupted")
		return err
	}

	p.paperTick(ctx)
	p.dailySummary(ctx, tally)

	p.log.Info().
		Int("scanned", tally.scanned).
		Int("skipped", tally.skipped).
		Int("buys", len(tally.buys)).
		Int("sells", len(tally.sells)).
		Dur("elapsed", time.Since(started)).
		Msg("Scan complete")
	return nil
}

// processSymbol computes every factor for one symbol, fuses, persists the
// signal, notifies on BUY/SELL and ticks the paper engine.
func (p *Pipeline) processSymbol(ctx context.Context, symbol string, class domain.AssetClass,
	globals globalFactors, weights domain.Weights, base domain.Thresholds) (domain.Signal, bool) {

	history, err := p.deps.Prices.History(ctx, symbol, class, historyDays)
	if err != nil || len(history) == 0 {
		p.log.Debug().Err(err).Str("symbol", symbol).Msg("No price history, skipping")
		return domain.Signal{}, false
	}
	last, _ := history.Last()
	if last.Close <= 0 {
		return domain.Signal{}, false
	}

	mtf := analysis.MultiTimeframe(history, nil)
	in := domain.FusionInput{
		Symbol:         symbol,
		AssetClass:     class,
		Kind:           domain.KindScheduled,
		Technical:      analysis.TechnicalSignal(history),
		Sentiment:      p.sentimentSignal(ctx, symbol, class),
		ML:             p.mlSignal(ctx, symbol, history),
		MultiTimeframe: &mtf,
		Macro:          globals.macro,
		Breadth:        globals.breadth,
		Intermarket:    globals.intermarket,
	}
	if class == domain.AssetCrypto {
		in.FearGreed = globals.cryptoFearGreed
	} else {
		in.FearGreed = globals.fearGreed
		p.equityFactors(ctx, symbol, history, globals, &in)
	}

	sig, diag := fusion.Fuse(in, weights, base)
	if err := p.deps.Signals.Save(&sig); err != nil {
		p.log.Error().Err(err).Str("symbol", symbol).Msg("Signal save failed")
		return domain.Signal{}, false
	}

	if sig.Direction != domain.DirectionHold {
		p.notify(ctx, fmt.Sprintf("%s %s | strength %.2f conf %.2f risk %s",
			sig.Direction, symbol, sig.Strength, sig.Confidence, diag.RiskLevel))
	}

	var atr *float64
	if a, ok := analysis.LatestATR(history); ok {
		atr = &a
	}
	if _, err := p.deps.Paper.ProcessSignal(sig, last.Close, atr, diag.EffectiveThresholds); err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Paper engine rejected signal")
	}

	return sig, true
}

// paperTick marks every open paper position to market, lifting trailing
// stops and closing positions that fell through their stops. Positions
// are ticked regardless of whether their symbol is still on the
// watchlist.
func (p *Pipeline) paperTick(ctx context.Context) {
	summary, err := p.deps.Paper.PortfolioSummary(nil)
	if err != nil {
		p.log.Warn().Err(err).Msg("Paper tick skipped, summary unavailable")
		return
	}
	if len(summary.Positions) == 0 {
		return
	}

	prices := make(map[string]float64, len(summary.Positions))
	for _, pos := range summary.Positions {
		quote, err := p.deps.Prices.Quote(ctx, pos.Symbol, domain.ClassOfSymbol(pos.Symbol))
		if err != nil {
			p.log.Debug().Err(err).Str("symbol", pos.Symbol).Msg("No quote for open position")
			continue
		}
		prices[pos.Symbol] = quote.Price
	}

	stopped, err := p.deps.Paper.UpdatePositions(prices)
	if err != nil {
		p.log.Warn().Err(err).Msg("Paper position update failed")
		return
	}
	for _, pos := range stopped {
		exit := derefPrice(pos.ClosePrice)
		p.notify(ctx, fmt.Sprintf("STOP %s | exit %.2f pnl %.2f", pos.Symbol, exit, pos.RealizedPnL))
	}
}

func derefPrice(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// equityFactors attaches the equity-only factors, each under its own
// cache TTL. A failed fetch leaves the factor nil.
func (p *Pipeline) equityFactors(ctx context.Context, symbol string, history domain.Series,
	globals globalFactors, in *domain.FusionInput) {

	f := p.deps.Fundamentals
	if f == nil {
		return
	}

	var earnings domain.EarningsFilter
	err := p.deps.Cache.GetOrFill(cache.ClassEarnings, symbol, &earnings, func() (interface{}, error) {
		days, err := f.EarningsInDays(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return analysis.EarningsProximity(days), nil
	})
	if err == nil {
		in.Earnings = &earnings
	}

	var analyst domain.AnalystSignal
	err = p.deps.Cache.GetOrFill(cache.ClassAnalyst, symbol, &analyst, func() (interface{}, error) {
		ratings, err := f.AnalystRatings(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return analysis.ScoreAnalyst(*ratings), nil
	})
	if err == nil && analyst.TotalRatings > 0 {
		in.Analyst = &analyst
	}

	var short domain.ShortInterestSignal
	err = p.deps.Cache.GetOrFill(cache.ClassShortInterest, symbol, &short, func() (interface{}, error) {
		data, err := f.ShortInterest(ctx, symbol)
		if err != nil {
			return nil, err
		}
		momentum, _ := analysis.Momentum5d(history)
		return analysis.ScoreShortInterest(data.ShortFloat, data.DaysToCover, momentum), nil
	})
	if err == nil {
		in.ShortInterest = &short
	}

	var options domain.OptionsSignal
	err = p.deps.Cache.GetOrFill(cache.ClassOptions, symbol, &options, func() (interface{}, error) {
		snap, err := f.OptionsSnapshot(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return analysis.ScoreOptions(*snap), nil
	})
	if err == nil {
		in.Options = &options
	}

	if globals.sectors != nil {
		if name, err := f.Sector(ctx, symbol); err == nil {
			in.Sector = globals.sectors.ForSymbol(name)
		}
	}
}

// sentimentSignal aggregates news and social sentiment for one symbol,
// cached for the sentiment TTL. Without sources or on failure the neutral
// low-confidence signal is returned.
func (p *Pipeline) sentimentSignal(ctx context.Context, symbol string, class domain.AssetClass) domain.SentimentSignal {
	if p.deps.Sentiment == nil || (p.deps.News == nil && p.deps.Social == nil) {
		return analysis.ScoreSentiment(nil, nil)
	}

	var out domain.SentimentSignal
	err := p.deps.Cache.GetOrFill(cache.ClassSentiment, symbol, &out, func() (interface{}, error) {
		newsScores := p.newsScores(ctx, symbol)
		socialScores := p.socialScores(ctx, symbol, class)
		return analysis.ScoreSentiment(newsScores, socialScores), nil
	})
	if err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Sentiment fetch failed")
		return analysis.ScoreSentiment(nil, nil)
	}
	return out
}

// mlSignal returns the ML factor for a symbol, cached for the prediction
// TTL so repeated scans within the window reuse one inference.
func (p *Pipeline) mlSignal(ctx context.Context, symbol string, history domain.Series) domain.MLSignal {
	var out domain.MLSignal
	err := p.deps.Cache.GetOrFill(cache.ClassMLPrediction, symbol, &out, func() (interface{}, error) {
		return p.deps.ML.Signal(ctx, symbol, history), nil
	})
	if err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("ML prediction cache failed")
		return p.deps.ML.Signal(ctx, symbol, history)
	}
	return out
}

func (p *Pipeline) newsScores(ctx context.Context, symbol string) []float64 {
	if p.deps.News == nil {
		return nil
	}
	var articles []domain.NewsArticle
	err := p.deps.Cache.GetOrFill(cache.ClassNews, symbol, &articles, func() (interface{}, error) {
		return p.deps.News.Fetch(ctx, symbol)
	})
	if err != nil || len(articles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(articles))
	var texts []string
	for _, a := range articles {
		if _, dup := seen[a.Title]; dup || a.Title == "" {
			continue
		}
		seen[a.Title] = struct{}{}
		texts = append(texts, a.Title)
	}
	return p.analyzeTexts(ctx, texts)
}

func (p *Pipeline) socialScores(ctx context.Context, symbol string, class domain.AssetClass) []float64 {
	if p.deps.Social == nil {
		return nil
	}
	var texts []string
	if posts, err := p.deps.Social.FetchPosts(ctx, symbol, class); err == nil {
		for _, post := range posts {
			if post.Title != "" {
				texts = append(texts, post.Title)
			}
		}
	}
	if messages, err := p.deps.Social.FetchShortMessages(ctx, symbol); err == nil {
		texts = append(texts, messages...)
	}
	return p.analyzeTexts(ctx, texts)
}

func (p *Pipeline) analyzeTexts(ctx context.Context, texts []string) []float64 {
	if len(texts) == 0 {
		return nil
	}
	labels, err := p.deps.Sentiment.Analyze(ctx, texts)
	if err != nil {
		return nil
	}
	scores := make([]float64, 0, len(labels))
	for _, l := range labels {
		scores = append(scores, analysis.LabelScore(l))
	}
	return scores
}

// dailySummary sends one notifier message per calendar day after a scan.
func (p *Pipeline) dailySummary(ctx context.Context, tally *scanTally) {
	today := time.Now().UTC().Format("2006-01-02")
	p.summaryMu.Lock()
	if p.lastSummaryDay == today {
		p.summaryMu.Unlock()
		return
	}
	p.lastSummaryDay = today
	p.summaryMu.Unlock()

	msg := fmt.Sprintf("Daily scan summary %s: %d symbols scanned, %d skipped, BUY %v, SELL %v",
		today, tally.scanned, tally.skipped, tally.buys, tally.sells)
	p.notify(ctx, msg)
}

func (p *Pipeline) notify(ctx context.Context, message string) {
	if p.deps.Notifier == nil || p.deps.NotifyDest == "" {
		return
	}
	p.deps.Notifier.Send(ctx, p.deps.NotifyDest, message)
}
