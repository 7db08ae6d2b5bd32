package clients

// External bundles the vendor client implementations. Every field may be
// nil; the pipeline then omits the corresponding factor and the price
// layer returns ErrNoData.
type External struct {
	StockPrices  PriceSource
	CryptoPrices PriceSource
	News         NewsSource
	Social       SocialSource
	Sentiment    SentimentModel
	ML           MLScorer
	Market       MarketDataSource
	Fundamentals FundamentalsSource
	Notifier     Notifier
}

var registered External

// Register installs the vendor clients, typically from an init function
// in a build-tagged vendor package. Later registrations override earlier
// non-nil fields only.
func Register(ext External) {
	if ext.StockPrices != nil {
		registered.StockPrices = ext.StockPrices
	}
	if ext.CryptoPrices != nil {
		registered.CryptoPrices = ext.CryptoPrices
	}
	if ext.News != nil {
		registered.News = ext.News
	}
	if ext.Social != nil {
		registered.Social = ext.Social
	}
	if ext.Sentiment != nil {
		registered.Sentiment = ext.Sentiment
	}
	if ext.ML != nil {
		registered.ML = ext.ML
	}
	if ext.Market != nil {
		registered.Market = ext.Market
	}
	if ext.Fundamentals != nil {
		registered.Fundamentals = ext.Fundamentals
	}
	if ext.Notifier != nil {
		registered.Notifier = ext.Notifier
	}
}

// Registered returns the currently installed vendor clients.
func Registered() External {
	return registered
}
