package greeks

import (
	"context"
	"log/slog"
	"time"

	"feedenginev1/internal/metrics"
	"feedenginev1/internal/model"
	"feedenginev1/internal/store"
)

// Service periodically sweeps the option rows of one or more price stores
// and writes Black-Scholes greeks back. It runs off the feed threads; the
// stores' locking makes the read-compute-write cycle safe.
type Service struct {
	stores      []*store.PriceStore
	riskFree    float64
	defaultIV   float64
	interval    time.Duration
	tradingDays bool
	met         *metrics.Metrics
	log         *slog.Logger
}

// Config carries the service knobs.
type Config struct {
	RiskFreeRate float64       // continuously compounded, e.g. 0.07
	DefaultIV    float64       // fallback sigma when the feed has none
	Interval     time.Duration // sweep period
	TradingDays  bool          // use 252-day trading calendar for T
}

func NewService(stores []*store.PriceStore, cfg Config, met *metrics.Metrics, log *slog.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Service{
		stores:      stores,
		riskFree:    cfg.RiskFreeRate,
		defaultIV:   cfg.DefaultIV,
		interval:    cfg.Interval,
		tradingDays: cfg.TradingDays,
		met:         met,
		log:         log.With(slog.String("component", "greeks")),
	}
}

// Run sweeps until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info("enrichment started",
		slog.Duration("interval", s.interval),
		slog.Float64("risk_free", s.riskFree))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("enrichment stopped")
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Sweep runs one enrichment pass over every store.
func (s *Service) Sweep(now time.Time) {
	start := time.Now()
	enriched := 0
	for _, st := range s.stores {
		for _, token := range st.Tokens() {
			row, err := st.Snapshot(token)
			if err != nil || !row.IsOption() {
				continue
			}
			res, ok := s.evaluate(&row, st, now)
			if !ok {
				continue
			}
			st.UpdateGreeks(token, model.Greeks{
				Delta:     res.Delta,
				Gamma:     res.Gamma,
				Theta:     res.Theta,
				Vega:      res.Vega,
				Rho:       res.Rho,
				TheoPrice: res.Price,
			})
			enriched++
		}
	}
	if s.met != nil {
		s.met.GreeksComputeDur.Observe(time.Since(start).Seconds())
		s.met.GreeksTotal.Add(float64(enriched))
	}
}

// evaluate assembles the Black-Scholes input for one option row. The spot
// comes from the underlying's row via the asset token; rows without a
// priced underlying are skipped.
func (s *Service) evaluate(row *model.PriceRow, st *store.PriceStore, now time.Time) (Result, bool) {
	spot := 0.0
	if row.AssetToken != 0 {
		if under, err := st.Snapshot(row.AssetToken); err == nil {
			spot = under.LTP
		}
	}
	if spot <= 0 {
		return Result{}, false
	}

	sigma := row.ImpliedVol
	if sigma <= 0 {
		sigma = s.defaultIV
	}
	if sigma <= 0 {
		return Result{}, false
	}

	exp, err := ParseExpiry(row.Expiry)
	if err != nil {
		return Result{}, false
	}
	var t float64
	if s.tradingDays {
		t = TradingYears(exp, now)
	} else {
		t = CalendarYears(exp, now)
	}

	return Calculate(Input{
		Spot:       spot,
		Strike:     row.StrikePrice,
		TimeToExp:  t,
		RiskFree:   s.riskFree,
		Volatility: sigma,
		IsCall:     row.OptionType == "CE",
	}), true
}
