// Package store holds the in-memory market state written by the feed
// threads: a dense token-indexed price table per segment and a sparse
// index table. Parent of the redis and sqlite sub-packages that persist
// slices of this state.
package store

import (
	"errors"
	"sync"
	"time"

	"feedenginev1/internal/model"
)

// ErrUnknownToken is returned when a token is outside the store's range or
// its slot was never initialised from the master file. Callers count the
// failure and drop the update.
var ErrUnknownToken = errors.New("store: unknown token")

// QuoteUpdate carries the touchline fields of a trade-bearing record.
type QuoteUpdate struct {
	LTP          float64
	LTQ          uint64
	LTT          uint32
	ATP          float64
	Volume       uint64
	Value        float64
	Open         float64
	High         float64
	Low          float64
	Close        float64
	TotalBuyQty  float64
	TotalSellQty float64
	BcastSeq     uint32
}

// DepthUpdate carries a full five-level ladder. Best bid/ask mirror
// level zero.
type DepthUpdate struct {
	Bids [5]model.DepthLevel
	Asks [5]model.DepthLevel
}

// TickerUpdate carries a fill report with open interest.
type TickerUpdate struct {
	FillPrice    float64
	FillVolume   uint64
	OpenInterest int64
	BcastSeq     uint32
}

// MasterUpdate carries the identity fields a mid-session master-change
// broadcast may mutate.
type MasterUpdate struct {
	Symbol      string
	DisplayName string
	LotSize     int
	TickSize    float64
}

// PriceStore is the dense per-segment price table. Slots are materialised
// once at startup from the master contract file and never freed; a nil
// slot means the token is not in this segment's universe.
//
// Writes come from the single feed goroutine that owns the segment.
// Readers take copied snapshots under the shared lock and never see a
// half-applied record.
type PriceStore struct {
	mu       sync.RWMutex
	segment  model.Segment
	minToken uint32
	maxToken uint32
	rows     []*model.PriceRow
	count    int
}

// NewPriceStore allocates the slot array for tokens in [minToken, maxToken].
func NewPriceStore(segment model.Segment, minToken, maxToken uint32) *PriceStore {
	if maxToken < minToken {
		minToken, maxToken = maxToken, minToken
	}
	return &PriceStore{
		segment:  segment,
		minToken: minToken,
		maxToken: maxToken,
		rows:     make([]*model.PriceRow, maxToken-minToken+1),
	}
}

func (s *PriceStore) Segment() model.Segment { return s.segment }

// Range returns the inclusive token bounds the store was sized for.
func (s *PriceStore) Range() (uint32, uint32) { return s.minToken, s.maxToken }

func (s *PriceStore) slot(token uint32) *model.PriceRow {
	if token < s.minToken || token > s.maxToken {
		return nil
	}
	return s.rows[token-s.minToken]
}

// InitToken materialises the slot for a contract. Called once per token at
// startup, before any feed goroutine runs; re-initialising an existing slot
// overwrites its identity and keeps its quote state zeroed.
func (s *PriceStore) InitToken(c *model.Contract) error {
	if c.Token < s.minToken || c.Token > s.maxToken {
		return ErrUnknownToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := c.Token - s.minToken
	if s.rows[idx] == nil {
		s.count++
	}
	s.rows[idx] = &model.PriceRow{
		Token:          c.Token,
		Segment:        s.segment,
		Symbol:         c.Name,
		DisplayName:    c.DisplayName,
		Expiry:         c.Expiry,
		OptionType:     c.OptionType,
		InstrumentType: c.InstrumentType,
		LotSize:        int32(c.LotSize),
		TickSize:       c.TickSize,
		StrikePrice:    c.StrikePrice,
		AssetToken:     c.AssetToken,
	}
	return nil
}

// Count returns the number of initialised slots.
func (s *PriceStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Tokens returns every initialised token, ascending. Used by scanners
// (greeks enrichment, stats) that walk the universe off the hot path.
func (s *PriceStore) Tokens() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint32, 0, s.count)
	for i, row := range s.rows {
		if row != nil {
			out = append(out, s.minToken+uint32(i))
		}
	}
	return out
}

// Snapshot copies the row for token under the shared lock.
func (s *PriceStore) Snapshot(token uint32) (model.PriceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.slot(token)
	if row == nil {
		return model.PriceRow{}, ErrUnknownToken
	}
	return *row, nil
}

// UpdateQuote applies a touchline update.
func (s *PriceStore) UpdateQuote(token uint32, u QuoteUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.slot(token)
	if row == nil {
		return ErrUnknownToken
	}
	row.LTP = u.LTP
	row.LTQ = u.LTQ
	row.LTT = u.LTT
	row.ATP = u.ATP
	row.Volume = u.Volume
	if u.Value != 0 {
		row.Value = u.Value
	}
	row.Open = u.Open
	row.High = u.High
	row.Low = u.Low
	row.Close = u.Close
	row.TotalBuyQty = u.TotalBuyQty
	row.TotalSellQty = u.TotalSellQty
	row.BcastSeq = u.BcastSeq
	row.UpdatedAt = time.Now().UnixMicro()
	return nil
}

// UpdateDepth applies a depth ladder; the best bid and ask track level zero.
func (s *PriceStore) UpdateDepth(token uint32, u DepthUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.slot(token)
	if row == nil {
		return ErrUnknownToken
	}
	row.Bids = u.Bids
	row.Asks = u.Asks
	row.BestBid = u.Bids[0].Price
	row.BestBidQty = u.Bids[0].Qty
	row.BestAsk = u.Asks[0].Price
	row.BestAskQty = u.Asks[0].Qty
	row.UpdatedAt = time.Now().UnixMicro()
	return nil
}

// UpdateTicker applies a fill report: last price, cumulative volume and
// open interest. OI change percent is derived against the previous value.
func (s *PriceStore) UpdateTicker(token uint32, u TickerUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.slot(token)
	if row == nil {
		return ErrUnknownToken
	}
	row.LTP = u.FillPrice
	row.Volume += u.FillVolume
	if prev := row.OpenInterest; prev > 0 && u.OpenInterest != 0 {
		row.OIChangePct = float64(u.OpenInterest-prev) / float64(prev) * 100
	}
	if u.OpenInterest != 0 {
		row.OpenInterest = u.OpenInterest
	}
	row.BcastSeq = u.BcastSeq
	row.UpdatedAt = time.Now().UnixMicro()
	return nil
}

// UpdateBest applies a best bid/ask pair without touching the ladder.
func (s *PriceStore) UpdateBest(token uint32, bidQty uint64, bid float64, askQty uint64, ask float64, oi int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.slot(token)
	if row == nil {
		return ErrUnknownToken
	}
	row.BestBid = bid
	row.BestBidQty = bidQty
	row.BestAsk = ask
	row.BestAskQty = askQty
	if oi != 0 {
		row.OpenInterest = oi
	}
	row.UpdatedAt = time.Now().UnixMicro()
	return nil
}

// UpdateCircuits applies the limit-price protection band.
func (s *PriceStore) UpdateCircuits(token uint32, high, low float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.slot(token)
	if row == nil {
		return ErrUnknownToken
	}
	row.UpperCircuit = high
	row.LowerCircuit = low
	row.UpdatedAt = time.Now().UnixMicro()
	return nil
}

// UpdateOpenPrice applies a day-open price notification.
func (s *PriceStore) UpdateOpenPrice(token uint32, open float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.slot(token)
	if row == nil {
		return ErrUnknownToken
	}
	row.Open = open
	row.UpdatedAt = time.Now().UnixMicro()
	return nil
}

// UpdateClosePrice applies an end-of-session close.
func (s *PriceStore) UpdateClosePrice(token uint32, close float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.slot(token)
	if row == nil {
		return ErrUnknownToken
	}
	row.Close = close
	row.UpdatedAt = time.Now().UnixMicro()
	return nil
}

// UpdateOpenInterest applies an OI report with an absolute change figure.
func (s *PriceStore) UpdateOpenInterest(token uint32, oi int64, change int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.slot(token)
	if row == nil {
		return ErrUnknownToken
	}
	row.OpenInterest = oi
	if base := oi - int64(change); base > 0 {
		row.OIChangePct = float64(change) / float64(base) * 100
	}
	row.UpdatedAt = time.Now().UnixMicro()
	return nil
}

// UpdateImpliedVol stores an exchange-provided implied volatility as a
// fraction (0.18 for 18%).
func (s *PriceStore) UpdateImpliedVol(token uint32, iv float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.slot(token)
	if row == nil {
		return ErrUnknownToken
	}
	row.ImpliedVol = iv
	row.UpdatedAt = time.Now().UnixMicro()
	return nil
}

// UpdateGreeks applies a computed sensitivity set.
func (s *PriceStore) UpdateGreeks(token uint32, g model.Greeks) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.slot(token)
	if row == nil {
		return ErrUnknownToken
	}
	row.Greeks = g
	row.UpdatedAt = time.Now().UnixMicro()
	return nil
}

// UpdateMaster applies a mid-session identity change. Zero-valued fields
// leave the current identity untouched.
func (s *PriceStore) UpdateMaster(token uint32, u MasterUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.slot(token)
	if row == nil {
		return ErrUnknownToken
	}
	if u.Symbol != "" {
		row.Symbol = u.Symbol
	}
	if u.DisplayName != "" {
		row.DisplayName = u.DisplayName
	}
	if u.LotSize > 0 {
		row.LotSize = int32(u.LotSize)
	}
	if u.TickSize > 0 {
		row.TickSize = u.TickSize
	}
	row.UpdatedAt = time.Now().UnixMicro()
	return nil
}
