// Package model holds the shared domain types of the broadcast pipeline:
// price rows, index rows, master contracts and the typed update events
// flowing from the demultiplexer to downstream subscribers.
package model

// Field length limits for identity strings, matching the master file layout.
const (
	MaxSymbolLen  = 31
	MaxNameLen    = 63
	MaxExpiryLen  = 15
	MaxOptTypeLen = 2
)

// DepthLevel is one price level of the order book.
type DepthLevel struct {
	Price  float64 `json:"price"`
	Qty    uint64  `json:"qty"`
	Orders uint32  `json:"orders"`
}

// Greeks holds Black-Scholes sensitivities for an option row.
type Greeks struct {
	Delta     float64 `json:"delta"`
	Gamma     float64 `json:"gamma"`
	Theta     float64 `json:"theta"`
	Vega      float64 `json:"vega"`
	Rho       float64 `json:"rho"`
	TheoPrice float64 `json:"theo_price"`
}

// PriceRow is the full in-memory state of one instrument. One row per token,
// materialised at startup from the master contract file and never freed.
// All prices are in rupees (paise fields are converted at parse time).
type PriceRow struct {
	// Identity (written at init, mutated only by master-change messages)
	Token          uint32  `json:"token"`
	Segment        Segment `json:"segment"`
	Symbol         string  `json:"symbol"`
	DisplayName    string  `json:"display_name"`
	Expiry         string  `json:"expiry"` // canonical DDMMMYYYY
	OptionType     string  `json:"option_type"`
	InstrumentType int     `json:"instrument_type"`
	LotSize        int32   `json:"lot_size"`
	TickSize       float64 `json:"tick_size"`
	StrikePrice    float64 `json:"strike_price"`
	AssetToken     uint32  `json:"asset_token"`

	// Quote
	LTP          float64 `json:"ltp"`
	LTQ          uint64  `json:"ltq"`
	LTT          uint32  `json:"ltt"` // exchange seconds
	ATP          float64 `json:"atp"`
	BestBid      float64 `json:"best_bid"`
	BestBidQty   uint64  `json:"best_bid_qty"`
	BestAsk      float64 `json:"best_ask"`
	BestAskQty   uint64  `json:"best_ask_qty"`
	TotalBuyQty  float64 `json:"total_buy_qty"`
	TotalSellQty float64 `json:"total_sell_qty"`
	Open         float64 `json:"open"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Close        float64 `json:"close"` // previous day close
	Volume       uint64  `json:"volume"`
	Value        float64 `json:"value"` // traded value
	OpenInterest int64   `json:"oi"`
	OIChangePct  float64 `json:"oi_change_pct"`
	High52Wk     float64 `json:"high_52wk"`
	Low52Wk      float64 `json:"low_52wk"`
	LifeHigh     float64 `json:"life_high"`
	LifeLow      float64 `json:"life_low"`

	// Depth (5 levels per side)
	Bids [5]DepthLevel `json:"bids"`
	Asks [5]DepthLevel `json:"asks"`

	// Circuit limits (7220 / 2034)
	UpperCircuit float64 `json:"upper_circuit"`
	LowerCircuit float64 `json:"lower_circuit"`

	// Volatility and derived greeks (greeks service writes these)
	ImpliedVol float64 `json:"iv"`
	Greeks     Greeks  `json:"greeks"`

	// Feed metadata
	BcastSeq  uint32 `json:"bcast_seq"`
	UpdatedAt int64  `json:"updated_at"` // unix microseconds of last write
}

// Key returns the packed (segment, token) key for this row.
func (r *PriceRow) Key() int64 {
	return PackKey(r.Segment, r.Token)
}

// IsOption reports whether this row represents an option contract.
func (r *PriceRow) IsOption() bool {
	return r.OptionType == "CE" || r.OptionType == "PE"
}
