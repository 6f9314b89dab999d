package model

import "strconv"

// Contract is one instrument descriptor from the exchange master file.
type Contract struct {
	Exchange       string  `json:"exchange"`
	Segment        Segment `json:"segment"`
	Token          uint32  `json:"token"`
	InstrumentType int     `json:"instrument_type"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Series         string  `json:"series"`
	NameWithSeries string  `json:"name_with_series"`
	InstrumentID   string  `json:"instrument_id"`
	DisplayName    string  `json:"display_name"`
	ISIN           string  `json:"isin"`
	OptionType     string  `json:"option_type"` // CE, PE or XX
	Expiry         string  `json:"expiry"`      // canonical DDMMMYYYY, empty for cash
	StrikePrice    float64 `json:"strike_price"`
	TickSize       float64 `json:"tick_size"`
	PriceBandHigh  float64 `json:"price_band_high"`
	PriceBandLow   float64 `json:"price_band_low"`
	LotSize        int     `json:"lot_size"`
	FreezeQty      int     `json:"freeze_qty"`
	Multiplier     int     `json:"multiplier"`
	AssetToken     uint32  `json:"asset_token"`
}

// Key returns a unique human-readable key for this contract: "exchange:token".
func (c *Contract) Key() string {
	return c.Exchange + ":" + strconv.FormatUint(uint64(c.Token), 10)
}
