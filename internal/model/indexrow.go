package model

// IndexRow is the state of one market index ("NIFTY 50", "SENSEX", ...).
// The index universe is open-ended, so these live in a hash map keyed by
// name rather than in the dense token-indexed store.
type IndexRow struct {
	Name          string  `json:"name"`
	Segment       Segment `json:"segment"`
	Value         float64 `json:"value"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percent_change"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	Close         float64 `json:"close"`
	YearlyHigh    float64 `json:"yearly_high"`
	YearlyLow     float64 `json:"yearly_low"`
	UpdatedAt     int64   `json:"updated_at"` // unix microseconds
}
