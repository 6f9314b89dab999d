package store

import (
	"errors"
	"sync"
	"testing"

	"feedenginev1/internal/model"
)

func newTestStore(t *testing.T) *PriceStore {
	t.Helper()
	s := NewPriceStore(model.SegmentNSEFO, 35000, 36000)
	err := s.InitToken(&model.Contract{
		Token:       35001,
		Name:        "NIFTY",
		DisplayName: "NIFTY 28AUG2025 22000 CE",
		Expiry:      "28AUG2025",
		OptionType:  "CE",
		StrikePrice: 22000,
		LotSize:     75,
		TickSize:    0.05,
	})
	if err != nil {
		t.Fatalf("InitToken: %v", err)
	}
	return s
}

func TestPriceStore_InitAndSnapshot(t *testing.T) {
	s := newTestStore(t)

	row, err := s.Snapshot(35001)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if row.Token != 35001 || row.Symbol != "NIFTY" || row.StrikePrice != 22000 {
		t.Errorf("identity mismatch: %+v", row)
	}
	if row.Segment != model.SegmentNSEFO {
		t.Errorf("segment = %v, want NSEFO", row.Segment)
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1", s.Count())
	}
}

func TestPriceStore_UnknownToken(t *testing.T) {
	s := newTestStore(t)

	cases := []uint32{34999, 36001, 35500} // below range, above range, uninitialised
	for _, token := range cases {
		if _, err := s.Snapshot(token); !errors.Is(err, ErrUnknownToken) {
			t.Errorf("Snapshot(%d): expected ErrUnknownToken, got %v", token, err)
		}
		if err := s.UpdateQuote(token, QuoteUpdate{LTP: 1}); !errors.Is(err, ErrUnknownToken) {
			t.Errorf("UpdateQuote(%d): expected ErrUnknownToken, got %v", token, err)
		}
	}
}

func TestPriceStore_InitTokenOutOfRange(t *testing.T) {
	s := NewPriceStore(model.SegmentNSEFO, 35000, 36000)
	err := s.InitToken(&model.Contract{Token: 99999})
	if !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}

func TestPriceStore_UpdateQuoteThenSnapshot(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateQuote(35001, QuoteUpdate{
		LTP: 19800.50, LTQ: 50, LTT: 36000,
		Open: 19750, High: 19900, Low: 19600, Close: 19700,
		Volume: 123400, TotalBuyQty: 5000, TotalSellQty: 4200,
		BcastSeq: 77,
	})
	if err != nil {
		t.Fatalf("UpdateQuote: %v", err)
	}

	row, err := s.Snapshot(35001)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if row.LTP != 19800.50 || row.LTQ != 50 || row.Volume != 123400 {
		t.Errorf("quote mismatch: %+v", row)
	}
	if row.BcastSeq != 77 {
		t.Errorf("BcastSeq = %d, want 77", row.BcastSeq)
	}
	if row.UpdatedAt == 0 {
		t.Error("UpdatedAt not stamped")
	}
}

func TestPriceStore_UpdateDepthTracksBest(t *testing.T) {
	s := newTestStore(t)

	var u DepthUpdate
	u.Bids[0] = model.DepthLevel{Price: 19800.00, Qty: 100, Orders: 3}
	u.Asks[0] = model.DepthLevel{Price: 19800.75, Qty: 80, Orders: 2}
	if err := s.UpdateDepth(35001, u); err != nil {
		t.Fatalf("UpdateDepth: %v", err)
	}

	row, _ := s.Snapshot(35001)
	if row.BestBid != 19800.00 || row.BestAsk != 19800.75 {
		t.Errorf("best bid/ask = %v/%v, want 19800.00/19800.75", row.BestBid, row.BestAsk)
	}
	if row.Bids[0].Orders != 3 || row.Asks[0].Qty != 80 {
		t.Errorf("ladder mismatch: %+v / %+v", row.Bids[0], row.Asks[0])
	}
}

func TestPriceStore_TickerAccumulatesVolume(t *testing.T) {
	s := newTestStore(t)

	s.UpdateTicker(35001, TickerUpdate{FillPrice: 100, FillVolume: 10, OpenInterest: 1000})
	s.UpdateTicker(35001, TickerUpdate{FillPrice: 101, FillVolume: 15, OpenInterest: 1100})

	row, _ := s.Snapshot(35001)
	if row.Volume != 25 {
		t.Errorf("Volume = %d, want 25", row.Volume)
	}
	if row.LTP != 101 || row.OpenInterest != 1100 {
		t.Errorf("ticker mismatch: %+v", row)
	}
	if row.OIChangePct != 10 {
		t.Errorf("OIChangePct = %v, want 10", row.OIChangePct)
	}
}

func TestPriceStore_MasterChangeKeepsQuote(t *testing.T) {
	s := newTestStore(t)

	s.UpdateQuote(35001, QuoteUpdate{LTP: 42})
	err := s.UpdateMaster(35001, MasterUpdate{Symbol: "NIFTYNXT", LotSize: 25})
	if err != nil {
		t.Fatalf("UpdateMaster: %v", err)
	}

	row, _ := s.Snapshot(35001)
	if row.Symbol != "NIFTYNXT" || row.LotSize != 25 {
		t.Errorf("identity not updated: %+v", row)
	}
	if row.LTP != 42 {
		t.Errorf("quote clobbered by master change: LTP = %v", row.LTP)
	}
	if row.TickSize != 0.05 {
		t.Errorf("zero-valued field overwrote tick size: %v", row.TickSize)
	}
}

func TestPriceStore_ConcurrentReaders(t *testing.T) {
	s := newTestStore(t)

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				row, err := s.Snapshot(35001)
				if err != nil {
					t.Errorf("Snapshot: %v", err)
					return
				}
				// A snapshot must be internally consistent: LTQ moves
				// with LTP in the writer below.
				if row.LTP != 0 && row.LTQ != uint64(row.LTP) {
					t.Errorf("torn snapshot: LTP=%v LTQ=%d", row.LTP, row.LTQ)
					return
				}
			}
		}()
	}

	for i := 1; i <= 1000; i++ {
		s.UpdateQuote(35001, QuoteUpdate{LTP: float64(i), LTQ: uint64(i)})
	}
	close(done)
	wg.Wait()
}
