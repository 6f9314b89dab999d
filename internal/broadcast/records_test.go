package broadcast

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func putF64(buf []byte, bo binary.ByteOrder, v float64) {
	bo.PutUint64(buf, math.Float64bits(v))
}

func TestParseTicker(t *testing.T) {
	bo := binary.BigEndian
	payload := make([]byte, 2+tickerRecordSize)
	bo.PutUint16(payload[0:2], 1)
	r := payload[2:]
	bo.PutUint32(r[0:4], 53001)   // token
	bo.PutUint16(r[4:6], 2)       // market type
	bo.PutUint32(r[6:10], 12345)  // fill price, paise
	bo.PutUint32(r[10:14], 75)    // fill volume
	bo.PutUint32(r[14:18], 98000) // open interest

	recs, err := ParseTicker(payload, bo, false)
	if err != nil {
		t.Fatalf("ParseTicker: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Token != 53001 || rec.FillPrice != 123.45 || rec.FillVolume != 75 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.OpenInterest != 98000 {
		t.Errorf("open interest = %d, want 98000", rec.OpenInterest)
	}
}

func TestParseTicker_Enhanced64BitOI(t *testing.T) {
	bo := binary.BigEndian
	payload := make([]byte, 2+enhTickerRecordSize)
	bo.PutUint16(payload[0:2], 1)
	r := payload[2:]
	bo.PutUint32(r[0:4], 35001)
	bo.PutUint32(r[6:10], 200)
	bo.PutUint64(r[14:22], 5_000_000_000) // beyond uint32 range

	recs, err := ParseTicker(payload, bo, true)
	if err != nil {
		t.Fatalf("ParseTicker: %v", err)
	}
	if recs[0].OpenInterest != 5_000_000_000 {
		t.Errorf("open interest = %d, want 5000000000", recs[0].OpenInterest)
	}
}

func TestParseTicker_Truncated(t *testing.T) {
	bo := binary.BigEndian
	payload := make([]byte, 2+tickerRecordSize)
	bo.PutUint16(payload[0:2], 3) // claims 3 records, carries 1

	if _, err := ParseTicker(payload, bo, false); !errors.Is(err, ErrTruncatedPayload) {
		t.Fatalf("expected ErrTruncatedPayload, got %v", err)
	}
}

func TestParseOnlyMBP(t *testing.T) {
	bo := binary.BigEndian
	payload := make([]byte, 2+onlyMBPRecordSize)
	bo.PutUint16(payload[0:2], 1)
	r := payload[2:]
	bo.PutUint32(r[0:4], 40015)    // token
	bo.PutUint32(r[8:12], 123400)  // volume
	bo.PutUint32(r[12:16], 150050) // ltp -> 1500.50
	bo.PutUint32(r[22:26], 50)     // ltq
	bo.PutUint32(r[26:30], 36000)  // ltt
	bo.PutUint32(r[30:34], 149980) // atp
	// Best bid and ask.
	bo.PutUint32(r[56:60], 100)    // bid qty
	bo.PutUint32(r[60:64], 150025) // bid price
	bo.PutUint16(r[64:66], 3)      // bid orders
	s := r[56+5*12:]
	bo.PutUint32(s[0:4], 80)
	bo.PutUint32(s[4:8], 150075)
	bo.PutUint16(s[8:10], 2)
	putF64(r[180:188], bo, 5000)
	putF64(r[188:196], bo, 4200)
	bo.PutUint32(r[198:202], 148000) // close
	bo.PutUint32(r[202:206], 149000) // open
	bo.PutUint32(r[206:210], 151000) // high
	bo.PutUint32(r[210:214], 147500) // low

	recs, err := ParseOnlyMBP(payload, bo)
	if err != nil {
		t.Fatalf("ParseOnlyMBP: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Token != 40015 || rec.LTP != 1500.50 || rec.LTQ != 50 {
		t.Errorf("touchline mismatch: %+v", rec)
	}
	if rec.Bids[0].Price != 1500.25 || rec.Bids[0].Qty != 100 || rec.Bids[0].Orders != 3 {
		t.Errorf("best bid mismatch: %+v", rec.Bids[0])
	}
	if rec.Asks[0].Price != 1500.75 || rec.Asks[0].Qty != 80 {
		t.Errorf("best ask mismatch: %+v", rec.Asks[0])
	}
	if rec.TotalBuyQty != 5000 || rec.TotalSellQty != 4200 {
		t.Errorf("aggregate quantities mismatch: buy=%v sell=%v", rec.TotalBuyQty, rec.TotalSellQty)
	}
	if rec.Open != 1490 || rec.High != 1510 || rec.Low != 1475 || rec.Close != 1480 {
		t.Errorf("OHLC mismatch: %+v", rec)
	}
}

func TestParseIndices(t *testing.T) {
	bo := binary.BigEndian
	payload := make([]byte, 2+indexRecordSize)
	bo.PutUint16(payload[0:2], 1)
	r := payload[2:]
	copy(r[0:21], "NIFTY 50")
	bo.PutUint32(r[21:25], 2234560) // 22345.60
	bo.PutUint32(r[25:29], 2240000)
	bo.PutUint32(r[29:33], 2228000)
	bo.PutUint32(r[33:37], 2230000)
	bo.PutUint32(r[37:41], 2232000)
	bo.PutUint32(r[41:45], uint32(0xFFFFFFF6)) // -10 -> -0.10%

	recs, err := ParseIndices(payload, bo)
	if err != nil {
		t.Fatalf("ParseIndices: %v", err)
	}
	rec := recs[0]
	if rec.Name != "NIFTY 50" {
		t.Errorf("name = %q, want %q", rec.Name, "NIFTY 50")
	}
	if rec.Value != 22345.60 {
		t.Errorf("value = %v, want 22345.60", rec.Value)
	}
	if rec.PercentChange != -0.10 {
		t.Errorf("percent change = %v, want -0.10", rec.PercentChange)
	}
}

func TestParseMarketWatch(t *testing.T) {
	bo := binary.BigEndian
	payload := make([]byte, 2+mktWatchRecordSize)
	bo.PutUint16(payload[0:2], 1)
	r := payload[2:]
	bo.PutUint32(r[0:4], 35002)
	w := r[4:] // normal market block
	bo.PutUint32(w[2:6], 150)    // buy volume
	bo.PutUint32(w[6:10], 9900)  // buy price
	bo.PutUint32(w[10:14], 120)  // sell volume
	bo.PutUint32(w[14:18], 9950) // sell price
	bo.PutUint32(r[82:86], 4400) // open interest

	recs, err := ParseMarketWatch(payload, bo, false)
	if err != nil {
		t.Fatalf("ParseMarketWatch: %v", err)
	}
	rec := recs[0]
	if rec.Token != 35002 || rec.OpenInterest != 4400 {
		t.Errorf("record mismatch: %+v", rec)
	}
	normal := rec.Markets[0]
	if normal.BuyPrice != 99 || normal.SellPrice != 99.50 || normal.BuyQty != 150 || normal.SellQty != 120 {
		t.Errorf("normal market touch mismatch: %+v", normal)
	}
}

func TestParseLPPRange(t *testing.T) {
	bo := binary.BigEndian
	payload := make([]byte, 4+2*lppRecordSize)
	bo.PutUint32(payload[0:4], 2)
	for i := 0; i < 2; i++ {
		r := payload[4+i*lppRecordSize:]
		bo.PutUint32(r[0:4], uint32(35001+i))
		bo.PutUint32(r[4:8], 110000)
		bo.PutUint32(r[8:12], 90000)
	}

	recs, err := ParseLPPRange(payload, bo)
	if err != nil {
		t.Fatalf("ParseLPPRange: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[1].Token != 35002 || recs[1].HighBand != 1100 || recs[1].LowBand != 900 {
		t.Errorf("band mismatch: %+v", recs[1])
	}
}

func TestParseSecurityMasterChange(t *testing.T) {
	bo := binary.BigEndian
	payload := make([]byte, 131)
	bo.PutUint32(payload[0:4], 2885)
	copy(payload[4:14], "RELIANCE")
	copy(payload[14:16], "EQ")
	bo.PutUint32(payload[48:52], 100000) // freeze qty
	bo.PutUint32(payload[98:102], 1)     // lot size
	bo.PutUint32(payload[102:106], 5)    // tick, paise
	copy(payload[106:131], "RELIANCE INDUSTRIES")

	rec, err := ParseSecurityMasterChange(payload, bo)
	if err != nil {
		t.Fatalf("ParseSecurityMasterChange: %v", err)
	}
	if rec.Token != 2885 || rec.Symbol != "RELIANCE" || rec.Series != "EQ" {
		t.Errorf("identity mismatch: %+v", rec)
	}
	if rec.TickSize != 0.05 || rec.LotSize != 1 || rec.FreezeQty != 100000 {
		t.Errorf("terms mismatch: %+v", rec)
	}
}

func TestParseBSEMarketPicture(t *testing.T) {
	bo := binary.LittleEndian
	payload := make([]byte, 2*bseRecordSlotSize)
	r := payload[:bseRecordSlotSize]
	bo.PutUint32(r[0:4], 842364)   // token
	bo.PutUint32(r[4:8], 450000)   // open
	bo.PutUint32(r[8:12], 448000)  // prev close
	bo.PutUint32(r[12:16], 455000) // high
	bo.PutUint32(r[16:20], 447000) // low
	bo.PutUint32(r[24:28], 12000)  // volume
	bo.PutUint32(r[36:40], 452025) // ltp
	bo.PutUint32(r[76:80], 430000) // lower circuit
	bo.PutUint32(r[80:84], 470000) // upper circuit
	bo.PutUint32(r[84:88], 451000) // atp
	// Interleaved depth: bid level 0 then ask level 0.
	bo.PutUint32(r[104:108], 452000)
	bo.PutUint32(r[108:112], 40)
	bo.PutUint32(r[120:124], 452050)
	bo.PutUint32(r[124:128], 55)
	// Second slot left zero: padding, must be skipped.

	recs, err := ParseBSEMarketPicture(payload, bo)
	if err != nil {
		t.Fatalf("ParseBSEMarketPicture: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1 (zero slot skipped)", len(recs))
	}
	rec := recs[0]
	if rec.Token != 842364 || rec.LTP != 4520.25 || rec.Close != 4480 {
		t.Errorf("touchline mismatch: %+v", rec)
	}
	if rec.Bids[0].Price != 4520 || rec.Bids[0].Qty != 40 {
		t.Errorf("bid mismatch: %+v", rec.Bids[0])
	}
	if rec.Asks[0].Price != 4520.50 || rec.Asks[0].Qty != 55 {
		t.Errorf("ask mismatch: %+v", rec.Asks[0])
	}
	if rec.UpperCircuit != 4700 || rec.LowerCircuit != 4300 {
		t.Errorf("circuit bands mismatch: %+v", rec)
	}
}

func TestParseBSEImpliedVol(t *testing.T) {
	bo := binary.LittleEndian
	payload := make([]byte, 2+bseIVRecordSize)
	bo.PutUint16(payload[0:2], 1)
	r := payload[2:]
	bo.PutUint32(r[0:4], 861501)
	bo.PutUint64(r[4:12], 1850) // 18.50% x100

	recs, err := ParseBSEImpliedVol(payload, bo)
	if err != nil {
		t.Fatalf("ParseBSEImpliedVol: %v", err)
	}
	if recs[0].Token != 861501 {
		t.Errorf("token = %d, want 861501", recs[0].Token)
	}
	if iv := recs[0].ImpliedVol; math.Abs(iv-0.1850) > 1e-12 {
		t.Errorf("implied vol = %v, want 0.1850", iv)
	}
}

func TestParseBSEOpenInterest(t *testing.T) {
	bo := binary.LittleEndian
	payload := make([]byte, 2+bseOIRecordSize)
	bo.PutUint16(payload[0:2], 1)
	r := payload[2:]
	bo.PutUint32(r[0:4], 861501)
	bo.PutUint64(r[4:12], 7_500_000)
	bo.PutUint32(r[20:24], uint32(0xFFFFF060)) // -4000 change

	recs, err := ParseBSEOpenInterest(payload, bo)
	if err != nil {
		t.Fatalf("ParseBSEOpenInterest: %v", err)
	}
	if recs[0].OI != 7_500_000 || recs[0].OIChange != -4000 {
		t.Errorf("OI mismatch: %+v", recs[0])
	}
}

func TestParseOpenPrice(t *testing.T) {
	bo := binary.BigEndian
	payload := make([]byte, 8)
	bo.PutUint32(payload[0:4], 2885)
	bo.PutUint32(payload[4:8], 250075)

	rec, err := ParseOpenPrice(payload, bo)
	if err != nil {
		t.Fatalf("ParseOpenPrice: %v", err)
	}
	if rec.Token != 2885 || rec.OpenPrice != 2500.75 {
		t.Errorf("record mismatch: %+v", rec)
	}
}
