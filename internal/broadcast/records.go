package broadcast

import (
	"encoding/binary"
	"math"
	"strings"

	"feedenginev1/internal/model"
)

// Record parsers for the message bodies behind each transaction code.
// Every parser takes the payload that follows the 40-byte broadcast header
// and the byte order of the feed it arrived on. Offsets are fixed by the
// exchange protocol documents; parsers bounds-check before every read and
// never index past len(payload).
//
// Exchange prices travel as integer paise; parsers divide by 100 so the
// stores only ever see rupees. Index values carry the same x100 scaling.

const (
	mbombpDepthOffset = 235 // MBP ladder inside a 7200 body
	mbombpSize        = 369

	onlyMBPRecordSize = 214
	onlyMBPMaxRecords = 2

	tickerRecordSize      = 26
	tickerMaxRecords      = 17
	enhTickerRecordSize   = 38
	enhTickerMaxRecords   = 12
	mktWatchRecordSize    = 86
	mktWatchMaxRecords    = 5
	enhMktWatchRecordSize = 90

	indexRecordSize    = 71
	indexMaxRecords    = 6
	industryRecordSize = 25
	industryMaxRecords = 17

	lppRecordSize = 12
	lppMaxRecords = 25

	statusRecordSize = 12
	statusMaxRecords = 35

	bseRecordSlotSize = 264
	bseDepthOffset    = 104
	bseOIRecordSize   = 34
	bseIVRecordSize   = 72
	bseIndexSlotSize  = 120
)

func paise(v uint32) float64 { return float64(v) / 100 }

func readF64(buf []byte, bo binary.ByteOrder) float64 {
	return math.Float64frombits(bo.Uint64(buf))
}

// cstr trims a fixed-width exchange string field to its printable content.
func cstr(buf []byte) string {
	if i := strings.IndexByte(string(buf), 0); i >= 0 {
		buf = buf[:i]
	}
	return strings.TrimSpace(string(buf))
}

// TouchlineRecord is the per-token quote picture carried by 7200 and 7208:
// last trade, OHLC, aggregate order quantities and the five-level depth.
type TouchlineRecord struct {
	Token         uint32
	BookType      uint16
	TradingStatus uint16
	Volume        uint64
	LTP           float64
	LTQ           uint64
	LTT           uint32
	ATP           float64
	Open          float64
	High          float64
	Low           float64
	Close         float64
	TotalBuyQty   float64
	TotalSellQty  float64
	Bids          [5]model.DepthLevel
	Asks          [5]model.DepthLevel
}

// ParseMBOMBP decodes a 7200 BCAST_MBO_MBP_UPDATE body. The MBO half of the
// message (per-order detail) is skipped; only the touchline and the MBP
// ladder feed the store.
func ParseMBOMBP(payload []byte, bo binary.ByteOrder) (TouchlineRecord, error) {
	if len(payload) < mbombpSize {
		return TouchlineRecord{}, ErrTruncatedPayload
	}
	rec := TouchlineRecord{
		Token:         bo.Uint32(payload[0:4]),
		BookType:      bo.Uint16(payload[4:6]),
		TradingStatus: bo.Uint16(payload[6:8]),
		Volume:        uint64(bo.Uint32(payload[8:12])),
		LTP:           paise(bo.Uint32(payload[12:16])),
		LTQ:           uint64(bo.Uint32(payload[21:25])),
		LTT:           bo.Uint32(payload[25:29]),
		ATP:           paise(bo.Uint32(payload[29:33])),
		TotalBuyQty:   readF64(payload[335:343], bo),
		TotalSellQty:  readF64(payload[343:351], bo),
		Close:         paise(bo.Uint32(payload[353:357])),
		Open:          paise(bo.Uint32(payload[357:361])),
		High:          paise(bo.Uint32(payload[361:365])),
		Low:           paise(bo.Uint32(payload[365:369])),
	}
	// Ten 10-byte MBP entries: first five buys, next five sells.
	for i := 0; i < 5; i++ {
		b := payload[mbombpDepthOffset+i*10:]
		rec.Bids[i] = model.DepthLevel{
			Qty:    uint64(bo.Uint32(b[0:4])),
			Price:  paise(bo.Uint32(b[4:8])),
			Orders: uint32(bo.Uint16(b[8:10])),
		}
		s := payload[mbombpDepthOffset+(i+5)*10:]
		rec.Asks[i] = model.DepthLevel{
			Qty:    uint64(bo.Uint32(s[0:4])),
			Price:  paise(bo.Uint32(s[4:8])),
			Orders: uint32(bo.Uint16(s[8:10])),
		}
	}
	return rec, nil
}

// ParseOnlyMBP decodes a 7208 BCAST_ONLY_MBP body: a record count followed
// by up to two full touchline records with 12-byte depth entries.
func ParseOnlyMBP(payload []byte, bo binary.ByteOrder) ([]TouchlineRecord, error) {
	if len(payload) < 2 {
		return nil, ErrTruncatedPayload
	}
	n := int(bo.Uint16(payload[0:2]))
	if n > onlyMBPMaxRecords {
		n = onlyMBPMaxRecords
	}
	if len(payload) < 2+n*onlyMBPRecordSize {
		return nil, ErrTruncatedPayload
	}
	out := make([]TouchlineRecord, 0, n)
	for i := 0; i < n; i++ {
		r := payload[2+i*onlyMBPRecordSize:]
		rec := TouchlineRecord{
			Token:         bo.Uint32(r[0:4]),
			BookType:      bo.Uint16(r[4:6]),
			TradingStatus: bo.Uint16(r[6:8]),
			Volume:        uint64(bo.Uint32(r[8:12])),
			LTP:           paise(bo.Uint32(r[12:16])),
			LTQ:           uint64(bo.Uint32(r[22:26])),
			LTT:           bo.Uint32(r[26:30]),
			ATP:           paise(bo.Uint32(r[30:34])),
			TotalBuyQty:   readF64(r[180:188], bo),
			TotalSellQty:  readF64(r[188:196], bo),
			Close:         paise(bo.Uint32(r[198:202])),
			Open:          paise(bo.Uint32(r[202:206])),
			High:          paise(bo.Uint32(r[206:210])),
			Low:           paise(bo.Uint32(r[210:214])),
		}
		for lvl := 0; lvl < 5; lvl++ {
			b := r[56+lvl*12:]
			rec.Bids[lvl] = model.DepthLevel{
				Qty:    uint64(bo.Uint32(b[0:4])),
				Price:  paise(bo.Uint32(b[4:8])),
				Orders: uint32(bo.Uint16(b[8:10])),
			}
			s := r[56+(lvl+5)*12:]
			rec.Asks[lvl] = model.DepthLevel{
				Qty:    uint64(bo.Uint32(s[0:4])),
				Price:  paise(bo.Uint32(s[4:8])),
				Orders: uint32(bo.Uint16(s[8:10])),
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// TickerRecord is one fill report from the 7202/17202 ticker stream.
type TickerRecord struct {
	Token        uint32
	MarketType   uint16
	FillPrice    float64
	FillVolume   uint64
	OpenInterest int64
	DayHighOI    int64
	DayLowOI     int64
}

// ParseTicker decodes a 7202 BCAST_TICKER_AND_MKT_INDEX body (32-bit open
// interest) or, with enhanced set, a 17202 body (64-bit open interest).
func ParseTicker(payload []byte, bo binary.ByteOrder, enhanced bool) ([]TickerRecord, error) {
	recSize, maxRecs := tickerRecordSize, tickerMaxRecords
	if enhanced {
		recSize, maxRecs = enhTickerRecordSize, enhTickerMaxRecords
	}
	if len(payload) < 2 {
		return nil, ErrTruncatedPayload
	}
	n := int(bo.Uint16(payload[0:2]))
	if n > maxRecs {
		n = maxRecs
	}
	if len(payload) < 2+n*recSize {
		return nil, ErrTruncatedPayload
	}
	out := make([]TickerRecord, 0, n)
	for i := 0; i < n; i++ {
		r := payload[2+i*recSize:]
		rec := TickerRecord{
			Token:      bo.Uint32(r[0:4]),
			MarketType: bo.Uint16(r[4:6]),
			FillPrice:  paise(bo.Uint32(r[6:10])),
			FillVolume: uint64(bo.Uint32(r[10:14])),
		}
		if enhanced {
			rec.OpenInterest = int64(bo.Uint64(r[14:22]))
			rec.DayHighOI = int64(bo.Uint64(r[22:30]))
			rec.DayLowOI = int64(bo.Uint64(r[30:38]))
		} else {
			rec.OpenInterest = int64(bo.Uint32(r[14:18]))
			rec.DayHighOI = int64(bo.Uint32(r[18:22]))
			rec.DayLowOI = int64(bo.Uint32(r[22:26]))
		}
		out = append(out, rec)
	}
	return out, nil
}

// MarketWatchRecord is one 7201/17201 round-robin entry: best bid and ask
// for the three market types plus open interest.
type MarketWatchRecord struct {
	Token        uint32
	OpenInterest int64
	// Markets holds normal, odd-lot and spot market touch quotes in
	// protocol order.
	Markets [3]MarketTouch
}

// MarketTouch is the best buy and sell picture for one market type.
type MarketTouch struct {
	BuyQty    uint64
	BuyPrice  float64
	SellQty   uint64
	SellPrice float64
}

// ParseMarketWatch decodes a 7201 BCAST_MW_ROUND_ROBIN body or, with
// enhanced set, a 17201 body (64-bit open interest).
func ParseMarketWatch(payload []byte, bo binary.ByteOrder, enhanced bool) ([]MarketWatchRecord, error) {
	recSize := mktWatchRecordSize
	if enhanced {
		recSize = enhMktWatchRecordSize
	}
	if len(payload) < 2 {
		return nil, ErrTruncatedPayload
	}
	n := int(bo.Uint16(payload[0:2]))
	if n > mktWatchMaxRecords {
		n = mktWatchMaxRecords
	}
	if len(payload) < 2+n*recSize {
		return nil, ErrTruncatedPayload
	}
	out := make([]MarketWatchRecord, 0, n)
	for i := 0; i < n; i++ {
		r := payload[2+i*recSize:]
		rec := MarketWatchRecord{Token: bo.Uint32(r[0:4])}
		for m := 0; m < 3; m++ {
			// 26-byte market-wise block: 2-byte indicator then volumes
			// and prices.
			w := r[4+m*26:]
			rec.Markets[m] = MarketTouch{
				BuyQty:    uint64(bo.Uint32(w[2:6])),
				BuyPrice:  paise(bo.Uint32(w[6:10])),
				SellQty:   uint64(bo.Uint32(w[10:14])),
				SellPrice: paise(bo.Uint32(w[14:18])),
			}
		}
		if enhanced {
			rec.OpenInterest = int64(bo.Uint64(r[82:90]))
		} else {
			rec.OpenInterest = int64(bo.Uint32(r[82:86]))
		}
		out = append(out, rec)
	}
	return out, nil
}

// IndexRecord is one 7207 BCAST_INDICES entry.
type IndexRecord struct {
	Name          string
	Value         float64
	High          float64
	Low           float64
	Open          float64
	Close         float64
	PercentChange float64
	YearlyHigh    float64
	YearlyLow     float64
	UpMoves       int32
	DownMoves     int32
	MarketCap     float64
}

// ParseIndices decodes a 7207 BCAST_INDICES body: up to six 71-byte index
// records. Values carry the protocol's x100 scaling.
func ParseIndices(payload []byte, bo binary.ByteOrder) ([]IndexRecord, error) {
	if len(payload) < 2 {
		return nil, ErrTruncatedPayload
	}
	n := int(bo.Uint16(payload[0:2]))
	if n > indexMaxRecords {
		n = indexMaxRecords
	}
	if len(payload) < 2+n*indexRecordSize {
		return nil, ErrTruncatedPayload
	}
	out := make([]IndexRecord, 0, n)
	for i := 0; i < n; i++ {
		r := payload[2+i*indexRecordSize:]
		out = append(out, IndexRecord{
			Name:          cstr(r[0:21]),
			Value:         float64(int32(bo.Uint32(r[21:25]))) / 100,
			High:          float64(int32(bo.Uint32(r[25:29]))) / 100,
			Low:           float64(int32(bo.Uint32(r[29:33]))) / 100,
			Open:          float64(int32(bo.Uint32(r[33:37]))) / 100,
			Close:         float64(int32(bo.Uint32(r[37:41]))) / 100,
			PercentChange: float64(int32(bo.Uint32(r[41:45]))) / 100,
			YearlyHigh:    float64(int32(bo.Uint32(r[45:49]))) / 100,
			YearlyLow:     float64(int32(bo.Uint32(r[49:53]))) / 100,
			UpMoves:       int32(bo.Uint32(r[53:57])),
			DownMoves:     int32(bo.Uint32(r[57:61])),
			MarketCap:     readF64(r[61:69], bo),
		})
	}
	return out, nil
}

// IndustryIndexRecord is one 7203 BCAST_IND_INDICES entry.
type IndustryIndexRecord struct {
	Name  string
	Value float64
}

// ParseIndustryIndices decodes a 7203 BCAST_IND_INDICES body.
func ParseIndustryIndices(payload []byte, bo binary.ByteOrder) ([]IndustryIndexRecord, error) {
	if len(payload) < 2 {
		return nil, ErrTruncatedPayload
	}
	n := int(bo.Uint16(payload[0:2]))
	if n > industryMaxRecords {
		n = industryMaxRecords
	}
	if len(payload) < 2+n*industryRecordSize {
		return nil, ErrTruncatedPayload
	}
	out := make([]IndustryIndexRecord, 0, n)
	for i := 0; i < n; i++ {
		r := payload[2+i*industryRecordSize:]
		out = append(out, IndustryIndexRecord{
			Name:  cstr(r[0:21]),
			Value: float64(int32(bo.Uint32(r[21:25]))) / 100,
		})
	}
	return out, nil
}

// LPPRecord is one 7220 limit-price protection band.
type LPPRecord struct {
	Token    uint32
	HighBand float64
	LowBand  float64
}

// ParseLPPRange decodes a 7220 BCAST_LIMIT_PRICE_PROTECTION_RANGE body:
// a 32-bit record count followed by 12-byte band entries.
func ParseLPPRange(payload []byte, bo binary.ByteOrder) ([]LPPRecord, error) {
	if len(payload) < 4 {
		return nil, ErrTruncatedPayload
	}
	n := int(bo.Uint32(payload[0:4]))
	if n > lppMaxRecords {
		n = lppMaxRecords
	}
	if len(payload) < 4+n*lppRecordSize {
		return nil, ErrTruncatedPayload
	}
	out := make([]LPPRecord, 0, n)
	for i := 0; i < n; i++ {
		r := payload[4+i*lppRecordSize:]
		out = append(out, LPPRecord{
			Token:    bo.Uint32(r[0:4]),
			HighBand: paise(bo.Uint32(r[4:8])),
			LowBand:  paise(bo.Uint32(r[8:12])),
		})
	}
	return out, nil
}

// OpenPriceRecord is the 6013 SECURITY_OPEN_PRICE body.
type OpenPriceRecord struct {
	Token     uint32
	OpenPrice float64
}

// ParseOpenPrice decodes a 6013 SECURITY_OPEN_PRICE body.
func ParseOpenPrice(payload []byte, bo binary.ByteOrder) (OpenPriceRecord, error) {
	if len(payload) < 8 {
		return OpenPriceRecord{}, ErrTruncatedPayload
	}
	return OpenPriceRecord{
		Token:     bo.Uint32(payload[0:4]),
		OpenPrice: paise(bo.Uint32(payload[4:8])),
	}, nil
}

// MasterChangeRecord is the identity delta carried by 7305 and 7340
// security-master change broadcasts. Only the fields the price store
// mirrors are decoded.
type MasterChangeRecord struct {
	Token     uint32
	Symbol    string
	Series    string
	LotSize   int
	TickSize  float64
	FreezeQty int
	Name      string
}

// ParseSecurityMasterChange decodes a 7305/7340 MS_SECURITY_UPDATE_INFO body.
func ParseSecurityMasterChange(payload []byte, bo binary.ByteOrder) (MasterChangeRecord, error) {
	if len(payload) < 131 {
		return MasterChangeRecord{}, ErrTruncatedPayload
	}
	return MasterChangeRecord{
		Token:     bo.Uint32(payload[0:4]),
		Symbol:    cstr(payload[4:14]),
		Series:    cstr(payload[14:16]),
		FreezeQty: int(bo.Uint32(payload[48:52])),
		LotSize:   int(bo.Uint32(payload[98:102])),
		TickSize:  paise(bo.Uint32(payload[102:106])),
		Name:      cstr(payload[106:131]),
	}, nil
}

// StatusRecord is one 7320/7210 security-status entry.
type StatusRecord struct {
	Token uint32
	// Status holds the per-market trading status words in protocol order.
	Status [4]uint16
}

// ParseSecurityStatus decodes a 7320 BCAST_SECURITY_STATUS_CHG or 7210
// pre-open variant body.
func ParseSecurityStatus(payload []byte, bo binary.ByteOrder) ([]StatusRecord, error) {
	if len(payload) < 2 {
		return nil, ErrTruncatedPayload
	}
	n := int(bo.Uint16(payload[0:2]))
	if n > statusMaxRecords {
		n = statusMaxRecords
	}
	if len(payload) < 2+n*statusRecordSize {
		return nil, ErrTruncatedPayload
	}
	out := make([]StatusRecord, 0, n)
	for i := 0; i < n; i++ {
		r := payload[2+i*statusRecordSize:]
		rec := StatusRecord{Token: bo.Uint32(r[0:4])}
		for m := 0; m < 4; m++ {
			rec.Status[m] = bo.Uint16(r[4+m*2 : 6+m*2])
		}
		out = append(out, rec)
	}
	return out, nil
}

// ParseBrokerNumber decodes the 9010/9011 broker notification body.
func ParseBrokerNumber(payload []byte) (string, error) {
	if len(payload) < 5 {
		return "", ErrTruncatedPayload
	}
	return cstr(payload[0:5]), nil
}

// ControlRecord is the 5295 CTRL_MSG_TO_TRADER body.
type ControlRecord struct {
	TraderID   uint32
	ActionCode string
}

// ParseControlToTrader decodes a 5295 CTRL_MSG_TO_TRADER body.
func ParseControlToTrader(payload []byte, bo binary.ByteOrder) (ControlRecord, error) {
	if len(payload) < 7 {
		return ControlRecord{}, ErrTruncatedPayload
	}
	return ControlRecord{
		TraderID:   bo.Uint32(payload[0:4]),
		ActionCode: cstr(payload[4:7]),
	}, nil
}

// BSEPictureRecord is one 2020/2021 market-picture slot: the BSE analogue
// of the NSE touchline plus interleaved five-level depth.
type BSEPictureRecord struct {
	Token        uint32
	LTP          float64
	Open         float64
	High         float64
	Low          float64
	Close        float64
	ATP          float64
	Volume       uint64
	Turnover     uint64
	TotalBuyQty  float64
	TotalSellQty float64
	LowerCircuit float64
	UpperCircuit float64
	Bids         [5]model.DepthLevel
	Asks         [5]model.DepthLevel
}

// ParseBSEMarketPicture decodes a 2020/2021 market-picture body: fixed
// 264-byte record slots for as many slots as the payload holds. Zero-token
// slots are padding and skipped.
func ParseBSEMarketPicture(payload []byte, bo binary.ByteOrder) ([]BSEPictureRecord, error) {
	n := len(payload) / bseRecordSlotSize
	if n == 0 {
		return nil, ErrTruncatedPayload
	}
	out := make([]BSEPictureRecord, 0, n)
	for i := 0; i < n; i++ {
		r := payload[i*bseRecordSlotSize : (i+1)*bseRecordSlotSize]
		token := bo.Uint32(r[0:4])
		if token == 0 {
			continue
		}
		rec := BSEPictureRecord{
			Token:        token,
			Open:         paise(bo.Uint32(r[4:8])),
			Close:        paise(bo.Uint32(r[8:12])),
			High:         paise(bo.Uint32(r[12:16])),
			Low:          paise(bo.Uint32(r[16:20])),
			Volume:       uint64(bo.Uint32(r[24:28])),
			Turnover:     uint64(bo.Uint32(r[28:32])),
			LTP:          paise(bo.Uint32(r[36:40])),
			TotalBuyQty:  float64(bo.Uint32(r[64:68])),
			TotalSellQty: float64(bo.Uint32(r[68:72])),
			LowerCircuit: paise(bo.Uint32(r[76:80])),
			UpperCircuit: paise(bo.Uint32(r[80:84])),
			ATP:          paise(bo.Uint32(r[84:88])),
		}
		// Depth is interleaved bid/ask pairs of 16-byte levels.
		for lvl := 0; lvl < 5; lvl++ {
			b := r[bseDepthOffset+lvl*32:]
			rec.Bids[lvl] = model.DepthLevel{
				Price: paise(bo.Uint32(b[0:4])),
				Qty:   uint64(bo.Uint32(b[4:8])),
			}
			a := r[bseDepthOffset+lvl*32+16:]
			rec.Asks[lvl] = model.DepthLevel{
				Price: paise(bo.Uint32(a[0:4])),
				Qty:   uint64(bo.Uint32(a[4:8])),
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// BSEIndexRecord is one 2012/2011 index-change slot. BSE index broadcasts
// carry a numeric index code rather than a name; the demultiplexer maps it
// to a display name.
type BSEIndexRecord struct {
	Code  uint32
	Value float64
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// ParseBSEIndex decodes a 2012/2011 index body: fixed 120-byte slots.
func ParseBSEIndex(payload []byte, bo binary.ByteOrder) ([]BSEIndexRecord, error) {
	n := len(payload) / bseIndexSlotSize
	if n == 0 {
		return nil, ErrTruncatedPayload
	}
	out := make([]BSEIndexRecord, 0, n)
	for i := 0; i < n; i++ {
		r := payload[i*bseIndexSlotSize:]
		code := bo.Uint32(r[0:4])
		if code == 0 {
			continue
		}
		out = append(out, BSEIndexRecord{
			Code:  code,
			Open:  paise(bo.Uint32(r[12:16])),
			High:  paise(bo.Uint32(r[16:20])),
			Low:   paise(bo.Uint32(r[20:24])),
			Value: paise(bo.Uint32(r[24:28])),
			Close: paise(bo.Uint32(r[28:32])),
		})
	}
	return out, nil
}

// BSEOIRecord is one 2015 open-interest entry.
type BSEOIRecord struct {
	Token    uint32
	OI       int64
	OIValue  int64
	OIChange int32
}

// ParseBSEOpenInterest decodes a 2015 open-interest body: a record count
// followed by 34-byte entries.
func ParseBSEOpenInterest(payload []byte, bo binary.ByteOrder) ([]BSEOIRecord, error) {
	if len(payload) < 2 {
		return nil, ErrTruncatedPayload
	}
	n := int(bo.Uint16(payload[0:2]))
	if len(payload) < 2+n*bseOIRecordSize {
		return nil, ErrTruncatedPayload
	}
	out := make([]BSEOIRecord, 0, n)
	for i := 0; i < n; i++ {
		r := payload[2+i*bseOIRecordSize:]
		token := bo.Uint32(r[0:4])
		if token == 0 {
			continue
		}
		out = append(out, BSEOIRecord{
			Token:    token,
			OI:       int64(bo.Uint64(r[4:12])),
			OIValue:  int64(bo.Uint64(r[12:20])),
			OIChange: int32(bo.Uint32(r[20:24])),
		})
	}
	return out, nil
}

// BSEIVRecord is one 2028 implied-volatility entry. The wire value is
// scaled by 100 (per cent x100); the parser normalises to a fraction.
type BSEIVRecord struct {
	Token      uint32
	ImpliedVol float64
}

// ParseBSEImpliedVol decodes a 2028 implied-volatility body: a record
// count followed by 72-byte entries.
func ParseBSEImpliedVol(payload []byte, bo binary.ByteOrder) ([]BSEIVRecord, error) {
	if len(payload) < 2 {
		return nil, ErrTruncatedPayload
	}
	n := int(bo.Uint16(payload[0:2]))
	if len(payload) < 2+n*bseIVRecordSize {
		return nil, ErrTruncatedPayload
	}
	out := make([]BSEIVRecord, 0, n)
	for i := 0; i < n; i++ {
		r := payload[2+i*bseIVRecordSize:]
		token := bo.Uint32(r[0:4])
		if token == 0 {
			continue
		}
		out = append(out, BSEIVRecord{
			Token:      token,
			ImpliedVol: float64(int64(bo.Uint64(r[4:12]))) / 10000,
		})
	}
	return out, nil
}

// BSECloseRecord is one 2014 close-price entry.
type BSECloseRecord struct {
	Token uint32
	Close float64
}

// ParseBSEClosePrice decodes a 2014 close-price body: 8-byte token/price
// pairs for as many pairs as the payload holds.
func ParseBSEClosePrice(payload []byte, bo binary.ByteOrder) ([]BSECloseRecord, error) {
	n := len(payload) / 8
	if n == 0 {
		return nil, ErrTruncatedPayload
	}
	out := make([]BSECloseRecord, 0, n)
	for i := 0; i < n; i++ {
		r := payload[i*8:]
		token := bo.Uint32(r[0:4])
		if token == 0 {
			continue
		}
		out = append(out, BSECloseRecord{
			Token: token,
			Close: paise(bo.Uint32(r[4:8])),
		})
	}
	return out, nil
}

// BSESessionRecord is the 2002 product-state change body.
type BSESessionRecord struct {
	SessionNumber uint32
	SegmentID     uint16
	MarketType    uint8
	StartEndFlag  uint8
}

// ParseBSESessionState decodes a 2002 product-state body.
func ParseBSESessionState(payload []byte, bo binary.ByteOrder) (BSESessionRecord, error) {
	if len(payload) < 8 {
		return BSESessionRecord{}, ErrTruncatedPayload
	}
	return BSESessionRecord{
		SessionNumber: bo.Uint32(payload[0:4]),
		SegmentID:     bo.Uint16(payload[4:6]),
		MarketType:    payload[6],
		StartEndFlag:  payload[7],
	}, nil
}
