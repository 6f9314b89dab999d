package broadcast

import (
	"encoding/binary"
	"log/slog"
	"strconv"
	"time"

	"feedenginev1/internal/lzo"
	"feedenginev1/internal/metrics"
	"feedenginev1/internal/model"
	"feedenginev1/internal/store"
)

// Demux is the per-feed message demultiplexer. The owning receiver
// goroutine calls HandleDatagram synchronously for every datagram; the
// demux walks the envelope, decompresses LZO bodies into its scratch
// buffer, dispatches on the transaction code and applies store writes.
//
// One demux per feed, used by one goroutine. The scratch buffer makes it
// unsafe to share.
type Demux struct {
	feed    string
	segment model.Segment
	bo      binary.ByteOrder
	prices  *store.PriceStore
	indexes *store.IndexStore
	met     *metrics.Metrics
	log     *slog.Logger
	emit    func(model.Update)

	decomp []byte
}

// NewDemux wires a demultiplexer to its feed's stores. emit may be nil
// when no downstream subscriber exists (tests, tooling).
func NewDemux(feed string, segment model.Segment, bo binary.ByteOrder, prices *store.PriceStore, indexes *store.IndexStore, met *metrics.Metrics, log *slog.Logger, emit func(model.Update)) *Demux {
	return &Demux{
		feed:    feed,
		segment: segment,
		bo:      bo,
		prices:  prices,
		indexes: indexes,
		met:     met,
		log:     log.With(slog.String("feed", feed)),
		emit:    emit,
		decomp:  make([]byte, DecompBufferSize),
	}
}

func (d *Demux) frameError(reason string) {
	if d.met != nil {
		d.met.FrameErrors.WithLabelValues(d.feed, reason).Inc()
	}
}

// HandleDatagram frames one datagram and dispatches every message in it.
// recvTS is the receive timestamp in unix microseconds, stamped by the
// receiver before any parsing.
func (d *Demux) HandleDatagram(buf []byte, recvTS int64) {
	env, err := ParseEnvelope(buf, d.bo)
	if err != nil {
		d.frameError("short_packet")
		return
	}
	if d.met != nil {
		d.met.PacketsTotal.WithLabelValues(d.feed).Inc()
	}

	off := EnvelopeSize
	for i := 0; i < int(env.MessageCount); i++ {
		if off+CompLenSize > len(buf) {
			d.frameError("truncated_envelope")
			return
		}
		compLen := int(d.bo.Uint16(buf[off : off+CompLenSize]))
		off += CompLenSize

		if compLen == 0 {
			consumed, ok := d.handleRaw(buf[off:], recvTS)
			if !ok {
				return
			}
			off += consumed
			continue
		}

		if off+compLen > len(buf) {
			d.frameError("truncated_body")
			return
		}
		d.handleCompressed(buf[off:off+compLen], recvTS)
		off += compLen
	}
}

// handleRaw parses one uncompressed message in place and returns the
// number of bytes it consumed.
func (d *Demux) handleRaw(buf []byte, recvTS int64) (int, bool) {
	if len(buf) < CompressedHeaderOffset+HeaderSize {
		d.frameError("short_header")
		return 0, false
	}
	hdr, err := ParseHeader(buf[CompressedHeaderOffset:], d.bo)
	if err != nil {
		d.frameError("short_header")
		return 0, false
	}
	end := CompressedHeaderOffset + int(hdr.MsgLength)
	if int(hdr.MsgLength) < HeaderSize || end > len(buf) {
		// Declared length disagrees with the envelope: discard the rest
		// of the datagram, no partial update.
		d.frameError("length_mismatch")
		return 0, false
	}
	d.dispatch(hdr, buf[CompressedHeaderOffset+HeaderSize:end], recvTS)
	return end, true
}

// handleCompressed expands one LZO1Z body into the scratch buffer and
// dispatches the message inside it.
func (d *Demux) handleCompressed(body []byte, recvTS int64) {
	start := time.Now()
	n, err := lzo.Decompress(body, d.decomp)
	if d.met != nil {
		d.met.LZODecompressDur.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if d.met != nil {
			d.met.LZOErrors.Inc()
		}
		d.log.Debug("lzo decompress failed", slog.String("err", err.Error()), slog.Int("body_len", len(body)))
		return
	}
	msg := d.decomp[:n]
	if len(msg) < CompressedHeaderOffset+HeaderSize {
		d.frameError("short_header")
		return
	}
	hdr, err := ParseHeader(msg[CompressedHeaderOffset:], d.bo)
	if err != nil {
		d.frameError("short_header")
		return
	}
	if !IsCompressed(hdr.TxCode) {
		// The compressed set is closed: a compressed body carrying any
		// other code means the stream was misframed upstream.
		d.frameError("unexpected_compressed_code")
		return
	}
	end := CompressedHeaderOffset + int(hdr.MsgLength)
	if int(hdr.MsgLength) < HeaderSize || end > len(msg) {
		d.frameError("length_mismatch")
		return
	}
	d.dispatch(hdr, msg[CompressedHeaderOffset+HeaderSize:end], recvTS)
}

func (d *Demux) dispatch(hdr Header, payload []byte, recvTS int64) {
	if d.met != nil {
		d.met.MessagesTotal.WithLabelValues(d.feed, CodeName(hdr.TxCode)).Inc()
	}

	var err error
	switch hdr.TxCode {
	case CodeMBOMBPUpdate:
		err = d.applyMBOMBP(hdr, payload, recvTS)
	case CodeOnlyMBP:
		err = d.applyOnlyMBP(hdr, payload, recvTS)
	case CodeTickerAndMktIndex:
		err = d.applyTicker(hdr, payload, recvTS, false)
	case CodeEnhTickerAndIndex:
		err = d.applyTicker(hdr, payload, recvTS, true)
	case CodeMWRoundRobin:
		err = d.applyMarketWatch(hdr, payload, false)
	case CodeEnhMWRoundRobin:
		err = d.applyMarketWatch(hdr, payload, true)
	case CodeIndices:
		err = d.applyIndices(hdr, payload, recvTS)
	case CodeIndustryIndexUpdate:
		err = d.applyIndustryIndices(payload)
	case CodeLimitPriceRange:
		err = d.applyLPP(payload)
	case CodeSecurityOpenPrice:
		err = d.applyOpenPrice(payload)
	case CodeSecurityMasterChg, CodeSecMasterChgPeriodic:
		err = d.applyMasterChange(hdr, payload, recvTS)
	case CodeMarketOpen, CodeMarketClose, CodeMarketPostClose,
		CodePreOrPostDay, CodeCircuitCheck, CodePreopenEnded:
		d.emitSession(hdr, recvTS)
	case CodeSecurityStatusChg, CodeSecurityStatusPre:
		// Observed for counting; trading-status words do not land in
		// the price row.
		_, err = ParseSecurityStatus(payload, d.bo)
	case CodeTurnoverExceeded, CodeBrokerReactivated:
		_, err = ParseBrokerNumber(payload)
	case CodeControlToTrader:
		_, err = ParseControlToTrader(payload, d.bo)
	case CodeInstrMasterChg, CodeIndexMasterChg, CodeIndexMapTable,
		CodeSpdMasterChg, CodeSpdMasterChgPeriodic, CodeJournalVCT,
		CodeSpdJournalVCT, CodeSystemInformation, CodePartialSysInfo:
		// Known control traffic, counted and skipped.

	case CodeBSEMarketPicture, CodeBSEMarketPicture64:
		err = d.applyBSEPicture(hdr, payload, recvTS)
	case CodeBSEIndexChange, CodeBSEIndexSimple:
		err = d.applyBSEIndex(hdr, payload, recvTS)
	case CodeBSEOpenInterest:
		err = d.applyBSEOpenInterest(payload)
	case CodeBSEImpliedVol:
		err = d.applyBSEImpliedVol(payload)
	case CodeBSEClosePrice:
		err = d.applyBSEClosePrice(payload)
	case CodeBSEProductState:
		err = d.applyBSESessionState(hdr, payload, recvTS)
	case CodeBSETimeBroadcast, CodeBSEKeepAlive, CodeBSENewsHeadline:
		// Heartbeat and narrative traffic.

	default:
		if d.met != nil {
			d.met.UnknownCodes.WithLabelValues(d.feed).Inc()
		}
	}

	if err != nil {
		d.frameError("bad_record")
	}
}

// storeWrite funnels every price-store mutation so unknown-token drops
// are counted in one place.
func (d *Demux) storeWrite(err error) {
	if err != nil && d.met != nil {
		d.met.StoreDrops.WithLabelValues(d.feed).Inc()
	}
}

func (d *Demux) emitUpdate(u model.Update) {
	if d.emit != nil {
		d.emit(u)
	}
}

func (d *Demux) applyTouchline(hdr Header, rec TouchlineRecord, recvTS int64) {
	err := d.prices.UpdateQuote(rec.Token, store.QuoteUpdate{
		LTP: rec.LTP, LTQ: rec.LTQ, LTT: rec.LTT, ATP: rec.ATP,
		Volume: rec.Volume,
		Open:   rec.Open, High: rec.High, Low: rec.Low, Close: rec.Close,
		TotalBuyQty: rec.TotalBuyQty, TotalSellQty: rec.TotalSellQty,
		BcastSeq: hdr.BcastSeq,
	})
	d.storeWrite(err)
	if err != nil {
		return
	}
	d.storeWrite(d.prices.UpdateDepth(rec.Token, store.DepthUpdate{Bids: rec.Bids, Asks: rec.Asks}))
	d.emitUpdate(model.Update{
		Kind: model.KindTrade, Feed: d.feed, Segment: d.segment,
		TxCode: hdr.TxCode, BcastSeq: hdr.BcastSeq,
		Token: rec.Token, LTP: rec.LTP, LTQ: rec.LTQ, RecvTS: recvTS,
	})
}

func (d *Demux) applyMBOMBP(hdr Header, payload []byte, recvTS int64) error {
	rec, err := ParseMBOMBP(payload, d.bo)
	if err != nil {
		return err
	}
	d.applyTouchline(hdr, rec, recvTS)
	return nil
}

func (d *Demux) applyOnlyMBP(hdr Header, payload []byte, recvTS int64) error {
	recs, err := ParseOnlyMBP(payload, d.bo)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		d.applyTouchline(hdr, rec, recvTS)
	}
	return nil
}

func (d *Demux) applyTicker(hdr Header, payload []byte, recvTS int64, enhanced bool) error {
	recs, err := ParseTicker(payload, d.bo, enhanced)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		werr := d.prices.UpdateTicker(rec.Token, store.TickerUpdate{
			FillPrice: rec.FillPrice, FillVolume: rec.FillVolume,
			OpenInterest: rec.OpenInterest, BcastSeq: hdr.BcastSeq,
		})
		d.storeWrite(werr)
		if werr != nil {
			continue
		}
		d.emitUpdate(model.Update{
			Kind: model.KindTrade, Feed: d.feed, Segment: d.segment,
			TxCode: hdr.TxCode, BcastSeq: hdr.BcastSeq,
			Token: rec.Token, LTP: rec.FillPrice, LTQ: rec.FillVolume,
			RecvTS: recvTS,
		})
	}
	return nil
}

func (d *Demux) applyMarketWatch(hdr Header, payload []byte, enhanced bool) error {
	recs, err := ParseMarketWatch(payload, d.bo, enhanced)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		normal := rec.Markets[0]
		d.storeWrite(d.prices.UpdateBest(rec.Token,
			normal.BuyQty, normal.BuyPrice,
			normal.SellQty, normal.SellPrice,
			rec.OpenInterest))
	}
	return nil
}

func (d *Demux) applyIndices(hdr Header, payload []byte, recvTS int64) error {
	recs, err := ParseIndices(payload, d.bo)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		d.indexes.Update(rec.Name, store.IndexUpdate{
			Value: rec.Value, High: rec.High, Low: rec.Low,
			Open: rec.Open, Close: rec.Close, PctChange: rec.PercentChange,
			YearlyHigh: rec.YearlyHigh, YearlyLow: rec.YearlyLow,
		})
		d.emitUpdate(model.Update{
			Kind: model.KindIndex, Feed: d.feed, Segment: d.segment,
			TxCode: hdr.TxCode, BcastSeq: hdr.BcastSeq,
			IndexName: rec.Name, IndexValue: rec.Value, RecvTS: recvTS,
		})
	}
	return nil
}

func (d *Demux) applyIndustryIndices(payload []byte) error {
	recs, err := ParseIndustryIndices(payload, d.bo)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		d.indexes.Update(rec.Name, store.IndexUpdate{Value: rec.Value})
	}
	return nil
}

func (d *Demux) applyLPP(payload []byte) error {
	recs, err := ParseLPPRange(payload, d.bo)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		d.storeWrite(d.prices.UpdateCircuits(rec.Token, rec.HighBand, rec.LowBand))
	}
	return nil
}

func (d *Demux) applyOpenPrice(payload []byte) error {
	rec, err := ParseOpenPrice(payload, d.bo)
	if err != nil {
		return err
	}
	d.storeWrite(d.prices.UpdateOpenPrice(rec.Token, rec.OpenPrice))
	return nil
}

func (d *Demux) applyMasterChange(hdr Header, payload []byte, recvTS int64) error {
	rec, err := ParseSecurityMasterChange(payload, d.bo)
	if err != nil {
		return err
	}
	werr := d.prices.UpdateMaster(rec.Token, store.MasterUpdate{
		Symbol:      rec.Symbol,
		DisplayName: rec.Name,
		LotSize:     rec.LotSize,
		TickSize:    rec.TickSize,
	})
	d.storeWrite(werr)
	if werr != nil {
		return nil
	}
	d.emitUpdate(model.Update{
		Kind: model.KindMasterChange, Feed: d.feed, Segment: d.segment,
		TxCode: hdr.TxCode, BcastSeq: hdr.BcastSeq,
		Token: rec.Token, RecvTS: recvTS,
	})
	return nil
}

func (d *Demux) emitSession(hdr Header, recvTS int64) {
	d.log.Info("session broadcast",
		slog.String("code", CodeName(hdr.TxCode)),
		slog.Uint64("seq", uint64(hdr.BcastSeq)))
	d.emitUpdate(model.Update{
		Kind: model.KindSession, Feed: d.feed, Segment: d.segment,
		TxCode: hdr.TxCode, BcastSeq: hdr.BcastSeq,
		SessionCode: hdr.TxCode, RecvTS: recvTS,
	})
}

// applyBSESessionState translates a 2002 product-state change into a
// session update carrying the exchange's session number instead of the
// transaction code.
func (d *Demux) applyBSESessionState(hdr Header, payload []byte, recvTS int64) error {
	rec, err := ParseBSESessionState(payload, d.bo)
	if err != nil {
		return err
	}
	d.log.Info("session broadcast",
		slog.String("code", CodeName(hdr.TxCode)),
		slog.Uint64("session", uint64(rec.SessionNumber)),
		slog.Uint64("market_type", uint64(rec.MarketType)),
		slog.Uint64("start_end", uint64(rec.StartEndFlag)))
	d.emitUpdate(model.Update{
		Kind: model.KindSession, Feed: d.feed, Segment: d.segment,
		TxCode: hdr.TxCode, BcastSeq: hdr.BcastSeq,
		SessionCode: uint16(rec.SessionNumber), RecvTS: recvTS,
	})
	return nil
}

func (d *Demux) applyBSEPicture(hdr Header, payload []byte, recvTS int64) error {
	recs, err := ParseBSEMarketPicture(payload, d.bo)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		werr := d.prices.UpdateQuote(rec.Token, store.QuoteUpdate{
			LTP: rec.LTP, ATP: rec.ATP,
			Volume: rec.Volume, Value: float64(rec.Turnover),
			Open: rec.Open, High: rec.High, Low: rec.Low, Close: rec.Close,
			TotalBuyQty: rec.TotalBuyQty, TotalSellQty: rec.TotalSellQty,
			BcastSeq: hdr.BcastSeq,
		})
		d.storeWrite(werr)
		if werr != nil {
			continue
		}
		d.storeWrite(d.prices.UpdateDepth(rec.Token, store.DepthUpdate{Bids: rec.Bids, Asks: rec.Asks}))
		d.storeWrite(d.prices.UpdateCircuits(rec.Token, rec.UpperCircuit, rec.LowerCircuit))
		d.emitUpdate(model.Update{
			Kind: model.KindTrade, Feed: d.feed, Segment: d.segment,
			TxCode: hdr.TxCode, BcastSeq: hdr.BcastSeq,
			Token: rec.Token, LTP: rec.LTP, RecvTS: recvTS,
		})
	}
	return nil
}

// bseIndexName renders the numeric BSE index code as a stable store key.
// The exchange ships the code-to-name mapping in a separate reference
// file that is not part of the broadcast; the raw code keeps rows unique.
func bseIndexName(code uint32) string {
	if code == 1 {
		return "SENSEX"
	}
	return "BSEIDX:" + strconv.FormatUint(uint64(code), 10)
}

func (d *Demux) applyBSEIndex(hdr Header, payload []byte, recvTS int64) error {
	recs, err := ParseBSEIndex(payload, d.bo)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		name := bseIndexName(rec.Code)
		d.indexes.Update(name, store.IndexUpdate{
			Value: rec.Value, High: rec.High, Low: rec.Low,
			Open: rec.Open, Close: rec.Close,
		})
		d.emitUpdate(model.Update{
			Kind: model.KindIndex, Feed: d.feed, Segment: d.segment,
			TxCode: hdr.TxCode, BcastSeq: hdr.BcastSeq,
			IndexName: name, IndexValue: rec.Value, RecvTS: recvTS,
		})
	}
	return nil
}

func (d *Demux) applyBSEOpenInterest(payload []byte) error {
	recs, err := ParseBSEOpenInterest(payload, d.bo)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		d.storeWrite(d.prices.UpdateOpenInterest(rec.Token, rec.OI, rec.OIChange))
	}
	return nil
}

func (d *Demux) applyBSEImpliedVol(payload []byte) error {
	recs, err := ParseBSEImpliedVol(payload, d.bo)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		d.storeWrite(d.prices.UpdateImpliedVol(rec.Token, rec.ImpliedVol))
	}
	return nil
}

func (d *Demux) applyBSEClosePrice(payload []byte) error {
	recs, err := ParseBSEClosePrice(payload, d.bo)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		d.storeWrite(d.prices.UpdateClosePrice(rec.Token, rec.Close))
	}
	return nil
}
