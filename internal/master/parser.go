// Package master parses exchange master-contract files and materialises
// the dense per-segment price stores from them. Master files are
// pipe-delimited text, one instrument per line, with the segment name in
// the first field. NSE and BSE publish slightly different layouts for
// cash and derivative segments; the parser routes on the segment name.
package master

import (
	"errors"
	"strconv"
	"strings"

	"feedenginev1/internal/greeks"
	"feedenginev1/internal/model"
)

var (
	// ErrBadLine covers lines with too few fields or an unparseable token.
	ErrBadLine = errors.New("master: malformed contract line")
	// ErrUnknownSegment is returned for segment names the engine does not
	// subscribe to.
	ErrUnknownSegment = errors.New("master: unknown segment")
)

// instrument type codes shared by the NSE and BSE derivative layouts.
const (
	instrTypeOption = 2
	instrTypeSpread = 4
)

// ParseLine parses one pipe-delimited master line into a Contract.
func ParseLine(line string) (model.Contract, error) {
	fields := strings.Split(line, "|")
	if len(fields) < 2 {
		return model.Contract{}, ErrBadLine
	}
	seg := model.SegmentFromName(fields[0])
	switch seg {
	case model.SegmentNSECM, model.SegmentBSECM:
		return parseCash(seg, fields)
	case model.SegmentNSEFO, model.SegmentBSEFO:
		return parseDerivative(seg, fields)
	default:
		return model.Contract{}, ErrUnknownSegment
	}
}

// parseCash handles the 16..19-field cash layout shared by NSECM and
// BSECM. Later files append a long-form display name at index 18; when
// present it wins over the short alias at 14.
func parseCash(seg model.Segment, fields []string) (model.Contract, error) {
	if len(fields) < 16 {
		return model.Contract{}, ErrBadLine
	}
	c, err := parseCommon(seg, fields)
	if err != nil {
		return model.Contract{}, err
	}
	if len(fields) >= 19 {
		c.DisplayName = trimQuotes(fields[18])
	} else {
		c.DisplayName = trimQuotes(fields[14])
	}
	c.ISIN = trimQuotes(fields[15])
	return c, nil
}

// parseDerivative handles the NSEFO and BSEFO layouts. Options carry a
// strike and option type after the expiry; futures and spreads go
// straight to the display name.
func parseDerivative(seg model.Segment, fields []string) (model.Contract, error) {
	if len(fields) < 17 {
		return model.Contract{}, ErrBadLine
	}
	c, err := parseCommon(seg, fields)
	if err != nil {
		return model.Contract{}, err
	}
	if asset, err := strconv.ParseInt(strings.TrimSpace(fields[14]), 10, 64); err == nil && asset > 0 {
		c.AssetToken = uint32(asset)
	}
	c.Expiry = canonicalOrRaw(trimQuotes(fields[16]))

	switch {
	case c.InstrumentType == instrTypeOption && len(fields) >= 19:
		c.StrikePrice = atof(fields[17])
		c.OptionType = optionType(fields[18])
		if len(fields) >= 20 {
			c.DisplayName = trimQuotes(fields[19])
		}
		if len(fields) >= 23 {
			c.ISIN = trimQuotes(fields[22])
		}
	case c.InstrumentType == instrTypeSpread:
		fallthrough
	default:
		// Futures and spreads: no strike field, display name at 17.
		c.OptionType = ""
		c.DisplayName = trimQuotes(fields[17])
		if len(fields) >= 21 {
			c.ISIN = trimQuotes(fields[20])
		}
	}
	return c, nil
}

// parseCommon extracts fields 1..13, identical across all four layouts.
func parseCommon(seg model.Segment, fields []string) (model.Contract, error) {
	token, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 32)
	if err != nil {
		return model.Contract{}, ErrBadLine
	}
	return model.Contract{
		Exchange:       seg.String(),
		Segment:        seg,
		Token:          uint32(token),
		InstrumentType: atoi(fields[2]),
		Name:           trimQuotes(fields[3]),
		Description:    trimQuotes(fields[4]),
		Series:         trimQuotes(fields[5]),
		NameWithSeries: trimQuotes(fields[6]),
		InstrumentID:   trimQuotes(fields[7]),
		PriceBandHigh:  atof(fields[8]),
		PriceBandLow:   atof(fields[9]),
		FreezeQty:      atoi(fields[10]),
		TickSize:       atof(fields[11]),
		LotSize:        atoi(fields[12]),
		Multiplier:     atoi(fields[13]),
	}, nil
}

// optionType maps the master-file option type field, which is numeric in
// NSE files (1/2) and either numeric or literal CE/PE in BSE files.
func optionType(field string) string {
	s := strings.ToUpper(trimQuotes(field))
	switch s {
	case "1", "CE":
		return "CE"
	case "2", "PE":
		return "PE"
	default:
		return "XX"
	}
}

// canonicalOrRaw normalises an expiry to DDMMMYYYY, keeping the raw text
// when the format is unrecognised so the row still displays something.
func canonicalOrRaw(s string) string {
	if s == "" {
		return ""
	}
	if canon, err := greeks.CanonicalExpiry(s); err == nil {
		return canon
	}
	return s
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}

// atoi and atof mirror the permissive numeric parsing of exchange
// tooling: malformed numbers read as zero rather than failing the line.
func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
