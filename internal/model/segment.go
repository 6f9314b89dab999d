package model

import "strconv"

// Segment identifies an exchange market segment. Values match the
// exchange-assigned segment IDs used in master files and broadcast feeds.
type Segment uint8

const (
	SegmentUnknown Segment = 0
	SegmentNSECM   Segment = 1
	SegmentNSEFO   Segment = 2
	SegmentNSECD   Segment = 3
	SegmentBSECM   Segment = 11
	SegmentBSEFO   Segment = 12
	SegmentBSECD   Segment = 13
	SegmentMCXFO   Segment = 51
)

func (s Segment) String() string {
	switch s {
	case SegmentNSECM:
		return "NSECM"
	case SegmentNSEFO:
		return "NSEFO"
	case SegmentNSECD:
		return "NSECD"
	case SegmentBSECM:
		return "BSECM"
	case SegmentBSEFO:
		return "BSEFO"
	case SegmentBSECD:
		return "BSECD"
	case SegmentMCXFO:
		return "MCXFO"
	default:
		return "SEG" + strconv.Itoa(int(s))
	}
}

// SegmentFromName maps a master-file exchange name to a Segment.
func SegmentFromName(name string) Segment {
	switch name {
	case "NSECM":
		return SegmentNSECM
	case "NSEFO":
		return SegmentNSEFO
	case "NSECD":
		return SegmentNSECD
	case "BSECM":
		return SegmentBSECM
	case "BSEFO":
		return SegmentBSEFO
	case "BSECD":
		return SegmentBSECD
	case "MCXFO":
		return SegmentMCXFO
	default:
		return SegmentUnknown
	}
}

// IsDerivative reports whether instruments in this segment carry open interest.
func (s Segment) IsDerivative() bool {
	switch s {
	case SegmentNSEFO, SegmentBSEFO, SegmentNSECD, SegmentBSECD, SegmentMCXFO:
		return true
	default:
		return false
	}
}

// PackKey packs (segment, token) into a single int64: (segment << 32) | token.
// This is the preferred hot-path key for cross-segment instrument lookups.
func PackKey(seg Segment, token uint32) int64 {
	return int64(seg)<<32 | int64(token)
}

// UnpackKey splits a packed key back into (segment, token).
func UnpackKey(key int64) (Segment, uint32) {
	return Segment(key >> 32), uint32(key)
}
