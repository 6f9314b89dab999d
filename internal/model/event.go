package model

import "encoding/json"

// UpdateKind discriminates the Update tagged union.
type UpdateKind uint8

const (
	KindTrade UpdateKind = iota + 1
	KindDepth
	KindIndex
	KindMasterChange
	KindSession
)

func (k UpdateKind) String() string {
	switch k {
	case KindTrade:
		return "trade"
	case KindDepth:
		return "depth"
	case KindIndex:
		return "index"
	case KindMasterChange:
		return "master_change"
	case KindSession:
		return "session"
	default:
		return "unknown"
	}
}

// Update is the typed event emitted by the demultiplexer after a store write.
// It is a value type so it can travel through channels and ring buffers
// without per-event allocation. Only the fields relevant to Kind are set.
type Update struct {
	Kind    UpdateKind `json:"kind"`
	Feed    string     `json:"feed"`
	Segment Segment    `json:"segment"`
	TxCode  uint16     `json:"tx_code"`

	// Sequence number from the broadcast header. Exposed for gap detection
	// by subscribers; the core never reorders on it.
	BcastSeq uint32 `json:"bcast_seq"`

	// Trade / Depth / MasterChange
	Token uint32  `json:"token,omitempty"`
	LTP   float64 `json:"ltp,omitempty"`
	LTQ   uint64  `json:"ltq,omitempty"`

	// Index
	IndexName  string  `json:"index_name,omitempty"`
	IndexValue float64 `json:"index_value,omitempty"`

	// Session
	SessionCode uint16 `json:"session_code,omitempty"`

	RecvTS int64 `json:"recv_ts"` // unix microseconds at UDP receive
}

// Key returns the packed instrument key, or 0 for non-instrument updates.
func (u *Update) Key() int64 {
	if u.Token == 0 {
		return 0
	}
	return PackKey(u.Segment, u.Token)
}

// JSON serialises the update for pub/sub transport.
func (u *Update) JSON() []byte {
	b, _ := json.Marshal(u)
	return b
}
