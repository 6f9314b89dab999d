package broadcast

import (
	"encoding/binary"
	"errors"
)

// Envelope and header geometry. These offsets are fixed by the exchange
// protocols and shared by the compressed and uncompressed paths.
const (
	EnvelopeSize = 4 // 2-byte net ID + 2-byte message count
	CompLenSize  = 2 // per-message compressed-length prefix

	// CompressedHeaderOffset is the prelude before the broadcast header:
	// 1 market-type byte + 7 reserved bytes.
	CompressedHeaderOffset = 8

	// TxCodeOffset is where the transaction code sits inside the header.
	TxCodeOffset = 10

	HeaderSize       = 40
	MsgLengthOffset  = 38
	MaxDatagramSize  = 2048
	DecompBufferSize = 65536
)

var (
	ErrShortPacket      = errors.New("broadcast: packet shorter than envelope")
	ErrShortHeader      = errors.New("broadcast: message shorter than header")
	ErrLengthMismatch   = errors.New("broadcast: message length disagrees with envelope")
	ErrTruncatedPayload = errors.New("broadcast: record payload truncated")
)

// Envelope is the leading frame of every broadcast datagram.
type Envelope struct {
	NetID        [2]byte
	MessageCount uint16
}

// Header is the 40-byte broadcast header preceding every message body.
type Header struct {
	LogTime   uint32
	AlphaChar [2]byte
	TxCode    uint16
	ErrorCode uint16
	BcastSeq  uint32
	Timestamp [8]byte
	MsgLength uint16
}

// ParseEnvelope reads the datagram envelope in the feed's byte order.
func ParseEnvelope(buf []byte, bo binary.ByteOrder) (Envelope, error) {
	if len(buf) < EnvelopeSize {
		return Envelope{}, ErrShortPacket
	}
	var env Envelope
	env.NetID[0] = buf[0]
	env.NetID[1] = buf[1]
	env.MessageCount = bo.Uint16(buf[2:4])
	return env, nil
}

// ParseHeader reads the broadcast header from the start of buf in the feed's
// byte order. buf must begin at the header, after the 8-byte prelude.
func ParseHeader(buf []byte, bo binary.ByteOrder) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortHeader
	}
	var h Header
	h.LogTime = bo.Uint32(buf[4:8])
	h.AlphaChar[0] = buf[8]
	h.AlphaChar[1] = buf[9]
	h.TxCode = bo.Uint16(buf[TxCodeOffset : TxCodeOffset+2])
	h.ErrorCode = bo.Uint16(buf[12:14])
	h.BcastSeq = bo.Uint32(buf[14:18])
	copy(h.Timestamp[:], buf[22:30])
	h.MsgLength = bo.Uint16(buf[MsgLengthOffset : MsgLengthOffset+2])
	return h, nil
}
