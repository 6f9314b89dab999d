package lzo

import (
	"bytes"
	"errors"
	"testing"
)

// literalStream builds a minimal LZO1Z stream: one initial literal run
// followed by the EOF marker (0x11 0x00 0x00). Valid for 4..238 bytes.
func literalStream(data []byte) []byte {
	if len(data) < 4 || len(data) > 238 {
		panic("literalStream: length out of range")
	}
	out := []byte{byte(len(data) + 17)}
	out = append(out, data...)
	return append(out, 0x11, 0x00, 0x00)
}

func TestDecompress_LiteralOnly(t *testing.T) {
	want := []byte("hello, broadcast feed")
	src := literalStream(want)

	dst := make([]byte, 64)
	n, err := Decompress(src, dst)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(dst[:n], want) {
		t.Errorf("got %q, want %q", dst[:n], want)
	}
}

func TestDecompress_M3Match(t *testing.T) {
	// "abcd" literal, then an M3 match copying 4 bytes from offset 4,
	// then EOF. Decodes to "abcdabcd".
	src := []byte{
		4 + 17, 'a', 'b', 'c', 'd',
		0x22,       // M3, mLen=2 -> copy 2+2 bytes
		0x00, 0x0c, // offset = 1 + (0<<6) + (12>>2) = 4
		0x11, 0x00, 0x00,
	}
	dst := make([]byte, 16)
	n, err := Decompress(src, dst)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if got, want := string(dst[:n]), "abcdabcd"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecompress_TrailingLiterals(t *testing.T) {
	// M3 match whose second offset byte carries 2 trailing literal bits.
	// offset byte pair (0x00, 0x0e): offset = 1+ (0<<6) + (14>>2) = 4,
	// state bits 14&3 = 2 -> two literals follow, then next instruction.
	src := []byte{
		4 + 17, 'w', 'x', 'y', 'z',
		0x22, 0x00, 0x0e, // copy "wxyz", 2 trailing literals
		'!', '?',
		0x11, 0x00, 0x00,
	}
	dst := make([]byte, 16)
	n, err := Decompress(src, dst)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if got, want := string(dst[:n]), "wxyzwxyz!?"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecompress_ShortMatchAfterTrailingLiterals(t *testing.T) {
	// After a match's trailing literals the next instruction byte may be
	// below 16: a two-byte short match with its own offset byte. Here the
	// M3 copy leaves "abcdabcd", the trailing literals add "!?", and the
	// short match (0x00, 0x04 -> offset 2) replays them.
	src := []byte{
		4 + 17, 'a', 'b', 'c', 'd',
		0x22, 0x00, 0x0e, // copy "abcd", 2 trailing literals
		'!', '?',
		0x00, 0x04, // short match: offset = 1 + (0<<6) + (4>>2) = 2
		0x11, 0x00, 0x00,
	}
	dst := make([]byte, 16)
	n, err := Decompress(src, dst)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if got, want := string(dst[:n]), "abcdabcd!?!?"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecompress_M2Match(t *testing.T) {
	// M2 short match: instruction >= 64 carries the length and the low
	// offset bits, one more byte completes the offset.
	src := []byte{
		5 + 17, 'a', 'b', 'c', 'd', 'e',
		0x40, 0x0c, // mLen=1 -> 3-byte copy, offset = 1 + (0<<6) + (12>>2) = 4
		0x11, 0x00, 0x00,
	}
	dst := make([]byte, 16)
	n, err := Decompress(src, dst)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if got, want := string(dst[:n]), "abcdebcd"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecompress_M2OffsetReuse(t *testing.T) {
	// M2 offset codes >= 0x1c reuse the previous match offset without
	// consuming an offset byte.
	src := []byte{
		5 + 17, 'a', 'b', 'c', 'd', 'e',
		0x40, 0x0c, // 3-byte copy at offset 4
		0x5c,       // 3-byte copy reusing offset 4
		0x11, 0x00, 0x00,
	}
	dst := make([]byte, 16)
	n, err := Decompress(src, dst)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if got, want := string(dst[:n]), "abcdebcdebc"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecompress_M2ReuseWithoutPriorMatch(t *testing.T) {
	// An offset-reuse code before any match has set one is corrupt.
	src := []byte{
		1 + 17, 'a',
		0x5c,
		0x11, 0x00, 0x00,
	}
	dst := make([]byte, 16)
	_, err := Decompress(src, dst)
	if !errors.Is(err, ErrCorrupted) {
		t.Fatalf("expected ErrCorrupted, got %v", err)
	}
}

func TestDecompress_OutputOverrun(t *testing.T) {
	want := []byte("0123456789abcdef")
	src := literalStream(want)

	dst := make([]byte, 8) // too small
	_, err := Decompress(src, dst)
	if !errors.Is(err, ErrOutputOverrun) {
		t.Fatalf("expected ErrOutputOverrun, got %v", err)
	}
}

func TestDecompress_InputOverrun(t *testing.T) {
	// Stream truncated in the middle of an M3 match (offset bytes missing).
	src := []byte{
		4 + 17, 'a', 'b', 'c', 'd',
		0x22, // match instruction, offset bytes truncated
	}
	dst := make([]byte, 16)
	_, err := Decompress(src, dst)
	if !errors.Is(err, ErrInputOverrun) {
		t.Fatalf("expected ErrInputOverrun, got %v", err)
	}
}

func TestDecompress_EOFNotFound(t *testing.T) {
	// Literal run that exhausts the input without an EOF marker.
	src := []byte{4 + 17, 'a', 'b', 'c', 'd'}
	dst := make([]byte, 16)
	_, err := Decompress(src, dst)
	if !errors.Is(err, ErrEOFNotFound) {
		t.Fatalf("expected ErrEOFNotFound, got %v", err)
	}
}

func TestDecompress_InputNotConsumed(t *testing.T) {
	// Bytes trailing after the EOF marker.
	src := append(literalStream([]byte("abcd")), 0xff)
	dst := make([]byte, 16)
	_, err := Decompress(src, dst)
	if !errors.Is(err, ErrInputNotConsumed) {
		t.Fatalf("expected ErrInputNotConsumed, got %v", err)
	}
}

func TestDecompress_LookbehindOverrun(t *testing.T) {
	// M3 match whose offset reaches before the start of the output.
	src := []byte{
		4 + 17, 'a', 'b', 'c', 'd',
		0x22, 0x01, 0x00, // offset = 1 + (1<<6) + 0 = 65 > 4 written
		0x11, 0x00, 0x00,
	}
	dst := make([]byte, 16)
	_, err := Decompress(src, dst)
	if !errors.Is(err, ErrLookbehindOverrun) {
		t.Fatalf("expected ErrLookbehindOverrun, got %v", err)
	}
}

func TestDecompress_EmptyInput(t *testing.T) {
	_, err := Decompress(nil, make([]byte, 4))
	if !errors.Is(err, ErrInputOverrun) {
		t.Fatalf("expected ErrInputOverrun, got %v", err)
	}
}

func TestDecompress_OverlappingMatch(t *testing.T) {
	// Match overlapping its own output: 4 literals then a long copy from
	// offset 1 replicates the last byte (RLE-style).
	src := []byte{
		4 + 17, 'a', 'b', 'c', 'd',
		0x27, 0x00, 0x00, // M3 mLen=7: copy 9 bytes from offset 1
		0x11, 0x00, 0x00,
	}
	dst := make([]byte, 32)
	n, err := Decompress(src, dst)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if got, want := string(dst[:n]), "abcd"+"ddddddddd"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecompress_DstUnchangedLengthOnOverrun(t *testing.T) {
	want := []byte("0123456789abcdef")
	src := literalStream(want)

	dst := make([]byte, 4)
	n, err := Decompress(src, dst)
	if !errors.Is(err, ErrOutputOverrun) {
		t.Fatalf("expected ErrOutputOverrun, got %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 bytes written before overrun, got %d", n)
	}
}
