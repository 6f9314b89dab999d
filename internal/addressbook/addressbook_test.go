package addressbook

import (
	"testing"

	"feedenginev1/internal/model"
)

// checkConsistent asserts the bidirectional invariant: every (key, row)
// pair present in one direction appears in the other.
func checkConsistent[K comparable](t *testing.T, b *Book[K]) {
	t.Helper()
	b.mu.RLock()
	defer b.mu.RUnlock()
	for row, key := range b.byRow {
		found := false
		for _, r := range b.byKey[key] {
			if r == row {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("row %d -> key %v missing from byKey", row, key)
		}
	}
	total := 0
	for key, rows := range b.byKey {
		total += len(rows)
		for _, r := range rows {
			if b.byRow[r] != key {
				t.Errorf("key %v -> row %d disagrees with byRow (%v)", key, r, b.byRow[r])
			}
		}
	}
	if total != len(b.byRow) {
		t.Errorf("direction sizes diverge: byKey holds %d rows, byRow %d", total, len(b.byRow))
	}
}

func TestBook_BindAndLookup(t *testing.T) {
	b := New[int64]()
	key := PackedKey(model.SegmentNSEFO, 49543)
	b.Bind(key, 3)
	b.Bind(key, 7) // same instrument, two rows

	rows := b.Rows(key)
	if len(rows) != 2 || rows[0] != 3 || rows[1] != 7 {
		t.Errorf("Rows = %v, want [3 7]", rows)
	}
	if got, ok := b.Key(7); !ok || got != key {
		t.Errorf("Key(7) = %d,%v want %d,true", got, ok, key)
	}
	checkConsistent(t, b)
}

func TestBook_RebindMovesRow(t *testing.T) {
	b := New[int64]()
	k1 := PackedKey(model.SegmentNSEFO, 100)
	k2 := PackedKey(model.SegmentNSEFO, 200)
	b.Bind(k1, 5)
	b.Bind(k2, 5) // row 5 switches instruments

	if rows := b.Rows(k1); rows != nil {
		t.Errorf("old key still holds rows: %v", rows)
	}
	if rows := b.Rows(k2); len(rows) != 1 || rows[0] != 5 {
		t.Errorf("Rows(k2) = %v, want [5]", rows)
	}
	checkConsistent(t, b)
}

func TestBook_Unbind(t *testing.T) {
	b := New[int64]()
	k := PackedKey(model.SegmentBSECM, 842364)
	b.Bind(k, 0)
	b.Unbind(0)
	b.Unbind(99) // unknown row, no-op

	if b.Len() != 0 {
		t.Errorf("Len = %d, want 0", b.Len())
	}
	if rows := b.Rows(k); rows != nil {
		t.Errorf("Rows after unbind = %v", rows)
	}
	checkConsistent(t, b)
}

func TestBook_StringCompositeKeys(t *testing.T) {
	b := New[string]()
	key := CompositeKey("NSE", "CLI42", 49543)
	if key != "NSE:CLI42:49543" {
		t.Fatalf("CompositeKey = %q", key)
	}
	b.Bind(key, 2)

	if rows := b.Rows(key); len(rows) != 1 || rows[0] != 2 {
		t.Errorf("Rows = %v, want [2]", rows)
	}
	b.OnRowsInserted(0, 4)
	if rows := b.Rows(key); rows[0] != 6 {
		t.Errorf("Rows after insert = %v, want [6]", rows)
	}
	checkConsistent(t, b)
}

func TestBook_OnRowsInserted(t *testing.T) {
	b := New[int64]()
	kA := PackedKey(model.SegmentNSECM, 1)
	kB := PackedKey(model.SegmentNSECM, 2)
	kC := PackedKey(model.SegmentNSECM, 3)
	b.Bind(kA, 0)
	b.Bind(kB, 2)
	b.Bind(kC, 5)

	b.OnRowsInserted(2, 3) // rows 2.. shift up by 3

	if rows := b.Rows(kA); rows[0] != 0 {
		t.Errorf("row below insert point moved: %v", rows)
	}
	if rows := b.Rows(kB); rows[0] != 5 {
		t.Errorf("Rows(kB) = %v, want [5]", rows)
	}
	if rows := b.Rows(kC); rows[0] != 8 {
		t.Errorf("Rows(kC) = %v, want [8]", rows)
	}
	checkConsistent(t, b)
}

func TestBook_OnRowsRemoved(t *testing.T) {
	b := New[int64]()
	kA := PackedKey(model.SegmentNSECM, 1)
	kB := PackedKey(model.SegmentNSECM, 2)
	kC := PackedKey(model.SegmentNSECM, 3)
	b.Bind(kA, 1)
	b.Bind(kB, 3) // inside removed range, must be purged
	b.Bind(kC, 6)

	b.OnRowsRemoved(2, 3) // removes rows 2,3,4

	if rows := b.Rows(kA); rows[0] != 1 {
		t.Errorf("row below removal moved: %v", rows)
	}
	if rows := b.Rows(kB); rows != nil {
		t.Errorf("purged key still present: %v", rows)
	}
	if rows := b.Rows(kC); rows[0] != 3 {
		t.Errorf("Rows(kC) = %v, want [3]", rows)
	}
	if b.Len() != 2 {
		t.Errorf("Len = %d, want 2", b.Len())
	}
	checkConsistent(t, b)
}

func TestBook_OnRowMoved(t *testing.T) {
	b := New[int64]()
	keys := make([]int64, 5)
	for i := range keys {
		keys[i] = PackedKey(model.SegmentNSEFO, uint32(1000+i))
		b.Bind(keys[i], i)
	}

	b.OnRowMoved(1, 3) // row 1 slides down to 3; rows 2,3 shift up

	wantRows := []int{0, 3, 1, 2, 4}
	for i, k := range keys {
		rows := b.Rows(k)
		if len(rows) != 1 || rows[0] != wantRows[i] {
			t.Errorf("key %d: rows = %v, want [%d]", i, rows, wantRows[i])
		}
	}
	checkConsistent(t, b)

	b.OnRowMoved(3, 1) // move it back
	for i, k := range keys {
		rows := b.Rows(k)
		if len(rows) != 1 || rows[0] != i {
			t.Errorf("after reverse move, key %d: rows = %v, want [%d]", i, rows, i)
		}
	}
	checkConsistent(t, b)
}

func TestPackKeyRoundTrip(t *testing.T) {
	key := model.PackKey(model.SegmentBSEFO, 987654321)
	seg, token := model.UnpackKey(key)
	if seg != model.SegmentBSEFO || token != 987654321 {
		t.Errorf("round trip = (%v, %d)", seg, token)
	}
}
