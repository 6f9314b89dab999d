// Package addressbook maintains a bidirectional map between instrument
// keys and the row indices of a consumer's view (market-watch table,
// option chain). One key may back several rows; every row backs exactly
// one key. Row-shift fixups keep both directions consistent when the
// consumer inserts, removes or moves rows.
package addressbook

import (
	"sort"
	"strconv"
	"sync"

	"feedenginev1/internal/model"
)

// Book maps keys to row indices and back. The key type is whatever the
// consumer addresses instruments by: a plain token, the packed
// (segment, token) int64 from the model package, or a composite string.
type Book[K comparable] struct {
	mu    sync.RWMutex
	byKey map[K][]int
	byRow map[int]K
}

func New[K comparable]() *Book[K] {
	return &Book[K]{
		byKey: make(map[K][]int),
		byRow: make(map[int]K),
	}
}

// CompositeKey renders the human-keyed "exchange:client:token" form.
func CompositeKey(exchange, client string, token uint32) string {
	return exchange + ":" + client + ":" + strconv.FormatUint(uint64(token), 10)
}

// PackedKey is a convenience re-export of the model packing for callers
// that key books by (segment, token).
func PackedKey(seg model.Segment, token uint32) int64 {
	return model.PackKey(seg, token)
}

// Bind associates a row with a key. A row already bound to another key is
// rebound; the old association is dropped from both directions.
func (b *Book[K]) Bind(key K, row int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.byRow[row]; ok {
		b.removeRowFromKey(old, row)
	}
	b.byRow[row] = key
	b.byKey[key] = append(b.byKey[key], row)
}

// Unbind drops a row from both directions. Unknown rows are ignored.
func (b *Book[K]) Unbind(row int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key, ok := b.byRow[row]
	if !ok {
		return
	}
	delete(b.byRow, row)
	b.removeRowFromKey(key, row)
}

// removeRowFromKey erases one row from a key's row list. Caller holds mu.
func (b *Book[K]) removeRowFromKey(key K, row int) {
	rows := b.byKey[key]
	for i, r := range rows {
		if r == row {
			rows = append(rows[:i], rows[i+1:]...)
			break
		}
	}
	if len(rows) == 0 {
		delete(b.byKey, key)
	} else {
		b.byKey[key] = rows
	}
}

// Rows returns the rows bound to a key, ascending. The slice is a copy.
func (b *Book[K]) Rows(key K) []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rows := b.byKey[key]
	if len(rows) == 0 {
		return nil
	}
	out := make([]int, len(rows))
	copy(out, rows)
	sort.Ints(out)
	return out
}

// Key returns the key bound to a row.
func (b *Book[K]) Key(row int) (K, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	key, ok := b.byRow[row]
	return key, ok
}

// Len returns the number of bound rows.
func (b *Book[K]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byRow)
}

// OnRowsInserted shifts every stored index >= firstRow up by count, after
// the consumer inserted count rows at firstRow.
func (b *Book[K]) OnRowsInserted(firstRow, count int) {
	if count <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remap(func(row int) (int, bool) {
		if row >= firstRow {
			return row + count, true
		}
		return row, true
	})
}

// OnRowsRemoved purges bindings inside [firstRow, firstRow+count) and
// shifts indices beyond the range down by count.
func (b *Book[K]) OnRowsRemoved(firstRow, count int) {
	if count <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	last := firstRow + count - 1
	b.remap(func(row int) (int, bool) {
		switch {
		case row < firstRow:
			return row, true
		case row <= last:
			return 0, false
		default:
			return row - count, true
		}
	})
}

// OnRowMoved rewrites the single index from to to, shifting the rows in
// between the way a list move does.
func (b *Book[K]) OnRowMoved(from, to int) {
	if from == to {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remap(func(row int) (int, bool) {
		switch {
		case row == from:
			return to, true
		case from < to && row > from && row <= to:
			return row - 1, true
		case to < from && row >= to && row < from:
			return row + 1, true
		default:
			return row, true
		}
	})
}

// remap rebuilds both directions by applying fn to every bound row.
// fn returns the new index and whether the binding survives. Caller
// holds mu.
func (b *Book[K]) remap(fn func(row int) (int, bool)) {
	newByRow := make(map[int]K, len(b.byRow))
	newByKey := make(map[K][]int, len(b.byKey))
	for row, key := range b.byRow {
		newRow, keep := fn(row)
		if !keep {
			continue
		}
		newByRow[newRow] = key
		newByKey[key] = append(newByKey[key], newRow)
	}
	b.byRow = newByRow
	b.byKey = newByKey
}
