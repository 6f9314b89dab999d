package store

import (
	"testing"

	"feedenginev1/internal/model"
)

func TestIndexStore_InsertOnFirstSight(t *testing.T) {
	s := NewIndexStore(model.SegmentNSECM)

	if _, ok := s.Snapshot("NIFTY 50"); ok {
		t.Fatal("unexpected row before first update")
	}

	s.Update("NIFTY 50", IndexUpdate{Value: 24350.15, Close: 24300.00, High: 24400, Low: 24250})

	row, ok := s.Snapshot("NIFTY 50")
	if !ok {
		t.Fatal("expected row after first update")
	}
	if row.Name != "NIFTY 50" || row.Segment != model.SegmentNSECM {
		t.Errorf("identity: got %q seg=%v", row.Name, row.Segment)
	}
	if row.Value != 24350.15 {
		t.Errorf("value: got %v, want 24350.15", row.Value)
	}
	if diff := row.Change - 50.15; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("change: got %v, want 50.15", row.Change)
	}
	if row.UpdatedAt == 0 {
		t.Error("UpdatedAt not stamped")
	}
}

func TestIndexStore_DerivesPercentChange(t *testing.T) {
	s := NewIndexStore(model.SegmentNSECM)

	// Feed carries no percent change: derive from close.
	s.Update("NIFTY BANK", IndexUpdate{Value: 51000, Close: 50000})
	row, _ := s.Snapshot("NIFTY BANK")
	if diff := row.PercentChange - 2.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("derived pct: got %v, want 2.0", row.PercentChange)
	}

	// Feed-carried percent change wins.
	s.Update("NIFTY BANK", IndexUpdate{Value: 51000, Close: 50000, PctChange: 1.5})
	row, _ = s.Snapshot("NIFTY BANK")
	if row.PercentChange != 1.5 {
		t.Errorf("feed pct: got %v, want 1.5", row.PercentChange)
	}
}

func TestIndexStore_EmptyNameIgnored(t *testing.T) {
	s := NewIndexStore(model.SegmentNSECM)
	s.Update("", IndexUpdate{Value: 1})
	if s.Len() != 0 {
		t.Errorf("len: got %d, want 0", s.Len())
	}
}

func TestIndexStore_NamesAndAllSorted(t *testing.T) {
	s := NewIndexStore(model.SegmentNSECM)
	s.Update("NIFTY IT", IndexUpdate{Value: 36100})
	s.Update("NIFTY 50", IndexUpdate{Value: 24350})
	s.Update("NIFTY BANK", IndexUpdate{Value: 51200})

	names := s.Names()
	want := []string{"NIFTY 50", "NIFTY BANK", "NIFTY IT"}
	if len(names) != len(want) {
		t.Fatalf("names: got %d, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d]: got %q, want %q", i, names[i], want[i])
		}
	}

	all := s.All()
	for i, row := range all {
		if row.Name != want[i] {
			t.Errorf("all[%d]: got %q, want %q", i, row.Name, want[i])
		}
	}
	if s.Len() != 3 {
		t.Errorf("len: got %d, want 3", s.Len())
	}
}
