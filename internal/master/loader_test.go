package master

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"feedenginev1/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadReader_SkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		nsecmLine,
		"",
		"this is not a contract",
		nsefoOpt + "\r",
		"MCXCM|1|1|GOLD|unsubscribed segment",
		nsefoFut,
	}, "\n")

	l := NewLoader(nil, testLogger())
	contracts, err := l.LoadReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if len(contracts) != 3 {
		t.Fatalf("len = %d, want 3", len(contracts))
	}
	if contracts[1].Token != 49543 {
		t.Errorf("CR-terminated line mangled: token = %d", contracts[1].Token)
	}
}

func TestLoadDir_PrefersCombinedFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(latestFileName, nsecmLine+"\n"+nsefoOpt+"\n")
	write("stale_segment_dump.txt", nsefoFut+"\n")

	l := NewLoader(nil, testLogger())
	contracts, err := l.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(contracts) != 2 {
		t.Errorf("len = %d, want 2 (combined file only)", len(contracts))
	}
}

func TestLoadDir_FallsBackToSegmentFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "nsefo.txt"), []byte(nsefoOpt+"\n"+nsefoFut+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(nil, testLogger())
	contracts, err := l.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(contracts) != 2 {
		t.Errorf("len = %d, want 2", len(contracts))
	}
}

func TestLoadDir_EmptyDirFails(t *testing.T) {
	l := NewLoader(nil, testLogger())
	if _, err := l.LoadDir(t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestBuildStores(t *testing.T) {
	l := NewLoader(nil, testLogger())
	contracts, err := l.LoadReader(strings.NewReader(
		nsecmLine + "\n" + nsefoOpt + "\n" + nsefoFut + "\n"))
	if err != nil {
		t.Fatal(err)
	}

	stores := l.BuildStores(contracts)
	if len(stores) != 2 {
		t.Fatalf("segments = %d, want 2", len(stores))
	}

	fo := stores[model.SegmentNSEFO]
	if fo == nil {
		t.Fatal("no NSEFO store")
	}
	lo, hi := fo.Range()
	if lo != 35001 || hi != 49543 {
		t.Errorf("range = [%d, %d], want [35001, 49543]", lo, hi)
	}
	if fo.Count() != 2 {
		t.Errorf("count = %d, want 2", fo.Count())
	}

	row, err := fo.Snapshot(49543)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if row.Symbol != "BANKNIFTY" || row.OptionType != "CE" || row.StrikePrice != 48000 {
		t.Errorf("row identity = %q/%q/%v", row.Symbol, row.OptionType, row.StrikePrice)
	}
	if row.Expiry != "26DEC2024" || row.AssetToken != 26009 || row.LotSize != 15 {
		t.Errorf("row derivative fields = %q/%d/%d", row.Expiry, row.AssetToken, row.LotSize)
	}

	cm := stores[model.SegmentNSECM]
	if cm == nil || cm.Count() != 1 {
		t.Fatalf("NSECM store missing or wrong count")
	}
	eq, err := cm.Snapshot(2885)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if eq.Symbol != "RELIANCE" || eq.TickSize != 0.05 {
		t.Errorf("equity row = %q/%v", eq.Symbol, eq.TickSize)
	}
}
