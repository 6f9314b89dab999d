package master

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"feedenginev1/internal/metrics"
	"feedenginev1/internal/model"
	"feedenginev1/internal/store"
)

// latestFileName is the combined master file written after a download.
const latestFileName = "master_contracts_latest.txt"

// Loader streams master files into contracts and builds the per-segment
// price stores the feed handlers write into.
type Loader struct {
	met *metrics.Metrics
	log *slog.Logger
}

func NewLoader(met *metrics.Metrics, log *slog.Logger) *Loader {
	return &Loader{met: met, log: log.With(slog.String("component", "master"))}
}

// LoadDir loads the combined master file from dir, falling back to every
// .txt file in the directory when no combined file exists.
func (l *Loader) LoadDir(dir string) ([]model.Contract, error) {
	combined := filepath.Join(dir, latestFileName)
	if _, err := os.Stat(combined); err == nil {
		return l.LoadFile(combined)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("master: no contract files in %s", dir)
	}
	sort.Strings(paths)

	var all []model.Contract
	for _, p := range paths {
		contracts, err := l.LoadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, contracts...)
	}
	return all, nil
}

func (l *Loader) LoadFile(path string) ([]model.Contract, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	l.log.Info("loading master file", slog.String("path", path))
	return l.LoadReader(f)
}

// LoadReader parses contracts line by line. Lines for unknown segments
// and malformed lines are counted and skipped, never fatal: a single bad
// row must not block the session.
func (l *Loader) LoadReader(r io.Reader) ([]model.Contract, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var contracts []model.Contract
	perSegment := make(map[model.Segment]int)
	skipped := 0
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \r")
		if line == "" {
			continue
		}
		c, err := ParseLine(line)
		if err != nil {
			skipped++
			continue
		}
		contracts = append(contracts, c)
		perSegment[c.Segment]++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("master: read: %w", err)
	}

	for seg, n := range perSegment {
		l.log.Info("parsed contracts",
			slog.String("segment", seg.String()),
			slog.Int("count", n))
	}
	if skipped > 0 {
		l.log.Warn("skipped unparseable lines", slog.Int("count", skipped))
	}
	return contracts, nil
}

// BuildStores groups contracts by segment, sizes one dense store per
// segment from the observed token range and materialises every row.
func (l *Loader) BuildStores(contracts []model.Contract) map[model.Segment]*store.PriceStore {
	type bounds struct{ min, max uint32 }
	ranges := make(map[model.Segment]bounds)
	for i := range contracts {
		c := &contracts[i]
		b, ok := ranges[c.Segment]
		if !ok {
			ranges[c.Segment] = bounds{c.Token, c.Token}
			continue
		}
		if c.Token < b.min {
			b.min = c.Token
		}
		if c.Token > b.max {
			b.max = c.Token
		}
		ranges[c.Segment] = b
	}

	stores := make(map[model.Segment]*store.PriceStore, len(ranges))
	for seg, b := range ranges {
		stores[seg] = store.NewPriceStore(seg, b.min, b.max)
	}
	for i := range contracts {
		c := &contracts[i]
		if err := stores[c.Segment].InitToken(c); err != nil {
			l.log.Warn("contract outside store range",
				slog.String("segment", c.Segment.String()),
				slog.Uint64("token", uint64(c.Token)))
		}
	}

	for seg, st := range stores {
		l.log.Info("store materialised",
			slog.String("segment", seg.String()),
			slog.Int("tokens", st.Count()))
		if l.met != nil {
			l.met.ContractsLoaded.WithLabelValues(seg.String()).Set(float64(st.Count()))
		}
	}
	return stores
}
