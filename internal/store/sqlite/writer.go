// Package sqlite caches parsed master contracts on disk so the engine
// can come up before the daily master download completes. A single
// writer goroutine owns the database; readers open their own handle.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"feedenginev1/internal/metrics"
	"feedenginev1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/contracts.db"
}

// Writer is a single-goroutine SQLite writer with transaction batching.
type Writer struct {
	db  *sql.DB
	met *metrics.Metrics
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig, met *metrics.Metrics) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db, met: met}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS contracts (
			segment         INTEGER NOT NULL,
			token           INTEGER NOT NULL,
			instrument_type INTEGER NOT NULL,
			name            TEXT    NOT NULL,
			description     TEXT,
			series          TEXT,
			name_with_series TEXT,
			instrument_id   TEXT,
			display_name    TEXT,
			isin            TEXT,
			option_type     TEXT,
			expiry          TEXT,
			strike_price    REAL,
			tick_size       REAL,
			price_band_high REAL,
			price_band_low  REAL,
			lot_size        INTEGER,
			freeze_qty      INTEGER,
			multiplier      INTEGER,
			asset_token     INTEGER,
			PRIMARY KEY (segment, token)
		);

		CREATE TABLE IF NOT EXISTS cache_meta (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`)
	return err
}

// ReplaceContracts atomically replaces the cached contract set. The old
// rows are deleted and the new set inserted in one transaction so a
// crash mid-refresh never leaves a half-written cache.
func (w *Writer) ReplaceContracts(contracts []model.Contract) error {
	start := time.Now()

	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM contracts`); err != nil {
		tx.Rollback()
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO contracts (
			segment, token, instrument_type, name, description, series,
			name_with_series, instrument_id, display_name, isin, option_type,
			expiry, strike_price, tick_size, price_band_high, price_band_low,
			lot_size, freeze_qty, multiplier, asset_token
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range contracts {
		c := &contracts[i]
		_, err := stmt.Exec(
			int(c.Segment), c.Token, c.InstrumentType, c.Name, c.Description, c.Series,
			c.NameWithSeries, c.InstrumentID, c.DisplayName, c.ISIN, c.OptionType,
			c.Expiry, c.StrikePrice, c.TickSize, c.PriceBandHigh, c.PriceBandLow,
			c.LotSize, c.FreezeQty, c.Multiplier, c.AssetToken,
		)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO cache_meta (key, value, updated_at) VALUES ('refreshed', ?, strftime('%s', 'now'))`,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if w.met != nil {
		w.met.SQLiteCommitDur.Observe(time.Since(start).Seconds())
	}
	log.Printf("[sqlite] cached %d contracts in %v", len(contracts), time.Since(start))
	return nil
}

// ContractCount returns the number of cached contracts.
func (w *Writer) ContractCount() (int, error) {
	var n int
	err := w.db.QueryRow(`SELECT COUNT(*) FROM contracts`).Scan(&n)
	return n, err
}

// RefreshedAt returns when the cache was last replaced, or the zero time
// if the cache has never been filled.
func (w *Writer) RefreshedAt() (time.Time, error) {
	var value string
	err := w.db.QueryRow(`SELECT value FROM cache_meta WHERE key = 'refreshed'`).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
