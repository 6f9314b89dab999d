package sqlite

import (
	"database/sql"
	"fmt"
	"log"

	"feedenginev1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to the contract cache for cold starts.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

const contractColumns = `
	segment, token, instrument_type, name, description, series,
	name_with_series, instrument_id, display_name, isin, option_type,
	expiry, strike_price, tick_size, price_band_high, price_band_low,
	lot_size, freeze_qty, multiplier, asset_token`

// ReadContracts loads every cached contract, ordered by (segment, token).
func (r *Reader) ReadContracts() ([]model.Contract, error) {
	rows, err := r.db.Query(`SELECT ` + contractColumns + ` FROM contracts ORDER BY segment, token`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query contracts: %w", err)
	}
	defer rows.Close()
	return scanContracts(rows)
}

// ReadSegment loads the cached contracts of one segment.
func (r *Reader) ReadSegment(seg model.Segment) ([]model.Contract, error) {
	rows, err := r.db.Query(
		`SELECT `+contractColumns+` FROM contracts WHERE segment = ? ORDER BY token`,
		int(seg),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite query segment %s: %w", seg, err)
	}
	defer rows.Close()
	return scanContracts(rows)
}

func scanContracts(rows *sql.Rows) ([]model.Contract, error) {
	var contracts []model.Contract
	for rows.Next() {
		var c model.Contract
		var seg int
		err := rows.Scan(
			&seg, &c.Token, &c.InstrumentType, &c.Name, &c.Description, &c.Series,
			&c.NameWithSeries, &c.InstrumentID, &c.DisplayName, &c.ISIN, &c.OptionType,
			&c.Expiry, &c.StrikePrice, &c.TickSize, &c.PriceBandHigh, &c.PriceBandLow,
			&c.LotSize, &c.FreezeQty, &c.Multiplier, &c.AssetToken,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite scan contract: %w", err)
		}
		c.Segment = model.Segment(seg)
		c.Exchange = c.Segment.String()
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
