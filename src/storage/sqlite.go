package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"market-streamer/src/logger"
	"market-streamer/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// SQLiteTickStore archives ticks in a local SQLite file.
type SQLiteTickStore struct {
	Config *models.MStorageConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteTickStore(cfg *models.MStorageConfig, log *logger.Logger) *SQLiteTickStore {
	return &SQLiteTickStore{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteTickStore) Initialize() error {
	db, err := sql.Open("sqlite", d.Config.DBPath)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	// Serialise writers
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteTickStore) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS ticks (
			symbol TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			price REAL,
			change REAL,
			change_percent REAL,
			volume INTEGER,
			high REAL,
			low REAL,
			open REAL,
			PRIMARY KEY (symbol, timestamp)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create ticks: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteTickStore) SaveTicks(ticks []models.TickData) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO ticks (symbol, timestamp, price, change, change_percent, volume, high, low, open)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range ticks {
		_, err := stmt.Exec(t.Symbol, t.Timestamp, t.Price, t.Change, t.ChangePercent, t.Volume, t.High, t.Low, t.Open)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteTickStore) RecentTicks(symbol string, limit int) ([]models.TickData, error) {
	rows, err := d.DB.Query(`
		SELECT symbol, timestamp, price, change, change_percent, volume, high, low, open
		FROM ticks
		WHERE symbol = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, err
	}
	return scanTicks(rows)
}

// -----------------------------------------------------------------------------

func (d *SQLiteTickStore) CleanupOlderThan(cutoff time.Time) (int64, error) {
	res, err := d.DB.Exec("DELETE FROM ticks WHERE timestamp < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cleanup ticks: %w", err)
	}
	return res.RowsAffected()
}

// -----------------------------------------------------------------------------

func (d *SQLiteTickStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
