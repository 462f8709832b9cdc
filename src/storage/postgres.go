package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"market-streamer/src/logger"
	"market-streamer/src/models"

	"github.com/lib/pq"
)

// -----------------------------------------------------------------------------

// PostgresTickStore archives ticks in a schema named after the running binary.
type PostgresTickStore struct {
	Config *models.MStorageConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresTickStore(cfg *models.MStorageConfig, log *logger.Logger) (*PostgresTickStore, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresTickStore{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresTickStore) Initialize() error {
	db, err := sql.Open("postgres", d.Config.DBConnectionString)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pq.QuoteIdentifier(d.Schema))); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresTickStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresTickStore) table() string {
	return pq.QuoteIdentifier(d.Schema) + `."ticks"`
}

func (d *PostgresTickStore) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			symbol TEXT NOT NULL,
			timestamp BIGINT NOT NULL,
			price DOUBLE PRECISION,
			change DOUBLE PRECISION,
			change_percent DOUBLE PRECISION,
			volume BIGINT,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			open DOUBLE PRECISION,
			PRIMARY KEY (symbol, timestamp)
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create ticks: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresTickStore) SaveTicks(ticks []models.TickData) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (symbol, timestamp, price, change, change_percent, volume, high, low, open)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, timestamp) DO UPDATE SET
			price = EXCLUDED.price,
			change = EXCLUDED.change,
			change_percent = EXCLUDED.change_percent,
			volume = EXCLUDED.volume,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			open = EXCLUDED.open
	`, d.table())
	stmt, err := tx.Prepare(query)
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

func (d *PostgresTickStore) RecentTicks(symbol string, limit int) ([]models.TickData, error) {
	rows, err := d.DB.Query(fmt.Sprintf(`
		SELECT symbol, timestamp, price, change, change_percent, volume, high, low, open
		FROM %s
		WHERE symbol = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, d.table()), strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, err
	}
	return scanTicks(rows)
}

// -----------------------------------------------------------------------------

func (d *PostgresTickStore) CleanupOlderThan(cutoff time.Time) (int64, error) {
	res, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE timestamp < $1`, d.table()), cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cleanup ticks: %w", err)
	}
	return res.RowsAffected()
}

// -----------------------------------------------------------------------------

func (d *PostgresTickStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
