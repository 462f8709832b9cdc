package storage

import (
	"database/sql"

	"market-streamer/src/models"
)

// scanTicks drains rows selected in archive column order and closes them.
func scanTicks(rows *sql.Rows) ([]models.TickData, error) {
	defer rows.Close()

	ticks := []models.TickData{}
	for rows.Next() {
		var t models.TickData
		if err := rows.Scan(&t.Symbol, &t.Timestamp, &t.Price, &t.Change, &t.ChangePercent, &t.Volume, &t.High, &t.Low, &t.Open); err != nil {
			return nil, err
		}
		ticks = append(ticks, t)
	}
	return ticks, rows.Err()
}
