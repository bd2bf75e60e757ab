package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/models"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/snapshot"
)

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS bixi;

CREATE TABLE IF NOT EXISTS bixi.stations (
    station_id  TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    short_name  TEXT,
    lon         DOUBLE PRECISION,
    lat         DOUBLE PRECISION,
    capacity    INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bixi.snapshots (
    id               UUID PRIMARY KEY,
    taken_at         TIMESTAMPTZ NOT NULL,
    station_count    INTEGER NOT NULL,
    total_bikes      INTEGER NOT NULL,
    total_docks      INTEGER NOT NULL,
    mean_utilization DOUBLE PRECISION NOT NULL,
    csv_path         TEXT,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS snapshots_taken_at_idx ON bixi.snapshots (taken_at DESC);

CREATE TABLE IF NOT EXISTS bixi.station_status (
    snapshot_id          UUID NOT NULL REFERENCES bixi.snapshots (id) ON DELETE CASCADE,
    station_id           TEXT NOT NULL REFERENCES bixi.stations (station_id),
    num_bikes_available  INTEGER NOT NULL,
    num_ebikes_available INTEGER NOT NULL,
    num_docks_available  INTEGER NOT NULL,
    is_installed         BOOLEAN NOT NULL,
    is_renting           BOOLEAN NOT NULL,
    is_returning         BOOLEAN NOT NULL,
    last_reported        TIMESTAMPTZ,
    total_capacity       INTEGER NOT NULL,
    utilization_rate     DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (snapshot_id, station_id)
);

CREATE INDEX IF NOT EXISTS station_status_station_idx ON bixi.station_status (station_id, snapshot_id);
`

// EnsureSchema creates the bixi schema and tables when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}

// UpsertStations inserts/updates static station attributes.
func UpsertStations(ctx context.Context, pool *pgxpool.Pool, records []models.StationRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO bixi.stations (station_id, name, short_name, lon, lat, capacity, created_at, updated_at)
VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,NOW(),NOW())
ON CONFLICT (station_id) DO UPDATE
SET name = EXCLUDED.name,
    short_name = EXCLUDED.short_name,
    lon = EXCLUDED.lon,
    lat = EXCLUDED.lat,
    capacity = EXCLUDED.capacity,
    updated_at = NOW()`

	for _, r := range records {
		batch.Queue(query, r.StationID, r.Name, r.ShortName, r.Lon, r.Lat, r.Capacity)
	}

	res := pool.SendBatch(ctx, batch)
	defer res.Close()

	for range records {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// FetchLastReported loads the most recent stored last_reported per station.
func FetchLastReported(ctx context.Context, pool *pgxpool.Pool, stationIDs []string) (map[string]time.Time, error) {
	result := make(map[string]time.Time, len(stationIDs))
	if len(stationIDs) == 0 {
		return result, nil
	}

	rows, err := pool.Query(ctx, `
SELECT station_id, MAX(last_reported)
FROM bixi.station_status
WHERE station_id = ANY($1) AND last_reported IS NOT NULL
GROUP BY station_id`, stationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var stationID string
		var ts time.Time
		if err := rows.Scan(&stationID, &ts); err != nil {
			return nil, err
		}
		result[stationID] = ts
	}

	return result, rows.Err()
}

// InsertSnapshot writes the snapshot header row and one station_status row
// per station in a single transaction.
func InsertSnapshot(ctx context.Context, pool *pgxpool.Pool, snap *snapshot.Snapshot, csvPath string) error {
	records := snap.Records()
	stats := snapshot.Summarize(records, 0)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `INSERT INTO bixi.snapshots (id, taken_at, station_count, total_bikes, total_docks, mean_utilization, csv_path, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),NOW())`,
		snap.ID(), snap.TakenAt(), stats.Stations, stats.TotalBikes, stats.TotalDocks, stats.MeanUtilization, csvPath)
	if err != nil {
		return err
	}

	if len(records) > 0 {
		batch := &pgx.Batch{}
		query := `INSERT INTO bixi.station_status (snapshot_id, station_id, num_bikes_available, num_ebikes_available, num_docks_available,
    is_installed, is_renting, is_returning, last_reported, total_capacity, utilization_rate)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

		for _, r := range records {
			batch.Queue(query, snap.ID(), r.StationID, r.NumBikesAvailable, r.NumEbikesAvailable, r.NumDocksAvailable,
				r.IsInstalled, r.IsRenting, r.IsReturning, nullTime(r.LastReported), r.TotalCapacity, r.UtilizationRate)
		}

		res := tx.SendBatch(ctx, batch)
		for range records {
			if _, err := res.Exec(); err != nil {
				res.Close()
				return err
			}
		}
		if err := res.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
