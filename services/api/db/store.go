package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Station represents the static attributes of a docking station.
type Station struct {
	StationID string    `json:"station_id"`
	Name      string    `json:"name"`
	ShortName *string   `json:"short_name,omitempty"`
	Lon       *float64  `json:"lon,omitempty"`
	Lat       *float64  `json:"lat,omitempty"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const stationColumns = `station_id, name, short_name, lon, lat, capacity, created_at, updated_at`

func scanStation(row pgx.Row) (Station, error) {
	var st Station
	err := row.Scan(
		&st.StationID,
		&st.Name,
		&st.ShortName,
		&st.Lon,
		&st.Lat,
		&st.Capacity,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	return st, err
}

// ListStations returns all known stations ordered by id.
func (s *Store) ListStations(ctx context.Context) ([]Station, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+stationColumns+` FROM bixi.stations ORDER BY station_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]Station, 0)
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// GetStation returns one station, or nil when it does not exist.
func (s *Store) GetStation(ctx context.Context, stationID string) (*Station, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+stationColumns+` FROM bixi.stations WHERE station_id = $1`, stationID)
	st, err := scanStation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// StationHistory returns the lastN status rows of a station, newest first.
func (s *Store) StationHistory(ctx context.Context, stationID string, lastN int) ([]StationStatus, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+statusColumns+`
		FROM bixi.station_status st
		JOIN bixi.snapshots sn ON sn.id = st.snapshot_id
		JOIN bixi.stations s ON s.station_id = st.station_id
		WHERE st.station_id = $1
		ORDER BY sn.taken_at DESC
		LIMIT $2
	`, stationID, lastN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectStatuses(rows)
}
