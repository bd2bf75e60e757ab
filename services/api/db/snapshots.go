package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Snapshot is the header row of one stored station snapshot.
type Snapshot struct {
	ID              uuid.UUID `json:"id"`
	TakenAt         time.Time `json:"taken_at"`
	StationCount    int       `json:"station_count"`
	TotalBikes      int       `json:"total_bikes"`
	TotalDocks      int       `json:"total_docks"`
	MeanUtilization float64   `json:"mean_utilization"`
	CSVPath         *string   `json:"csv_path,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// StationStatus is one station row within a snapshot.
type StationStatus struct {
	SnapshotID         uuid.UUID  `json:"snapshot_id"`
	TakenAt            time.Time  `json:"taken_at"`
	StationID          string     `json:"station_id"`
	Name               string     `json:"name"`
	Lon                *float64   `json:"lon,omitempty"`
	Lat                *float64   `json:"lat,omitempty"`
	NumBikesAvailable  int        `json:"num_bikes_available"`
	NumEbikesAvailable int        `json:"num_ebikes_available"`
	NumDocksAvailable  int        `json:"num_docks_available"`
	IsInstalled        bool       `json:"is_installed"`
	IsRenting          bool       `json:"is_renting"`
	IsReturning        bool       `json:"is_returning"`
	LastReported       *time.Time `json:"last_reported,omitempty"`
	TotalCapacity      int        `json:"total_capacity"`
	UtilizationRate    float64    `json:"utilization_rate"`
}

// SnapshotDetail is a snapshot header with all its station rows.
type SnapshotDetail struct {
	Snapshot
	Stations []StationStatus `json:"stations"`
}

// SnapshotsPage is one page of snapshot headers.
type SnapshotsPage struct {
	Snapshots  []Snapshot `json:"snapshots"`
	TotalCount int        `json:"total_count"`
}

const snapshotColumns = `id, taken_at, station_count, total_bikes, total_docks, mean_utilization, csv_path, created_at`

const statusColumns = `st.snapshot_id, sn.taken_at, st.station_id, s.name, s.lon, s.lat,
		       st.num_bikes_available, st.num_ebikes_available, st.num_docks_available,
		       st.is_installed, st.is_renting, st.is_returning, st.last_reported,
		       st.total_capacity, st.utilization_rate`

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var sn Snapshot
	err := row.Scan(
		&sn.ID,
		&sn.TakenAt,
		&sn.StationCount,
		&sn.TotalBikes,
		&sn.TotalDocks,
		&sn.MeanUtilization,
		&sn.CSVPath,
		&sn.CreatedAt,
	)
	return sn, err
}

func collectStatuses(rows pgx.Rows) ([]StationStatus, error) {
	statuses := make([]StationStatus, 0)
	for rows.Next() {
		var st StationStatus
		if err := rows.Scan(
			&st.SnapshotID,
			&st.TakenAt,
			&st.StationID,
			&st.Name,
			&st.Lon,
			&st.Lat,
			&st.NumBikesAvailable,
			&st.NumEbikesAvailable,
			&st.NumDocksAvailable,
			&st.IsInstalled,
			&st.IsRenting,
			&st.IsReturning,
			&st.LastReported,
			&st.TotalCapacity,
			&st.UtilizationRate,
		); err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

// ListSnapshots returns snapshot headers newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit, offset int) (*SnapshotsPage, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bixi.snapshots`).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+snapshotColumns+`
		FROM bixi.snapshots
		ORDER BY taken_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := &SnapshotsPage{Snapshots: make([]Snapshot, 0, limit), TotalCount: total}
	for rows.Next() {
		sn, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		page.Snapshots = append(page.Snapshots, sn)
	}
	return page, rows.Err()
}

// LatestSnapshot returns the most recent snapshot, or nil when none is stored.
func (s *Store) LatestSnapshot(ctx context.Context) (*SnapshotDetail, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+snapshotColumns+` FROM bixi.snapshots ORDER BY taken_at DESC LIMIT 1`)
	return s.snapshotDetail(ctx, row)
}

// SnapshotByID returns one snapshot, or nil when it does not exist.
func (s *Store) SnapshotByID(ctx context.Context, id uuid.UUID) (*SnapshotDetail, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+snapshotColumns+` FROM bixi.snapshots WHERE id = $1`, id)
	return s.snapshotDetail(ctx, row)
}

func (s *Store) snapshotDetail(ctx context.Context, row pgx.Row) (*SnapshotDetail, error) {
	sn, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+statusColumns+`
		FROM bixi.station_status st
		JOIN bixi.snapshots sn ON sn.id = st.snapshot_id
		JOIN bixi.stations s ON s.station_id = st.station_id
		WHERE st.snapshot_id = $1
		ORDER BY st.station_id
	`, sn.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses, err := collectStatuses(rows)
	if err != nil {
		return nil, err
	}
	return &SnapshotDetail{Snapshot: sn, Stations: statuses}, nil
}
