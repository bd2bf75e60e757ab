package db

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/snapshot"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/utils"
)

// Writer stores snapshots in Postgres. In dry-run mode it only reads.
type Writer struct {
	pool   *pgxpool.Pool
	dryRun bool
}

// NewWriter returns a Writer over pool.
func NewWriter(pool *pgxpool.Pool, dryRun bool) *Writer {
	return &Writer{pool: pool, dryRun: dryRun}
}

// SaveSnapshot upserts the stations, then inserts the snapshot and its
// status rows. It returns the number of stations whose last_reported
// advanced since the previous stored snapshot.
func (w *Writer) SaveSnapshot(ctx context.Context, snap *snapshot.Snapshot, csvPath string) (int, error) {
	records := snap.Records()

	last, err := FetchLastReported(ctx, w.pool, utils.StationIDs(records))
	if err != nil {
		return 0, err
	}
	fresh := utils.CountFresh(records, last)
	log.Printf("prepared snapshot %s: %d stations, %d fresh (dry-run=%v)", snap.ID(), len(records), fresh, w.dryRun)

	if w.dryRun {
		log.Printf("dry-run: skipping station upsert and snapshot insert")
		return fresh, nil
	}

	if err := UpsertStations(ctx, w.pool, records); err != nil {
		return 0, err
	}
	if err := InsertSnapshot(ctx, w.pool, snap, csvPath); err != nil {
		return 0, err
	}

	log.Printf("inserted snapshot %s with %d station rows", snap.ID(), len(records))
	return fresh, nil
}
