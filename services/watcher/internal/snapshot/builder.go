package snapshot

import (
	"context"
	"log"
	"time"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/models"
)

// FeedSource provides the two feeds a snapshot is built from.
type FeedSource interface {
	StationInformation(ctx context.Context) (*models.StationInformationFeed, error)
	StationStatus(ctx context.Context) (*models.StationStatusFeed, error)
}

// Builder fetches, merges and persists one snapshot per Build call.
type Builder struct {
	source  FeedSource
	dataDir string
	now     func() time.Time
}

// NewBuilder returns a Builder writing CSV snapshots into dataDir.
// An empty dataDir disables CSV persistence.
func NewBuilder(source FeedSource, dataDir string) *Builder {
	return &Builder{source: source, dataDir: dataDir, now: time.Now}
}

// Result is the outcome of a successful Build.
type Result struct {
	Snapshot *Snapshot
	CSVPath  string
	// PersistErr is set when the CSV could not be written; Snapshot is still valid.
	PersistErr error

	InformationStations int
	StatusStations      int
	Skipped             int
	Duplicates          int
}

// Build fetches station_information then station_status, joins them and
// writes the CSV. A fetch or shape error on either feed aborts the build.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	infoFeed, err := b.source.StationInformation(ctx)
	if err != nil {
		return nil, err
	}
	statusFeed, err := b.source.StationStatus(ctx)
	if err != nil {
		return nil, err
	}

	info, err := InformationTable(infoFeed)
	if err != nil {
		return nil, err
	}
	status, err := StatusTable(statusFeed)
	if err != nil {
		return nil, err
	}
	log.Printf("fetched %d information and %d status stations", info.Len(), status.Len())
	if n := info.Skipped + status.Skipped; n > 0 {
		log.Printf("skipped %d entries without station_id", n)
	}

	snap := New(b.now(), Merge(info, status))
	log.Printf("merged %d stations (snapshot=%s)", snap.Len(), snap.ID())

	res := &Result{
		Snapshot:            snap,
		InformationStations: info.Len(),
		StatusStations:      status.Len(),
		Skipped:             info.Skipped + status.Skipped,
		Duplicates:          info.Duplicates + status.Duplicates,
	}

	if b.dataDir == "" {
		return res, nil
	}

	path, err := SaveCSV(b.dataDir, snap.TakenAt(), snap.records)
	if err != nil {
		log.Printf("save snapshot csv failed: %v", err)
		res.PersistErr = err
		return res, nil
	}
	res.CSVPath = path
	log.Printf("saved snapshot to %s", path)
	return res, nil
}
