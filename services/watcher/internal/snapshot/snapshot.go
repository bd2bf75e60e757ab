package snapshot

import (
	"time"

	"github.com/google/uuid"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/models"
)

// Snapshot is one merged station table. It is never modified after New.
type Snapshot struct {
	id      uuid.UUID
	takenAt time.Time
	records []models.StationRecord
}

// New wraps records taken at takenAt into a snapshot with a fresh id.
func New(takenAt time.Time, records []models.StationRecord) *Snapshot {
	return &Snapshot{
		id:      uuid.New(),
		takenAt: takenAt.UTC().Truncate(time.Second),
		records: cloneRecords(records),
	}
}

func (s *Snapshot) ID() uuid.UUID      { return s.id }
func (s *Snapshot) TakenAt() time.Time { return s.takenAt }
func (s *Snapshot) Len() int           { return len(s.records) }
func (s *Snapshot) Empty() bool        { return len(s.records) == 0 }

// Records returns a copy of the rows.
func (s *Snapshot) Records() []models.StationRecord {
	return cloneRecords(s.records)
}

// cloneRecord copies r including the coordinates it points to.
func cloneRecord(r models.StationRecord) models.StationRecord {
	if r.Lon != nil {
		lon := *r.Lon
		r.Lon = &lon
	}
	if r.Lat != nil {
		lat := *r.Lat
		r.Lat = &lat
	}
	return r
}

func cloneRecords(in []models.StationRecord) []models.StationRecord {
	out := make([]models.StationRecord, len(in))
	for i, r := range in {
		out[i] = cloneRecord(r)
	}
	return out
}
