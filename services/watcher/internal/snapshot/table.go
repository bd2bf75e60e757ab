package snapshot

import (
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/gbfs"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/models"
)

var validate = validator.New()

// Table holds one feed's station entries keyed by station id, in feed order.
type Table[T any] struct {
	ids  []string
	rows map[string]T

	// Skipped counts entries rejected by validation (e.g. no station_id).
	Skipped int
	// Duplicates counts repeated ids; the first occurrence is kept.
	Duplicates int
}

// Len returns the number of distinct stations.
func (t *Table[T]) Len() int {
	return len(t.ids)
}

// IDs returns station ids in feed order.
func (t *Table[T]) IDs() []string {
	return slices.Clone(t.ids)
}

// Get looks up a station by id.
func (t *Table[T]) Get(id string) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

// InformationTable indexes the station_information feed.
func InformationTable(feed *models.StationInformationFeed) (*Table[models.StationInformation], error) {
	if feed == nil || feed.Data == nil || feed.Data.Stations == nil {
		return nil, &gbfs.MalformedFeedError{Feed: gbfs.StationInformation, Reason: "missing data.stations list"}
	}
	return buildTable(feed.Data.Stations, func(s models.StationInformation) string {
		return string(s.StationID)
	}), nil
}

// StatusTable indexes the station_status feed.
func StatusTable(feed *models.StationStatusFeed) (*Table[models.StationStatus], error) {
	if feed == nil || feed.Data == nil || feed.Data.Stations == nil {
		return nil, &gbfs.MalformedFeedError{Feed: gbfs.StationStatus, Reason: "missing data.stations list"}
	}
	return buildTable(feed.Data.Stations, func(s models.StationStatus) string {
		return string(s.StationID)
	}), nil
}

func buildTable[T any](items []T, key func(T) string) *Table[T] {
	t := &Table[T]{
		ids:  make([]string, 0, len(items)),
		rows: make(map[string]T, len(items)),
	}
	for _, item := range items {
		if err := validate.Struct(item); err != nil {
			t.Skipped++
			continue
		}
		id := key(item)
		if _, seen := t.rows[id]; seen {
			t.Duplicates++
			continue
		}
		t.ids = append(t.ids, id)
		t.rows[id] = item
	}
	return t
}
