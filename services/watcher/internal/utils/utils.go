package utils

import (
	"fmt"
	"strconv"
	"time"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/models"
)

// FileTimestampLayout is the suffix layout used for every persisted artifact.
const FileTimestampLayout = "20060102_150405"

// FileTimestamp formats t for use in artifact file names.
func FileTimestamp(t time.Time) string {
	return t.Format(FileTimestampLayout)
}

// NormalizeCoordinates fills the canonical lon/lat fields from the
// longitude/latitude aliases when the canonical ones are absent.
// Running it more than once has no further effect.
func NormalizeCoordinates(st models.StationInformation) models.StationInformation {
	if st.Lon == nil && st.Longitude != nil {
		v := *st.Longitude
		st.Lon = &v
	}
	if st.Lat == nil && st.Latitude != nil {
		v := *st.Latitude
		st.Lat = &v
	}
	return st
}

// TotalCapacity is the number of usable slots at a station right now.
func TotalCapacity(bikes, docks int) int {
	return max(bikes, 0) + max(docks, 0)
}

// UtilizationRate returns bikes/(bikes+docks); 0 when the station has no capacity.
func UtilizationRate(bikes, docks int) float64 {
	bikes, docks = max(bikes, 0), max(docks, 0)
	total := bikes + docks
	if total == 0 {
		return 0.0
	}
	return float64(bikes) / float64(total)
}

// UnixTime converts a GBFS epoch-seconds value; 0 stays the zero time.
func UnixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// FloatPtrString prints optional floats for CSV cells and logs.
func FloatPtrString(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Percent renders a ratio such as 0.3 as "30.00%".
func Percent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

// StationIDs extracts the ids of records in order.
func StationIDs(records []models.StationRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.StationID)
	}
	return ids
}

// CountFresh counts records whose last_reported advanced past the stored
// value. Stations never stored before count as fresh; stations that have
// never reported do not.
func CountFresh(records []models.StationRecord, last map[string]time.Time) int {
	n := 0
	for _, r := range records {
		if r.LastReported.IsZero() {
			continue
		}
		prev, ok := last[r.StationID]
		if !ok || r.LastReported.After(prev) {
			n++
		}
	}
	return n
}
