// Package geo exports station snapshots as classified GeoJSON point layers.
package geo

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/models"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/utils"
)

// ramp is a light-to-dark sequential palette, sampled evenly for n classes.
var ramp = []string{
	"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c",
	"#fc4e2a", "#e31a1c", "#bd0026", "#800026",
}

// Classify returns n quantile class breaks over values. Each break is the
// inclusive upper bound of its class; the last break is the maximum.
func Classify(values []float64, n int) []float64 {
	if len(values) == 0 || n <= 0 {
		return nil
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	breaks := make([]float64, n)
	for i := 1; i <= n; i++ {
		idx := int(math.Ceil(float64(i*len(sorted))/float64(n))) - 1
		breaks[i-1] = sorted[max(idx, 0)]
	}
	return breaks
}

// ClassOf returns the index of the first break not below v. Values above the
// last break fall in the last class.
func ClassOf(v float64, breaks []float64) int {
	for i, b := range breaks {
		if v <= b {
			return i
		}
	}
	return max(len(breaks)-1, 0)
}

// Color returns the ramp color for class out of n classes.
func Color(class, n int) string {
	if n <= 1 {
		return ramp[len(ramp)/2]
	}
	class = min(max(class, 0), n-1)
	return ramp[class*(len(ramp)-1)/(n-1)]
}

// UtilizationBreaks classifies the utilization rates of records.
func UtilizationBreaks(records []models.StationRecord, n int) []float64 {
	values := make([]float64, 0, len(records))
	for _, r := range records {
		values = append(values, r.UtilizationRate)
	}
	return Classify(values, n)
}

// FeatureCollection builds one point feature per station with coordinates.
// Stations without coordinates are skipped.
func FeatureCollection(records []models.StationRecord, breaks []float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range records {
		if !r.HasCoordinates() {
			continue
		}
		f := geojson.NewFeature(orb.Point{*r.Lon, *r.Lat})
		f.ID = r.StationID

		class := ClassOf(r.UtilizationRate, breaks)
		f.Properties["station_id"] = r.StationID
		f.Properties["name"] = r.Name
		f.Properties["short_name"] = r.ShortName
		f.Properties["capacity"] = r.Capacity
		f.Properties["num_bikes_available"] = r.NumBikesAvailable
		f.Properties["num_ebikes_available"] = r.NumEbikesAvailable
		f.Properties["num_docks_available"] = r.NumDocksAvailable
		f.Properties["is_installed"] = r.IsInstalled
		f.Properties["is_renting"] = r.IsRenting
		f.Properties["is_returning"] = r.IsReturning
		if !r.LastReported.IsZero() {
			f.Properties["last_reported"] = r.LastReported.UTC().Format(time.RFC3339)
		}
		f.Properties["total_capacity"] = r.TotalCapacity
		f.Properties["utilization_rate"] = r.UtilizationRate
		f.Properties["utilization_class"] = class
		f.Properties["marker-color"] = Color(class, len(breaks))

		fc.Append(f)
	}
	return fc
}

// FileName returns the GeoJSON file name for a map taken at takenAt.
func FileName(name string, takenAt time.Time) string {
	return fmt.Sprintf("%s_%s.geojson", name, utils.FileTimestamp(takenAt))
}

// Save writes fc into dir and returns the file path.
func Save(dir, name string, takenAt time.Time, fc *geojson.FeatureCollection) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create map dir: %w", err)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encode geojson: %w", err)
	}
	path := filepath.Join(dir, FileName(name, takenAt))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write geojson: %w", err)
	}
	return path, nil
}
