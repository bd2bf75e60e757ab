package snapshot

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/models"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/utils"
)

// Extent is the bounding box of stations with coordinates.
type Extent struct {
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
}

// RankedStation is a station listed in Stats.Busiest.
type RankedStation struct {
	StationID       string  `json:"station_id"`
	Name            string  `json:"name"`
	UtilizationRate float64 `json:"utilization_rate"`
}

// Stats are the aggregate figures handed to the AI analysis step.
type Stats struct {
	Stations        int             `json:"stations"`
	TotalBikes      int             `json:"total_bikes"`
	TotalDocks      int             `json:"total_docks"`
	MeanBikes       float64         `json:"mean_bikes"`
	MeanDocks       float64         `json:"mean_docks"`
	MeanUtilization float64         `json:"mean_utilization"`
	MinUtilization  float64         `json:"min_utilization"`
	MaxUtilization  float64         `json:"max_utilization"`
	EmptyStations   int             `json:"empty_stations"`
	FullStations    int             `json:"full_stations"`
	Extent          *Extent         `json:"extent,omitempty"`
	Busiest         []RankedStation `json:"busiest"`
}

// Summarize computes Stats over records, ranking the topN busiest stations.
func Summarize(records []models.StationRecord, topN int) Stats {
	topN = max(topN, 0)
	s := Stats{Stations: len(records), Busiest: make([]RankedStation, 0, topN)}
	if len(records) == 0 {
		return s
	}

	s.MinUtilization = math.Inf(1)
	s.MaxUtilization = math.Inf(-1)
	var utilSum float64
	for _, r := range records {
		s.TotalBikes += r.NumBikesAvailable
		s.TotalDocks += r.NumDocksAvailable
		utilSum += r.UtilizationRate
		s.MinUtilization = math.Min(s.MinUtilization, r.UtilizationRate)
		s.MaxUtilization = math.Max(s.MaxUtilization, r.UtilizationRate)
		if r.TotalCapacity > 0 && r.NumBikesAvailable == 0 {
			s.EmptyStations++
		}
		if r.TotalCapacity > 0 && r.NumDocksAvailable == 0 {
			s.FullStations++
		}
		if r.HasCoordinates() {
			s.Extent = grow(s.Extent, *r.Lon, *r.Lat)
		}
	}

	n := float64(len(records))
	s.MeanBikes = float64(s.TotalBikes) / n
	s.MeanDocks = float64(s.TotalDocks) / n
	s.MeanUtilization = utilSum / n

	ranked := slices.Clone(records)
	slices.SortStableFunc(ranked, func(a, b models.StationRecord) int {
		return cmp.Compare(b.UtilizationRate, a.UtilizationRate)
	})
	for _, r := range ranked[:min(topN, len(ranked))] {
		s.Busiest = append(s.Busiest, RankedStation{StationID: r.StationID, Name: r.Name, UtilizationRate: r.UtilizationRate})
	}
	return s
}

func grow(e *Extent, lon, lat float64) *Extent {
	if e == nil {
		return &Extent{MinLon: lon, MaxLon: lon, MinLat: lat, MaxLat: lat}
	}
	e.MinLon = math.Min(e.MinLon, lon)
	e.MaxLon = math.Max(e.MaxLon, lon)
	e.MinLat = math.Min(e.MinLat, lat)
	e.MaxLat = math.Max(e.MaxLat, lat)
	return e
}

// String renders the plain-text summary used in prompts.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total Stations: %d\n", s.Stations)
	if s.Stations == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "Average Bikes Available: %.2f\n", s.MeanBikes)
	fmt.Fprintf(&b, "Total Bikes Available: %d\n", s.TotalBikes)
	fmt.Fprintf(&b, "Average Docks Available: %.2f\n", s.MeanDocks)
	fmt.Fprintf(&b, "Total Docks Available: %d\n", s.TotalDocks)
	fmt.Fprintf(&b, "Average Utilization Rate: %s\n", utils.Percent(s.MeanUtilization))
	fmt.Fprintf(&b, "Max Utilization Rate: %s\n", utils.Percent(s.MaxUtilization))
	fmt.Fprintf(&b, "Min Utilization Rate: %s\n", utils.Percent(s.MinUtilization))
	fmt.Fprintf(&b, "Empty Stations: %d\n", s.EmptyStations)
	fmt.Fprintf(&b, "Full Stations: %d\n", s.FullStations)
	if s.Extent != nil {
		b.WriteString("Geographic Extent:\n")
		fmt.Fprintf(&b, "  Longitude: %.4f to %.4f\n", s.Extent.MinLon, s.Extent.MaxLon)
		fmt.Fprintf(&b, "  Latitude: %.4f to %.4f\n", s.Extent.MinLat, s.Extent.MaxLat)
	}
	if len(s.Busiest) > 0 {
		fmt.Fprintf(&b, "\nTop %d Stations by Utilization:\n", len(s.Busiest))
		for _, r := range s.Busiest {
			fmt.Fprintf(&b, "  %s: %s\n", r.Name, utils.Percent(r.UtilizationRate))
		}
	}
	return b.String()
}
