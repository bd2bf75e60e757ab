package snapshot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/models"
)

func TestSummarize(t *testing.T) {
	records := []models.StationRecord{
		{StationID: "1", Name: "Full", Lon: f64(-73.6), Lat: f64(45.4), NumBikesAvailable: 10, NumDocksAvailable: 0, TotalCapacity: 10, UtilizationRate: 1},
		{StationID: "2", Name: "Empty", Lon: f64(-73.5), Lat: f64(45.6), NumBikesAvailable: 0, NumDocksAvailable: 10, TotalCapacity: 10, UtilizationRate: 0},
		{StationID: "3", Name: "Half", NumBikesAvailable: 4, NumDocksAvailable: 4, TotalCapacity: 8, UtilizationRate: 0.5},
		{StationID: "4", Name: "Offline"},
	}

	s := Summarize(records, 2)

	assert.Equal(t, 4, s.Stations)
	assert.Equal(t, 14, s.TotalBikes)
	assert.Equal(t, 14, s.TotalDocks)
	assert.InDelta(t, 3.5, s.MeanBikes, 1e-9)
	assert.InDelta(t, 0.375, s.MeanUtilization, 1e-9)
	assert.Equal(t, 0.0, s.MinUtilization)
	assert.Equal(t, 1.0, s.MaxUtilization)
	assert.Equal(t, 1, s.EmptyStations)
	assert.Equal(t, 1, s.FullStations)

	require.NotNil(t, s.Extent)
	assert.Equal(t, -73.6, s.Extent.MinLon)
	assert.Equal(t, -73.5, s.Extent.MaxLon)
	assert.Equal(t, 45.6, s.Extent.MaxLat)

	require.Len(t, s.Busiest, 2)
	assert.Equal(t, "Full", s.Busiest[0].Name)
	assert.Equal(t, "Half", s.Busiest[1].Name)

	text := s.String()
	assert.Contains(t, text, "Total Stations: 4")
	assert.Contains(t, text, "Average Utilization Rate: 37.50%")
	assert.Contains(t, text, "Longitude: -73.6000 to -73.5000")
	assert.Contains(t, text, "Top 2 Stations by Utilization:")
	assert.Contains(t, text, "  Full: 100.00%")
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, 5)

	assert.Equal(t, 0, s.Stations)
	assert.Nil(t, s.Extent)
	assert.Empty(t, s.Busiest)
	assert.Equal(t, "Total Stations: 0", strings.TrimSpace(s.String()))
}
