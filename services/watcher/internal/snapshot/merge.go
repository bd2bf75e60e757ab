package snapshot

import (
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/models"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/utils"
)

// Merge inner-joins the two tables on station id, in information-feed order.
// Stations present in only one table are dropped without error; an empty
// intersection yields an empty, non-nil slice.
func Merge(info *Table[models.StationInformation], status *Table[models.StationStatus]) []models.StationRecord {
	records := make([]models.StationRecord, 0, min(info.Len(), status.Len()))
	for _, id := range info.IDs() {
		st, ok := status.Get(id)
		if !ok {
			continue
		}
		in, _ := info.Get(id)
		records = append(records, buildRecord(in, st))
	}
	return records
}

func buildRecord(info models.StationInformation, st models.StationStatus) models.StationRecord {
	info = utils.NormalizeCoordinates(info)

	bikes := int(st.NumBikesAvailable)
	docks := int(st.NumDocksAvailable)

	return models.StationRecord{
		StationID:          string(info.StationID),
		Name:               info.Name,
		ShortName:          info.ShortName,
		Lon:                info.Lon,
		Lat:                info.Lat,
		Capacity:           int(info.Capacity),
		NumBikesAvailable:  bikes,
		NumEbikesAvailable: int(st.NumEbikesAvailable),
		NumDocksAvailable:  docks,
		IsInstalled:        bool(st.IsInstalled),
		IsRenting:          bool(st.IsRenting),
		IsReturning:        bool(st.IsReturning),
		LastReported:       utils.UnixTime(st.LastReported),
		TotalCapacity:      utils.TotalCapacity(bikes, docks),
		UtilizationRate:    utils.UtilizationRate(bikes, docks),
	}
}
