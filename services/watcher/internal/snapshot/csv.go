package snapshot

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/models"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/utils"
)

// Columns is the header of every snapshot CSV.
var Columns = []string{
	"station_id", "name", "short_name", "lon", "lat", "capacity",
	"num_bikes_available", "num_ebikes_available", "num_docks_available",
	"is_installed", "is_renting", "is_returning", "last_reported",
	"total_capacity", "utilization_rate",
}

// FileName returns combined_stations_<ts>.csv.
func FileName(takenAt time.Time) string {
	return "combined_stations_" + utils.FileTimestamp(takenAt) + ".csv"
}

// WriteCSV writes a header row followed by one row per record.
func WriteCSV(w io.Writer, records []models.StationRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes records into dir, going through a temp file so readers never
// see a partial snapshot. It returns the final path.
func SaveCSV(dir string, takenAt time.Time, records []models.StationRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(takenAt))
	tempPath := path + ".tmp"

	if err := writeFile(tempPath, records); err != nil {
		_ = os.Remove(tempPath)
		return "", err
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return "", err
	}
	return path, nil
}

func writeFile(path string, records []models.StationRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	b := bufio.NewWriter(f)
	if err := WriteCSV(b, records); err != nil {
		return err
	}
	if err := b.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func row(r models.StationRecord) []string {
	lastReported := ""
	if !r.LastReported.IsZero() {
		lastReported = r.LastReported.Format(time.RFC3339)
	}
	return []string{
		r.StationID,
		r.Name,
		r.ShortName,
		utils.FloatPtrString(r.Lon),
		utils.FloatPtrString(r.Lat),
		strconv.Itoa(r.Capacity),
		strconv.Itoa(r.NumBikesAvailable),
		strconv.Itoa(r.NumEbikesAvailable),
		strconv.Itoa(r.NumDocksAvailable),
		strconv.FormatBool(r.IsInstalled),
		strconv.FormatBool(r.IsRenting),
		strconv.FormatBool(r.IsReturning),
		lastReported,
		strconv.Itoa(r.TotalCapacity),
		strconv.FormatFloat(r.UtilizationRate, 'f', -1, 64),
	}
}

// ReadCSV loads records previously written by WriteCSV, for replaying
// downstream steps on an archived snapshot. Columns are matched by header name.
func ReadCSV(r io.Reader) ([]models.StationRecord, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	if _, ok := index["station_id"]; !ok {
		return nil, errors.New("snapshot csv has no station_id column")
	}

	records := make([]models.StationRecord, 0)
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		get := func(col string) string {
			if i, ok := index[col]; ok && i < len(fields) {
				return fields[i]
			}
			return ""
		}
		records = append(records, parseRow(get))
	}
	return records, nil
}

// ReadCSVFile opens path and calls ReadCSV.
func ReadCSVFile(path string) ([]models.StationRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func parseRow(get func(string) string) models.StationRecord {
	atoi := func(col string) int {
		return models.ParseCount([]byte(get(col)))
	}
	float := func(col string) *float64 {
		f, err := strconv.ParseFloat(get(col), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	boolean := func(col string) bool {
		b, _ := strconv.ParseBool(get(col))
		return b
	}

	r := models.StationRecord{
		StationID:          get("station_id"),
		Name:               get("name"),
		ShortName:          get("short_name"),
		Lon:                float("lon"),
		Lat:                float("lat"),
		Capacity:           atoi("capacity"),
		NumBikesAvailable:  atoi("num_bikes_available"),
		NumEbikesAvailable: atoi("num_ebikes_available"),
		NumDocksAvailable:  atoi("num_docks_available"),
		IsInstalled:        boolean("is_installed"),
		IsRenting:          boolean("is_renting"),
		IsReturning:        boolean("is_returning"),
	}
	if ts, err := time.Parse(time.RFC3339, get("last_reported")); err == nil {
		r.LastReported = ts.UTC()
	}
	r.TotalCapacity = utils.TotalCapacity(r.NumBikesAvailable, r.NumDocksAvailable)
	r.UtilizationRate = utils.UtilizationRate(r.NumBikesAvailable, r.NumDocksAvailable)
	return r
}
