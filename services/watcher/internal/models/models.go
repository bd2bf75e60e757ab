package models

import "time"

// StationInformationFeed models the GBFS station_information payload.
type StationInformationFeed struct {
	LastUpdated int64                   `json:"last_updated"`
	TTL         int                     `json:"ttl"`
	Data        *StationInformationData `json:"data"`
}

// StationInformationData wraps the static station list.
type StationInformationData struct {
	Stations []StationInformation `json:"stations"`
}

// StationInformation represents the static attributes of one station.
// Some operators publish lon/lat, others longitude/latitude.
type StationInformation struct {
	StationID StationID `json:"station_id" validate:"required"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
	Lon       *float64  `json:"lon"`
	Lat       *float64  `json:"lat"`
	Longitude *float64  `json:"longitude"`
	Latitude  *float64  `json:"latitude"`
	Capacity  Count     `json:"capacity"`
}

// StationStatusFeed models the GBFS station_status payload.
type StationStatusFeed struct {
	LastUpdated int64              `json:"last_updated"`
	TTL         int                `json:"ttl"`
	Data        *StationStatusData `json:"data"`
}

// StationStatusData wraps the live station list.
type StationStatusData struct {
	Stations []StationStatus `json:"stations"`
}

// StationStatus represents the live counters of one station.
type StationStatus struct {
	StationID          StationID `json:"station_id" validate:"required"`
	NumBikesAvailable  Count     `json:"num_bikes_available"`
	NumEbikesAvailable Count     `json:"num_ebikes_available"`
	NumDocksAvailable  Count     `json:"num_docks_available"`
	IsInstalled        Flag      `json:"is_installed"`
	IsRenting          Flag      `json:"is_renting"`
	IsReturning        Flag      `json:"is_returning"`
	LastReported       int64     `json:"last_reported"`
}

// SystemInformationFeed models the GBFS system_information payload.
type SystemInformationFeed struct {
	LastUpdated int64                  `json:"last_updated"`
	TTL         int                    `json:"ttl"`
	Data        *SystemInformationData `json:"data"`
}

// SystemInformationData holds the operator metadata.
type SystemInformationData struct {
	SystemID    string `json:"system_id"`
	Language    string `json:"language"`
	Name        string `json:"name"`
	Operator    string `json:"operator"`
	URL         string `json:"url"`
	Timezone    string `json:"timezone"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

// SystemAlertsFeed models the GBFS system_alerts payload.
type SystemAlertsFeed struct {
	LastUpdated int64             `json:"last_updated"`
	TTL         int               `json:"ttl"`
	Data        *SystemAlertsData `json:"data"`
}

// SystemAlertsData wraps the alert list.
type SystemAlertsData struct {
	Alerts []SystemAlert `json:"alerts"`
}

// SystemAlert is a single service notice.
type SystemAlert struct {
	AlertID     string      `json:"alert_id"`
	Type        string      `json:"type"`
	StationIDs  []StationID `json:"station_ids"`
	Summary     string      `json:"summary"`
	Description string      `json:"description"`
	LastUpdated int64       `json:"last_updated"`
}

// StationRecord is one row of a merged snapshot.
type StationRecord struct {
	StationID          string
	Name               string
	ShortName          string
	Lon                *float64
	Lat                *float64
	Capacity           int
	NumBikesAvailable  int
	NumEbikesAvailable int
	NumDocksAvailable  int
	IsInstalled        bool
	IsRenting          bool
	IsReturning        bool
	LastReported       time.Time
	TotalCapacity      int
	UtilizationRate    float64
}

// HasCoordinates reports whether both canonical coordinates are set.
func (r StationRecord) HasCoordinates() bool {
	return r.Lon != nil && r.Lat != nil
}
