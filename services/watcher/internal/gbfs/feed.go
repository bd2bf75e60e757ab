package gbfs

import (
	"strconv"
	"strings"
)

// Feed identifies one of the GBFS endpoints the watcher knows how to read.
type Feed int

const (
	StationInformation Feed = iota + 1
	StationStatus
	SystemInformation
	SystemAlerts
	VehicleTypes
)

var feedNames = map[Feed]string{
	StationInformation: "station_information",
	StationStatus:      "station_status",
	SystemInformation:  "system_information",
	SystemAlerts:       "system_alerts",
	VehicleTypes:       "vehicle_types",
}

// Feeds lists every known feed in declaration order.
func Feeds() []Feed {
	return []Feed{StationInformation, StationStatus, SystemInformation, SystemAlerts, VehicleTypes}
}

func (f Feed) String() string {
	if name, ok := feedNames[f]; ok {
		return name
	}
	return "feed(" + strconv.Itoa(int(f)) + ")"
}

// Valid reports whether f is one of the declared feeds.
func (f Feed) Valid() bool {
	_, ok := feedNames[f]
	return ok
}

// ParseFeed maps a GBFS feed name such as "station_status" to its Feed.
func ParseFeed(name string) (Feed, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for f, n := range feedNames {
		if n == key {
			return f, nil
		}
	}
	return 0, &ConfigurationError{Setting: "feed", Value: name, Reason: "unknown feed"}
}
