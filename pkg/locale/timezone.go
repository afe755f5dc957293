package locale

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTimezone = "UTC"
)

// Common Windows zone names as emitted by Exchange and Outlook feeds.
var windowsToIANA = map[string]string{
	"Pacific Standard Time":          "America/Los_Angeles",
	"Mountain Standard Time":         "America/Denver",
	"Central Standard Time":          "America/Chicago",
	"Eastern Standard Time":          "America/New_York",
	"Atlantic Standard Time":         "America/Halifax",
	"Alaskan Standard Time":          "America/Anchorage",
	"Hawaiian Standard Time":         "Pacific/Honolulu",
	"GMT Standard Time":              "Europe/London",
	"W. Europe Standard Time":        "Europe/Berlin",
	"Romance Standard Time":          "Europe/Paris",
	"Central Europe Standard Time":   "Europe/Budapest",
	"E. Europe Standard Time":        "Europe/Chisinau",
	"Israel Standard Time":           "Asia/Jerusalem",
	"Russian Standard Time":          "Europe/Moscow",
	"China Standard Time":            "Asia/Shanghai",
	"Tokyo Standard Time":            "Asia/Tokyo",
	"India Standard Time":            "Asia/Kolkata",
	"Singapore Standard Time":        "Asia/Singapore",
	"AUS Eastern Standard Time":      "Australia/Sydney",
	"New Zealand Standard Time":      "Pacific/Auckland",
	"UTC":                            "UTC",
	"Coordinated Universal Time":     "UTC",
	"SA Pacific Standard Time":       "America/Bogota",
	"E. South America Standard Time": "America/Sao_Paulo",
}

var locations sync.Map

// IANAName maps a Windows zone name to its IANA equivalent. Other names are returned unchanged.
func IANAName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultTimezone
	}
	if iana, ok := windowsToIANA[name]; ok {
		return iana
	}
	return name
}

// Resolve loads the location for an IANA or Windows zone name. Empty means UTC.
func Resolve(name string) (*time.Location, error) {
	iana := IANAName(name)
	if cached, ok := locations.Load(iana); ok {
		return cached.(*time.Location), nil
	}

	loc, err := time.LoadLocation(iana)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q", name)
	}
	locations.Store(iana, loc)
	return loc, nil
}

func IsValid(name string) bool {
	_, err := Resolve(name)
	return err == nil
}
