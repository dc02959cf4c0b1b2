package model

import (
	"regexp"
	"sort"
	"strings"
)

// Drivers maps the driver display name to its record.
type Drivers map[string]*DriverRecord

func (d Drivers) Clone() Drivers {
	ret := make(Drivers, len(d))
	for k, v := range d {
		ret[k] = v.Clone()
	}
	return ret
}

// Names returns the driver names in byte order.
func (d Drivers) Names() []string {
	ret := make([]string, 0, len(d))
	for k := range d {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

type Season struct {
	Name    string  `json:"name"`
	Drivers Drivers `json:"drivers"`
}

// SeasonInfo is a lightweight summary used for listings.
type SeasonInfo struct {
	Name    string `json:"name"`
	Drivers int    `json:"drivers"`
	Races   int    `json:"races"` // number of payloads applied
	Current bool   `json:"current"`
}

// Selector addresses either one season or the career view over all seasons.
type Selector struct {
	Season string
	Career bool
}

func SeasonSelector(name string) Selector {
	return Selector{Season: name}
}

func CareerSelector() Selector {
	return Selector{Career: true}
}

func (s Selector) String() string {
	if s.Career {
		return "career"
	}
	return s.Season
}

var seasonNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.\-]{0,63}$`)

// ValidSeasonName reports whether name is usable as a directory and key.
func ValidSeasonName(name string) bool {
	if !seasonNameRegex.MatchString(name) {
		return false
	}
	if strings.Contains(name, "..") || strings.HasSuffix(name, " ") {
		return false
	}
	return !strings.EqualFold(name, "career")
}
