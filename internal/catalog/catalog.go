// Package catalog loads station and event metadata from YAML files.
//
// Catalogs are loaded once per run and never modified; the pipeline only
// hands them to the encoders that record station coordinates or event
// origins in their headers.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/timeutil"
)

// Channel is the orientation of one station channel.
type Channel struct {
	Name    string  `yaml:"name"`
	Azimuth float64 `yaml:"azimuth"`
	Dip     float64 `yaml:"dip"`
}

// Station is the location of a station over an optional validity span.
type Station struct {
	Network   string    `yaml:"network"`
	Station   string    `yaml:"station"`
	Location  string    `yaml:"location"`
	Lat       float64   `yaml:"lat"`
	Lon       float64   `yaml:"lon"`
	Elevation float64   `yaml:"elevation"`
	Depth     float64   `yaml:"depth"`
	Channels  []Channel `yaml:"channels"`

	// Tmin and Tmax bound the validity of the entry; nil is open ended.
	Tmin *float64 `yaml:"-"`
	Tmax *float64 `yaml:"-"`
}

// Spans reports whether the station entry is valid anywhere in [tmin, tmax].
func (s *Station) Spans(tmin, tmax float64) bool {
	return (s.Tmin == nil || tmax >= *s.Tmin) && (s.Tmax == nil || *s.Tmax >= tmin)
}

// Channel returns the orientation of the named channel, if listed.
func (s *Station) Channel(name string) (Channel, bool) {
	for _, c := range s.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return Channel{}, false
}

// Event is a seismic event origin.
type Event struct {
	Name      string  `yaml:"name"`
	Time      float64 `yaml:"-"`
	Lat       float64 `yaml:"lat"`
	Lon       float64 `yaml:"lon"`
	Depth     float64 `yaml:"depth"`
	Magnitude float64 `yaml:"magnitude"`
}

type stationRecord struct {
	Station `yaml:",inline"`
	TminStr string `yaml:"tmin"`
	TmaxStr string `yaml:"tmax"`
}

type eventRecord struct {
	Event   `yaml:",inline"`
	TimeStr string `yaml:"time"`
}

type stationFile struct {
	Stations []stationRecord `yaml:"stations"`
}

type eventFile struct {
	Events []eventRecord `yaml:"events"`
}

func optTime(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	t, err := timeutil.ParseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadStations reads a YAML station file.
func LoadStations(path string) ([]Station, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}
	var f stationFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("load stations %s: %w", path, err)
	}

	out := make([]Station, 0, len(f.Stations))
	for i, r := range f.Stations {
		st := r.Station
		if st.Station == "" {
			return nil, fmt.Errorf("load stations %s: entry %d has no station code: %w", path, i, domain.ErrInvalidConfig)
		}
		if st.Tmin, err = optTime(r.TminStr); err != nil {
			return nil, fmt.Errorf("load stations %s: entry %d: %w", path, i, err)
		}
		if st.Tmax, err = optTime(r.TmaxStr); err != nil {
			return nil, fmt.Errorf("load stations %s: entry %d: %w", path, i, err)
		}
		out = append(out, st)
	}
	return out, nil
}

// LoadEvents reads a YAML event file. Events are returned sorted by time.
func LoadEvents(path string) ([]Event, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	var f eventFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("load events %s: %w", path, err)
	}

	out := make([]Event, 0, len(f.Events))
	for i, r := range f.Events {
		ev := r.Event
		if r.TimeStr == "" {
			return nil, fmt.Errorf("load events %s: entry %d has no time: %w", path, i, domain.ErrInvalidConfig)
		}
		if ev.Time, err = timeutil.ParseTime(r.TimeStr); err != nil {
			return nil, fmt.Errorf("load events %s: entry %d: %w", path, i, err)
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

// Catalog bundles the station and event metadata of a run.
type Catalog struct {
	Stations []Station
	Events   []Event
}

// Load reads the station and event files; empty paths are skipped.
func Load(stationsPath, eventsPath string) (*Catalog, error) {
	c := &Catalog{}
	var err error
	if stationsPath != "" {
		if c.Stations, err = LoadStations(stationsPath); err != nil {
			return nil, err
		}
	}
	if eventsPath != "" {
		if c.Events, err = LoadEvents(eventsPath); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// StationFor returns the station entry for the codes valid during
// [tmin, tmax]. An entry with an empty location matches any location when
// no exact match exists.
func (c *Catalog) StationFor(codes domain.Codes, tmin, tmax float64) (*Station, bool) {
	if c == nil {
		return nil, false
	}
	var fallback *Station
	for i := range c.Stations {
		s := &c.Stations[i]
		if s.Network != codes.Network || s.Station != codes.Station || !s.Spans(tmin, tmax) {
			continue
		}
		if s.Location == codes.Location {
			return s, true
		}
		if s.Location == "" && fallback == nil {
			fallback = s
		}
	}
	return fallback, fallback != nil
}

// EventBefore returns the latest event at or before t.
func (c *Catalog) EventBefore(t float64) (*Event, bool) {
	if c == nil {
		return nil, false
	}
	i := sort.Search(len(c.Events), func(i int) bool { return c.Events[i].Time > t })
	if i == 0 {
		return nil, false
	}
	return &c.Events[i-1], true
}
