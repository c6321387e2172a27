package resultparser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// CalendarParsedResult is an iCalendar VEVENT. End is the zero time when
// the event gave neither DTEND nor DURATION.
type CalendarParsedResult struct {
	Summary     string    `json:"summary,omitempty" yaml:"summary,omitempty"`
	Start       time.Time `json:"start" yaml:"start"`
	StartAllDay bool      `json:"start_all_day,omitempty" yaml:"start_all_day,omitempty"`
	End         time.Time `json:"end,omitzero" yaml:"end,omitempty"`
	EndAllDay   bool      `json:"end_all_day,omitempty" yaml:"end_all_day,omitempty"`
	Location    string    `json:"location,omitempty" yaml:"location,omitempty"`
	Organizer   string    `json:"organizer,omitempty" yaml:"organizer,omitempty"`
	Attendees   []string  `json:"attendees,omitempty" yaml:"attendees,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Geo         *GeoPoint `json:"geo,omitempty" yaml:"geo,omitempty"`
}

func (*CalendarParsedResult) Type() Type { return TypeCalendar }

func (r *CalendarParsedResult) DisplayResult() string {
	parts := []string{r.Summary, formatWhen(r.Start, r.StartAllDay), formatWhen(r.End, r.EndAllDay), r.Location, r.Organizer}
	parts = append(parts, r.Attendees...)
	parts = append(parts, r.Description)
	return display(parts...)
}

func formatWhen(t time.Time, allDay bool) string {
	switch {
	case t.IsZero():
		return ""
	case allDay:
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

var (
	icalDate     = regexp.MustCompile(`^[0-9]{8}(T[0-9]{6}Z?)?$`)
	icalDuration = regexp.MustCompile(`^P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)
)

// parseWhen reads an iCalendar DATE or DATE-TIME. Dates are midnight UTC;
// date-times without a trailing Z are in loc.
func parseWhen(s string, loc *time.Location) (t time.Time, allDay bool, err error) {
	if !icalDate.MatchString(s) {
		return time.Time{}, false, fmt.Errorf("resultparser: %q is not an iCalendar date", s)
	}
	switch {
	case len(s) == 8:
		t, err = time.Parse("20060102", s)
		return t, true, err
	case strings.HasSuffix(s, "Z"):
		t, err = time.Parse("20060102T150405Z", s)
	default:
		t, err = time.ParseInLocation("20060102T150405", s, loc)
	}
	return t, false, err
}

// parseDuration reads an iCalendar duration such as "P1W", "P2DT3H" or
// "PT15M".
func parseDuration(s string) (time.Duration, bool) {
	m := icalDuration.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, false
	}
	units := []time.Duration{7 * 24 * time.Hour, 24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, false
		}
		d += time.Duration(n) * u
	}
	return d, true
}

// VEventParser reads text containing BEGIN:VEVENT. DTSTART is required.
// Floating date-times are read in Location, or time.Local when nil.
type VEventParser struct {
	Location *time.Location
}

func (p VEventParser) Parse(raw string) (ParsedResult, bool) {
	if !strings.Contains(raw, "BEGIN:VEVENT") {
		return nil, false
	}
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	single := func(prefix string) string {
		f, _ := matchField(prefix, raw, true, false)
		return f.Value
	}

	start, startAllDay, err := parseWhen(single("DTSTART"), loc)
	if err != nil {
		return nil, false
	}
	r := &CalendarParsedResult{
		Summary:     single("SUMMARY"),
		Start:       start,
		StartAllDay: startAllDay,
		Location:    single("LOCATION"),
		Organizer:   stripMailto(single("ORGANIZER")),
		Description: single("DESCRIPTION"),
	}
	if end := single("DTEND"); end != "" {
		if r.End, r.EndAllDay, err = parseWhen(end, loc); err != nil {
			return nil, false
		}
	} else if d, ok := parseDuration(single("DURATION")); ok {
		r.End = start.Add(d)
		r.EndAllDay = startAllDay && d%(24*time.Hour) == 0
	}
	for _, a := range matchFields("ATTENDEE", raw, true, false) {
		r.Attendees = append(r.Attendees, stripMailto(a.Value))
	}
	if lat, lon, ok := strings.Cut(single("GEO"), ";"); ok {
		la, err1 := strconv.ParseFloat(lat, 64)
		lo, err2 := strconv.ParseFloat(lon, 64)
		if err1 == nil && err2 == nil {
			r.Geo = &GeoPoint{Latitude: la, Longitude: lo}
		}
	}
	return r, true
}

func stripMailto(s string) string {
	if len(s) >= 7 && strings.EqualFold(s[:7], "mailto:") {
		return s[7:]
	}
	return s
}
