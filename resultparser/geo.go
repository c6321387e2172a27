package resultparser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// GeoParsedResult is a point from a geo: URI. Altitude is zero when the URI
// gave none.
type GeoParsedResult struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Altitude  float64 `json:"altitude,omitempty" yaml:"altitude,omitempty"`
	Query     string  `json:"query,omitempty" yaml:"query,omitempty"`
}

func (*GeoParsedResult) Type() Type { return TypeGeo }

func (r *GeoParsedResult) DisplayResult() string {
	var sb strings.Builder
	sb.WriteString(coordinate(r.Latitude))
	sb.WriteString(", ")
	sb.WriteString(coordinate(r.Longitude))
	if r.Altitude > 0 {
		sb.WriteString(", ")
		sb.WriteString(coordinate(r.Altitude))
		sb.WriteByte('m')
	}
	if r.Query != "" {
		fmt.Fprintf(&sb, " (%s)", r.Query)
	}
	return sb.String()
}

// GeoURI renders the point back as a geo: URI.
func (r *GeoParsedResult) GeoURI() string {
	var sb strings.Builder
	sb.WriteString("geo:")
	sb.WriteString(strconv.FormatFloat(r.Latitude, 'f', -1, 64))
	sb.WriteByte(',')
	sb.WriteString(strconv.FormatFloat(r.Longitude, 'f', -1, 64))
	if r.Altitude > 0 {
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(r.Altitude, 'f', -1, 64))
	}
	if r.Query != "" {
		sb.WriteByte('?')
		sb.WriteString(r.Query)
	}
	return sb.String()
}

// MapsURI returns a map link centred on the point. Altitude picks the zoom
// level: roughly one level out per doubling above 1000 feet.
func (r *GeoParsedResult) MapsURI() string {
	uri := fmt.Sprintf("https://maps.google.com/?ll=%s,%s",
		strconv.FormatFloat(r.Latitude, 'f', -1, 64), strconv.FormatFloat(r.Longitude, 'f', -1, 64))
	if r.Altitude > 0 {
		kfeet := int(r.Altitude * 3.28 / 1000)
		log2 := 0
		for kfeet > 1 && log2 < 18 {
			kfeet >>= 1
			log2++
		}
		uri += fmt.Sprintf("&z=%d", 19-log2)
	}
	return uri
}

// coordinate formats v with at least one decimal place.
func coordinate(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

var geoURI = regexp.MustCompile(`(?i)^geo:([\-0-9.]+),([\-0-9.]+)(?:,([\-0-9.]+))?(?:\?(.*))?$`)

// GeoParser reads "geo:lat,lon[,alt][?query]". Latitude must lie in
// [-90, 90], longitude in [-180, 180] and altitude must not be negative.
type GeoParser struct{}

func (GeoParser) Parse(raw string) (ParsedResult, bool) {
	m := geoURI.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, false
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, false
	}
	var alt float64
	if m[3] != "" {
		if alt, err = strconv.ParseFloat(m[3], 64); err != nil || alt < 0 {
			return nil, false
		}
	}
	return &GeoParsedResult{Latitude: lat, Longitude: lon, Altitude: alt, Query: m[4]}, true
}
