// Package report renders decode results for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/resultparser"
)

// Point is a result point in image coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Parsed is the structured reading of a result's text.
type Parsed struct {
	Type    resultparser.Type         `json:"type" yaml:"type"`
	Display string                    `json:"display" yaml:"display"`
	Fields  resultparser.ParsedResult `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Entry is one decoded symbol, or one input that failed.
type Entry struct {
	Source      string         `json:"source,omitempty" yaml:"source,omitempty"`
	Text        string         `json:"text,omitempty" yaml:"text,omitempty"`
	Format      string         `json:"format,omitempty" yaml:"format,omitempty"`
	Orientation int            `json:"orientation" yaml:"orientation"`
	Points      []Point        `json:"points,omitempty" yaml:"points,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Parsed      *Parsed        `json:"parsed,omitempty" yaml:"parsed,omitempty"`
	Error       string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// FromResult converts a decode result. Raw byte segments are left out.
// When parsers is non-nil the text is also run through it.
func FromResult(source string, res *zxscan.Result, parsers resultparser.Chain) Entry {
	e := Entry{
		Source:      source,
		Text:        res.Text,
		Format:      res.Format.String(),
		Orientation: res.Orientation(),
	}
	for _, p := range res.Points {
		e.Points = append(e.Points, Point{X: p.X, Y: p.Y})
	}
	for k, v := range res.Metadata {
		if k == zxscan.MetadataByteSegments || k == zxscan.MetadataOrientation {
			continue
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[k.String()] = v
	}
	if parsers != nil {
		e.Parsed = ParseText(res.Text, parsers)
	}
	return e
}

// ParseText runs text through parsers. Fields is left empty for plain
// text.
func ParseText(text string, parsers resultparser.Chain) *Parsed {
	p := parsers.Parse(text)
	parsed := &Parsed{Type: p.Type(), Display: p.DisplayResult()}
	if p.Type() != resultparser.TypeText {
		parsed.Fields = p
	}
	return parsed
}

// Failure records an input that could not be read or decoded.
func Failure(source string, err error) Entry {
	return Entry{Source: source, Error: err.Error()}
}

// Write renders entries as "text", "json" or "yaml".
func Write(w io.Writer, format string, entries []Entry) error {
	switch strings.ToLower(format) {
	case "", "text":
		return WriteText(w, entries)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []Entry{}
		}
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}

// WriteText writes one line per entry: source, format and text, or the
// error.
func WriteText(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		var err error
		prefix := ""
		if e.Source != "" {
			prefix = e.Source + ": "
		}
		switch {
		case e.Error != "":
			_, err = fmt.Fprintf(w, "%serror: %s\n", prefix, e.Error)
		case e.Parsed != nil && e.Parsed.Type != resultparser.TypeText:
			_, err = fmt.Fprintf(w, "%s[%s] %s (%s)\n", prefix, e.Format, e.Text, strings.ReplaceAll(e.Parsed.Display, "\n", "; "))
		default:
			_, err = fmt.Fprintf(w, "%s[%s] %s\n", prefix, e.Format, e.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
