// Package resultparser interprets decoded barcode text as structured data
// such as contact cards, calendar events and geographic locations.
package resultparser

import (
	"strings"

	"github.com/ericlevine/zxscan"
)

// Type classifies a ParsedResult.
type Type int

const (
	TypeText Type = iota
	TypeAddressBook
	TypeGeo
	TypeCalendar
)

var typeNames = [...]string{
	TypeText:        "TEXT",
	TypeAddressBook: "ADDRESSBOOK",
	TypeGeo:         "GEO",
	TypeCalendar:    "CALENDAR",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "UNKNOWN"
}

// MarshalText renders the type by name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParsedResult is barcode text interpreted as a particular kind of data.
type ParsedResult interface {
	Type() Type
	// DisplayResult renders the fields a person would want to read, one per
	// line.
	DisplayResult() string
}

// Parser recognises one kind of payload.
type Parser interface {
	// Parse reports false when text is not of the parser's kind.
	Parse(text string) (ParsedResult, bool)
}

// Chain tries parsers in order. The zero value only produces text results.
type Chain []Parser

// Default returns the standard parser order: vCard, then VEVENT, then geo
// URIs.
func Default() Chain {
	return Chain{VCardParser{}, VEventParser{}, GeoParser{}}
}

// Parse returns the first parser's interpretation of text, or a
// TextParsedResult when none applies.
func (c Chain) Parse(text string) ParsedResult {
	for _, p := range c {
		if res, ok := p.Parse(text); ok {
			return res
		}
	}
	return &TextParsedResult{Text: text}
}

// ParseResult parses the text of a decoded barcode.
func (c Chain) ParseResult(res *zxscan.Result) ParsedResult {
	return c.Parse(res.Text)
}

// TextParsedResult is the fallback for text no parser understood.
type TextParsedResult struct {
	Text     string `json:"text" yaml:"text"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

func (*TextParsedResult) Type() Type { return TypeText }

func (r *TextParsedResult) DisplayResult() string { return r.Text }

// display joins the non-empty values with newlines.
func display(values ...string) string {
	var sb strings.Builder
	for _, v := range values {
		if v == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(v)
	}
	return sb.String()
}
