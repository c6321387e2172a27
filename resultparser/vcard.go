package resultparser

import (
	"regexp"
	"strings"
)

// AddressBookParsedResult is a contact card. Parallel slices such as
// PhoneNumbers and PhoneTypes share indexes; a type is empty when the card
// gave none.
type AddressBookParsedResult struct {
	Names            []string `json:"names,omitempty" yaml:"names,omitempty"`
	PhoneNumbers     []string `json:"phone_numbers,omitempty" yaml:"phone_numbers,omitempty"`
	PhoneTypes       []string `json:"phone_types,omitempty" yaml:"phone_types,omitempty"`
	Emails           []string `json:"emails,omitempty" yaml:"emails,omitempty"`
	EmailTypes       []string `json:"email_types,omitempty" yaml:"email_types,omitempty"`
	InstantMessenger string   `json:"instant_messenger,omitempty" yaml:"instant_messenger,omitempty"`
	Note             string   `json:"note,omitempty" yaml:"note,omitempty"`
	Addresses        []string `json:"addresses,omitempty" yaml:"addresses,omitempty"`
	AddressTypes     []string `json:"address_types,omitempty" yaml:"address_types,omitempty"`
	Org              string   `json:"org,omitempty" yaml:"org,omitempty"`
	Birthday         string   `json:"birthday,omitempty" yaml:"birthday,omitempty"`
	Title            string   `json:"title,omitempty" yaml:"title,omitempty"`
	URL              string   `json:"url,omitempty" yaml:"url,omitempty"`
}

func (*AddressBookParsedResult) Type() Type { return TypeAddressBook }

func (r *AddressBookParsedResult) DisplayResult() string {
	var parts []string
	parts = append(parts, r.Names...)
	parts = append(parts, r.Title, r.Org)
	parts = append(parts, r.Addresses...)
	parts = append(parts, r.PhoneNumbers...)
	parts = append(parts, r.Emails...)
	parts = append(parts, r.InstantMessenger, r.URL, r.Birthday, r.Note)
	return display(parts...)
}

var (
	beginVCard = regexp.MustCompile(`(?i)^BEGIN:VCARD`)
	vcardDate  = regexp.MustCompile(`^\d{4}-?\d{2}-?\d{2}$`)
)

// VCardParser reads text starting with BEGIN:VCARD. A missing END:VCARD is
// tolerated.
type VCardParser struct{}

func (VCardParser) Parse(raw string) (ParsedResult, bool) {
	if !beginVCard.MatchString(raw) {
		return nil, false
	}
	names := matchFields("FN", raw, true, false)
	if len(names) == 0 {
		names = matchFields("N", raw, true, false)
		for i := range names {
			names[i].Value = formatName(names[i].Value)
		}
	}
	phones := matchFields("TEL", raw, true, false)
	emails := matchFields("EMAIL", raw, true, false)
	addresses := matchFields("ADR", raw, true, true)

	r := &AddressBookParsedResult{
		Names:        values(names),
		PhoneNumbers: values(phones),
		PhoneTypes:   kinds(phones),
		Emails:       values(emails),
		EmailTypes:   kinds(emails),
		Addresses:    values(addresses),
		AddressTypes: kinds(addresses),
	}
	if f, ok := matchField("NOTE", raw, false, false); ok {
		r.Note = f.Value
	}
	if f, ok := matchField("ORG", raw, true, true); ok {
		r.Org = f.Value
	}
	if f, ok := matchField("BDAY", raw, true, false); ok && vcardDate.MatchString(f.Value) {
		r.Birthday = f.Value
	}
	if f, ok := matchField("TITLE", raw, true, false); ok {
		r.Title = f.Value
	}
	if f, ok := matchField("URL", raw, true, false); ok {
		r.URL = f.Value
	}
	if f, ok := matchField("IMPP", raw, true, false); ok {
		r.InstantMessenger = f.Value
	}
	return r, true
}

// formatName turns a structured N value, "Public;John;Q.;Reverend;III",
// into display order, "Reverend John Q. Public III".
func formatName(n string) string {
	c := strings.SplitN(n, ";", 5)
	for len(c) < 5 {
		c = append(c, "")
	}
	var parts []string
	for _, i := range []int{3, 1, 2, 0, 4} {
		if s := strings.TrimSpace(c[i]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
