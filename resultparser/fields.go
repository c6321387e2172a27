package resultparser

import (
	"regexp"
	"strings"
	"sync"

	"github.com/ericlevine/zxscan/charset"
)

// field is one content line of a vCard or iCalendar payload: its value and
// the ";"-separated parameters that preceded the colon.
type field struct {
	Value  string
	Params []string
}

// kind returns the TYPE parameter, or the first bare parameter such as the
// "WORK" of "TEL;WORK:".
func (f field) kind() string {
	for _, p := range f.Params {
		key, val, ok := strings.Cut(p, "=")
		if !ok {
			return p
		}
		if strings.EqualFold(key, "TYPE") {
			return val
		}
	}
	return ""
}

var (
	patternsMu    sync.Mutex
	fieldPatterns = map[string]*regexp.Regexp{}

	foldedLine    = regexp.MustCompile(`\r?\n[ \t]`)
	newlineEscape = regexp.MustCompile(`\\[nN]`)
	vcardEscape   = regexp.MustCompile(`\\([,;\\])`)
)

func fieldPattern(prefix string) *regexp.Regexp {
	patternsMu.Lock()
	defer patternsMu.Unlock()
	re, ok := fieldPatterns[prefix]
	if !ok {
		re = regexp.MustCompile(`(?i)\n` + regexp.QuoteMeta(prefix) + `(?:;([^:]*))?:`)
		fieldPatterns[prefix] = re
	}
	return re
}

// matchFields returns every line starting with prefix. A value continues
// onto lines that begin with a space or tab, and, for quoted-printable
// values, past a line ending in "=". When divider is set, unescaped ";"
// separators become newlines.
func matchFields(prefix, raw string, trim, divider bool) []field {
	re := fieldPattern(prefix)
	text := "\n" + raw
	var out []field

	for i := 0; i < len(text); {
		loc := re.FindStringSubmatchIndex(text[i:])
		if loc == nil {
			break
		}
		var params []string
		qp := false
		cs := ""
		if loc[2] >= 0 {
			params = strings.Split(text[i+loc[2]:i+loc[3]], ";")
			for _, p := range params {
				key, val, ok := strings.Cut(p, "=")
				if !ok {
					continue
				}
				switch {
				case strings.EqualFold(key, "ENCODING") && strings.EqualFold(val, "QUOTED-PRINTABLE"):
					qp = true
				case strings.EqualFold(key, "CHARSET"):
					cs = val
				}
			}
		}

		start := i + loc[1]
		end := start
		for {
			j := strings.IndexByte(text[end:], '\n')
			if j < 0 {
				end = len(text)
				break
			}
			end += j
			if end+1 < len(text) && (text[end+1] == ' ' || text[end+1] == '\t') {
				end += 2
				continue
			}
			if qp && (text[end-1] == '=' || (end >= 2 && text[end-2] == '=')) {
				end++
				continue
			}
			break
		}
		i = end
		if end == start {
			continue
		}

		v := strings.TrimSuffix(text[start:end], "\r")
		if trim {
			v = strings.TrimSpace(v)
		}
		if qp {
			v = decodeQuotedPrintable(v, cs)
			if divider {
				v = strings.TrimSpace(splitUnescaped(v))
			}
		} else {
			if divider {
				v = strings.TrimSpace(splitUnescaped(v))
			}
			v = foldedLine.ReplaceAllString(v, "")
			v = newlineEscape.ReplaceAllString(v, "\n")
			v = vcardEscape.ReplaceAllString(v, "$1")
		}
		out = append(out, field{Value: v, Params: params})
	}
	return out
}

func matchField(prefix, raw string, trim, divider bool) (field, bool) {
	fs := matchFields(prefix, raw, trim, divider)
	if len(fs) == 0 {
		return field{}, false
	}
	return fs[0], true
}

func values(fs []field) []string {
	if len(fs) == 0 {
		return nil
	}
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Value
	}
	return out
}

func kinds(fs []field) []string {
	if len(fs) == 0 {
		return nil
	}
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.kind()
	}
	return out
}

// splitUnescaped turns each run of ";" not preceded by a backslash into a
// newline.
func splitUnescaped(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != ';' || (i > 0 && s[i-1] == '\\') {
			sb.WriteByte(s[i])
			continue
		}
		for i+1 < len(s) && s[i+1] == ';' {
			i++
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// decodeQuotedPrintable decodes =XX escapes. Runs of escaped bytes are
// converted from cs, UTF-8 when empty.
func decodeQuotedPrintable(v, cs string) string {
	if cs == "" {
		cs = "UTF-8"
	}
	var sb strings.Builder
	var frag []byte
	flush := func() {
		if len(frag) == 0 {
			return
		}
		s, err := charset.Decode(frag, cs)
		if err != nil {
			s = string(frag)
		}
		sb.WriteString(s)
		frag = frag[:0]
	}
	for i := 0; i < len(v); i++ {
		switch c := v[i]; c {
		case '\r', '\n':
		case '=':
			if i >= len(v)-2 {
				continue
			}
			if v[i+1] == '\r' || v[i+1] == '\n' {
				continue
			}
			hi, lo := hexDigit(v[i+1]), hexDigit(v[i+2])
			if hi >= 0 && lo >= 0 {
				frag = append(frag, byte(hi<<4|lo))
			}
			i += 2
		default:
			flush()
			sb.WriteByte(c)
		}
	}
	flush()
	return sb.String()
}

func hexDigit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
