package charset

// Guess picks the most plausible encoding for a byte segment that carried no
// ECI: "UTF-16BE" when a BOM is present, otherwise "UTF-8", "Shift_JIS" or
// "ISO-8859-1". A non-empty hint wins outright.
func Guess(data []byte, hint string) string {
	if hint != "" {
		return hint
	}
	if len(data) > 2 && (data[0] == 0xFE && data[1] == 0xFF || data[0] == 0xFF && data[1] == 0xFE) {
		return "UTF-16BE"
	}

	var u utf8Scan
	var s sjisScan
	var l latin1Scan
	u.ok, s.ok, l.ok = true, true, true
	for _, b := range data {
		if !u.ok && !s.ok && !l.ok {
			break
		}
		u.feed(b)
		s.feed(b)
		l.feed(b)
	}
	u.ok = u.ok && u.pending == 0
	s.ok = s.ok && s.pending == 0

	bom := len(data) > 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF
	switch {
	case u.ok && (bom || u.multi > 0):
		return "UTF-8"
	case s.ok && (s.maxKana >= 3 || s.maxDouble >= 3):
		return "Shift_JIS"
	case l.ok && s.ok:
		// two halfwidth katakana in a row, or many Latin-1 symbols, reads
		// better as Shift_JIS
		if s.maxKana == 2 && s.kana == 2 || l.odd*10 >= len(data) {
			return "Shift_JIS"
		}
		return "ISO-8859-1"
	case l.ok:
		return "ISO-8859-1"
	case s.ok:
		return "Shift_JIS"
	}
	return "UTF-8"
}

type utf8Scan struct {
	ok      bool
	pending int
	multi   int
}

func (u *utf8Scan) feed(b byte) {
	if !u.ok {
		return
	}
	switch {
	case u.pending > 0:
		if b&0xC0 != 0x80 {
			u.ok = false
			return
		}
		u.pending--
	case b < 0x80:
	case b&0xE0 == 0xC0:
		u.pending, u.multi = 1, u.multi+1
	case b&0xF0 == 0xE0:
		u.pending, u.multi = 2, u.multi+1
	case b&0xF8 == 0xF0:
		u.pending, u.multi = 3, u.multi+1
	default:
		u.ok = false
	}
}

type sjisScan struct {
	ok                 bool
	pending            int
	kana               int
	curKana, curDouble int
	maxKana, maxDouble int
}

func (s *sjisScan) feed(b byte) {
	if !s.ok {
		return
	}
	switch {
	case s.pending > 0:
		if b < 0x40 || b == 0x7F || b > 0xFC {
			s.ok = false
			return
		}
		s.pending--
	case b == 0x80 || b == 0xA0 || b > 0xEF:
		s.ok = false
	case b > 0xA0 && b < 0xE0:
		s.kana++
		s.curDouble = 0
		s.curKana++
		s.maxKana = max(s.maxKana, s.curKana)
	case b > 0x7F:
		s.pending++
		s.curKana = 0
		s.curDouble++
		s.maxDouble = max(s.maxDouble, s.curDouble)
	default:
		s.curKana, s.curDouble = 0, 0
	}
}

type latin1Scan struct {
	ok  bool
	odd int // printable symbols above 0x9F that rarely appear in text
}

func (l *latin1Scan) feed(b byte) {
	if !l.ok {
		return
	}
	switch {
	case b > 0x7F && b < 0xA0:
		l.ok = false
	case b > 0x9F && (b < 0xC0 || b == 0xD7 || b == 0xF7):
		l.odd++
	}
}
