package parsing

import (
	"strings"
	"time"
)

// DateOrder decides how all-numeric dates like 03/04/2024 are read.
type DateOrder int

const (
	// MonthFirst reads 03/04/2024 as March 4.
	MonthFirst DateOrder = iota
	// DayFirst reads 03/04/2024 as 3 April.
	DayFirst
)

// String implements fmt.Stringer.
func (o DateOrder) String() string {
	if o == DayFirst {
		return "day-first"
	}
	return "month-first"
}

// ParseDateOrder maps a flag value to a DateOrder.
func ParseDateOrder(s string) (DateOrder, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "month-first", "mdy", "us":
		return MonthFirst, true
	case "day-first", "dmy":
		return DayFirst, true
	}
	return MonthFirst, false
}

const (
	dateLookback  = 365 * 24 * time.Hour
	dateLookahead = 24 * time.Hour
)

var dateMatchers = []Matcher{
	whole(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
	whole(`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`),
	whole(`\b\d{1,2}\s+[A-Za-z]{3}\s+\d{2,4}\b`),
	whole(`\b[A-Za-z]{3}\s+\d{1,2},?\s+\d{2,4}\b`),
}

// monthFirstLayouts is tried in order for every date-shaped substring.
var monthFirstLayouts = []string{
	"01/02/2006",
	"02/01/2006",
	"01-02-2006",
	"02-01-2006",
	"2006-01-02",
	"Jan 2, 2006",
	"2 Jan 2006",
	"01/02/06",
	"02/01/06",
	"1/2/2006",
	"2/1/2006",
	"1-2-2006",
	"2-1-2006",
}

var dayFirstLayouts = []string{
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"01-02-2006",
	"2006-01-02",
	"Jan 2, 2006",
	"2 Jan 2006",
	"02/01/06",
	"01/02/06",
	"2/1/2006",
	"1/2/2006",
	"2-1-2006",
	"1-2-2006",
}

func layoutsFor(order DateOrder) []string {
	if order == DayFirst {
		return dayFirstLayouts
	}
	return monthFirstLayouts
}

// extractDate returns the first plausible date in text, or nil.
func (p *Parser) extractDate(text string) *time.Time {
	now := p.clock.Now()
	earliest := now.Add(-dateLookback)
	latest := now.Add(dateLookahead)

	for _, m := range p.dateMatchers {
		for _, raw := range m.Match(text) {
			for _, layout := range p.dateLayouts {
				d, err := time.ParseInLocation(layout, raw, now.Location())
				if err != nil {
					continue
				}
				if d.After(earliest) && d.Before(latest) {
					p.log().Debug("selected date", "raw", raw, "layout", layout)
					return &d
				}
			}
			p.log().Debug("rejected date candidate", "raw", raw)
		}
	}

	p.log().Debug("no date found")
	return nil
}
