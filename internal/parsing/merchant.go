package parsing

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	merchantHeaderLines = 5
	merchantMinLen      = 3
	merchantMaxLen      = 50
)

var (
	longDigitRun   = regexp.MustCompile(`[0-9]{4,}`)
	symbolRun      = regexp.MustCompile(`[#@$%&*+=<>{}\[\]]{3,}`)
	letterRun      = regexp.MustCompile(`[a-zA-Z]{3,}`)
	nonMerchantKey = regexp.MustCompile(`(?i)receipt|invoice|bill|total|amount|date|time|card|cash`)
)

// merchantMatchers are fallbacks tried against the whole text once the
// header scan fails. Only the first match of each is considered.
var merchantMatchers = []Matcher{
	// leading alphabetic line
	capture(`(?m)^([A-Za-z][A-Za-z\s&'.-]{2,30})$`).firstOnly(),
	// store type suffix
	capture(`(?im)^(.+?)\s*(?:store|shop|market|restaurant|cafe|ltd|llc|inc)\s*$`).firstOnly(),
	// name followed by an address block
	capture(`(?ms)^([A-Za-z\s]{3,25})\n.*(?:[0-9]{5}|street|st\.|ave|blvd)`).firstOnly(),
	// "thank you for shopping at ..."
	capture(`(?i)thank you for (?:shopping|visiting)\s+(.+?)(?:\n|$)`).firstOnly(),
	// header line followed by "receipt"
	capture(`(?im)^([A-Za-z\s]{3,20}).*receipt`).firstOnly(),
}

// extractMerchant returns the vendor name or "" when none is found.
func (p *Parser) extractMerchant(lines []string, text string) string {
	for i, line := range lines {
		if i >= merchantHeaderLines {
			break
		}
		if looksLikeMerchant(line) {
			p.log().Debug("merchant from header", "line", i, "merchant", line)
			return line
		}
	}

	for _, m := range p.merchantMatchers {
		for _, c := range m.Match(text) {
			c = strings.TrimSpace(c)
			if len(c) > 2 {
				p.log().Debug("merchant from pattern", "merchant", c)
				return c
			}
		}
	}

	p.log().Debug("no merchant found")
	return ""
}

func looksLikeMerchant(line string) bool {
	if longDigitRun.MatchString(line) || symbolRun.MatchString(line) {
		return false
	}
	n := utf8.RuneCountInString(line)
	if n < merchantMinLen || n > merchantMaxLen {
		return false
	}
	return letterRun.MatchString(line) && !nonMerchantKey.MatchString(line)
}
