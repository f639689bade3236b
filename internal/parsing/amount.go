package parsing

import "github.com/shopspring/decimal"

var (
	// amountCeiling excludes phone numbers, receipt IDs and similar noise.
	amountCeiling = decimal.NewFromInt(10000)
	// amountFloor excludes stray cents-only matches. A candidate must be
	// strictly greater.
	amountFloor = decimal.RequireFromString("0.50")
)

// amountMatchers are ordered from most to least specific. Every candidate
// competes on magnitude, so the order only matters for logging.
var amountMatchers = []Matcher{
	// keyword anchored
	capture(`(?i)(?:total|amount|sum|balance)\s*:?\s*\$?([0-9]+\.?[0-9]{0,2})`),
	capture(`(?i)(?:grand total|final total|total amount)\s*:?\s*\$?([0-9]+\.?[0-9]{0,2})`),
	capture(`(?i)(?:subtotal)\s*:?\s*\$?([0-9]+\.?[0-9]{0,2})`),

	// currency symbol anchored
	capture(`\$\s*([0-9]+\.[0-9]{2})`).unless(`\s*[0-9]`),
	capture(`([0-9]+\.[0-9]{2})\s*\$`),

	// end of line
	capture(`(?m)([0-9]+\.[0-9]{2})\s*$`),

	// payment keywords and currency codes
	capture(`(?i)(?:pay|paid|due)\s*:?\s*\$?([0-9]+\.?[0-9]{0,2})`),
	capture(`([0-9]+\.[0-9]{2})\s*(?i:total|usd|eur|gbp)`),

	// bare decimals
	capture(`\b([0-9]{1,4}\.[0-9]{2})\b`),
}

// extractAmount returns the largest plausible amount in text.
func (p *Parser) extractAmount(text string) decimal.NullDecimal {
	var (
		best  decimal.Decimal
		found bool
		n     int
	)
	for _, raw := range matchAll(p.amountMatchers, text) {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		if !amount.IsPositive() || !amount.LessThan(amountCeiling) {
			continue
		}
		n++
		if !amount.GreaterThan(amountFloor) {
			continue
		}
		if !found || amount.GreaterThan(best) {
			best, found = amount, true
		}
	}

	if !found {
		p.log().Debug("no amount found", "candidates", n)
		return decimal.NullDecimal{}
	}
	p.log().Debug("selected amount", "amount", best.String(), "candidates", n)
	return decimal.NewNullDecimal(best)
}
