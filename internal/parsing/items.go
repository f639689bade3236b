package parsing

import (
	"strconv"
	"strings"
)

// MaxItems caps the number of item labels returned per receipt.
const MaxItems = 10

const itemMaxPrice = 1000

var itemMatchers = []*regexMatcher{
	capture(`^([A-Za-z][A-Za-z\s]{2,30})\s+\$?([0-9]+\.?[0-9]{0,2})$`),
	capture(`^([A-Za-z\s]{3,30})\s{2,}\$?([0-9]+\.?[0-9]{0,2})$`),
	capture(`^\d+\s+([A-Za-z][A-Za-z\s]{2,25})\s+\$?([0-9]+\.?[0-9]{0,2})$`),
}

// extractItems returns up to MaxItems item labels in line order.
func (p *Parser) extractItems(lines []string) []string {
	items := make([]string, 0)
	for _, line := range lines {
		if len(items) >= MaxItems {
			break
		}
		if name, ok := matchItem(line); ok {
			items = append(items, name)
		}
	}
	p.log().Debug("found items", "count", len(items))
	return items
}

// matchItem reports the item name of the first pattern that yields a
// usable name and price.
func matchItem(line string) (string, bool) {
	for _, m := range itemMatchers {
		sub := m.re.FindStringSubmatch(line)
		if sub == nil {
			continue
		}
		name := strings.TrimSpace(sub[1])
		price, err := strconv.ParseFloat(sub[2], 64)
		if err != nil || len(name) <= 2 || price <= 0 || price >= itemMaxPrice {
			continue
		}
		return name, true
	}
	return "", false
}
