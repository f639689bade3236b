package parsing

import (
	"math"
	"strings"
)

// Confidence weights. A usable amount is worth the most because it is the
// one field an expense record cannot do without.
const (
	AmountWeight   = 0.50
	MerchantWeight = 0.30
	DateWeight     = 0.20

	keywordWeight   = 0.02
	maxKeywordBonus = 0.10
)

var receiptKeywords = []string{"total", "receipt", "subtotal", "tax", "payment", "cash", "card"}

// Score is the fixed linear confidence formula:
//
//	0.5*amount + 0.3*merchant + 0.2*date + min(0.1, 0.02*keywords)
//
// where keywords is the number of distinct receipt keywords present in
// text. The result is clamped to [0, 1] and rounded to two decimals.
func Score(hasAmount, hasMerchant, hasDate bool, text string) float64 {
	var score float64
	if hasAmount {
		score += AmountWeight
	}
	if hasMerchant {
		score += MerchantWeight
	}
	if hasDate {
		score += DateWeight
	}
	score += keywordBonus(text)

	score = math.Round(score*100) / 100
	return math.Min(1, score)
}

func keywordBonus(text string) float64 {
	lower := strings.ToLower(text)
	var n int
	for _, k := range receiptKeywords {
		if strings.Contains(lower, k) {
			n++
		}
	}
	return math.Min(maxKeywordBonus, float64(n)*keywordWeight)
}
