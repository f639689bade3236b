package parsing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of ReceiptData.Date.
const DateLayout = "2006-01-02"

// ReceiptData is the best-effort result of parsing one receipt.
// Zero values mean "not found".
type ReceiptData struct {
	Amount     decimal.NullDecimal
	Merchant   string
	Date       *time.Time
	Items      []string
	Confidence float64
}

type receiptJSON struct {
	Amount     decimal.NullDecimal `json:"amount"`
	Merchant   string              `json:"merchant"`
	Date       *string             `json:"date"`
	Items      []string            `json:"items"`
	Confidence float64             `json:"confidence"`
}

// MarshalJSON renders the date as YYYY-MM-DD and missing fields as null.
func (r ReceiptData) MarshalJSON() ([]byte, error) {
	out := receiptJSON{
		Amount:     r.Amount,
		Merchant:   r.Merchant,
		Items:      r.Items,
		Confidence: r.Confidence,
	}
	if out.Items == nil {
		out.Items = []string{}
	}
	if r.Date != nil {
		s := r.Date.Format(DateLayout)
		out.Date = &s
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *ReceiptData) UnmarshalJSON(data []byte) error {
	var in receiptJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = ReceiptData{
		Amount:     in.Amount,
		Merchant:   in.Merchant,
		Items:      in.Items,
		Confidence: in.Confidence,
	}
	if r.Items == nil {
		r.Items = []string{}
	}
	if in.Date != nil && *in.Date != "" {
		d, err := time.Parse(DateLayout, *in.Date)
		if err != nil {
			return fmt.Errorf("parsing date: %w", err)
		}
		r.Date = &d
	}
	return nil
}

// HasAmount reports whether an amount was found.
func (r ReceiptData) HasAmount() bool { return r.Amount.Valid }

// HasMerchant reports whether a merchant was found.
func (r ReceiptData) HasMerchant() bool { return r.Merchant != "" }

// HasDate reports whether a date was found.
func (r ReceiptData) HasDate() bool { return r.Date != nil }
