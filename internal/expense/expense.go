package expense

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/expense-tracker/internal/parsing"
)

// ErrNotFound is returned when an expense, category or receipt image does not exist
var ErrNotFound = errors.New("not found")

// OtherCategory is the fallback category for uncategorized expenses
const OtherCategory = "Other"

// Expense is a single recorded spend
type Expense struct {
	ID              string          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Date            time.Time       `json:"date"`
	Merchant        string          `json:"merchant,omitempty"`
	ReceiptFilename string          `json:"receipt_filename,omitempty"`
	ContentType     string          `json:"content_type,omitempty"`
	FromReceipt     bool            `json:"from_receipt"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Category groups expenses
type Category struct {
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Color     string `json:"color"`
	IsDefault bool   `json:"is_default"`
}

// DefaultCategories are seeded into a fresh database and cannot be deleted
var DefaultCategories = []Category{
	{Name: "Food & Dining", Icon: "🍽️", Color: "#FF6B6B", IsDefault: true},
	{Name: "Transportation", Icon: "🚗", Color: "#4ECDC4", IsDefault: true},
	{Name: "Shopping", Icon: "🛍️", Color: "#45B7D1", IsDefault: true},
	{Name: "Entertainment", Icon: "🎬", Color: "#96CEB4", IsDefault: true},
	{Name: "Bills & Utilities", Icon: "💡", Color: "#FFEAA7", IsDefault: true},
	{Name: "Healthcare", Icon: "🏥", Color: "#DDA0DD", IsDefault: true},
	{Name: "Education", Icon: "📚", Color: "#98D8C8", IsDefault: true},
	{Name: "Travel", Icon: "✈️", Color: "#F7DC6F", IsDefault: true},
	{Name: OtherCategory, Icon: "📋", Color: "#AED6F1", IsDefault: true},
}

// Draft is what a receipt scan hands to the expense form: the parsed
// fields, the stored image, and the raw transcription.
type Draft struct {
	Receipt         parsing.ReceiptData `json:"receipt"`
	ReceiptFilename string              `json:"receipt_filename"`
	ContentType     string              `json:"content_type"`
	Text            string              `json:"text"`
}

// ExpenseInput is the user-editable part of an expense.
// Date is YYYY-MM-DD; empty means today.
type ExpenseInput struct {
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Date            string          `json:"date,omitempty"`
	Merchant        string          `json:"merchant,omitempty"`
	ReceiptFilename string          `json:"receipt_filename,omitempty"`
	ContentType     string          `json:"content_type,omitempty"`
}

// Filter narrows ListExpenses. From and To are inclusive calendar days;
// zero values are unbounded.
type Filter struct {
	Category string
	From     time.Time
	To       time.Time
}

// Matches reports whether e passes the filter. Days are compared on the
// calendar, so time of day and zone offsets do not matter.
func (f Filter) Matches(e *Expense) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	day := dayNumber(e.Date)
	if !f.From.IsZero() && day < dayNumber(f.From) {
		return false
	}
	if !f.To.IsZero() && day > dayNumber(f.To) {
		return false
	}
	return true
}

// CategoryTotal is the sum of expenses in one category
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// ValidationError carries a message meant for the person filling in the form
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
