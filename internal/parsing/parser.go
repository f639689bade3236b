// Package parsing turns raw OCR text of a receipt into structured data.
//
// Parsing never fails. Each field is a best-effort guess and the combined
// Confidence says how much of the expected receipt structure was found.
package parsing

import (
	"log/slog"
	"strings"
	"time"
)

// Clock provides the current time for the date plausibility window.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Parser extracts ReceiptData from text. It holds no mutable state and is
// safe for concurrent use.
type Parser struct {
	clock  Clock
	logger *slog.Logger
	order  DateOrder

	amountMatchers   []Matcher
	merchantMatchers []Matcher
	dateMatchers     []Matcher
	dateLayouts      []string
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the clock used for the date plausibility window.
func WithClock(c Clock) Option {
	return func(p *Parser) { p.clock = c }
}

// WithLogger sets the logger used for debug diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// WithDateOrder sets how ambiguous numeric dates are resolved.
func WithDateOrder(o DateOrder) Option {
	return func(p *Parser) { p.order = o }
}

// NewParser creates a Parser. Without options it reads dates month-first
// against the wall clock and logs to slog.Default().
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		clock:            wallClock{},
		order:            MonthFirst,
		amountMatchers:   amountMatchers,
		merchantMatchers: merchantMatchers,
		dateMatchers:     dateMatchers,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.clock == nil {
		p.clock = wallClock{}
	}
	p.dateLayouts = layoutsFor(p.order)
	return p
}

func (p *Parser) log() *slog.Logger {
	if p.logger == nil {
		return slog.Default()
	}
	return p.logger
}

// DateOrder returns the configured date order.
func (p *Parser) DateOrder() DateOrder { return p.order }

// Parse extracts receipt data from raw OCR text.
func (p *Parser) Parse(text string) ReceiptData {
	if strings.TrimSpace(text) == "" {
		p.log().Debug("empty receipt text")
		return ReceiptData{Items: []string{}}
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := splitLines(text)
	p.log().Debug("parsing receipt text", "lines", len(lines), "bytes", len(text))

	data := ReceiptData{
		Amount:   p.extractAmount(text),
		Merchant: p.extractMerchant(lines, text),
		Date:     p.extractDate(text),
		Items:    p.extractItems(lines),
	}
	data.Confidence = Score(data.HasAmount(), data.HasMerchant(), data.HasDate(), text)

	p.log().Debug("parsed receipt",
		"amount", data.Amount.Decimal.String(),
		"has_amount", data.HasAmount(),
		"merchant", data.Merchant,
		"has_date", data.HasDate(),
		"items", len(data.Items),
		"confidence", data.Confidence,
	)
	return data
}

var defaultParser = NewParser()

// Parse parses text with a month-first, wall-clock Parser.
func Parse(text string) ReceiptData {
	return defaultParser.Parse(text)
}

// splitLines returns the trimmed, non-empty lines of text.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
