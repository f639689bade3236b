package expense

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/expense-tracker/internal/parsing"
)

// TextSource turns a receipt image into text. key identifies the capture
// so a retake can replace an extraction that is still running.
type TextSource interface {
	Extract(ctx context.Context, key string, imageData []byte, contentType string) (string, error)
}

// IDGenerator generates unique IDs for expenses
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles expense operations
type Service struct {
	db          DB
	text        TextSource
	parser      *parsing.Parser
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID ids and the wall clock.
// A nil parser uses parsing defaults.
func NewService(db DB, text TextSource, parser *parsing.Parser, storage Storage) *Service {
	return NewServiceWithDeps(db, text, parser, storage, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, text TextSource, parser *parsing.Parser, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	if parser == nil {
		parser = parsing.NewParser()
	}
	return &Service{
		db:          db,
		text:        text,
		parser:      parser,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
	plainExtension      = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)
)

// sanitizeFilename strips phone-generated names down to something short and safe
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	ext = strings.ToLower(ext)
	if !plainExtension.MatchString(ext) {
		base, ext = filename, ""
	}

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = whitespaceRun.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// ScanReceipt stores the image, reads its text and parses it into a Draft.
// The image is removed again if text extraction fails.
func (s *Service) ScanReceipt(ctx context.Context, key, filename string, data []byte, contentType string) (*Draft, error) {
	if len(data) == 0 {
		return nil, invalid("please choose a receipt image")
	}

	name := fmt.Sprintf("%s_%s", s.idGenerator.Generate(), sanitizeFilename(filename))
	saved, err := s.storage.Save(name, data)
	if err != nil {
		return nil, fmt.Errorf("saving receipt image: %w", err)
	}

	text, err := s.text.Extract(ctx, key, data, contentType)
	if err != nil {
		slog.Error("Failed to read receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		if derr := s.storage.Delete(saved); derr != nil {
			slog.Warn("Failed to delete receipt image", "filename", saved, "error", derr)
		}
		return nil, fmt.Errorf("reading receipt: %w", err)
	}

	receipt := s.parser.Parse(text)
	slog.Info("Scanned receipt",
		"filename", saved,
		"has_amount", receipt.HasAmount(),
		"has_merchant", receipt.HasMerchant(),
		"has_date", receipt.HasDate(),
		"confidence", receipt.Confidence,
	)

	return &Draft{
		Receipt:         receipt,
		ReceiptFilename: saved,
		ContentType:     contentType,
		Text:            text,
	}, nil
}

// ParseText parses receipt text that was transcribed elsewhere
func (s *Service) ParseText(text string) parsing.ReceiptData {
	return s.parser.Parse(text)
}

// NewInputFromDraft pre-fills the expense form from a scan. Missing
// fields get the form defaults: today, "Receipt scan", "Other".
func (s *Service) NewInputFromDraft(draft *Draft) ExpenseInput {
	input := ExpenseInput{
		Amount:          decimal.Zero,
		Description:     "Receipt scan",
		Category:        OtherCategory,
		Date:            s.timeSource.Now().Format(parsing.DateLayout),
		Merchant:        draft.Receipt.Merchant,
		ReceiptFilename: draft.ReceiptFilename,
		ContentType:     draft.ContentType,
	}
	if draft.Receipt.HasAmount() {
		input.Amount = draft.Receipt.Amount.Decimal
	}
	if draft.Receipt.HasMerchant() {
		input.Description = draft.Receipt.Merchant
	}
	if draft.Receipt.HasDate() {
		input.Date = draft.Receipt.Date.Format(parsing.DateLayout)
	}
	return input
}

// validate checks input and fills in the category and date defaults
func (s *Service) validate(input ExpenseInput) (string, time.Time, error) {
	if !input.Amount.IsPositive() {
		return "", time.Time{}, invalid("please enter a valid amount")
	}
	if strings.TrimSpace(input.Description) == "" {
		return "", time.Time{}, invalid("please enter a description")
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = OtherCategory
	}
	if _, err := s.db.GetCategory(category); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", time.Time{}, invalid(fmt.Sprintf("unknown category %q", category))
		}
		return "", time.Time{}, fmt.Errorf("getting category: %w", err)
	}

	now := s.timeSource.Now()
	date := now
	if input.Date != "" {
		d, err := time.ParseInLocation(parsing.DateLayout, input.Date, now.Location())
		if err != nil {
			return "", time.Time{}, invalid("please enter a valid date")
		}
		date = d
	}
	return category, date, nil
}

func (s *Service) apply(e *Expense, input ExpenseInput, category string, date time.Time) {
	e.Amount = input.Amount.Round(2)
	e.Description = strings.TrimSpace(input.Description)
	e.Category = category
	e.Date = date
	e.Merchant = strings.TrimSpace(input.Merchant)
	if input.ReceiptFilename != "" {
		e.ReceiptFilename = input.ReceiptFilename
		e.ContentType = input.ContentType
	}
	e.FromReceipt = e.ReceiptFilename != ""
}

// CreateExpense validates and saves a new expense
func (s *Service) CreateExpense(input ExpenseInput) (*Expense, error) {
	category, date, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	now := s.timeSource.Now()
	expense := &Expense{
		ID:        s.idGenerator.Generate(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.apply(expense, input, category, date)

	if err := s.db.SaveExpense(expense); err != nil {
		return nil, fmt.Errorf("saving expense: %w", err)
	}
	return expense, nil
}

// UpdateExpense replaces the editable fields of an expense. An empty
// receipt filename keeps the attached image.
func (s *Service) UpdateExpense(id string, input ExpenseInput) (*Expense, error) {
	expense, err := s.db.GetExpense(id)
	if err != nil {
		return nil, fmt.Errorf("getting expense: %w", err)
	}
	category, date, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	s.apply(expense, input, category, date)
	expense.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveExpense(expense); err != nil {
		return nil, fmt.Errorf("saving expense: %w", err)
	}
	return expense, nil
}

// GetExpense retrieves an expense by ID
func (s *Service) GetExpense(id string) (*Expense, error) {
	expense, err := s.db.GetExpense(id)
	if err != nil {
		return nil, fmt.Errorf("getting expense: %w", err)
	}
	return expense, nil
}

// ListExpenses returns the expenses matching filter, newest first
func (s *Service) ListExpenses(filter Filter) ([]*Expense, error) {
	all, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}

	expenses := make([]*Expense, 0, len(all))
	for _, e := range all {
		if filter.Matches(e) {
			expenses = append(expenses, e)
		}
	}
	slices.SortStableFunc(expenses, func(a, b *Expense) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return expenses, nil
}

// DeleteExpense removes an expense and its receipt image
func (s *Service) DeleteExpense(id string) error {
	expense, err := s.db.GetExpense(id)
	if err != nil {
		return fmt.Errorf("getting expense for deletion: %w", err)
	}

	if expense.ReceiptFilename != "" {
		if err := s.storage.Delete(expense.ReceiptFilename); err != nil {
			// The record still goes; an orphaned image is harmless
			slog.Warn("Failed to delete receipt image", "filename", expense.ReceiptFilename, "error", err)
		}
	}

	if err := s.db.DeleteExpense(id); err != nil {
		return fmt.Errorf("deleting expense from database: %w", err)
	}
	return nil
}

// GetReceiptFile returns the image attached to an expense and its content type
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	expense, err := s.db.GetExpense(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense: %w", err)
	}
	if expense.ReceiptFilename == "" {
		return nil, "", fmt.Errorf("expense %s has no receipt: %w", id, ErrNotFound)
	}

	data, err := s.storage.Get(expense.ReceiptFilename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, expense.ContentType, nil
}

// ListCategories returns all categories
func (s *Service) ListCategories() ([]*Category, error) {
	categories, err := s.db.ListCategories()
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// CreateCategory adds a custom category. Icon and color default to those of "Other".
func (s *Service) CreateCategory(input Category) (*Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalid("please enter a category name")
	}
	if _, err := s.db.GetCategory(name); err == nil {
		return nil, invalid(fmt.Sprintf("category %q already exists", name))
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("getting category: %w", err)
	}

	fallback := DefaultCategories[len(DefaultCategories)-1]
	category := &Category{
		Name:  name,
		Icon:  cmp.Or(strings.TrimSpace(input.Icon), fallback.Icon),
		Color: cmp.Or(strings.TrimSpace(input.Color), fallback.Color),
	}
	if err := s.db.SaveCategory(category); err != nil {
		return nil, fmt.Errorf("saving category: %w", err)
	}
	return category, nil
}

// DeleteCategory removes a custom category and moves its expenses to "Other"
func (s *Service) DeleteCategory(name string) error {
	category, err := s.db.GetCategory(name)
	if err != nil {
		return fmt.Errorf("getting category: %w", err)
	}
	if category.IsDefault {
		return invalid("default categories cannot be deleted")
	}

	expenses, err := s.db.ListExpenses()
	if err != nil {
		return fmt.Errorf("listing expenses: %w", err)
	}
	now := s.timeSource.Now()
	for _, e := range expenses {
		if e.Category != name {
			continue
		}
		e.Category = OtherCategory
		e.UpdatedAt = now
		if err := s.db.SaveExpense(e); err != nil {
			return fmt.Errorf("moving expense %s to %s: %w", e.ID, OtherCategory, err)
		}
	}

	if err := s.db.DeleteCategory(name); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}

// CategoryTotals sums expenses per category, largest total first
func (s *Service) CategoryTotals() ([]CategoryTotal, error) {
	expenses, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}

	byCategory := make(map[string]*CategoryTotal)
	for _, e := range expenses {
		t, ok := byCategory[e.Category]
		if !ok {
			t = &CategoryTotal{Category: e.Category, Total: decimal.Zero}
			byCategory[e.Category] = t
		}
		t.Total = t.Total.Add(e.Amount)
		t.Count++
	}

	totals := make([]CategoryTotal, 0, len(byCategory))
	for _, t := range byCategory {
		totals = append(totals, *t)
	}
	slices.SortFunc(totals, func(a, b CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
	return totals, nil
}
