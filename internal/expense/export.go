package expense

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/zombor/expense-tracker/internal/parsing"
)

// XLSXContentType is the MIME type of ExportXLSX output
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	expenseSheet = "Expenses"
	totalsSheet  = "Totals"
)

var expenseHeaders = []string{"Date", "Description", "Category", "Merchant", "Amount", "Receipt"}

// ExportXLSX writes the expenses matching filter to a workbook with an
// expense sheet and a per-category totals sheet
func (s *Service) ExportXLSX(filter Filter) ([]byte, error) {
	expenses, err := s.ListExpenses(filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", expenseSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("creating amount style: %w", err)
	}

	for i, h := range expenseHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(expenseSheet, cell, h)
	}
	_ = f.SetCellStyle(expenseSheet, "A1", "F1", headerStyle)

	totals := make(map[string]decimal.Decimal)
	var order []string
	for i, e := range expenses {
		row := i + 2
		values := []any{
			e.Date.Format(parsing.DateLayout),
			e.Description,
			e.Category,
			e.Merchant,
			e.Amount.InexactFloat64(),
			e.ReceiptFilename,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(expenseSheet, cell, v)
		}
		amountCell, _ := excelize.CoordinatesToCellName(5, row)
		_ = f.SetCellStyle(expenseSheet, amountCell, amountCell, amountStyle)

		if _, ok := totals[e.Category]; !ok {
			order = append(order, e.Category)
		}
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}

	_ = f.SetColWidth(expenseSheet, "A", "A", 12)
	_ = f.SetColWidth(expenseSheet, "B", "B", 32)
	_ = f.SetColWidth(expenseSheet, "C", "D", 20)
	_ = f.SetColWidth(expenseSheet, "E", "E", 12)
	_ = f.SetColWidth(expenseSheet, "F", "F", 40)
	_ = f.SetPanes(expenseSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	if _, err := f.NewSheet(totalsSheet); err != nil {
		return nil, fmt.Errorf("creating totals sheet: %w", err)
	}
	_ = f.SetCellValue(totalsSheet, "A1", "Category")
	_ = f.SetCellValue(totalsSheet, "B1", "Total")
	_ = f.SetCellStyle(totalsSheet, "A1", "B1", headerStyle)
	for i, category := range order {
		row := i + 2
		_ = f.SetCellValue(totalsSheet, fmt.Sprintf("A%d", row), category)
		_ = f.SetCellValue(totalsSheet, fmt.Sprintf("B%d", row), totals[category].InexactFloat64())
		_ = f.SetCellStyle(totalsSheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), amountStyle)
	}
	_ = f.SetColWidth(totalsSheet, "A", "A", 24)
	_ = f.SetColWidth(totalsSheet, "B", "B", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
