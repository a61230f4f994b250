// Package payload maps in-memory transactions to the wire records the
// SheetDB API expects. Everything here is pure: building the same record
// twice yields byte-identical output.
package payload

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/samhvw8/finance-tracking/internal/core"
)

// Row is one wire record, keyed by sheet column header.
type Row map[string]string

const (
	sheetDateLayout  = "01/02/2006" // MM/dd/yyyy
	sheetMonthLayout = "01/2006"    // MM/yyyy
)

// SheetDate renders a date the way the ledger sheet stores it.
func SheetDate(d core.Date) string {
	return d.Format(sheetDateLayout)
}

// SheetMonth renders the MM/yyyy month key derived from the same date.
func SheetMonth(d core.Date) string {
	return d.Format(sheetMonthLayout)
}

// monthFormula wraps the month key in the spreadsheet formula that keeps
// the cell a real date value. Remote-engine syntax; reproduce verbatim.
func monthFormula(d core.Date) string {
	return `=TEXT(DATEVALUE("` + SheetMonth(d) + `"), "MM/yyyy")`
}

// expenseCategoryFormula cross-references the category against the lookup
// table on the setup sheet. Opaque interop contract, byte-for-byte.
func expenseCategoryFormula(category string) string {
	return fmt.Sprintf(`=IFERROR(INDEX('Setup Finanace'!$G$15:$G$24,MATCH(%q,'Setup Finanace'!$F$15:$F$24,0)),"")`, category)
}

// ParseFormatted parses a currency or quantity string as entered in the
// form: grouping commas, spaces and the đồng sign are display-only and
// stripped before parsing. The dot is kept as the decimal point.
func ParseFormatted(s string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(",", "", " ", "", "₫", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(cleaned)
}

// Transaction builds the main-ledger row for a plain transaction.
func Transaction(t core.Transaction) Row {
	category := t.Category
	if strings.TrimSpace(category) == "" {
		category = core.DefaultCategory
	}

	row := Row{
		"Date":     SheetDate(t.Date),
		"Type":     string(t.Type),
		"Category": category,
		"Tên":      t.Name,
		"Số Tiền":  fmt.Sprintf("%d", t.Amount),
		"Note":     t.Note,
		"Month":    monthFormula(t.Date),
	}

	if t.Type == core.Expense {
		row["Chi Tiêu Category"] = expenseCategoryFormula(category)
	}

	return row
}

// Investment builds the investment-sheet row. Numeric fields are rendered
// without grouping separators regardless of how they were entered.
func Investment(t core.InvestmentTransaction) Row {
	fees := "0"
	if !t.Fees.IsZero() {
		fees = t.Fees.String()
	}
	// An explicit zero P&L is indistinguishable from an unset one here,
	// so both render as the empty cell. Sheet formulas treat blank and 0
	// the same on this column.
	realized := ""
	if !t.RealizedPL.IsZero() {
		realized = t.RealizedPL.String()
	}

	return Row{
		"Date":               SheetDate(t.Date),
		"Investment Account": t.AccountID,
		"Type":               string(t.Type),
		"Asset Name":         t.AssetName,
		"Quantity":           t.Quantity.String(),
		"Price per Unit":     t.PricePerUnit.String(),
		"Total Amount":       t.TotalAmount.String(),
		"Fees":               fees,
		"Realized P&L":       realized,
		"Notes":              t.Notes,
	}
}

// Linked builds the main-ledger row representing the cash movement of an
// investment transaction: money into the account on Buy, out on Sell. The
// account name doubles as the ledger category.
func Linked(t core.InvestmentTransaction) Row {
	category := t.AccountName
	if strings.TrimSpace(category) == "" {
		category = t.AccountID
	}

	return Row{
		"Date":     SheetDate(t.Date),
		"Type":     string(t.LedgerType()),
		"Category": category,
		"Tên":      t.LedgerName(),
		"Số Tiền":  t.TotalAmount.String(),
		"Note":     t.Notes,
		"Month":    monthFormula(t.Date),
	}
}
